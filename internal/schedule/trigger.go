package schedule

import (
	"context"
	"sync"
	"time"

	"stockpilot/internal/logger"
)

// RunFunc is the action fired by an armed trigger.
type RunFunc func(ctx context.Context)

// TriggerConfig holds the recovery tuning knobs.
type TriggerConfig struct {
	// MissedWindow is how stale a past-due trigger may be and still fire.
	MissedWindow time.Duration

	// MissedRunDelay is the settle delay before a recovered trigger fires.
	MissedRunDelay time.Duration
}

// Trigger arms an in-memory one-shot timer from the persisted record. The
// timer does not survive restarts, so Evaluate runs the recovery decision at
// startup and again after every schedule mutation: a future trigger is armed
// normally, a trigger missed within the window fires after a short delay, and
// anything older is discarded.
type Trigger struct {
	store  *Store
	run    RunFunc
	logger *logger.Logger
	config TriggerConfig

	mu    sync.Mutex
	ctx   context.Context
	timer *time.Timer
	armed bool

	// now is replaceable for tests.
	now func() time.Time
}

// NewTrigger creates a new Trigger.
func NewTrigger(store *Store, cfg TriggerConfig, run RunFunc, log *logger.Logger) *Trigger {
	if cfg.MissedWindow == 0 {
		cfg.MissedWindow = 24 * time.Hour
	}
	if cfg.MissedRunDelay == 0 {
		cfg.MissedRunDelay = 10 * time.Second
	}
	return &Trigger{
		store:  store,
		run:    run,
		logger: log,
		config: cfg,
		now:    time.Now,
	}
}

// Start stores the base context for fired runs and performs the initial
// evaluation.
func (t *Trigger) Start(ctx context.Context) error {
	t.mu.Lock()
	t.ctx = ctx
	t.mu.Unlock()
	return t.Evaluate()
}

// Evaluate reads the record and arms, fires-after-delay, or discards per the
// recovery decision. Any previously armed timer is canceled first, so
// re-evaluating after a mutation never leaves duplicate timers behind.
//
// An unreadable record is treated as disabled, not as a hard error.
func (t *Trigger) Evaluate() error {
	rec, err := t.store.Load()
	if err != nil {
		t.logger.Warn("schedule record unreadable, treating as disabled",
			logger.Field{Key: "error", Value: err.Error()})
		t.disarm()
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.disarmLocked()

	entry := rec.Update
	if !entry.Enable {
		t.logger.Debug("schedule disabled, nothing to arm")
		return nil
	}

	when, err := entry.Time()
	if err != nil {
		t.logger.Warn("schedule has invalid trigger time, treating as disabled",
			logger.Field{Key: "error", Value: err.Error()})
		return nil
	}

	now := t.now()
	switch {
	case when.After(now):
		t.armLocked(when.Sub(now))
		t.logger.Info("trigger armed",
			logger.Field{Key: "trigger_time", Value: when.Format(time.RFC3339)},
			logger.Field{Key: "in", Value: when.Sub(now).String()})

	case now.Sub(when) <= t.config.MissedWindow:
		t.armLocked(t.config.MissedRunDelay)
		t.logger.Info("missed trigger within window, running shortly",
			logger.Field{Key: "trigger_time", Value: when.Format(time.RFC3339)},
			logger.Field{Key: "missed_by", Value: now.Sub(when).String()},
			logger.Field{Key: "delay", Value: t.config.MissedRunDelay.String()})

	default:
		t.logger.Warn("trigger too old, discarding",
			logger.Field{Key: "trigger_time", Value: when.Format(time.RFC3339)},
			logger.Field{Key: "missed_by", Value: now.Sub(when).String()})
	}
	return nil
}

// Armed reports whether a one-shot timer is currently pending.
func (t *Trigger) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed
}

// Stop cancels any pending timer.
func (t *Trigger) Stop() {
	t.disarm()
}

func (t *Trigger) disarm() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.disarmLocked()
}

func (t *Trigger) disarmLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.armed = false
}

func (t *Trigger) armLocked(d time.Duration) {
	t.armed = true
	t.timer = time.AfterFunc(d, t.fire)
}

// fire disables the persisted record so a restart cannot replay this
// trigger, then runs the action.
func (t *Trigger) fire() {
	t.mu.Lock()
	t.timer = nil
	t.armed = false
	ctx := t.ctx
	t.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := t.store.Update(func(r *Record) error {
		r.Update.Enable = false
		return nil
	}); err != nil {
		t.logger.Error("failed to disable fired trigger", err)
	}

	t.logger.InfoCtx(ctx, "trigger fired")
	t.run(ctx)
}
