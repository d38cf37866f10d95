// Package chain runs the update pipeline: refresh prices, synthesize the
// report, dispatch it. Steps run in a fixed order with a pause between them;
// a failed step is logged and skipped over, never retried within the run.
package chain

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"stockpilot/internal/hub"
	"stockpilot/internal/logger"
	"stockpilot/internal/metrics"
)

// ErrRunInProgress is returned when Run is called while another run is
// active. Runs never queue or interleave.
var ErrRunInProgress = errors.New("a chain run is already in progress")

// Step is one stage of the pipeline.
type Step struct {
	// Name identifies the step in logs and metrics.
	Name string

	// Event is published to the hub when the step succeeds. Nothing is
	// published on failure.
	Event string

	Fn func(ctx context.Context) error
}

// StepResult records the outcome of one executed step.
type StepResult struct {
	Name     string
	Err      error
	Duration time.Duration
}

// ChainRun is the record of one pipeline execution. It lives only for the
// duration of the run; state is observable through events and logs.
type ChainRun struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Steps      []StepResult
}

// Succeeded reports whether every executed step succeeded.
func (r *ChainRun) Succeeded() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return false
		}
	}
	return true
}

// Orchestrator executes the registered steps. At most one run is active at a
// time regardless of how many callers (timer, cron, HTTP) ask for one.
type Orchestrator struct {
	steps     []Step
	hub       *hub.Hub
	logger    *logger.Logger
	stepDelay time.Duration
	running   atomic.Bool
}

// New creates a new Orchestrator.
func New(steps []Step, h *hub.Hub, stepDelay time.Duration, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		steps:     steps,
		hub:       h,
		logger:    log,
		stepDelay: stepDelay,
	}
}

// Run executes the pipeline. It returns ErrRunInProgress if another run is
// active, or the context error if the run was canceled between steps. Step
// failures do not abort the run and are reported on the returned ChainRun.
func (o *Orchestrator) Run(ctx context.Context) (*ChainRun, error) {
	if !o.running.CompareAndSwap(false, true) {
		metrics.ObserveChainRejected()
		o.logger.WarnCtx(ctx, "chain run rejected, another run is active")
		return nil, ErrRunInProgress
	}
	defer o.running.Store(false)

	run := &ChainRun{ID: uuid.NewString(), StartedAt: time.Now()}
	log := o.logger.With(logger.Field{Key: "run_id", Value: run.ID})
	log.InfoCtx(ctx, "chain run started",
		logger.Field{Key: "steps", Value: len(o.steps)})

	for i, step := range o.steps {
		if i > 0 {
			if err := o.pause(ctx); err != nil {
				run.FinishedAt = time.Now()
				metrics.ObserveChainRun("canceled")
				log.WarnCtx(ctx, "chain run canceled between steps",
					logger.Field{Key: "next_step", Value: step.Name})
				return run, err
			}
		}

		start := time.Now()
		err := step.Fn(ctx)
		elapsed := time.Since(start)

		result := StepResult{Name: step.Name, Err: err, Duration: elapsed}
		run.Steps = append(run.Steps, result)

		if err != nil {
			metrics.ObserveStep(step.Name, "failure", elapsed)
			log.ErrorCtx(ctx, "chain step failed", err,
				logger.Field{Key: "step", Value: step.Name},
				logger.Field{Key: "duration_ms", Value: elapsed.Milliseconds()})
			continue
		}

		metrics.ObserveStep(step.Name, "success", elapsed)
		log.InfoCtx(ctx, "chain step completed",
			logger.Field{Key: "step", Value: step.Name},
			logger.Field{Key: "duration_ms", Value: elapsed.Milliseconds()})

		if step.Event != "" {
			o.hub.Publish(hub.Event{
				Type: step.Event,
				Time: time.Now(),
				Data: map[string]any{"run_id": run.ID},
			})
		}
	}

	run.FinishedAt = time.Now()
	if run.Succeeded() {
		metrics.ObserveChainRun("success")
	} else {
		metrics.ObserveChainRun("partial")
	}

	log.InfoCtx(ctx, "chain run finished",
		logger.Field{Key: "succeeded", Value: run.Succeeded()},
		logger.Field{Key: "duration_ms", Value: run.FinishedAt.Sub(run.StartedAt).Milliseconds()})
	return run, nil
}

// Running reports whether a run is currently active.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// pause waits the configured inter-step delay, giving up early if the run is
// canceled.
func (o *Orchestrator) pause(ctx context.Context) error {
	if o.stepDelay <= 0 {
		return nil
	}
	select {
	case <-time.After(o.stepDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
