package schedule

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockpilot/internal/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "debug", Format: "text", Output: "stdout"})
	require.NoError(t, err)
	return NewStore(filepath.Join(t.TempDir(), "schedule.json"), log)
}

func writeEntry(t *testing.T, store *Store, enable bool, when time.Time) {
	t.Helper()
	require.NoError(t, store.Update(func(r *Record) error {
		r.Update = Entry{Enable: enable, TriggerTime: when.Format(time.RFC3339)}
		return nil
	}))
}

type runCounter struct {
	n int32
}

func (c *runCounter) fn(ctx context.Context) { atomic.AddInt32(&c.n, 1) }

func (c *runCounter) count() int32 { return atomic.LoadInt32(&c.n) }

func (c *runCounter) waitFor(t *testing.T, want int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.count() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d runs, got %d", want, c.count())
}

func newTestTrigger(t *testing.T, store *Store, runs *runCounter) *Trigger {
	t.Helper()
	tr := NewTrigger(store, TriggerConfig{
		MissedWindow:   24 * time.Hour,
		MissedRunDelay: 20 * time.Millisecond,
	}, runs.fn, store.logger)
	t.Cleanup(tr.Stop)
	return tr
}

func TestTrigger_DisabledDoesNothing(t *testing.T) {
	store := newTestStore(t)
	writeEntry(t, store, false, time.Now().Add(time.Hour))

	runs := &runCounter{}
	tr := newTestTrigger(t, store, runs)
	require.NoError(t, tr.Start(context.Background()))

	assert.False(t, tr.Armed())
	assert.Equal(t, int32(0), runs.count())
}

func TestTrigger_MissingRecordIsDisabled(t *testing.T) {
	store := newTestStore(t)

	runs := &runCounter{}
	tr := newTestTrigger(t, store, runs)
	require.NoError(t, tr.Start(context.Background()))

	assert.False(t, tr.Armed())
}

func TestTrigger_FutureArmsAndFires(t *testing.T) {
	store := newTestStore(t)
	writeEntry(t, store, true, time.Now().Add(50*time.Millisecond))

	runs := &runCounter{}
	tr := newTestTrigger(t, store, runs)
	require.NoError(t, tr.Start(context.Background()))
	assert.True(t, tr.Armed())

	runs.waitFor(t, 1)
	assert.False(t, tr.Armed())

	// The fired trigger is persisted disabled, so a restart cannot replay it.
	rec, err := store.Load()
	require.NoError(t, err)
	assert.False(t, rec.Update.Enable)

	require.NoError(t, tr.Evaluate())
	assert.False(t, tr.Armed())
}

func TestTrigger_MissedWithinWindowFiresAfterDelay(t *testing.T) {
	store := newTestStore(t)
	writeEntry(t, store, true, time.Now().Add(-2*time.Hour))

	runs := &runCounter{}
	tr := newTestTrigger(t, store, runs)
	require.NoError(t, tr.Start(context.Background()))
	assert.True(t, tr.Armed())

	runs.waitFor(t, 1)

	rec, err := store.Load()
	require.NoError(t, err)
	assert.False(t, rec.Update.Enable)
}

func TestTrigger_TooOldIsDiscarded(t *testing.T) {
	store := newTestStore(t)
	writeEntry(t, store, true, time.Now().Add(-25*time.Hour))

	runs := &runCounter{}
	tr := newTestTrigger(t, store, runs)
	require.NoError(t, tr.Start(context.Background()))

	assert.False(t, tr.Armed())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), runs.count())
}

func TestTrigger_ReevaluateReplacesTimer(t *testing.T) {
	store := newTestStore(t)
	writeEntry(t, store, true, time.Now().Add(time.Hour))

	runs := &runCounter{}
	tr := newTestTrigger(t, store, runs)
	require.NoError(t, tr.Start(context.Background()))
	assert.True(t, tr.Armed())

	// Disabling the record and re-evaluating cancels the pending timer.
	writeEntry(t, store, false, time.Now().Add(time.Hour))
	require.NoError(t, tr.Evaluate())
	assert.False(t, tr.Armed())

	// Re-arming close by replaces, not duplicates: exactly one run fires.
	writeEntry(t, store, true, time.Now().Add(30*time.Millisecond))
	require.NoError(t, tr.Evaluate())
	writeEntry(t, store, true, time.Now().Add(40*time.Millisecond))
	require.NoError(t, tr.Evaluate())

	runs.waitFor(t, 1)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), runs.count())
}

func TestTrigger_InvalidTriggerTime(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Update(func(r *Record) error {
		r.Update = Entry{Enable: true, TriggerTime: "tomorrow-ish"}
		return nil
	}))

	runs := &runCounter{}
	tr := newTestTrigger(t, store, runs)
	require.NoError(t, tr.Start(context.Background()))
	assert.False(t, tr.Armed())
}
