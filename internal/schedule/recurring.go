package schedule

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"stockpilot/internal/logger"
)

// Recurring runs the chain on a cron expression, independently of the
// one-shot record. It is optional; an empty spec disables it.
type Recurring struct {
	cron   *cron.Cron
	logger *logger.Logger
	spec   string
}

// NewRecurring creates a recurring runner for the given cron spec.
func NewRecurring(spec string, run RunFunc, log *logger.Logger) (*Recurring, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		run(context.Background())
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}

	return &Recurring{
		cron:   c,
		logger: log,
		spec:   spec,
	}, nil
}

// Start begins scheduling.
func (r *Recurring) Start() {
	r.cron.Start()
	r.logger.Info("recurring schedule started",
		logger.Field{Key: "spec", Value: r.spec})
}

// Stop halts scheduling and waits for a running invocation to finish.
func (r *Recurring) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("recurring schedule stopped")
}
