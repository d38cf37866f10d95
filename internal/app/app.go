// Package app wires all components together and manages their lifecycle:
// stores, the LLM provider and tools, the chain orchestrator, the trigger,
// the event hub, and the HTTP server.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stockpilot/internal/chain"
	"stockpilot/internal/config"
	"stockpilot/internal/hub"
	"stockpilot/internal/logger"
	"stockpilot/internal/schedule"
	"stockpilot/internal/server"
)

// App is the composition root.
type App struct {
	config *config.Config
	logger *logger.Logger

	hub          *hub.Hub
	orchestrator *chain.Orchestrator
	trigger      *schedule.Trigger
	recurring    *schedule.Recurring
	server       *server.Server

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool
}

// New creates a new App. Components are built in Initialize.
func New(cfg *config.Config, log *logger.Logger) *App {
	return &App{
		config: cfg,
		logger: log,
	}
}

// Run initializes everything, starts serving, and blocks until ctx is
// canceled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	if err := a.Initialize(ctx); err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- a.server.Start(a.ctx)
	}()

	a.logger.Info("application is running")

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
		return a.Shutdown()
	case err := <-serveErr:
		if err != nil {
			a.logger.Error("http server failed", err)
		}
		shutdownErr := a.Shutdown()
		if err != nil {
			return err
		}
		return shutdownErr
	}
}

// Shutdown stops all components in reverse start order.
func (a *App) Shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		return nil
	}
	a.started = false

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown failed", err)
	}
	if a.recurring != nil {
		a.recurring.Stop()
	}
	a.trigger.Stop()
	a.hub.Close()
	if a.cancel != nil {
		a.cancel()
	}

	a.logger.Info("application stopped")
	return nil
}

// RunChainOnce executes a single chain run and returns its outcome. Used by
// the one-shot CLI command.
func (a *App) RunChainOnce(ctx context.Context) error {
	if err := a.Initialize(ctx); err != nil {
		return err
	}
	defer func() {
		a.trigger.Stop()
		a.hub.Close()
		if a.cancel != nil {
			a.cancel()
		}
		a.mu.Lock()
		a.started = false
		a.mu.Unlock()
	}()

	run, err := a.orchestrator.Run(ctx)
	if err != nil {
		return err
	}
	if !run.Succeeded() {
		for _, step := range run.Steps {
			if step.Err != nil {
				a.logger.Warn("step failed",
					logger.Field{Key: "step", Value: step.Name},
					logger.Field{Key: "error", Value: step.Err.Error()})
			}
		}
		return fmt.Errorf("chain run finished with failed steps")
	}
	return nil
}
