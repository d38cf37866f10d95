package app

import (
	"context"
	"fmt"
	"time"

	"stockpilot/internal/chain"
	"stockpilot/internal/email"
	"stockpilot/internal/hub"
	"stockpilot/internal/llm"
	"stockpilot/internal/logger"
	"stockpilot/internal/report"
	"stockpilot/internal/schedule"
	"stockpilot/internal/server"
	"stockpilot/internal/stocks"
	"stockpilot/internal/tools"
)

// Initialize builds every component from the configuration. Safe to call
// once per App.
func (a *App) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return fmt.Errorf("application already initialized")
	}

	a.ctx, a.cancel = context.WithCancel(ctx)
	cfg := a.config

	// Failures below may leave the hub keepalive running or the trigger
	// armed; unwind whatever already started before returning the error.
	ok := false
	defer func() {
		if ok {
			return
		}
		if a.recurring != nil {
			a.recurring.Stop()
			a.recurring = nil
		}
		if a.trigger != nil {
			a.trigger.Stop()
		}
		if a.hub != nil {
			a.hub.Close()
		}
		a.cancel()
	}()

	// Stores.
	stockStore := stocks.NewStore(cfg.Stocks.Path, a.logger)
	emailStore := email.NewStore(cfg.Email.Path, a.logger)
	schedStore := schedule.NewStore(cfg.Schedule.Path, a.logger)

	// Market data and refresh pass.
	feed := stocks.NewYahooFeed(stocks.FeedConfig{
		Endpoint: cfg.Stocks.FeedEndpoint,
		Timeout:  time.Duration(cfg.Stocks.TimeoutSeconds) * time.Second,
	}, a.logger)
	refresher := stocks.NewRefresher(stockStore, feed, a.logger)

	// LLM provider.
	provider, err := a.buildProvider()
	if err != nil {
		return err
	}

	// Tools.
	registry := tools.NewRegistry()
	if cfg.Tools.Search.Enabled {
		searchTool := tools.NewSearchTool(tools.SearchConfig{
			APIKey:     cfg.Tools.Search.APIKey,
			Endpoint:   cfg.Tools.Search.Endpoint,
			MaxResults: cfg.Tools.Search.MaxResults,
			Timeout:    time.Duration(cfg.Tools.Search.TimeoutSeconds) * time.Second,
		}, a.logger)
		if err := registry.Register(searchTool); err != nil {
			return fmt.Errorf("failed to register search tool: %w", err)
		}
		a.logger.Info("search tool registered")
	} else {
		a.logger.Warn("search tool is disabled")
	}
	if cfg.Tools.Page.Enabled {
		pageTool := tools.NewPageTool(tools.PageConfig{
			Timeout:   time.Duration(cfg.Tools.Page.TimeoutSeconds) * time.Second,
			MaxChars:  cfg.Tools.Page.MaxChars,
			UserAgent: cfg.Tools.Page.UserAgent,
		}, provider, a.logger)
		if err := registry.Register(pageTool); err != nil {
			return fmt.Errorf("failed to register page tool: %w", err)
		}
		a.logger.Info("page tool registered")
	} else {
		a.logger.Warn("page tool is disabled")
	}

	// Report synthesis.
	cleaner, err := report.NewCleaner(cfg.Report.StripPatterns)
	if err != nil {
		return err
	}
	synthesizer, err := report.NewSynthesizer(report.Config{
		Model:       cfg.LLM.OpenAI.Model,
		Temperature: cfg.LLM.OpenAI.Temperature,
		MaxTokens:   cfg.LLM.OpenAI.MaxTokens,
		MaxTurns:    cfg.Report.MaxTurns,
	}, provider, registry, cleaner, a.logger)
	if err != nil {
		return err
	}

	// Dispatch.
	composer := email.NewComposer(emailStore, email.ComposerConfig{
		Recipient: cfg.Email.SMTP.To,
		Subject:   "Daily Portfolio Report",
	}, a.logger)

	var mailer email.Mailer
	if cfg.Email.SMTP.Enabled {
		mailer = email.NewSMTPMailer(email.SMTPConfig{
			Host:     cfg.Email.SMTP.Host,
			Port:     cfg.Email.SMTP.Port,
			Username: cfg.Email.SMTP.Username,
			Password: cfg.Email.SMTP.Password,
			From:     cfg.Email.SMTP.From,
		}, a.logger)
	} else {
		mailer = email.NewLogMailer(a.logger)
	}

	var telegram *email.TelegramNotifier
	if cfg.Email.Telegram.Enabled {
		telegram, err = email.NewTelegramNotifier(email.TelegramConfig{
			Token:  cfg.Email.Telegram.Token,
			ChatID: cfg.Email.Telegram.ChatID,
		}, a.logger)
		if err != nil {
			return err
		}
		a.logger.Info("telegram notifier initialized")
	}

	// Hub and orchestrator.
	a.hub = hub.New(cfg.Hub.Buffer, time.Duration(cfg.Hub.KeepaliveSeconds)*time.Second, a.logger)
	a.hub.Start(a.ctx)

	steps := chain.BuildSteps(chain.Deps{
		StockStore:  stockStore,
		Refresher:   refresher,
		Synthesizer: synthesizer,
		Composer:    composer,
		EmailStore:  emailStore,
		Mailer:      mailer,
		Telegram:    telegram,
		Logger:      a.logger,
	})
	a.orchestrator = chain.New(steps, a.hub,
		time.Duration(cfg.Chain.StepDelaySeconds)*time.Second, a.logger)

	// Trigger recovery and optional recurring schedule.
	a.trigger = schedule.NewTrigger(schedStore, schedule.TriggerConfig{
		MissedWindow:   time.Duration(cfg.Schedule.MissedWindowHours) * time.Hour,
		MissedRunDelay: time.Duration(cfg.Schedule.MissedRunDelaySeconds) * time.Second,
	}, a.runChain, a.logger)
	if err := a.trigger.Start(a.ctx); err != nil {
		return err
	}

	if cfg.Schedule.Cron != "" {
		a.recurring, err = schedule.NewRecurring(cfg.Schedule.Cron, a.runChain, a.logger)
		if err != nil {
			return err
		}
		a.recurring.Start()
	}

	// HTTP server.
	a.server = server.New(server.Config{Listen: cfg.Server.Listen}, server.Deps{
		Orchestrator:  a.orchestrator,
		Trigger:       a.trigger,
		ScheduleStore: schedStore,
		StockStore:    stockStore,
		Hub:           a.hub,
		Logger:        a.logger,
	})

	a.started = true
	ok = true
	return nil
}

// runChain is the action fired by the trigger and the recurring schedule.
func (a *App) runChain(ctx context.Context) {
	if _, err := a.orchestrator.Run(ctx); err != nil {
		a.logger.Warn("scheduled chain run did not start",
			logger.Field{Key: "error", Value: err.Error()})
	}
}

// buildProvider creates the configured LLM provider.
func (a *App) buildProvider() (llm.Provider, error) {
	switch a.config.LLM.Provider {
	case "openai":
		return llm.NewOpenAIProvider(llm.OpenAIConfig{
			APIKey:      a.config.LLM.OpenAI.APIKey,
			Model:       a.config.LLM.OpenAI.Model,
			Temperature: a.config.LLM.OpenAI.Temperature,
			MaxTokens:   a.config.LLM.OpenAI.MaxTokens,
			Timeout:     time.Duration(a.config.LLM.OpenAI.TimeoutSeconds) * time.Second,
		}, a.logger), nil
	case "mock":
		return llm.NewFixedProvider("The portfolio had no notable movement today."), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", a.config.LLM.Provider)
	}
}
