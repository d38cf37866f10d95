package chain

import (
	"context"
	"fmt"
	"time"

	"stockpilot/internal/email"
	"stockpilot/internal/logger"
	"stockpilot/internal/report"
	"stockpilot/internal/stocks"
)

// Step and event names for the standard pipeline.
const (
	StepStocksUpdate = "stocks_update"
	StepEmailUpdate  = "email_update"
	StepEmailSend    = "email_send"

	EventStocksUpdated = "stocks-updated"
	EventEmailUpdated  = "email-updated"
	EventEmailSent     = "email-sent"
)

// Deps carries everything the standard pipeline steps need.
type Deps struct {
	StockStore  *stocks.Store
	Refresher   *stocks.Refresher
	Synthesizer *report.Synthesizer
	Composer    *email.Composer
	EmailStore  *email.Store
	Mailer      email.Mailer

	// Telegram is optional; when set the dispatched report is mirrored to
	// a chat, and a failure there never fails the step.
	Telegram *email.TelegramNotifier

	Logger *logger.Logger
}

// BuildSteps assembles the standard three-step pipeline.
func BuildSteps(d Deps) []Step {
	return []Step{
		{
			Name:  StepStocksUpdate,
			Event: EventStocksUpdated,
			Fn:    d.Refresher.Refresh,
		},
		{
			Name:  StepEmailUpdate,
			Event: EventEmailUpdated,
			Fn:    d.synthesizeAndCompose,
		},
		{
			Name:  StepEmailSend,
			Event: EventEmailSent,
			Fn:    d.dispatch,
		},
	}
}

// synthesizeAndCompose runs the report loop over the current portfolio and
// writes the result into the report record.
func (d Deps) synthesizeAndCompose(ctx context.Context) error {
	portfolio, err := d.StockStore.Load()
	if err != nil {
		return fmt.Errorf("failed to load portfolio: %w", err)
	}

	rc := report.Context{
		Date:   time.Now().Format("2006-01-02"),
		Stocks: make([]report.Holding, 0, len(portfolio.Stocks)),
	}
	for _, st := range portfolio.Stocks {
		rc.Stocks = append(rc.Stocks, report.Holding{
			Symbol:        st.Symbol,
			Name:          st.Name,
			Price:         st.Price,
			ChangePercent: st.ChangePercent,
		})
	}

	summary, err := d.Synthesizer.Synthesize(ctx, rc)
	if err != nil {
		return fmt.Errorf("report synthesis failed: %w", err)
	}

	return d.Composer.Compose(ctx, summary, portfolio)
}

// dispatch sends the composed report.
func (d Deps) dispatch(ctx context.Context) error {
	r, err := d.EmailStore.Load()
	if err != nil {
		return fmt.Errorf("failed to load report record: %w", err)
	}

	if err := d.Mailer.Send(ctx, r); err != nil {
		return err
	}

	if d.Telegram != nil {
		d.Telegram.Notify(ctx, r)
	}
	return nil
}
