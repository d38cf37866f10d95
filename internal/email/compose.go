package email

import (
	"context"
	"fmt"
	"math"

	"stockpilot/internal/logger"
	"stockpilot/internal/stocks"
)

// moverThresholdPercent is the absolute daily change above which a position
// counts as a notable mover.
const moverThresholdPercent = 3.0

// ComposerConfig holds defaults applied when the record has no recipient or
// subject yet.
type ComposerConfig struct {
	Recipient string
	Subject   string
}

// Composer updates the pending report record from the latest portfolio state
// and the synthesized summary.
type Composer struct {
	store  *Store
	config ComposerConfig
	logger *logger.Logger
}

// NewComposer creates a new Composer.
func NewComposer(store *Store, cfg ComposerConfig, log *logger.Logger) *Composer {
	return &Composer{
		store:  store,
		config: cfg,
		logger: log,
	}
}

// Compose writes the summary and the filtered movers into the report record.
// Positions with an absolute change above the threshold become the
// dailyPriceChange list; everything else is left out of the alert section.
func (c *Composer) Compose(ctx context.Context, summary string, portfolio *stocks.Portfolio) error {
	movers := filterMovers(portfolio)

	err := c.store.Update(func(r *Report) error {
		if r.Recipient == "" {
			r.Recipient = c.config.Recipient
		}
		if r.Subject == "" {
			r.Subject = c.config.Subject
		}
		r.Content.Summary = summary
		r.Content.DailyPriceChange = movers
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update report record: %w", err)
	}

	c.logger.InfoCtx(ctx, "report record composed",
		logger.Field{Key: "movers", Value: len(movers)},
		logger.Field{Key: "summary_length", Value: len(summary)})
	return nil
}

func filterMovers(p *stocks.Portfolio) []PriceMove {
	movers := make([]PriceMove, 0)
	for _, st := range p.Stocks {
		if math.Abs(st.ChangePercent) <= moverThresholdPercent {
			continue
		}
		movers = append(movers, PriceMove{
			Symbol:        st.Symbol,
			Name:          st.Name,
			Price:         st.Price,
			ChangePercent: st.ChangePercent,
		})
	}
	return movers
}
