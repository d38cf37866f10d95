package stocks

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"stockpilot/internal/logger"
)

// Refresher fills in prices for positions that have none yet or whose data
// is from a previous day.
type Refresher struct {
	store  *Store
	feed   PriceFeed
	logger *logger.Logger

	// now is replaceable for tests.
	now func() time.Time
}

// NewRefresher creates a new Refresher.
func NewRefresher(store *Store, feed PriceFeed, log *logger.Logger) *Refresher {
	return &Refresher{
		store:  store,
		feed:   feed,
		logger: log,
		now:    time.Now,
	}
}

// Refresh updates every position whose price is zero or whose date stamp is
// not today. Prices are rounded to two decimals, the change percentage is
// computed against the previous close, and the date is stamped.
//
// A failed quote for one symbol is logged and skipped; the pass succeeds as
// long as at least one update lands, or nothing needed updating at all.
func (r *Refresher) Refresh(ctx context.Context) error {
	today := r.now().Format("2006-01-02")

	var attempted, updated int
	var lastErr error

	err := r.store.Update(func(p *Portfolio) error {
		for i := range p.Stocks {
			st := &p.Stocks[i]
			if st.Price != 0 && st.Date == today {
				continue
			}
			attempted++

			quote, err := r.feed.Quote(ctx, st.Symbol)
			if err != nil {
				lastErr = err
				r.logger.WarnCtx(ctx, "quote fetch failed, skipping symbol",
					logger.Field{Key: "symbol", Value: st.Symbol},
					logger.Field{Key: "error", Value: err.Error()})
				continue
			}

			st.Price = round2(quote.Price)
			if !quote.PreviousClose.IsZero() {
				change := quote.Price.Sub(quote.PreviousClose).
					Div(quote.PreviousClose).
					Mul(decimal.NewFromInt(100))
				st.ChangePercent = round2(change)
			}
			st.Date = today
			updated++

			r.logger.DebugCtx(ctx, "position updated",
				logger.Field{Key: "symbol", Value: st.Symbol},
				logger.Field{Key: "price", Value: st.Price},
				logger.Field{Key: "change_percent", Value: st.ChangePercent})
		}
		return nil
	})
	if err != nil {
		return err
	}

	if attempted > 0 && updated == 0 {
		return fmt.Errorf("all %d quote fetches failed: %w", attempted, lastErr)
	}

	r.logger.InfoCtx(ctx, "portfolio refreshed",
		logger.Field{Key: "attempted", Value: attempted},
		logger.Field{Key: "updated", Value: updated})
	return nil
}

func round2(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
