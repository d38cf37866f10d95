package stocks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"stockpilot/internal/logger"
	"stockpilot/internal/retry"
)

// Quote is a single market data point for a symbol.
type Quote struct {
	Price         decimal.Decimal
	PreviousClose decimal.Decimal
}

// PriceFeed fetches current market data for a symbol.
type PriceFeed interface {
	Quote(ctx context.Context, symbol string) (Quote, error)
}

// FeedConfig holds configuration for the Yahoo chart feed.
type FeedConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// YahooFeed implements PriceFeed against the Yahoo Finance chart API.
type YahooFeed struct {
	endpoint   string
	logger     *logger.Logger
	httpClient *http.Client
}

// NewYahooFeed creates a new Yahoo chart API client.
func NewYahooFeed(cfg FeedConfig, log *logger.Logger) *YahooFeed {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &YahooFeed{
		endpoint: cfg.Endpoint,
		logger:   log,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// chartResponse is the subset of the chart API payload we read.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Quote fetches the latest price and previous close for a symbol.
func (f *YahooFeed) Quote(ctx context.Context, symbol string) (Quote, error) {
	return retry.Do(ctx, func() (Quote, error) {
		return f.fetch(ctx, symbol)
	}, retry.Config{})
}

func (f *YahooFeed) fetch(ctx context.Context, symbol string) (Quote, error) {
	endpoint := fmt.Sprintf("%s/%s?range=1d&interval=1d", f.endpoint, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; stockpilot)")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Quote{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("quote request for %s failed with status %d", symbol, resp.StatusCode)
	}

	var raw chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Quote{}, fmt.Errorf("failed to decode quote response for %s: %w", symbol, err)
	}

	if raw.Chart.Error != nil {
		return Quote{}, fmt.Errorf("quote error for %s: %s (%s)", symbol, raw.Chart.Error.Description, raw.Chart.Error.Code)
	}
	if len(raw.Chart.Result) == 0 {
		return Quote{}, fmt.Errorf("no quote data for %s", symbol)
	}

	meta := raw.Chart.Result[0].Meta
	if meta.RegularMarketPrice == 0 {
		return Quote{}, fmt.Errorf("no price data for %s", symbol)
	}

	return Quote{
		Price:         decimal.NewFromFloat(meta.RegularMarketPrice),
		PreviousClose: decimal.NewFromFloat(meta.ChartPreviousClose),
	}, nil
}
