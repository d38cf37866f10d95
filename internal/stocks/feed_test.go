package stocks

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockpilot/internal/logger"
)

func newTestFeed(t *testing.T, handler http.HandlerFunc) *YahooFeed {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log, err := logger.New(logger.Config{Level: "debug", Format: "text", Output: "stdout"})
	require.NoError(t, err)

	return NewYahooFeed(FeedConfig{Endpoint: srv.URL}, log)
}

func TestYahooFeed_Quote(t *testing.T) {
	feed := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/AAPL", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("range"))
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{"regularMarketPrice":232.11,"chartPreviousClose":228.64}}],"error":null}}`)
	})

	q, err := feed.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "232.11", q.Price.String())
	assert.Equal(t, "228.64", q.PreviousClose.String())
}

func TestYahooFeed_UnknownSymbol(t *testing.T) {
	feed := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
	})

	_, err := feed.Quote(context.Background(), "NOPE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No data found")
}

func TestYahooFeed_HTTPError(t *testing.T) {
	feed := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := feed.Quote(context.Background(), "AAPL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}
