package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockpilot/internal/chain"
	"stockpilot/internal/hub"
	"stockpilot/internal/logger"
	"stockpilot/internal/schedule"
	"stockpilot/internal/stocks"
)

type testEnv struct {
	server   *Server
	hub      *hub.Hub
	stocks   *stocks.Store
	schedule *schedule.Store
	trigger  *schedule.Trigger
	stepRan  chan string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log, err := logger.New(logger.Config{Level: "debug", Format: "text", Output: "stdout"})
	require.NoError(t, err)

	dir := t.TempDir()
	stockStore := stocks.NewStore(filepath.Join(dir, "stockapp.json"), log)
	schedStore := schedule.NewStore(filepath.Join(dir, "schedule.json"), log)

	h := hub.New(16, 0, log)
	t.Cleanup(h.Close)

	stepRan := make(chan string, 16)
	steps := []chain.Step{
		{Name: "stocks_update", Event: "stocks-updated", Fn: func(ctx context.Context) error {
			stepRan <- "stocks_update"
			return nil
		}},
	}
	orch := chain.New(steps, h, 0, log)

	trigger := schedule.NewTrigger(schedStore, schedule.TriggerConfig{
		MissedWindow:   24 * time.Hour,
		MissedRunDelay: 10 * time.Millisecond,
	}, func(ctx context.Context) {}, log)
	t.Cleanup(trigger.Stop)
	require.NoError(t, trigger.Start(context.Background()))

	srv := New(Config{Listen: ":0"}, Deps{
		Orchestrator:  orch,
		Trigger:       trigger,
		ScheduleStore: schedStore,
		StockStore:    stockStore,
		Hub:           h,
		Logger:        log,
	})

	return &testEnv{
		server:   srv,
		hub:      h,
		stocks:   stockStore,
		schedule: schedStore,
		trigger:  trigger,
		stepRan:  stepRan,
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestUpdateSchedule(t *testing.T) {
	env := newTestEnv(t)

	future := time.Now().Add(time.Hour).Format(time.RFC3339)
	body := strings.NewReader(`{"trigger_time":"` + future + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/schedule", body)
	req.Header.Set(echoContentType, "application/json")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := env.schedule.Load()
	require.NoError(t, err)
	assert.True(t, stored.Update.Enable)
	assert.Equal(t, future, stored.Update.TriggerTime)
	assert.True(t, env.trigger.Armed())
}

func TestUpdateSchedule_InvalidTime(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/schedule", strings.NewReader(`{"trigger_time":"next tuesday"}`))
	req.Header.Set(echoContentType, "application/json")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.trigger.Armed())
}

func TestScheduleStatus(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/schedule-status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, map[string]bool{
		"stocks_update": false,
		"email_update":  false,
		"email_send":    false,
	}, status)
}

func TestRunChain_Accepted(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/run-chain", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case step := <-env.stepRan:
		assert.Equal(t, "stocks_update", step)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for background run")
	}
}

func TestRunChain_ConflictWhileRunning(t *testing.T) {
	env := newTestEnv(t)

	// Occupy the orchestrator with a long step.
	release := make(chan struct{})
	busy := chain.New([]chain.Step{{Name: "busy", Fn: func(ctx context.Context) error {
		<-release
		return nil
	}}}, env.hub, 0, env.server.logger)
	env.server.deps.Orchestrator = busy
	defer close(release)

	go func() { _, _ = busy.Run(context.Background()) }()
	require.Eventually(t, busy.Running, time.Second, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/run-chain", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListStocks(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.stocks.Save(&stocks.Portfolio{Stocks: []stocks.Stock{
		{Symbol: "AAPL", Name: "Apple Inc.", Price: 232.11, ChangePercent: 1.52, Date: "2026-09-01"},
	}}))

	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stocks", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var p stocks.Portfolio
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.Len(t, p.Stocks, 1)
	assert.Equal(t, "AAPL", p.Stocks[0].Symbol)
}

func TestStreamEvents(t *testing.T) {
	env := newTestEnv(t)

	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEventType := func() string {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "event: ") {
				return strings.TrimSpace(strings.TrimPrefix(line, "event: "))
			}
		}
	}

	assert.Equal(t, "connected", readEventType())

	// The subscriber registered during the handshake receives hub events.
	require.Eventually(t, func() bool { return env.hub.SubscriberCount() == 1 },
		time.Second, 5*time.Millisecond)
	env.hub.Publish(hub.Event{Type: "stocks-updated", Time: time.Now()})
	assert.Equal(t, "stocks-updated", readEventType())
}

const echoContentType = "Content-Type"
