package report

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockpilot/internal/llm"
	"stockpilot/internal/logger"
	"stockpilot/internal/tools"
)

// fakeTool returns a canned payload, optionally after a delay.
type fakeTool struct {
	name    string
	payload string
	delay   time.Duration
	err     error
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return "test tool" }

func (f *fakeTool) Parameters() map[string]interface{} {
	return map[string]interface{}{"type": "object"}
}

func (f *fakeTool) Execute(ctx context.Context, args string) (string, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.payload, nil
}

func newTestSynthesizer(t *testing.T, provider llm.Provider, toolList ...tools.Tool) *Synthesizer {
	t.Helper()

	log, err := logger.New(logger.Config{Level: "debug", Format: "text", Output: "stdout"})
	require.NoError(t, err)

	registry := tools.NewRegistry()
	for _, tool := range toolList {
		require.NoError(t, registry.Register(tool))
	}

	cleaner, err := NewCleaner(nil)
	require.NoError(t, err)

	s, err := NewSynthesizer(Config{MaxTurns: 4}, provider, registry, cleaner, log)
	require.NoError(t, err)
	return s
}

func testContext() Context {
	return Context{
		Date: "2026-09-01",
		Stocks: []Holding{
			{Symbol: "AAPL", Name: "Apple Inc.", Price: 232.11, ChangePercent: 1.52},
			{Symbol: "TSLA", Name: "Tesla Inc.", Price: 198.40, ChangePercent: -4.87},
		},
	}
}

func TestSynthesize_DirectAnswer(t *testing.T) {
	provider := llm.NewFixedProvider("The portfolio was flat today.")
	s := newTestSynthesizer(t, provider, &fakeTool{name: "search", payload: "[]"})

	got, err := s.Synthesize(context.Background(), testContext())
	require.NoError(t, err)
	assert.Equal(t, "The portfolio was flat today.", got)
	assert.Equal(t, 1, provider.CallCount())

	// Tool schemas ride along on every request.
	reqs := provider.Requests()
	require.Len(t, reqs, 1)
	require.Len(t, reqs[0].Tools, 1)
	assert.Equal(t, "search", reqs[0].Tools[0].Name)

	// The prompt names the positions it was given.
	require.Len(t, reqs[0].Messages, 2)
	assert.Contains(t, reqs[0].Messages[1].Content, "AAPL")
	assert.Contains(t, reqs[0].Messages[1].Content, "2026-09-01")
}

func TestSynthesize_ToolRoundTrip(t *testing.T) {
	provider := llm.NewMockProvider(
		llm.ChatResponse{
			FinishReason: llm.FinishReasonToolCalls,
			ToolCalls: []llm.ToolCall{
				{ID: "call_1", Name: "search", Arguments: `{"keywords":["TSLA"]}`},
			},
		},
		llm.ChatResponse{
			Content:      "Tesla fell on delivery numbers.",
			FinishReason: llm.FinishReasonStop,
		},
	)
	s := newTestSynthesizer(t, provider, &fakeTool{name: "search", payload: `[{"title":"t"}]`})

	got, err := s.Synthesize(context.Background(), testContext())
	require.NoError(t, err)
	assert.Equal(t, "Tesla fell on delivery numbers.", got)
	require.Equal(t, 2, provider.CallCount())

	// Second request carries the assistant tool-call turn and its result.
	msgs := provider.Requests()[1].Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, llm.RoleAssistant, msgs[2].Role)
	require.Len(t, msgs[2].ToolCalls, 1)
	assert.Equal(t, llm.RoleTool, msgs[3].Role)
	assert.Equal(t, "call_1", msgs[3].ToolCallID)
	assert.Equal(t, `[{"title":"t"}]`, msgs[3].Content)
}

func TestSynthesize_ToolResultsKeepRequestOrder(t *testing.T) {
	provider := llm.NewMockProvider(
		llm.ChatResponse{
			FinishReason: llm.FinishReasonToolCalls,
			ToolCalls: []llm.ToolCall{
				{ID: "call_slow", Name: "slow", Arguments: `{}`},
				{ID: "call_fast", Name: "fast", Arguments: `{}`},
			},
		},
		llm.ChatResponse{Content: "done", FinishReason: llm.FinishReasonStop},
	)
	s := newTestSynthesizer(t, provider,
		&fakeTool{name: "slow", payload: "slow result", delay: 50 * time.Millisecond},
		&fakeTool{name: "fast", payload: "fast result"},
	)

	_, err := s.Synthesize(context.Background(), testContext())
	require.NoError(t, err)

	// The fast call finishes first but the transcript keeps request order.
	msgs := provider.Requests()[1].Messages
	require.Len(t, msgs, 5)
	assert.Equal(t, "call_slow", msgs[3].ToolCallID)
	assert.Equal(t, "slow result", msgs[3].Content)
	assert.Equal(t, "call_fast", msgs[4].ToolCallID)
	assert.Equal(t, "fast result", msgs[4].Content)
}

func TestSynthesize_ToolErrorFedBackToModel(t *testing.T) {
	provider := llm.NewMockProvider(
		llm.ChatResponse{
			FinishReason: llm.FinishReasonToolCalls,
			ToolCalls: []llm.ToolCall{
				{ID: "call_1", Name: "search", Arguments: `{}`},
			},
		},
		llm.ChatResponse{Content: "report without search", FinishReason: llm.FinishReasonStop},
	)
	s := newTestSynthesizer(t, provider, &fakeTool{name: "search", err: errors.New("backend down")})

	got, err := s.Synthesize(context.Background(), testContext())
	require.NoError(t, err)
	assert.Equal(t, "report without search", got)

	msgs := provider.Requests()[1].Messages
	assert.Equal(t, "Error: backend down", msgs[3].Content)
}

func TestSynthesize_TurnBudgetExhausted(t *testing.T) {
	// The model never stops asking for tools. The loop must cut it off and
	// return whatever content it produced along the way.
	provider := llm.NewMockProvider(llm.ChatResponse{
		Content:      "Partial findings so far.",
		FinishReason: llm.FinishReasonToolCalls,
		ToolCalls: []llm.ToolCall{
			{ID: "call_n", Name: "search", Arguments: `{}`},
		},
	})
	s := newTestSynthesizer(t, provider, &fakeTool{name: "search", payload: "[]"})

	got, err := s.Synthesize(context.Background(), testContext())
	require.NoError(t, err)
	assert.Equal(t, "Partial findings so far.", got)
	assert.Equal(t, 4, provider.CallCount())
}

func TestSynthesize_FirstTurnErrorFails(t *testing.T) {
	provider := llm.NewMockProvider()
	provider.Err = errors.New("connection refused")
	s := newTestSynthesizer(t, provider)

	_, err := s.Synthesize(context.Background(), testContext())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

// flakyProvider succeeds for a fixed number of calls and then fails.
type flakyProvider struct {
	inner     *llm.MockProvider
	failAfter int
	calls     int
}

func (p *flakyProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	p.calls++
	if p.calls > p.failAfter {
		return nil, fmt.Errorf("upstream 500")
	}
	return p.inner.Chat(ctx, req)
}

func (p *flakyProvider) SupportsToolCalling() bool { return true }
func (p *flakyProvider) GetDefaultModel() string   { return "mock" }

func TestSynthesize_LateErrorDegradesToLastContent(t *testing.T) {
	inner := llm.NewMockProvider(llm.ChatResponse{
		Content:      "Draft before the outage.",
		FinishReason: llm.FinishReasonToolCalls,
		ToolCalls: []llm.ToolCall{
			{ID: "call_1", Name: "search", Arguments: `{}`},
		},
	})
	provider := &flakyProvider{inner: inner, failAfter: 1}
	s := newTestSynthesizer(t, provider, &fakeTool{name: "search", payload: "[]"})

	got, err := s.Synthesize(context.Background(), testContext())
	require.NoError(t, err)
	assert.Equal(t, "Draft before the outage.", got)
}
