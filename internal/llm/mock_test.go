package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProvider_ReplaysScript(t *testing.T) {
	m := NewMockProvider(
		ChatResponse{Content: "first", FinishReason: FinishReasonStop},
		ChatResponse{Content: "second", FinishReason: FinishReasonStop},
	)

	resp, err := m.Chat(context.Background(), ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Content)

	resp, err = m.Chat(context.Background(), ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "second", resp.Content)

	// Exhausted script repeats the last response.
	resp, err = m.Chat(context.Background(), ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "second", resp.Content)

	assert.Equal(t, 3, m.CallCount())
}

func TestMockProvider_RecordsRequests(t *testing.T) {
	m := NewFixedProvider("hello")

	_, err := m.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "question"}},
		Model:    "test-model",
	})
	require.NoError(t, err)

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "test-model", reqs[0].Model)
	require.Len(t, reqs[0].Messages, 1)
	assert.Equal(t, RoleUser, reqs[0].Messages[0].Role)
}

func TestMockProvider_Err(t *testing.T) {
	m := NewFixedProvider("never seen")
	m.Err = errors.New("upstream down")

	_, err := m.Chat(context.Background(), ChatRequest{})
	require.Error(t, err)
	assert.Equal(t, 1, m.CallCount())
}

func TestMockProvider_NoScript(t *testing.T) {
	m := NewMockProvider()
	_, err := m.Chat(context.Background(), ChatRequest{})
	require.Error(t, err)
}

func TestMockProvider_Interface(t *testing.T) {
	var p Provider = NewFixedProvider("x")
	assert.True(t, p.SupportsToolCalling())
	assert.Equal(t, "mock", p.GetDefaultModel())
}
