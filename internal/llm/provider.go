package llm

import (
	"context"
)

// Provider defines the interface for LLM (Large Language Model) providers.
type Provider interface {
	// Chat sends a chat completion request to the LLM provider.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// SupportsToolCalling returns true if the provider supports tool/function calling.
	SupportsToolCalling() bool

	// GetDefaultModel returns the default model identifier for this provider.
	GetDefaultModel() string
}

// Role represents the role of a message sender in the conversation.
type Role string

const (
	RoleSystem    Role = "system"    // System message provides context/instructions
	RoleUser      Role = "user"      // User message represents user input
	RoleAssistant Role = "assistant" // Assistant message represents model response
	RoleTool      Role = "tool"      // Tool message represents tool execution results
)

// Message represents a single message in the chat conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// ToolCallID is set for RoleTool messages to identify which tool call
	// this result answers.
	ToolCallID string `json:"tool_call_id,omitempty"`

	// ToolCalls is set on RoleAssistant messages that requested tools; the
	// transcript keeps them so it can be replayed to the API on later turns.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// FinishReason indicates why the model stopped generating tokens.
type FinishReason string

const (
	FinishReasonStop      FinishReason = "stop"       // Natural stopping point
	FinishReasonLength    FinishReason = "length"     // Exceeded max tokens
	FinishReasonToolCalls FinishReason = "tool_calls" // Model requested tool calls
	FinishReasonError     FinishReason = "error"      // Generation stopped due to an error
)

// ToolCall represents a requested tool/function call by the model.
type ToolCall struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Arguments is a JSON string containing the arguments for the tool call.
	Arguments string `json:"arguments"`
}

// Usage tracks token usage information for the request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatRequest represents a request to send to the LLM provider.
type ChatRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`

	// Tools is a list of tools the model can call. Only used if supported.
	Tools []ToolDefinition `json:"tools,omitempty"`
}

// ToolDefinition defines a tool that the model can call.
type ToolDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	// Parameters is a JSON Schema object describing the tool's input parameters.
	Parameters map[string]interface{} `json:"parameters"`
}

// ChatResponse represents a response from the LLM provider.
type ChatResponse struct {
	Content      string       `json:"content"`
	FinishReason FinishReason `json:"finish_reason"`
	ToolCalls    []ToolCall   `json:"tool_calls"`
	Usage        Usage        `json:"usage"`

	// Model is the actual model used for the completion (may differ from request).
	Model string `json:"model"`
}
