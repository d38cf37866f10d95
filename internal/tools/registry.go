// Package tools defines the tool contract exposed to the synthesis loop and
// a thread-safe registry of available tools.
package tools

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Tool defines the interface that all tools must implement.
// A tool represents a function that can be called by the language model.
type Tool interface {
	// Name returns the unique name of the tool.
	Name() string

	// Description returns a human-readable description of what the tool does.
	Description() string

	// Parameters returns a JSON Schema object describing the tool's input
	// parameters, in OpenAI function calling format.
	Parameters() map[string]interface{}

	// Execute runs the tool. args is a JSON-encoded string containing the
	// tool's input parameters.
	Execute(ctx context.Context, args string) (string, error)
}

// Registry manages the collection of available tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry. A tool with the same name replaces
// the previous registration.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("cannot register nil tool")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	r.tools[name] = tool
	return nil
}

// Get retrieves a tool by its name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all registered tools. The order is not guaranteed.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}

	return tools
}

// Schema describes one tool in OpenAI function calling format.
type Schema struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ToSchema converts the registered tools to function definitions that can be
// sent to LLM providers.
func (r *Registry) ToSchema() []Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemas := make([]Schema, 0, len(r.tools))
	for _, tool := range r.tools {
		schemas = append(schemas, Schema{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Parameters(),
		})
	}

	return schemas
}

// Call represents a tool call request from the LLM.
type Call struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Arguments is a JSON string containing the tool's input parameters.
	Arguments string `json:"arguments"`
}

// Result represents the result of executing a tool. A failed dispatch is a
// Result with Error set, never a Go error: failures are surfaced to the model
// as tool output so it can decide how to proceed.
type Result struct {
	CallID  string `json:"call_id"`
	Content string `json:"content"`
	Error   string `json:"error,omitempty"`
}

// Output returns the text fed back to the model for this result.
func (r Result) Output() string {
	if r.Error != "" {
		return fmt.Sprintf("Error: %s", r.Error)
	}
	return r.Content
}

// ExecuteCall executes one tool call against the registry with the given
// timeout. An unknown tool name or an execution error produces a Result with
// Error set.
func ExecuteCall(ctx context.Context, registry *Registry, call Call, timeout time.Duration) Result {
	tool, ok := registry.Get(call.Name)
	if !ok {
		return Result{
			CallID: call.ID,
			Error:  fmt.Sprintf("tool not found: %s", call.Name),
		}
	}

	execCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	content, err := tool.Execute(execCtx, call.Arguments)
	if err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			return Result{
				CallID: call.ID,
				Error:  fmt.Sprintf("tool execution timed out after %v", timeout),
			}
		}
		return Result{
			CallID: call.ID,
			Error:  err.Error(),
		}
	}

	return Result{
		CallID:  call.ID,
		Content: content,
	}
}
