// Package report synthesizes the daily portfolio report through an iterative
// tool-calling conversation with the LLM provider. The loop is bounded: the
// model gets a fixed number of turns to research via tools, and whatever it
// has said by then is the report.
package report

import (
	stdcontext "context"
	"fmt"
	"strings"
	"sync"
	"time"

	"stockpilot/internal/llm"
	"stockpilot/internal/logger"
	"stockpilot/internal/tools"
)

const systemPrompt = `You are a financial analyst writing a short daily report about a stock portfolio.
Use the available tools to look up recent news and context for the portfolio's notable movers.
When you are done researching, respond with the report itself: 2-4 short paragraphs of plain text.
Do not include greetings, sign-offs, or commentary about the report.`

// Config holds configuration for the synthesis loop.
type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int
	MaxTurns    int
	ToolTimeout time.Duration
}

// Context carries the inputs the synthesis prompt is built from.
type Context struct {
	Date   string
	Stocks []Holding
}

// Holding is one portfolio position as of the latest refresh.
type Holding struct {
	Symbol        string
	Name          string
	Price         float64
	ChangePercent float64
}

// Synthesizer runs the bounded tool-calling loop that produces the report.
type Synthesizer struct {
	provider llm.Provider
	registry *tools.Registry
	cleaner  *Cleaner
	logger   *logger.Logger
	config   Config
}

// NewSynthesizer creates a new synthesizer.
func NewSynthesizer(cfg Config, provider llm.Provider, registry *tools.Registry, cleaner *Cleaner, log *logger.Logger) (*Synthesizer, error) {
	if provider == nil {
		return nil, fmt.Errorf("LLM provider cannot be nil")
	}
	if registry == nil {
		return nil, fmt.Errorf("tool registry cannot be nil")
	}
	if cleaner == nil {
		return nil, fmt.Errorf("cleaner cannot be nil")
	}
	if log == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	if cfg.MaxTurns == 0 {
		cfg.MaxTurns = 4
	}
	if cfg.ToolTimeout == 0 {
		cfg.ToolTimeout = 30 * time.Second
	}

	return &Synthesizer{
		provider: provider,
		registry: registry,
		cleaner:  cleaner,
		logger:   log,
		config:   cfg,
	}, nil
}

// Synthesize produces the report text for the given portfolio context.
//
// The model gets at most MaxTurns chat turns. A turn that requests tools has
// all of its calls dispatched concurrently, and their results appended to the
// transcript in request order before the next turn. When the budget runs out,
// or a chat call fails after the model has already produced content, the last
// assistant content is returned as a best-effort report.
func (s *Synthesizer) Synthesize(ctx stdcontext.Context, rc Context) (string, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: buildUserPrompt(rc)},
	}

	lastContent := ""

	for turn := 0; turn < s.config.MaxTurns; turn++ {
		req := llm.ChatRequest{
			Messages:    messages,
			Model:       s.config.Model,
			Temperature: s.config.Temperature,
			MaxTokens:   s.config.MaxTokens,
		}
		if s.provider.SupportsToolCalling() {
			req.Tools = s.toolDefinitions()
		}

		resp, err := s.provider.Chat(ctx, req)
		if err != nil {
			if lastContent == "" {
				return "", fmt.Errorf("chat failed on first turn: %w", err)
			}
			s.logger.WarnCtx(ctx, "chat failed mid-loop, degrading to last content",
				logger.Field{Key: "turn", Value: turn},
				logger.Field{Key: "error", Value: err.Error()})
			return s.cleaner.Clean(lastContent), nil
		}

		if resp.Content != "" {
			lastContent = resp.Content
		}

		if len(resp.ToolCalls) == 0 {
			s.logger.DebugCtx(ctx, "synthesis finished",
				logger.Field{Key: "turns", Value: turn + 1},
				logger.Field{Key: "content_length", Value: len(resp.Content)})
			return s.cleaner.Clean(resp.Content), nil
		}

		s.logger.DebugCtx(ctx, "model requested tool calls",
			logger.Field{Key: "turn", Value: turn},
			logger.Field{Key: "tool_call_count", Value: len(resp.ToolCalls)})

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, result := range s.dispatch(ctx, resp.ToolCalls) {
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    result.Output(),
				ToolCallID: result.CallID,
			})
		}
	}

	s.logger.WarnCtx(ctx, "turn budget exhausted, returning last assistant content",
		logger.Field{Key: "max_turns", Value: s.config.MaxTurns},
		logger.Field{Key: "content_length", Value: len(lastContent)})
	return s.cleaner.Clean(lastContent), nil
}

// dispatch executes all tool calls of one turn concurrently. Results come
// back indexed by request position so the transcript order is deterministic
// regardless of which call finishes first.
func (s *Synthesizer) dispatch(ctx stdcontext.Context, calls []llm.ToolCall) []tools.Result {
	results := make([]tools.Result, len(calls))

	var wg sync.WaitGroup
	for i, tc := range calls {
		wg.Add(1)
		go func(i int, call tools.Call) {
			defer wg.Done()
			start := time.Now()
			results[i] = tools.ExecuteCall(ctx, s.registry, call, s.config.ToolTimeout)
			if results[i].Error != "" {
				s.logger.WarnCtx(ctx, "tool execution failed",
					logger.Field{Key: "tool_name", Value: call.Name},
					logger.Field{Key: "tool_call_id", Value: call.ID},
					logger.Field{Key: "error", Value: results[i].Error},
					logger.Field{Key: "duration_ms", Value: time.Since(start).Milliseconds()})
			} else {
				s.logger.DebugCtx(ctx, "tool execution completed",
					logger.Field{Key: "tool_name", Value: call.Name},
					logger.Field{Key: "tool_call_id", Value: call.ID},
					logger.Field{Key: "duration_ms", Value: time.Since(start).Milliseconds()})
			}
		}(i, tools.Call{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments})
	}
	wg.Wait()

	return results
}

func (s *Synthesizer) toolDefinitions() []llm.ToolDefinition {
	schemas := s.registry.ToSchema()
	if len(schemas) == 0 {
		return nil
	}
	defs := make([]llm.ToolDefinition, len(schemas))
	for i, schema := range schemas {
		defs[i] = llm.ToolDefinition{
			Name:        schema.Name,
			Description: schema.Description,
			Parameters:  schema.Parameters,
		}
	}
	return defs
}

func buildUserPrompt(rc Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write the portfolio report for %s.\n\nCurrent positions:\n", rc.Date)
	for _, h := range rc.Stocks {
		fmt.Fprintf(&b, "- %s (%s): %.2f, %+.2f%% today\n", h.Symbol, h.Name, h.Price, h.ChangePercent)
	}
	b.WriteString("\nFocus on the largest movers and any news that explains them.")
	return b.String()
}
