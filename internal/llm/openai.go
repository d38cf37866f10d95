package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"stockpilot/internal/logger"
	"stockpilot/internal/metrics"
	"stockpilot/internal/retry"
)

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// OpenAIProvider implements Provider using the official OpenAI Go SDK.
type OpenAIProvider struct {
	client openai.Client
	cfg    OpenAIConfig
	logger *logger.Logger
}

// NewOpenAIProvider creates a new OpenAI chat provider.
func NewOpenAIProvider(cfg OpenAIConfig, log *logger.Logger) *OpenAIProvider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
	)
	return &OpenAIProvider{
		client: client,
		cfg:    cfg,
		logger: log,
	}
}

// Chat implements the Provider interface. Transient API failures are retried
// with exponential backoff.
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)),
	}
	if req.Temperature != 0 {
		params.Temperature = openai.Float(req.Temperature)
	} else if p.cfg.Temperature != 0 {
		params.Temperature = openai.Float(p.cfg.Temperature)
	}
	if req.MaxTokens != 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	} else if p.cfg.MaxTokens != 0 {
		params.MaxCompletionTokens = openai.Int(int64(p.cfg.MaxTokens))
	}

	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		case RoleUser:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		case RoleAssistant:
			am := openai.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				am.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: openai.String(m.Content),
				}
			}
			for _, tc := range m.ToolCalls {
				am.ToolCalls = append(am.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: tc.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      tc.Name,
							Arguments: tc.Arguments,
						},
					},
				})
			}
			params.Messages = append(params.Messages, openai.ChatCompletionMessageParamUnion{OfAssistant: &am})
		case RoleTool:
			params.Messages = append(params.Messages, openai.ToolMessage(m.Content, m.ToolCallID))
		default:
			return nil, fmt.Errorf("unsupported message role: %s", m.Role)
		}
	}

	for _, t := range req.Tools {
		params.Tools = append(params.Tools, openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
			Parameters:  shared.FunctionParameters(t.Parameters),
		}))
	}

	completion, err := retry.Do(ctx, func() (*openai.ChatCompletion, error) {
		return p.client.Chat.Completions.New(ctx, params)
	}, retry.Config{})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("openai chat completion: no choices in response")
	}

	choice := completion.Choices[0]

	toolCalls := make([]ToolCall, 0, len(choice.Message.ToolCalls))
	for _, tc := range choice.Message.ToolCalls {
		toolCalls = append(toolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	finish := FinishReason(choice.FinishReason)
	if finish != FinishReasonStop && finish != FinishReasonLength && finish != FinishReasonToolCalls {
		finish = FinishReasonStop
	}
	if len(toolCalls) > 0 {
		finish = FinishReasonToolCalls
	}

	usage := Usage{
		PromptTokens:     int(completion.Usage.PromptTokens),
		CompletionTokens: int(completion.Usage.CompletionTokens),
		TotalTokens:      int(completion.Usage.TotalTokens),
	}
	metrics.ObserveLLMUsage(completion.Model, usage.PromptTokens, usage.CompletionTokens)

	p.logger.DebugCtx(ctx, "openai chat completion received",
		logger.Field{Key: "model", Value: completion.Model},
		logger.Field{Key: "finish_reason", Value: string(finish)},
		logger.Field{Key: "tool_calls", Value: len(toolCalls)},
		logger.Field{Key: "total_tokens", Value: usage.TotalTokens})

	return &ChatResponse{
		Content:      choice.Message.Content,
		FinishReason: finish,
		ToolCalls:    toolCalls,
		Usage:        usage,
		Model:        completion.Model,
	}, nil
}

// SupportsToolCalling returns true; OpenAI chat models support tool calling.
func (p *OpenAIProvider) SupportsToolCalling() bool {
	return true
}

// GetDefaultModel returns the configured model.
func (p *OpenAIProvider) GetDefaultModel() string {
	return p.cfg.Model
}
