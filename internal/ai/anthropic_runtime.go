package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultAnthropicMaxTokens is used when a request leaves MaxTokens unset;
// the Messages API requires it.
const DefaultAnthropicMaxTokens = 1024

// AnthropicRuntime calls the Claude Messages API through the official SDK.
type AnthropicRuntime struct {
	client anthropic.Client
}

func NewAnthropicRuntime(apiKey, baseURL string, timeout time.Duration, retryMax int) *AnthropicRuntime {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	if retryMax > 0 {
		opts = append(opts, option.WithMaxRetries(retryMax-1))
	}
	return &AnthropicRuntime{client: anthropic.NewClient(opts...)}
}

func (r *AnthropicRuntime) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultAnthropicMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(maxTokens),
	}
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
		case "assistant":
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	msg, err := r.client.Messages.New(ctx, params)
	if err != nil {
		var ae *anthropic.Error
		if errors.As(err, &ae) {
			apiErr := &APIError{StatusCode: ae.StatusCode, Message: err.Error(), RequestID: ae.RequestID}
			return nil, classifyAPIError(apiErr, ae.Response)
		}
		return nil, fmt.Errorf("anthropic request: %w", err)
	}
	var text strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}
	return &GenerateResponse{
		ID:        msg.ID,
		RequestID: msg.ID,
		Choices:   []Choice{{Message: Message{Role: "assistant", Content: text.String()}}},
		Usage: Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}, nil
}
