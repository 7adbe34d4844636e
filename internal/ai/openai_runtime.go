package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIRuntime calls the OpenAI chat completions API through the official SDK.
type OpenAIRuntime struct {
	client *openai.Client
}

// NewOpenAIRuntime builds an SDK-backed runtime. baseURL may point at any
// OpenAI-compatible deployment; empty keeps the SDK default.
func NewOpenAIRuntime(apiKey, baseURL string, timeout time.Duration, retryMax int) *OpenAIRuntime {
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
	return &OpenAIRuntime{client: openai.NewClient(opts...)}
}

func (r *OpenAIRuntime) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case "assistant":
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	params := openai.ChatCompletionNewParams{
		Model:    openai.F(openai.ChatModel(req.Model)),
		Messages: openai.F(msgs),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.F(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.F(req.Temperature)
	}
	resp, err := r.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, mapSDKError(err)
	}
	out := &GenerateResponse{
		ID:        resp.ID,
		RequestID: resp.ID,
		Usage: Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
	for _, c := range resp.Choices {
		out.Choices = append(out.Choices, Choice{Message: Message{Role: "assistant", Content: c.Message.Content}})
	}
	return out, nil
}

// mapSDKError converts SDK API errors into the package's typed errors.
func mapSDKError(err error) error {
	var oe *openai.Error
	if errors.As(err, &oe) {
		apiErr := &APIError{StatusCode: oe.StatusCode, Message: oe.Message, Code: oe.Code}
		if oe.Response != nil {
			apiErr.RequestID = extractRequestID(oe.Response)
		}
		return classifyAPIError(apiErr, oe.Response)
	}
	return fmt.Errorf("openai request: %w", err)
}
