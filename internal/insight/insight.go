// Package insight turns dataset summaries into exploratory questions and
// questions into answers with a suggested chart.
package insight

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/KaramelBytes/csvinsight/internal/ai"
	"github.com/KaramelBytes/csvinsight/internal/utils"
)

// Options configures a generator.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
	// Timeout bounds one runtime call; zero leaves the caller's context alone.
	Timeout time.Duration
	// MaxPromptTokens truncates the dataset part of the prompt.
	MaxPromptTokens int
	Log             *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Log == nil {
		return slog.Default()
	}
	return o.Log
}

// complete sends one user prompt and returns the first choice's text.
func complete(ctx context.Context, rt ai.Runtime, opt Options, prompt string) (string, error) {
	if opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opt.Timeout)
		defer cancel()
	}
	start := time.Now()
	resp, err := rt.Generate(ctx, ai.GenerateRequest{
		Model:       opt.Model,
		Messages:    []ai.Message{{Role: "user", Content: prompt}},
		MaxTokens:   opt.MaxTokens,
		Temperature: opt.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	opt.logger().Debug("llm call",
		"model", opt.Model,
		"prompt_tokens", utils.CountTokens(prompt),
		"completion_tokens", resp.Usage.CompletionTokens,
		"request_id", resp.RequestID,
		"elapsed", time.Since(start))
	return resp.Text(), nil
}
