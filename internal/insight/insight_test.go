package insight

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/csvinsight/internal/ai"
	"github.com/KaramelBytes/csvinsight/internal/chart"
)

func stubRuntime(reply string, err error, seen *[]ai.GenerateRequest) ai.Runtime {
	return ai.RuntimeFunc(func(ctx context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
		if seen != nil {
			*seen = append(*seen, req)
		}
		if err != nil {
			return nil, err
		}
		return &ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Role: "assistant", Content: reply}}}}, nil
	})
}

func TestParseQuestions(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"delimiter", "What is the mean?|||Which country drinks most|||  ", []string{"What is the mean?", "Which country drinks most?"}},
		{"newlines", "Q one\n\nQ two?\r\nQ three", []string{"Q one?", "Q two?", "Q three?"}},
		{"mixed", "A?|||B\nC", []string{"A?", "B?", "C?"}},
		{"numbered", "1. First question\n2) Second?\n- Third\n* Fourth", []string{"First question?", "Second?", "Third?", "Fourth?"}},
		{"blank", "   \n ||| \n", []string{}},
		{"empty", "", []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseQuestions(tc.in))
		})
	}
}

func TestQuestionGeneratorSendsBoundedSummary(t *testing.T) {
	var seen []ai.GenerateRequest
	g := NewQuestionGenerator(stubRuntime("Q1|||Q2", nil, &seen), Options{Model: "m", MaxTokens: 64, MaxPromptTokens: 10})
	qs, err := g.Generate(context.Background(), strings.Repeat("x", 1000))
	require.NoError(t, err)
	assert.Equal(t, []string{"Q1?", "Q2?"}, qs)

	require.Len(t, seen, 1)
	assert.Equal(t, "m", seen[0].Model)
	assert.Equal(t, 64, seen[0].MaxTokens)
	prompt := seen[0].Messages[0].Content
	assert.Contains(t, prompt, "|||")
	assert.NotContains(t, prompt, strings.Repeat("x", 41))
}

func TestQuestionGeneratorBlankReplyIsEmpty(t *testing.T) {
	g := NewQuestionGenerator(stubRuntime("  ", nil, nil), Options{Model: "m"})
	qs, err := g.Generate(context.Background(), "summary")
	require.NoError(t, err)
	assert.NotNil(t, qs)
	assert.Empty(t, qs)
}

func TestQuestionGeneratorReturnsTransportError(t *testing.T) {
	boom := errors.New("boom")
	g := NewQuestionGenerator(stubRuntime("", boom, nil), Options{Model: "m"})
	_, err := g.Generate(context.Background(), "summary")
	assert.ErrorIs(t, err, boom)
}

func TestParseAnswerStructured(t *testing.T) {
	p := ParseAnswer(`{"answer": "Andorra drinks most.", "chart_type": "bar chart", "plot_columns": {"x": "country", "y": "beer_servings", "hue": "continent"}}`)
	assert.Equal(t, Structured, p.Kind)
	a, ct, h := p.Normalize()
	assert.Equal(t, "Andorra drinks most.", a)
	assert.Equal(t, "bar chart", ct)
	assert.Equal(t, chart.Hints{X: "country", Y: "beer_servings", Hue: "continent"}, h)
}

func TestParseAnswerEmbeddedJSON(t *testing.T) {
	for name, in := range map[string]string{
		"fenced": "Here you go:\n```json\n{\"answer\": \"Yes\", \"chart_type\": \"line chart\", \"plot_columns\": {\"x_column\": \"year\", \"y\": 3}}\n```\nThanks",
		"prose":  "Sure! {\"answer\": \"Yes\", \"chart_type\": \"line chart\", \"plot_columns\": {\"x_column\": \"year\", \"y\": 3}} Hope it helps.",
	} {
		t.Run(name, func(t *testing.T) {
			p := ParseAnswer(in)
			assert.Equal(t, Structured, p.Kind)
			assert.Equal(t, "Yes", p.Answer)
			assert.Equal(t, "line chart", p.ChartType)
			assert.Equal(t, chart.Hints{X: "year"}, p.Hints)
		})
	}
}

func TestParseAnswerStructuredMissingKeys(t *testing.T) {
	p := ParseAnswer(`{"chart_type": "scatter plot"}`)
	assert.Equal(t, Structured, p.Kind)
	a, ct, h := p.Normalize()
	assert.Equal(t, DefaultAnswer, a)
	assert.Equal(t, "scatter plot", ct)
	assert.True(t, h.IsZero())
}

func TestParseAnswerRegexFallback(t *testing.T) {
	p := ParseAnswer("Answer: Europe leads in spirits.\nChart Type: Bar Chart\n")
	assert.Equal(t, Unstructured, p.Kind)
	a, ct, h := p.Normalize()
	assert.Equal(t, "Europe leads in spirits.", a)
	assert.Equal(t, "Bar Chart", ct)
	assert.True(t, h.IsZero())

	p = ParseAnswer("{broken json\nChart Type: line chart")
	assert.Equal(t, Unstructured, p.Kind)
	a, ct, _ = p.Normalize()
	assert.Equal(t, DefaultAnswer, a)
	assert.Equal(t, "line chart", ct)
}

func TestParseAnswerUnparseable(t *testing.T) {
	p := ParseAnswer("I think the average is 5.")
	assert.Equal(t, Unparseable, p.Kind)
	a, ct, h := p.Normalize()
	assert.Equal(t, "No answer generated.", a)
	assert.Equal(t, "None", ct)
	assert.True(t, h.IsZero())
}

func TestAnswerGenerator(t *testing.T) {
	var seen []ai.GenerateRequest
	reply := `{"answer": "42", "chart_type": "bar chart", "plot_columns": {"x": "country", "y": "beer_servings"}}`
	g := NewAnswerGenerator(stubRuntime(reply, nil, &seen), Options{Model: "m"})
	a := g.Answer(context.Background(), "Who drinks most?", "country beer\nA 1", []string{"country", "beer_servings"})
	assert.Equal(t, "42", a.Text)
	assert.Equal(t, "bar chart", a.ChartType)
	assert.Equal(t, Structured, a.Kind)
	assert.NoError(t, a.Err)

	require.Len(t, seen, 1)
	prompt := seen[0].Messages[0].Content
	assert.Contains(t, prompt, "Who drinks most?")
	assert.Contains(t, prompt, "'country', 'beer_servings'")
	assert.Contains(t, prompt, "plot_columns")
}

func TestAnswerGeneratorDegradesOnError(t *testing.T) {
	g := NewAnswerGenerator(stubRuntime("", errors.New("down"), nil), Options{Model: "m"})
	a := g.Answer(context.Background(), "q", "p", nil)
	assert.Equal(t, DefaultAnswer, a.Text)
	assert.Equal(t, DefaultChartType, a.ChartType)
	assert.Equal(t, Unparseable, a.Kind)
	assert.Error(t, a.Err)
}

func TestAnswerGeneratorHonorsTimeout(t *testing.T) {
	slow := ai.RuntimeFunc(func(ctx context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	g := NewAnswerGenerator(slow, Options{Model: "m", Timeout: 20 * time.Millisecond})
	a := g.Answer(context.Background(), "q", "p", nil)
	assert.ErrorIs(t, a.Err, context.DeadlineExceeded)
}
