package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/KaramelBytes/csvinsight/internal/ai"
	"github.com/KaramelBytes/csvinsight/internal/chart"
	"github.com/KaramelBytes/csvinsight/internal/utils"
)

// Defaults used when a reply yields nothing usable.
const (
	DefaultAnswer    = "No answer generated."
	DefaultChartType = "None"
)

// ParseKind tags which parsing stage produced a result.
type ParseKind int

const (
	Unparseable ParseKind = iota
	Structured
	Unstructured
)

func (k ParseKind) String() string {
	switch k {
	case Structured:
		return "structured"
	case Unstructured:
		return "unstructured"
	}
	return "unparseable"
}

// Parsed is the tagged result of ParseAnswer.
type Parsed struct {
	Kind      ParseKind
	Answer    string
	ChartType string
	Hints     chart.Hints
}

// Normalize returns the answer, chart type and hints with defaults filled in.
func (p Parsed) Normalize() (string, string, chart.Hints) {
	answer, chartType := strings.TrimSpace(p.Answer), strings.TrimSpace(p.ChartType)
	if answer == "" {
		answer = DefaultAnswer
	}
	if chartType == "" {
		chartType = DefaultChartType
	}
	if p.Kind != Structured {
		return answer, chartType, chart.Hints{}
	}
	return answer, chartType, p.Hints
}

var (
	fencedJSON  = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	answerLine  = regexp.MustCompile(`Answer:[ \t]*(.*)`)
	chartLine   = regexp.MustCompile(`Chart Type:[ \t]*(.*)`)
	hintAliases = map[string][]string{
		"x":   {"x", "x_column", "x_col"},
		"y":   {"y", "y_column", "y_col"},
		"hue": {"hue", "hue_column", "color", "colour"},
	}
)

// ParseAnswer parses a model reply in two stages: a JSON object (whole
// reply, fenced, or embedded in prose), then "Answer:" / "Chart Type:"
// lines. It never fails; an unusable reply is tagged Unparseable.
func ParseAnswer(raw string) Parsed {
	if p, ok := parseStructured(raw); ok {
		return p
	}
	p := Parsed{Kind: Unparseable}
	if m := answerLine.FindStringSubmatch(raw); m != nil {
		p.Answer = strings.TrimSpace(m[1])
		p.Kind = Unstructured
	}
	if m := chartLine.FindStringSubmatch(raw); m != nil {
		p.ChartType = strings.TrimSpace(m[1])
		p.Kind = Unstructured
	}
	return p
}

func parseStructured(raw string) (Parsed, bool) {
	text := strings.TrimSpace(raw)
	candidates := []string{text}
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		candidates = append(candidates, m[1])
	}
	if i, j := strings.Index(text, "{"), strings.LastIndex(text, "}"); i >= 0 && j > i {
		candidates = append(candidates, text[i:j+1])
	}
	for _, c := range candidates {
		var obj map[string]any
		if err := json.Unmarshal([]byte(c), &obj); err != nil || obj == nil {
			continue
		}
		p := Parsed{Kind: Structured, Answer: scalar(obj["answer"]), ChartType: scalar(obj["chart_type"])}
		if cols, ok := obj["plot_columns"].(map[string]any); ok {
			p.Hints = chart.Hints{X: hint(cols, "x"), Y: hint(cols, "y"), Hue: hint(cols, "hue")}
		}
		return p, true
	}
	return Parsed{}, false
}

func hint(cols map[string]any, role string) string {
	for _, k := range hintAliases[role] {
		if s, ok := cols[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// scalar renders strings and numbers; other JSON values count as missing.
func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64, bool:
		return fmt.Sprint(t)
	}
	return ""
}

// Answer is the normalized reply for one question.
type Answer struct {
	Text      string
	ChartType string
	Hints     chart.Hints
	Kind      ParseKind
	// Err records a runtime failure that was replaced by defaults.
	Err error
}

// AnswerGenerator asks the model to answer one question about a preview.
type AnswerGenerator struct {
	rt  ai.Runtime
	opt Options
}

func NewAnswerGenerator(rt ai.Runtime, opt Options) *AnswerGenerator {
	return &AnswerGenerator{rt: rt, opt: opt}
}

// Answer never fails: runtime errors are logged and mapped to defaults.
func (g *AnswerGenerator) Answer(ctx context.Context, question, preview string, columns []string) Answer {
	log := g.opt.logger()
	preview = utils.TruncateToTokenLimit(preview, g.opt.MaxPromptTokens)
	text, err := complete(ctx, g.rt, g.opt, answerPrompt(question, preview, columns))
	if err != nil {
		log.Warn("answer generation failed", "question", question, "err", err)
		return Answer{Text: DefaultAnswer, ChartType: DefaultChartType, Kind: Unparseable, Err: err}
	}
	log.Debug("raw answer response", "question", question, "response", text)
	p := ParseAnswer(text)
	if p.Kind == Unparseable {
		log.Info("answer reply not parseable", "question", question)
	}
	a, ct, h := p.Normalize()
	return Answer{Text: a, ChartType: ct, Hints: h, Kind: p.Kind}
}
