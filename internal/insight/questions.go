package insight

import (
	"context"
	"regexp"
	"strings"

	"github.com/KaramelBytes/csvinsight/internal/ai"
	"github.com/KaramelBytes/csvinsight/internal/utils"
)

// QuestionGenerator asks the model for exploratory questions about a dataset.
type QuestionGenerator struct {
	rt  ai.Runtime
	opt Options
}

func NewQuestionGenerator(rt ai.Runtime, opt Options) *QuestionGenerator {
	return &QuestionGenerator{rt: rt, opt: opt}
}

// Generate sends the bounded summary and parses the reply. A blank reply
// yields an empty, non-nil slice; transport errors are returned.
func (g *QuestionGenerator) Generate(ctx context.Context, summary string) ([]string, error) {
	summary = utils.TruncateToTokenLimit(summary, g.opt.MaxPromptTokens)
	text, err := complete(ctx, g.rt, g.opt, questionPrompt(summary))
	if err != nil {
		return nil, err
	}
	g.opt.logger().Debug("raw question response", "response", text)
	return ParseQuestions(text), nil
}

var (
	questionSplit = regexp.MustCompile(`\|\|\||\r?\n`)
	listMarker    = regexp.MustCompile(`^(?:\d+[.)]|[-*•])\s+`)
)

// ParseQuestions splits a reply on the delimiter or newlines, strips list
// markers, appends a missing "?" and drops empty entries.
func ParseQuestions(text string) []string {
	out := []string{}
	for _, part := range questionSplit.Split(text, -1) {
		q := strings.TrimSpace(part)
		q = strings.TrimSpace(listMarker.ReplaceAllString(q, ""))
		q = strings.Trim(q, "\"`")
		if q == "" || q == "?" {
			continue
		}
		if !strings.HasSuffix(q, "?") {
			q += "?"
		}
		out = append(out, q)
	}
	return out
}
