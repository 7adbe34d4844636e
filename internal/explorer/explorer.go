// Package explorer drives one exploration session: upload a dataset, get
// suggested questions, then answer the chosen ones with charts.
package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/KaramelBytes/csvinsight/internal/chart"
	"github.com/KaramelBytes/csvinsight/internal/dataset"
	"github.com/KaramelBytes/csvinsight/internal/insight"
	"github.com/KaramelBytes/csvinsight/internal/session"
)

// Session keys.
const (
	KeyDataset   = "dataset"
	KeyQuestions = "questions"
)

const (
	MsgUploaded       = "File uploaded and processed!"
	msgQuestionsLater = "Could not generate questions for this dataset; enter your own below."
)

var (
	ErrNoQuestions = errors.New("no questions selected")
	ErrNoDataset   = errors.New("no dataset uploaded")
)

type Options struct {
	Parse   dataset.Options
	Profile dataset.ProfileOptions
	// PreviewRows is the number of head rows shown to the model per question.
	PreviewRows     int
	QuestionTimeout time.Duration
	AnswerTimeout   time.Duration
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		Profile:         dataset.DefaultProfileOptions(),
		PreviewRows:     5,
		QuestionTimeout: 45 * time.Second,
		AnswerTimeout:   30 * time.Second,
	}
}

type Explorer struct {
	questions *insight.QuestionGenerator
	answers   *insight.AnswerGenerator
	renderer  chart.Renderer
	opt       Options
	log       *slog.Logger
}

func New(questions *insight.QuestionGenerator, answers *insight.AnswerGenerator, renderer chart.Renderer, opt Options, log *slog.Logger) *Explorer {
	if log == nil {
		log = slog.Default()
	}
	if opt.PreviewRows <= 0 {
		opt.PreviewRows = 5
	}
	if opt.Profile.SampleRows <= 0 {
		opt.Profile = dataset.DefaultProfileOptions()
	}
	return &Explorer{questions: questions, answers: answers, renderer: renderer, opt: opt, log: log}
}

// UploadResult is what the upload page shows. Error is set alone on failure.
type UploadResult struct {
	Message   string   `json:"message,omitempty"`
	Questions []string `json:"questions,omitempty"`
	Columns   []string `json:"columns,omitempty"`
	Rows      int      `json:"rows,omitempty"`
	Warning   string   `json:"warning,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Result is the outcome for one question. Chart is nil when no chart applies.
type Result struct {
	Question  string
	Answer    string
	ChartType string
	Chart     *chart.Artifact
	Parse     insight.ParseKind
}

// StartUpload parses the upload, stores it in the session and asks for
// suggested questions. A question-generation failure leaves the upload in
// place with an empty question list and a warning.
func (e *Explorer) StartUpload(ctx context.Context, store session.Store, name string, r io.Reader) UploadResult {
	ds, err := dataset.Parse(name, r, e.opt.Parse)
	if err != nil {
		e.log.Info("upload rejected", "file", name, "err", err)
		return UploadResult{Error: fmt.Sprintf("Error processing CSV: %v", err)}
	}
	raw, err := dataset.Serialize(ds)
	if err == nil {
		err = store.Set(KeyDataset, raw)
	}
	if err != nil {
		e.log.Error("store dataset failed", "file", name, "err", err)
		return UploadResult{Error: fmt.Sprintf("Error processing CSV: %v", err)}
	}

	res := UploadResult{Message: MsgUploaded, Columns: ds.ColumnNames(), Rows: ds.NumRows()}
	summary := dataset.Profile(ds, e.opt.Profile).Markdown()

	qctx, cancel := withTimeout(ctx, e.opt.QuestionTimeout)
	qs, err := e.questions.Generate(qctx, summary)
	cancel()
	if err != nil {
		e.log.Warn("question generation failed", "file", name, "err", err)
		res.Warning = msgQuestionsLater
		qs = []string{}
	}
	res.Questions = qs
	if err := e.saveQuestions(store, qs); err != nil {
		e.log.Error("store questions failed", "err", err)
	}
	e.log.Info("dataset uploaded", "file", name, "rows", res.Rows, "columns", len(res.Columns), "questions", len(qs))
	return res
}

// RunAnalysis answers the selected questions followed by each non-blank
// line of customText, in order. It refuses before any model call when the
// list is empty or no dataset is stored.
func (e *Explorer) RunAnalysis(ctx context.Context, store session.Store, selected []string, customText string) ([]Result, error) {
	questions := CombineQuestions(selected, customText)
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	ds, err := e.Dataset(store)
	if err != nil {
		return nil, err
	}

	preview := ds.Preview(e.opt.PreviewRows)
	columns := ds.ColumnNames()
	results := make([]Result, 0, len(questions))
	for _, q := range questions {
		results = append(results, e.answerOne(ctx, ds, q, preview, columns))
	}
	return results, nil
}

func (e *Explorer) answerOne(ctx context.Context, ds *dataset.Dataset, q, preview string, columns []string) Result {
	actx, cancel := withTimeout(ctx, e.opt.AnswerTimeout)
	defer cancel()
	a := e.answers.Answer(actx, q, preview, columns)
	art := chart.ResolveAndRender(ds, a.ChartType, a.Hints, q, e.renderer, e.log)
	e.log.Debug("question answered", "question", q, "chart_type", a.ChartType, "parse", a.Kind, "chart", art != nil)
	return Result{Question: q, Answer: a.Text, ChartType: a.ChartType, Chart: art, Parse: a.Kind}
}

// Dataset returns the session's dataset or ErrNoDataset.
func (e *Explorer) Dataset(store session.Store) (*dataset.Dataset, error) {
	raw, ok := store.Get(KeyDataset)
	if !ok || raw == "" {
		return nil, ErrNoDataset
	}
	ds, err := dataset.Deserialize(raw)
	if err != nil {
		e.log.Warn("stored dataset unreadable", "err", err)
		return nil, fmt.Errorf("%w: %v", ErrNoDataset, err)
	}
	return ds, nil
}

// Questions returns the stored suggested questions, or an empty list.
func (e *Explorer) Questions(store session.Store) []string {
	raw, ok := store.Get(KeyQuestions)
	if !ok {
		return []string{}
	}
	var qs []string
	if err := json.Unmarshal([]byte(raw), &qs); err != nil || qs == nil {
		return []string{}
	}
	return qs
}

// Reset clears the session.
func (e *Explorer) Reset(store session.Store) error {
	return store.Clear()
}

func (e *Explorer) saveQuestions(store session.Store, qs []string) error {
	b, err := json.Marshal(qs)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	return store.Set(KeyQuestions, string(b))
}

// CombineQuestions returns the non-blank selected questions followed by the
// trimmed, non-blank lines of customText. Duplicates are kept.
func CombineQuestions(selected []string, customText string) []string {
	out := make([]string, 0, len(selected))
	for _, q := range selected {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	for _, line := range strings.Split(customText, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
