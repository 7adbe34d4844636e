package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/csvinsight/internal/ai"
	"github.com/KaramelBytes/csvinsight/internal/chart"
	"github.com/KaramelBytes/csvinsight/internal/dataset"
	"github.com/KaramelBytes/csvinsight/internal/explorer"
	"github.com/KaramelBytes/csvinsight/internal/insight"
	"github.com/KaramelBytes/csvinsight/internal/utils"
	"github.com/spf13/cobra"
)

var (
	askParse   parseFlags
	askFormat  string
	askOutDir  string
	askJSON    bool
	askQuiet   bool
	askNoChart bool
)

type askResult struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	ChartType string `json:"chart_type"`
	Parse     string `json:"parse"`
	ChartFile string `json:"chart_file,omitempty"`
}

var askCmd = &cobra.Command{
	Use:   "ask <file> [questions...]",
	Short: "Suggest questions about a CSV, or answer the given ones with charts",
	Example: `  csvinsight ask drinks.csv
  csvinsight ask drinks.csv "Which country drinks the most beer?"
  csvinsight ask drinks.csv "How do servings vary by continent?" --format png --out-dir charts/`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		ds, err := loadDataset(args[0], askParse)
		if err != nil {
			return err
		}
		rt, provider, err := buildRuntime(c)
		if err != nil {
			return err
		}
		model := selectModel(c, provider)
		opt := insightOptions(c, model)

		questions := explorer.CombineQuestions(args[1:], "")
		if len(questions) == 0 {
			return suggestQuestions(cmd.Context(), rt, opt, ds, provider, c.QuestionTimeout())
		}
		opt.Timeout = c.AnswerTimeout()
		return answerQuestions(cmd.Context(), rt, opt, ds, provider, questions, c.PreviewRows, c.ChartTheme)
	},
}

func suggestQuestions(ctx context.Context, rt ai.Runtime, opt insight.Options, ds *dataset.Dataset, provider string, timeout time.Duration) error {
	summary := dataset.Profile(ds, dataset.DefaultProfileOptions()).Markdown()
	if !askQuiet && !askJSON {
		tokens := utils.CountTokens(utils.TruncateToTokenLimit(summary, opt.MaxPromptTokens))
		fmt.Printf("⚙ Asking %s for questions about %s (prompt tokens≈%d%s) ...\n", opt.Model, ds.Name, tokens, costHint(opt.Model, tokens, opt.MaxTokens))
	}
	opt.Timeout = timeout
	qs, err := insight.NewQuestionGenerator(rt, opt).Generate(ctx, summary)
	if err != nil {
		if hint := ai.Hint(err, provider, opt.Model); hint != "" {
			return fmt.Errorf("%s: %w", hint, err)
		}
		return fmt.Errorf("question generation failed: %w", err)
	}
	if askJSON {
		return printJSON(map[string]any{"dataset": ds.Name, "questions": qs})
	}
	if len(qs) == 0 {
		fmt.Println("⚠ Warning: the model returned no questions")
		return nil
	}
	fmt.Println("✓ Suggested questions:")
	for i, q := range qs {
		fmt.Printf("  %d. %s\n", i+1, q)
	}
	return nil
}

func answerQuestions(ctx context.Context, rt ai.Runtime, opt insight.Options, ds *dataset.Dataset, provider string, questions []string, previewRows int, theme string) error {
	format, err := chart.ParseFormat(askFormat)
	if err != nil {
		return err
	}
	if format != chart.FormatText && askOutDir == "" {
		return fmt.Errorf("--out-dir is required for %s charts", format)
	}
	renderer, err := chart.NewRenderer(format, theme)
	if err != nil {
		return err
	}
	if previewRows <= 0 {
		previewRows = 5
	}
	preview := ds.Preview(previewRows)
	columns := ds.ColumnNames()
	gen := insight.NewAnswerGenerator(rt, opt)

	results := make([]askResult, 0, len(questions))
	for i, q := range questions {
		a := gen.Answer(ctx, q, preview, columns)
		if a.Err != nil && !askQuiet {
			msg := a.Err.Error()
			if hint := ai.Hint(a.Err, provider, opt.Model); hint != "" {
				msg = hint
			}
			fmt.Fprintf(os.Stderr, "⚠ Warning: %s\n", msg)
		}
		res := askResult{Question: q, Answer: a.Text, ChartType: a.ChartType, Parse: a.Kind.String()}
		var art *chart.Artifact
		if !askNoChart {
			art = chart.ResolveAndRender(ds, a.ChartType, a.Hints, q, renderer, logger)
		}
		if art != nil && format != chart.FormatText {
			res.ChartFile = filepath.Join(askOutDir, fmt.Sprintf("q%02d.%s", i+1, format))
			if err := writeOutput(res.ChartFile, art.Content); err != nil {
				return err
			}
		}
		results = append(results, res)
		if askJSON {
			continue
		}
		fmt.Printf("\n%d. %s\n", i+1, q)
		fmt.Printf("   %s\n", a.Text)
		fmt.Printf("   Chart type: %s\n", a.ChartType)
		switch {
		case art == nil:
		case format == chart.FormatText:
			fmt.Println(art.String())
		default:
			fmt.Printf("   💾 Saved chart to %s\n", res.ChartFile)
		}
	}
	if askJSON {
		return printJSON(map[string]any{"dataset": ds.Name, "model": opt.Model, "results": results})
	}
	return nil
}

func costHint(model string, promptTokens, maxTokens int) string {
	if est, ok := ai.EstimateCostUSD(model, promptTokens, maxTokens); ok && est > 0 {
		return fmt.Sprintf(", est. ≤$%.4f", est)
	}
	return ""
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(b))
	return nil
}

func init() {
	rootCmd.AddCommand(askCmd)
	addParseFlags(askCmd, &askParse)
	askCmd.Flags().StringVar(&askFormat, "format", "text", "chart format: text|html|png")
	askCmd.Flags().StringVar(&askOutDir, "out-dir", "", "directory for html/png charts")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print results as JSON")
	askCmd.Flags().BoolVar(&askQuiet, "quiet", false, "suppress status output")
	askCmd.Flags().BoolVar(&askNoChart, "no-chart", false, "skip chart rendering")
}
