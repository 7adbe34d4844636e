package cmd

import (
	"fmt"
	"os"

	"github.com/KaramelBytes/csvinsight/internal/chart"
	"github.com/spf13/cobra"
)

var (
	chParse  parseFlags
	chType   string
	chX      string
	chY      string
	chHue    string
	chTitle  string
	chFormat string
	chTheme  string
	chOutput string
)

var chartCmd = &cobra.Command{
	Use:   "chart <file>",
	Short: "Render a chart from a CSV without calling a model",
	Example: `  csvinsight chart drinks.csv --type bar --x country --y beer_servings
  csvinsight chart drinks.csv --type "line chart" --format png -o trend.png
  csvinsight chart drinks.csv --type scatter --x beer_servings --y wine_servings --hue continent --format html -o scatter.html`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := loadDataset(args[0], chParse)
		if err != nil {
			return err
		}
		format, err := chart.ParseFormat(chFormat)
		if err != nil {
			return err
		}
		if format != chart.FormatText && chOutput == "" {
			return fmt.Errorf("--output is required for %s charts", format)
		}
		theme := chTheme
		if theme == "" && cfg != nil {
			theme = cfg.ChartTheme
		}
		r, err := chart.NewRenderer(format, theme)
		if err != nil {
			return err
		}
		p, err := chart.Resolve(ds, chType, chart.Hints{X: chX, Y: chY, Hue: chHue}, chTitle)
		if err != nil {
			return fmt.Errorf("resolve chart: %w", err)
		}
		art, err := r.Render(p)
		if err != nil {
			return fmt.Errorf("render chart: %w", err)
		}
		if chOutput == "" {
			fmt.Fprint(os.Stdout, art.String())
			return nil
		}
		if err := writeOutput(chOutput, art.Content); err != nil {
			return err
		}
		fmt.Printf("✓ Saved %s chart %q to %s\n", format, art.Title, chOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chartCmd)
	addParseFlags(chartCmd, &chParse)
	chartCmd.Flags().StringVar(&chType, "type", "bar", "chart type: bar|line|scatter (labels like 'bar chart' accepted)")
	chartCmd.Flags().StringVar(&chX, "x", "", "x column hint")
	chartCmd.Flags().StringVar(&chY, "y", "", "y column hint")
	chartCmd.Flags().StringVar(&chHue, "hue", "", "hue/color column hint")
	chartCmd.Flags().StringVar(&chTitle, "title", "", "title used when an axis is not resolved")
	chartCmd.Flags().StringVar(&chFormat, "format", "text", "output format: text|html|png")
	chartCmd.Flags().StringVar(&chTheme, "theme", "", "echarts theme for html output (default from config)")
	chartCmd.Flags().StringVarP(&chOutput, "output", "o", "", "output file (required for html/png)")
}
