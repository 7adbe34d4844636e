package cmd

import (
	"fmt"
	"os"

	"github.com/KaramelBytes/csvinsight/internal/dataset"
	"github.com/spf13/cobra"
)

var (
	profParse      parseFlags
	profSampleRows int
	profTopValues  int
	profPreview    int
	profOutput     string
	profQuiet      bool
)

var profileCmd = &cobra.Command{
	Use:   "profile <file>",
	Short: "Summarize a CSV/TSV the way it is shown to the model",
	Long: `Profile prints the bounded dataset summary that is sent to the model when
generating questions: column kinds, missing values, numeric statistics, top
categories and sample rows.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := loadDataset(args[0], profParse)
		if err != nil {
			return err
		}
		opt := dataset.DefaultProfileOptions()
		if profSampleRows > 0 {
			opt.SampleRows = profSampleRows
		}
		if profTopValues > 0 {
			opt.TopValues = profTopValues
		}
		out := dataset.Profile(ds, opt).Markdown()
		if profPreview > 0 {
			out += "\n```\n" + ds.Preview(profPreview) + "\n```\n"
		}
		if profOutput != "" {
			if err := writeOutput(profOutput, []byte(out)); err != nil {
				return err
			}
			if !profQuiet {
				fmt.Printf("✓ Wrote summary of %s (%d rows, %d columns) to %s\n", ds.Name, ds.NumRows(), len(ds.Columns), profOutput)
			}
			return nil
		}
		fmt.Fprint(os.Stdout, out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	addParseFlags(profileCmd, &profParse)
	profileCmd.Flags().IntVar(&profSampleRows, "sample-rows", 0, "number of sample rows in the summary (default 5)")
	profileCmd.Flags().IntVar(&profTopValues, "top", 0, "top values listed per categorical column (default 5)")
	profileCmd.Flags().IntVar(&profPreview, "preview", 0, "also print an aligned preview of the first N rows")
	profileCmd.Flags().StringVarP(&profOutput, "output", "o", "", "write the summary to a file instead of stdout")
	profileCmd.Flags().BoolVar(&profQuiet, "quiet", false, "suppress status output")
}
