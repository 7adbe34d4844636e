package cmd

import (
	"fmt"

	"github.com/KaramelBytes/csvinsight/internal/ai"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var (
	modelsProvider string
	modelsCatalog  string
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List known models per provider with context size and pricing",
	Example: `  csvinsight models
  csvinsight models --provider groq
  csvinsight models --catalog ./models.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if modelsCatalog != "" {
			m, err := ai.LoadCatalogFromJSON(modelsCatalog)
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}
			ai.MergeCatalog(m)
		}
		provider := ""
		if modelsProvider != "" {
			provider = normalizeProvider(modelsProvider)
			if !knownProvider(provider) {
				return fmt.Errorf("unknown provider %q", modelsProvider)
			}
		}
		list := ai.ModelsFor(provider)
		if len(list) == 0 {
			fmt.Println("No models cataloged")
			return nil
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("PROVIDER", "MODEL", "CONTEXT", "$/1K IN", "$/1K OUT")
		for _, m := range list {
			name := m.Name
			if ai.DefaultModel(m.Provider) == m.Name {
				name += " (default)"
			}
			t.Row(m.Provider, name, fmt.Sprint(m.ContextTokens), price(m.InputPerK), price(m.OutputPerK))
		}
		fmt.Println(t.Render())
		return nil
	},
}

func price(p float64) string {
	if p <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.5f", p)
}

func knownProvider(name string) bool {
	for _, p := range ai.Providers() {
		if p == name {
			return true
		}
	}
	return false
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.Flags().StringVar(&modelsProvider, "provider", "", "only list models for this provider")
	modelsCmd.Flags().StringVar(&modelsCatalog, "catalog", "", "merge a JSON catalog file (map of name to model info) before listing")
}
