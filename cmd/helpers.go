package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/csvinsight/internal/ai"
	cfgpkg "github.com/KaramelBytes/csvinsight/internal/config"
	"github.com/KaramelBytes/csvinsight/internal/dataset"
	"github.com/KaramelBytes/csvinsight/internal/insight"
	"github.com/KaramelBytes/csvinsight/internal/session"
	"github.com/KaramelBytes/csvinsight/internal/utils"
	"github.com/spf13/cobra"
)

// normalizeProvider maps aliases onto registered provider names.
func normalizeProvider(name string) string {
	switch p := strings.ToLower(strings.TrimSpace(name)); p {
	case "", "groq":
		return ai.ProviderGroq
	case "local", "ollama":
		return ai.ProviderOllama
	case "claude":
		return ai.ProviderAnthropic
	default:
		return p
	}
}

// buildRuntime creates the configured LLM runtime and returns it with the
// resolved provider name.
func buildRuntime(cfg *cfgpkg.Global) (ai.Runtime, string, error) {
	provider := normalizeProvider(cfg.Provider)
	rc := ai.RuntimeConfig{
		HTTPTimeout: cfg.HTTPTimeout(),
		RetryMax:    cfg.RetryMaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay(),
		MaxDelay:    cfg.RetryMaxDelay(),
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Host:        cfg.OllamaHost,
	}
	if provider == ai.ProviderOllama && rc.Host == "" {
		rc.Host = ai.DefaultOllamaHost
	}
	rt, err := ai.NewRuntime(provider, rc)
	if err != nil {
		return nil, provider, err
	}
	return rt, provider, nil
}

// selectModel picks the configured model, falling back to the provider's
// recommended cheap model.
func selectModel(cfg *cfgpkg.Global, provider string) string {
	if cfg != nil && strings.TrimSpace(cfg.Model) != "" {
		return strings.TrimSpace(cfg.Model)
	}
	if m := ai.DefaultModel(provider); m != "" {
		return m
	}
	return ai.DefaultModel(ai.ProviderGroq)
}

// insightOptions sizes prompts for the model: the dataset summary gets at most
// summary_max_tokens and never more than the model's context allows.
func insightOptions(cfg *cfgpkg.Global, model string) insight.Options {
	budget := ai.ContextBudget(model, cfg.MaxTokens+512, cfg.SummaryMaxTokens)
	if cfg.SummaryMaxTokens > 0 && cfg.SummaryMaxTokens < budget {
		budget = cfg.SummaryMaxTokens
	}
	return insight.Options{
		Model:           model,
		MaxTokens:       cfg.MaxTokens,
		Temperature:     cfg.Temperature,
		MaxPromptTokens: budget,
		Log:             logger,
	}
}

// newSessionManager returns the configured session backend.
func newSessionManager(cfg *cfgpkg.Global) (session.Manager, error) {
	switch strings.ToLower(cfg.SessionBackend) {
	case "", "memory":
		return session.NewMemoryManager(cfg.SessionTTL()), nil
	case "file":
		return session.NewFileManager(cfg.SessionDir, cfg.SessionTTL())
	default:
		return nil, fmt.Errorf("unsupported session_backend: %s (use memory|file)", cfg.SessionBackend)
	}
}

type parseFlags struct {
	Delimiter string
	Decimal   string
	Thousands string
	MaxRows   int
}

func (pf parseFlags) options() (dataset.Options, error) {
	var opt dataset.Options
	opt.MaxRows = pf.MaxRows
	switch pf.Delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	case "|", "pipe":
		opt.Delimiter = '|'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", pf.Delimiter)
	}
	// Locale separators
	switch strings.ToLower(strings.TrimSpace(pf.Decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", pf.Decimal)
	}
	switch strings.ToLower(strings.TrimSpace(pf.Thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", pf.Thousands)
	}
	return opt, nil
}

// loadDataset opens and parses a delimited file.
func loadDataset(path string, pf parseFlags) (*dataset.Dataset, error) {
	opt, err := pf.options()
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	ds, err := dataset.Parse(filepath.Base(path), f, opt)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return ds, nil
}

// writeOutput saves data atomically, creating the parent directory.
func writeOutput(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("ensure output dir: %w", err)
		}
	}
	if err := utils.SafeWriteFile(path, data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func addParseFlags(c *cobra.Command, pf *parseFlags) {
	c.Flags().StringVar(&pf.Delimiter, "delimiter", "", "field delimiter: , ; tab | (default: sniffed)")
	c.Flags().StringVar(&pf.Decimal, "decimal", "", "decimal separator: . or comma (default: auto)")
	c.Flags().StringVar(&pf.Thousands, "thousands", "", "thousands separator: , . or space")
	c.Flags().IntVar(&pf.MaxRows, "max-rows", 0, "limit rows read (0 = all)")
}
