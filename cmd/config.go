package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/csvinsight/internal/chart"
	cfgpkg "github.com/KaramelBytes/csvinsight/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set csvinsight configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration (api_key masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		shown := *c
		shown.APIKey = c.RedactedKey()
		b, err := yaml.Marshal(&shown)
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		fmt.Print(string(b))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		if err := setConfigValue(c, args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Println("✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	intKeys := map[string]*int{
		"max_tokens":           &c.MaxTokens,
		"http_timeout_sec":     &c.HTTPTimeoutSec,
		"retry_max_attempts":   &c.RetryMaxAttempts,
		"retry_base_delay_ms":  &c.RetryBaseDelayMs,
		"retry_max_delay_ms":   &c.RetryMaxDelayMs,
		"request_timeout_sec":  &c.RequestTimeoutSec,
		"answer_timeout_sec":   &c.AnswerTimeoutSec,
		"question_timeout_sec": &c.QuestionTimeoutSec,
		"max_upload_mb":        &c.MaxUploadMB,
		"preview_rows":         &c.PreviewRows,
		"summary_max_tokens":   &c.SummaryMaxTokens,
		"session_ttl_min":      &c.SessionTTLMin,
	}
	if p, ok := intKeys[key]; ok {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		*p = i
		return nil
	}
	strKeys := map[string]*string{
		"api_key":     &c.APIKey,
		"model":       &c.Model,
		"base_url":    &c.BaseURL,
		"ollama_host": &c.OllamaHost,
		"listen_addr": &c.ListenAddr,
		"chart_theme": &c.ChartTheme,
		"session_dir": &c.SessionDir,
	}
	if p, ok := strKeys[key]; ok {
		*p = strings.TrimSpace(val)
		return nil
	}

	switch key {
	case "provider":
		p := normalizeProvider(val)
		if !knownProvider(p) {
			return fmt.Errorf("invalid provider: %s (use groq, openrouter, openai, anthropic or ollama)", val)
		}
		c.Provider = p
	case "temperature":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 || f > 2 {
			return fmt.Errorf("invalid float for temperature: %v", val)
		}
		c.Temperature = f
	case "chart_format":
		f, err := chart.ParseFormat(val)
		if err != nil || f == chart.FormatText {
			return fmt.Errorf("invalid chart_format: %s (use html or png)", val)
		}
		c.ChartFormat = string(f)
	case "session_backend":
		switch v := strings.ToLower(val); v {
		case "memory", "file":
			c.SessionBackend = v
		default:
			return fmt.Errorf("invalid session_backend: %s (use memory or file)", val)
		}
	case "log_level":
		switch v := strings.ToLower(val); v {
		case "debug", "info", "warn", "error":
			c.LogLevel = v
		default:
			return fmt.Errorf("invalid log_level: %s", val)
		}
	case "log_format":
		switch v := strings.ToLower(val); v {
		case "text", "json":
			c.LogFormat = v
		default:
			return fmt.Errorf("invalid log_format: %s (use text or json)", val)
		}
	case "cors_origins":
		var origins []string
		for _, o := range strings.Split(val, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.CORSOrigins = origins
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}
