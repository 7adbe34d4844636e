package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/csvinsight/internal/utils"
)

// Global configuration structure.
type Global struct {
	// LLM runtime
	APIKey      string  `mapstructure:"api_key" yaml:"api_key"`
	Provider    string  `mapstructure:"provider" yaml:"provider"`
	Model       string  `mapstructure:"model" yaml:"model"`
	BaseURL     string  `mapstructure:"base_url" yaml:"base_url"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Local runtimes (Ollama)
	OllamaHost string `mapstructure:"ollama_host" yaml:"ollama_host"`

	// Web server
	ListenAddr         string   `mapstructure:"listen_addr" yaml:"listen_addr"`
	RequestTimeoutSec  int      `mapstructure:"request_timeout_sec" yaml:"request_timeout_sec"`
	AnswerTimeoutSec   int      `mapstructure:"answer_timeout_sec" yaml:"answer_timeout_sec"`
	QuestionTimeoutSec int      `mapstructure:"question_timeout_sec" yaml:"question_timeout_sec"`
	MaxUploadMB        int      `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	CORSOrigins        []string `mapstructure:"cors_origins" yaml:"cors_origins"`

	// Dataset and prompts
	PreviewRows      int `mapstructure:"preview_rows" yaml:"preview_rows"`
	SummaryMaxTokens int `mapstructure:"summary_max_tokens" yaml:"summary_max_tokens"`

	// Charts
	ChartFormat string `mapstructure:"chart_format" yaml:"chart_format"`
	ChartTheme  string `mapstructure:"chart_theme" yaml:"chart_theme"`

	// Sessions
	SessionBackend string `mapstructure:"session_backend" yaml:"session_backend"`
	SessionDir     string `mapstructure:"session_dir" yaml:"session_dir"`
	SessionTTLMin  int    `mapstructure:"session_ttl_min" yaml:"session_ttl_min"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// Dir returns ~/.csvinsight.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".csvinsight"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.csvinsight/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", "groq")
	v.SetDefault("model", "")
	v.SetDefault("base_url", "")
	v.SetDefault("max_tokens", 1024)
	v.SetDefault("temperature", 0.2)
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	// Server
	v.SetDefault("listen_addr", "127.0.0.1:8000")
	v.SetDefault("request_timeout_sec", 300)
	v.SetDefault("answer_timeout_sec", 30)
	v.SetDefault("question_timeout_sec", 45)
	v.SetDefault("max_upload_mb", 10)
	v.SetDefault("cors_origins", []string{})
	v.SetDefault("preview_rows", 5)
	v.SetDefault("summary_max_tokens", 2000)
	v.SetDefault("chart_format", "html")
	v.SetDefault("chart_theme", "chalk")
	v.SetDefault("session_backend", "memory")
	v.SetDefault("session_dir", "")
	v.SetDefault("session_ttl_min", 60)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file (cfgFile or ~/.csvinsight/config.yaml) > defaults.
// Command-line flags are applied on top by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("CSVINSIGHT")
	v.AutomaticEnv()
	// GROQ_API_KEY is honored as a fallback for the default provider.
	_ = v.BindEnv("api_key", "CSVINSIGHT_API_KEY", "GROQ_API_KEY")
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.SessionDir == "" && c.SessionBackend == "file" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.SessionDir = filepath.Join(dir, "sessions")
	}
	c.SessionDir = utils.ExpandHome(c.SessionDir)
	return &c, nil
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func (c *Global) HTTPTimeout() time.Duration     { return seconds(c.HTTPTimeoutSec) }
func (c *Global) RequestTimeout() time.Duration  { return seconds(c.RequestTimeoutSec) }
func (c *Global) AnswerTimeout() time.Duration   { return seconds(c.AnswerTimeoutSec) }
func (c *Global) QuestionTimeout() time.Duration { return seconds(c.QuestionTimeoutSec) }
func (c *Global) SessionTTL() time.Duration      { return time.Duration(c.SessionTTLMin) * time.Minute }
func (c *Global) RetryBaseDelay() time.Duration  { return time.Duration(c.RetryBaseDelayMs) * time.Millisecond }
func (c *Global) RetryMaxDelay() time.Duration   { return time.Duration(c.RetryMaxDelayMs) * time.Millisecond }

// MaxUploadBytes is the upload size limit in bytes.
func (c *Global) MaxUploadBytes() int64 { return int64(c.MaxUploadMB) << 20 }

// RedactedKey masks all but the last four characters of the API key.
func (c *Global) RedactedKey() string {
	k := c.APIKey
	if k == "" {
		return ""
	}
	if len(k) <= 4 {
		return "****"
	}
	return "****" + k[len(k)-4:]
}
