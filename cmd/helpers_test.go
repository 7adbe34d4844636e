package cmd

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/csvinsight/internal/ai"
	cfgpkg "github.com/KaramelBytes/csvinsight/internal/config"
	"github.com/KaramelBytes/csvinsight/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeProvider(t *testing.T) {
	cases := map[string]string{
		"":           ai.ProviderGroq,
		"GROQ":       ai.ProviderGroq,
		"local":      ai.ProviderOllama,
		" ollama ":   ai.ProviderOllama,
		"claude":     ai.ProviderAnthropic,
		"openrouter": ai.ProviderOpenRouter,
		"mystery":    "mystery",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeProvider(in), "input %q", in)
	}
}

func TestSelectModelPrecedence(t *testing.T) {
	c := &cfgpkg.Global{Model: "cfg-model"}
	assert.Equal(t, "cfg-model", selectModel(c, ai.ProviderGroq))

	c.Model = "  "
	assert.Equal(t, ai.DefaultModel(ai.ProviderOllama), selectModel(c, ai.ProviderOllama))
	assert.Equal(t, ai.DefaultModel(ai.ProviderGroq), selectModel(c, "unknown"))
}

func TestBuildRuntime(t *testing.T) {
	rt, provider, err := buildRuntime(&cfgpkg.Global{Provider: "local"})
	require.NoError(t, err)
	assert.Equal(t, ai.ProviderOllama, provider)
	assert.NotNil(t, rt)

	_, _, err = buildRuntime(&cfgpkg.Global{Provider: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestInsightOptionsBudget(t *testing.T) {
	c := &cfgpkg.Global{MaxTokens: 1024, Temperature: 0.2, SummaryMaxTokens: 2000}
	opt := insightOptions(c, "llama-3.1-8b-instant")
	assert.Equal(t, 2000, opt.MaxPromptTokens)
	assert.Equal(t, 1024, opt.MaxTokens)

	// The summary cap wins when the context window has more room.
	opt = insightOptions(c, "phi3:mini-4k")
	assert.Equal(t, 2000, opt.MaxPromptTokens)

	// A small context window wins over a larger cap: phi3:mini-4k leaves
	// 4096 minus (1024 completion + 512 reserve) tokens for the prompt.
	wide := &cfgpkg.Global{MaxTokens: 1024, SummaryMaxTokens: 3000}
	opt = insightOptions(wide, "phi3:mini-4k")
	assert.Equal(t, 4096-1024-512, opt.MaxPromptTokens)

	// Unknown models fall back to the summary cap.
	opt = insightOptions(c, "custom-model")
	assert.Equal(t, 2000, opt.MaxPromptTokens)
}

func TestParseFlagsOptions(t *testing.T) {
	opt, err := parseFlags{Delimiter: "tab", Decimal: "comma", Thousands: "space", MaxRows: 7}.options()
	require.NoError(t, err)
	assert.Equal(t, '\t', opt.Delimiter)
	assert.Equal(t, ',', opt.DecimalSeparator)
	assert.Equal(t, ' ', opt.ThousandsSeparator)
	assert.Equal(t, 7, opt.MaxRows)

	for _, pf := range []parseFlags{{Delimiter: "#"}, {Decimal: "x"}, {Thousands: "_"}} {
		_, err := pf.options()
		assert.Error(t, err, "%+v", pf)
	}
}

func TestNewSessionManager(t *testing.T) {
	m, err := newSessionManager(&cfgpkg.Global{SessionBackend: "memory", SessionTTLMin: 5})
	require.NoError(t, err)
	assert.IsType(t, &session.MemoryManager{}, m)

	m, err = newSessionManager(&cfgpkg.Global{SessionBackend: "file", SessionDir: filepath.Join(t.TempDir(), "s"), SessionTTLMin: 5})
	require.NoError(t, err)
	assert.IsType(t, &session.FileManager{}, m)

	_, err = newSessionManager(&cfgpkg.Global{SessionBackend: "redis"})
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "warn", "json", false)
	assert.False(t, l.Enabled(context.Background(), slog.LevelInfo))
	l.Warn("upload rejected", "rows", 3)
	assert.True(t, strings.HasPrefix(buf.String(), "{"), buf.String())
	assert.Contains(t, buf.String(), `"rows":3`)

	buf.Reset()
	l = newLogger(&buf, "info", "text", true)
	assert.True(t, l.Enabled(context.Background(), slog.LevelDebug))
	l.Debug("reply", "model", "m")
	assert.Contains(t, buf.String(), "model=m")
}

func TestSetConfigValue(t *testing.T) {
	c := &cfgpkg.Global{}
	require.NoError(t, setConfigValue(c, "provider", "claude"))
	assert.Equal(t, ai.ProviderAnthropic, c.Provider)
	require.NoError(t, setConfigValue(c, "max_upload_mb", "25"))
	assert.Equal(t, 25, c.MaxUploadMB)
	require.NoError(t, setConfigValue(c, "chart_format", "PNG"))
	assert.Equal(t, "png", c.ChartFormat)
	require.NoError(t, setConfigValue(c, "cors_origins", "http://a.test, ,http://b.test"))
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, c.CORSOrigins)
	require.NoError(t, setConfigValue(c, "temperature", "0.7"))
	assert.InDelta(t, 0.7, c.Temperature, 1e-9)

	for _, kv := range [][2]string{
		{"provider", "acme"},
		{"chart_format", "text"},
		{"session_backend", "redis"},
		{"max_tokens", "-1"},
		{"temperature", "3"},
		{"log_format", "xml"},
		{"nope", "1"},
	} {
		assert.Error(t, setConfigValue(c, kv[0], kv[1]), "%s=%s", kv[0], kv[1])
	}
}
