package cmd

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const drinksCSV = `country,beer_servings,wine_servings,continent
Germany,346,175,EU
France,127,370,EU
Namibia,376,1,AF
USA,249,84,NA
Japan,77,16,AS
`

// runCmd executes the root command with args and returns what it printed to
// stdout. Flags keep their values between Execute calls, so every flag is
// reset to its default first.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	reset(rootCmd.PersistentFlags())
	for _, c := range rootCmd.Commands() {
		reset(c.Flags())
		for _, sub := range c.Commands() {
			reset(sub.Flags())
		}
	}
	cfg = nil

	r, w, err := os.Pipe()
	require.NoError(t, err)
	stdout := os.Stdout
	os.Stdout = w
	done := make(chan string)
	go func() {
		b, _ := io.ReadAll(r)
		done <- string(b)
	}()

	rootCmd.SetArgs(args)
	execErr := rootCmd.Execute()

	w.Close()
	os.Stdout = stdout
	return <-done, execErr
}

// isolate points HOME at a temp dir and clears env overrides.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{"CSVINSIGHT_API_KEY", "GROQ_API_KEY", "CSVINSIGHT_PROVIDER", "CSVINSIGHT_MODEL", "CSVINSIGHT_BASE_URL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return home
}

func writeCSV(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "drinks.csv")
	require.NoError(t, os.WriteFile(path, []byte(drinksCSV), 0o644))
	return path
}

// fakeChatServer answers OpenAI-compatible chat completion requests.
func fakeChatServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		prompt := req.Messages[len(req.Messages)-1].Content
		reply := `{"answer": "Namibia drinks the most beer.", "chart_type": "bar chart", "plot_columns": {"x": "country", "y": "beer_servings"}}`
		if strings.Contains(prompt, "insightful questions") {
			reply = "Which country drinks the most beer?|||How does wine compare by continent?"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "cmpl-1",
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": reply}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCLI_Profile(t *testing.T) {
	home := isolate(t)
	path := writeCSV(t, home)

	out, err := runCmd(t, "profile", path)
	require.NoError(t, err)
	assert.Contains(t, out, "[DATASET SUMMARY]")
	assert.Contains(t, out, "Rows: 5")
	assert.Contains(t, out, "beer_servings")

	dest := filepath.Join(home, "out", "summary.md")
	out, err = runCmd(t, "profile", path, "-o", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Wrote summary")
	b, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(b), "[SCHEMA]")
}

func TestCLI_ChartFormats(t *testing.T) {
	home := isolate(t)
	path := writeCSV(t, home)

	out, err := runCmd(t, "chart", path, "--x", "country", "--y", "beer_servings")
	require.NoError(t, err)
	assert.Contains(t, out, "beer_servings by country")

	html := filepath.Join(home, "bar.html")
	_, err = runCmd(t, "chart", path, "--x", "country", "--y", "beer_servings", "--format", "html", "-o", html)
	require.NoError(t, err)
	b, err := os.ReadFile(html)
	require.NoError(t, err)
	assert.Contains(t, string(b), "echarts")

	png := filepath.Join(home, "scatter.png")
	_, err = runCmd(t, "chart", path, "--type", "scatter plot", "--x", "beer_servings", "--y", "wine_servings", "--format", "png", "-o", png)
	require.NoError(t, err)
	b, err = os.ReadFile(png)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), "\x89PNG"), "png signature")

	_, err = runCmd(t, "chart", path, "--format", "png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--output is required")
}

func TestCLI_AskSuggestsAndAnswers(t *testing.T) {
	home := isolate(t)
	path := writeCSV(t, home)
	var calls atomic.Int32
	srv := fakeChatServer(t, &calls)
	t.Setenv("CSVINSIGHT_BASE_URL", srv.URL)
	t.Setenv("CSVINSIGHT_API_KEY", "test-key")
	t.Setenv("CSVINSIGHT_PROVIDER", "groq")

	out, err := runCmd(t, "ask", path, "--quiet")
	require.NoError(t, err)
	assert.Contains(t, out, "1. Which country drinks the most beer?")
	assert.Contains(t, out, "2. How does wine compare by continent?")
	assert.Equal(t, int32(1), calls.Load())

	outDir := filepath.Join(home, "charts")
	out, err = runCmd(t, "ask", path, "Which country drinks the most beer?", "--json", "--format", "html", "--out-dir", outDir)
	require.NoError(t, err)
	var payload struct {
		Results []askResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &payload), out)
	require.Len(t, payload.Results, 1)
	res := payload.Results[0]
	assert.Equal(t, "Namibia drinks the most beer.", res.Answer)
	assert.Equal(t, "bar chart", res.ChartType)
	assert.Equal(t, "structured", res.Parse)
	assert.Equal(t, filepath.Join(outDir, "q01.html"), res.ChartFile)
	_, err = os.Stat(res.ChartFile)
	assert.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCLI_ConfigSetShow(t *testing.T) {
	home := isolate(t)

	_, err := runCmd(t, "config", "set", "api_key", "sk-abcdef123456")
	require.NoError(t, err)
	_, err = runCmd(t, "config", "set", "chart_format", "png")
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(home, ".csvinsight", "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "chart_format: png")

	out, err := runCmd(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "****3456")
	assert.NotContains(t, out, "sk-abcdef123456")
	assert.Contains(t, out, "chart_format: png")

	_, err = runCmd(t, "config", "set", "chart_format", "svg")
	assert.Error(t, err)
}

func TestCLI_Models(t *testing.T) {
	isolate(t)
	out, err := runCmd(t, "models", "--provider", "groq")
	require.NoError(t, err)
	assert.Contains(t, out, "llama-3.1-8b-instant (default)")
	assert.NotContains(t, out, "gpt-4o")

	_, err = runCmd(t, "models", "--provider", "acme")
	assert.Error(t, err)
}
