package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/KaramelBytes/csvinsight/internal/ai"
	"github.com/KaramelBytes/csvinsight/internal/chart"
	"github.com/KaramelBytes/csvinsight/internal/explorer"
	"github.com/KaramelBytes/csvinsight/internal/insight"
	"github.com/KaramelBytes/csvinsight/internal/server"
	"github.com/spf13/cobra"
)

var (
	serveAddr        string
	serveChartFormat string
	serveSessions    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web UI and JSON API",
	Example: `  csvinsight serve
  csvinsight serve --addr :8080 --chart-format png
  GROQ_API_KEY=... csvinsight serve --provider groq --model llama-3.3-70b-versatile`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			c.ListenAddr = serveAddr
		}
		if serveChartFormat != "" {
			c.ChartFormat = serveChartFormat
		}
		if serveSessions != "" {
			c.SessionBackend = serveSessions
		}

		rt, provider, err := buildRuntime(c)
		if err != nil {
			return err
		}
		model := selectModel(c, provider)
		format, err := chart.ParseFormat(c.ChartFormat)
		if err != nil {
			return err
		}
		if format == chart.FormatText {
			return fmt.Errorf("chart_format text is terminal-only; use html or png for serve")
		}
		renderer, err := chart.NewRenderer(format, c.ChartTheme)
		if err != nil {
			return err
		}
		sessions, err := newSessionManager(c)
		if err != nil {
			return err
		}

		iopt := insightOptions(c, model)
		eopt := explorer.DefaultOptions()
		if c.PreviewRows > 0 {
			eopt.PreviewRows = c.PreviewRows
		}
		eopt.QuestionTimeout = c.QuestionTimeout()
		eopt.AnswerTimeout = c.AnswerTimeout()
		ex := explorer.New(
			insight.NewQuestionGenerator(rt, iopt),
			insight.NewAnswerGenerator(rt, iopt),
			renderer, eopt, logger)
		srv, err := server.New(ex, sessions, server.Options{
			Addr:           c.ListenAddr,
			RequestTimeout: c.RequestTimeout(),
			MaxUploadBytes: c.MaxUploadBytes(),
			CORSOrigins:    c.CORSOrigins,
		}, logger)
		if err != nil {
			return err
		}

		if c.APIKey == "" && provider != ai.ProviderOllama {
			fmt.Fprintf(os.Stderr, "⚠ Warning: no api_key configured for %s; question and answer calls will fail\n", provider)
		}
		fmt.Printf("✓ csvinsight on http://%s (provider=%s model=%s charts=%s sessions=%s)\n",
			c.ListenAddr, provider, model, format, c.SessionBackend)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides listen_addr)")
	serveCmd.Flags().StringVar(&serveChartFormat, "chart-format", "", "chart format: html|png (overrides chart_format)")
	serveCmd.Flags().StringVar(&serveSessions, "sessions", "", "session backend: memory|file (overrides session_backend)")
}
