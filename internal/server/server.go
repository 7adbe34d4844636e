// Package server exposes the explorer over HTTP: HTML pages for the browser
// flow and a small JSON API.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/KaramelBytes/csvinsight/internal/explorer"
	"github.com/KaramelBytes/csvinsight/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

type Options struct {
	Addr           string
	RequestTimeout time.Duration
	MaxUploadBytes int64
	CORSOrigins    []string
	// SweepInterval is how often idle sessions are expired.
	SweepInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.Addr == "" {
		o.Addr = "127.0.0.1:8000"
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 5 * time.Minute
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = 10 << 20
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = 5 * time.Minute
	}
	return o
}

type Server struct {
	explorer *explorer.Explorer
	sessions session.Manager
	opt      Options
	log      *slog.Logger
	pages    *template.Template
	router   *chi.Mux
}

func New(ex *explorer.Explorer, sessions session.Manager, opt Options, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}
	pages, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s := &Server{
		explorer: ex,
		sessions: sessions,
		opt:      opt.withDefaults(),
		log:      log,
		pages:    pages,
		router:   chi.NewRouter(),
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.log))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.opt.RequestTimeout))

	s.router.Get("/", s.handleIndex)
	s.router.Post("/", s.handleUpload)
	s.router.Post("/analyze", s.handleAnalyze)
	s.router.Get("/analyze", redirectHome)
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.opt.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: len(s.opt.CORSOrigins) > 0,
			MaxAge:           300,
		}))
		r.Post("/upload", s.handleAPIUpload)
		r.Post("/analyze", s.handleAPIAnalyze)
		r.Get("/questions", s.handleAPIQuestions)
	})
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully. Idle
// sessions are swept in the background for the server's lifetime.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opt.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go s.sweep(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", s.opt.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) sweep(ctx context.Context) {
	t := time.NewTicker(s.opt.SweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.sessions.Sweep()
		}
	}
}

// session returns the caller's session, issuing a new cookie when the
// request carries none or an unusable one.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (session.Store, error) {
	if c, err := r.Cookie(session.CookieName); err == nil {
		store, err := s.sessions.Load(c.Value)
		if err == nil {
			return store, nil
		}
		if !errors.Is(err, session.ErrInvalidID) {
			return nil, err
		}
	}
	id := session.NewID()
	store, err := s.sessions.Load(id)
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	return store, nil
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
