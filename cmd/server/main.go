package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/jharjadi/guides-search/internal/access"
	"github.com/jharjadi/guides-search/internal/config"
	"github.com/jharjadi/guides-search/internal/db"
	"github.com/jharjadi/guides-search/internal/descriptor"
	"github.com/jharjadi/guides-search/internal/gemini"
	"github.com/jharjadi/guides-search/internal/handler"
	"github.com/jharjadi/guides-search/internal/metrics"
	storemw "github.com/jharjadi/guides-search/internal/middleware"
	"github.com/jharjadi/guides-search/internal/service"
	"github.com/jharjadi/guides-search/internal/session"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	client, err := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiBaseURL, cfg.GeminiTimeout())
	if err != nil {
		if errors.Is(err, gemini.ErrMissingAPIKey) {
			slog.Error("GEMINI_API_KEY is not set", "error", err)
		} else {
			slog.Error("failed to create Gemini client", "error", err)
		}
		os.Exit(1)
	}

	ctx := context.Background()

	// Optional audit trail
	var queryRecorder handler.QueryRecorder = db.Noop{}
	var health pinger = db.Noop{}
	var runs handler.RunLister
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := db.EnsureSchema(ctx, pool); err != nil {
			slog.Error("schema check failed", "error", err)
			os.Exit(1)
		}
		if err := db.RunCrashGuard(ctx, pool, cfg.CrashGuardRunningStaleMin); err != nil {
			slog.Error("crash guard failed", "error", err)
			// Non-fatal
		}

		rec := db.NewRecorder(pool)
		queryRecorder, runs, health = rec, rec, rec
	} else {
		slog.Info("DATABASE_URL not set, audit trail disabled")
	}

	resolver := &access.Resolver{
		DescriptorPath: cfg.StoreConfigFile,
		EnvStoreName:   cfg.StoreName,
		Documents:      cfg.Guides.DisplayNames(),
	}
	var configured *descriptor.Descriptor
	configuredStore := ""
	switch d, err := resolver.Configured(); {
	case err == nil:
		configured = d
		configuredStore = d.StoreName
		slog.Info("store configured", "store_name", d.StoreName, "documents", len(d.PDFFiles))
	case errors.Is(err, access.ErrNoStore):
		slog.Warn("no store configured, clients must create a session with a Store ID")
	default:
		slog.Error("failed to read store descriptor", "path", cfg.StoreConfigFile, "error", err)
		os.Exit(1)
	}

	issuer := session.NewIssuer(cfg.SessionSecret, cfg.SessionExpiryHours)
	answers := service.NewAnswerService(client, cfg.GeminiModel, cfg.Guides.SystemInstruction)

	queryHandler := handler.NewQueryHandler(answers, queryRecorder)
	sessionHandler := handler.NewSessionHandler(issuer, configuredStore)
	guidesHandler := handler.NewGuidesHandler(configured, resolver, cfg.GeminiModel, cfg.Guides.ExampleQuestions)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := health.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"unhealthy","error":%q}`, err.Error())
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status":"ok"}`)
	})
	r.Handle("/metrics", metrics.Handler())

	r.Post("/v1/session", sessionHandler.Create)

	r.Group(func(r chi.Router) {
		r.Use(storemw.StoreGate(configuredStore, issuer))
		r.Get("/v1/guides", guidesHandler.Get)
		r.Post("/v1/query", queryHandler.Handle)
	})

	if runs != nil {
		ingestionHandler := handler.NewIngestionHandler(runs)
		r.Get("/v1/ingestion-runs", ingestionHandler.List)
		r.Get("/v1/ingestion-runs/{id}", ingestionHandler.Get)
	}

	// Serve web UI (static files from WEB_DIR if it exists)
	if info, err := os.Stat(cfg.WebDir); err == nil && info.IsDir() {
		slog.Info("serving web UI", "dir", cfg.WebDir)
		fs := http.FileServer(http.Dir(cfg.WebDir))
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/" {
				http.ServeFile(w, r, filepath.Join(cfg.WebDir, "index.html"))
				return
			}
			fs.ServeHTTP(w, r)
		})
	} else {
		slog.Info("web UI not available", "dir", cfg.WebDir, "reason", "directory not found")
	}

	slog.Info("gemini configuration",
		"model", cfg.GeminiModel,
		"timeout_ms", cfg.GeminiTimeoutMS,
		"session_expiry_hours", cfg.SessionExpiryHours,
	)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("starting server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-shutdownCtx.Done()
	slog.Info("shutting down server...")

	cancelCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(cancelCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
