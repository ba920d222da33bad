package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/jharjadi/guides-search/internal/config"
	"github.com/jharjadi/guides-search/internal/db"
	"github.com/jharjadi/guides-search/internal/descriptor"
	"github.com/jharjadi/guides-search/internal/gemini"
	"github.com/jharjadi/guides-search/internal/ingest"
	"github.com/jharjadi/guides-search/internal/model"
)

func main() {
	_ = godotenv.Load()

	// Progress goes to stdout; logs stay out of the way on stderr.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	rule := "================================================================================"
	fmt.Println(rule)
	fmt.Println("Gemini File Search - GSPP User Guides Setup")
	fmt.Println(rule)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	client, err := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiBaseURL, cfg.GeminiTimeout())
	if err != nil {
		if errors.Is(err, gemini.ErrMissingAPIKey) {
			return errors.New("GEMINI_API_KEY is not set; add it to your environment or .env file")
		}
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var recorder ingest.RunRecorder = db.Noop{}
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()
		if err := db.EnsureSchema(ctx, pool); err != nil {
			return fmt.Errorf("schema check: %w", err)
		}
		recorder = db.NewRecorder(pool)
	}

	files := make([]descriptor.PDFFile, 0, len(cfg.Guides.Files))
	for _, g := range cfg.Guides.Files {
		files = append(files, descriptor.PDFFile{Path: g.Path, DisplayName: g.DisplayName})
	}

	fmt.Println("\nChecking PDF files...")
	setup := &ingest.Setup{
		API:              client,
		Confirm:          ingest.NewLineConfirmer(os.Stdin, os.Stdout),
		Recorder:         recorder,
		Out:              os.Stdout,
		StoreDisplayName: cfg.Guides.StoreDisplayName,
		Files:            files,
		PollInterval:     cfg.PollInterval(),
		DescriptorPath:   cfg.StoreConfigFile,
	}

	sum, err := setup.Run(ctx)
	if err != nil {
		if errors.Is(err, ingest.ErrNoFiles) {
			return fmt.Errorf("%w: place the PDF guides next to this program or edit %s", err, cfg.GuidesConfig)
		}
		return err
	}

	fmt.Printf("\n%s\n", rule)
	if sum.Status == model.RunStatusSucceeded {
		fmt.Println("All files uploaded and indexed successfully!")
	} else {
		fmt.Printf("Setup finished with status %q.\n", sum.Status)
		for _, f := range sum.Stats.Failed {
			fmt.Printf("   FAILED  %s: %s\n", f.DisplayName, f.Error)
		}
	}
	fmt.Printf("\nStore name: %s\n", sum.StoreName)
	fmt.Printf("Run ID:     %s\n", sum.RunID)
	fmt.Println("\nStart the chat with `ask` or the API with `server`.")
	fmt.Println(rule)
	return nil
}
