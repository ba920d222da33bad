package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/jharjadi/guides-search/internal/access"
	"github.com/jharjadi/guides-search/internal/chat"
	"github.com/jharjadi/guides-search/internal/config"
	"github.com/jharjadi/guides-search/internal/descriptor"
	"github.com/jharjadi/guides-search/internal/gemini"
	"github.com/jharjadi/guides-search/internal/service"
	"github.com/jharjadi/guides-search/internal/tui"
)

func main() {
	plain := flag.Bool("plain", false, "use the line REPL instead of the full-screen chat")
	storeFlag := flag.String("store", "", "File Search Store ID to use when none is configured")
	verbose := flag.Bool("v", false, "debug logging on stderr")
	flag.Parse()

	_ = godotenv.Load()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(*plain, *storeFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(plain bool, userStore string) error {
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

	resolver := &access.Resolver{
		DescriptorPath: cfg.StoreConfigFile,
		EnvStoreName:   cfg.StoreName,
		Documents:      cfg.Guides.DisplayNames(),
	}
	d, err := resolver.Resolve(userStore)
	if err != nil && !errors.Is(err, access.ErrNoStore) {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	answers := service.NewAnswerService(client, cfg.GeminiModel, cfg.Guides.SystemInstruction)

	if plain {
		in := bufio.NewReader(os.Stdin)
		if d == nil {
			if d, err = gate(in, os.Stdout, resolver); err != nil {
				return err
			}
		}
		fmt.Printf("Using store: %s\n", d.StoreName)
		repl := &chat.REPL{Asker: answers, StoreName: d.StoreName, In: in, Out: os.Stdout}
		return repl.Run(ctx)
	}

	opts := tui.Options{
		Asker:            answers,
		Documents:        cfg.Guides.DisplayNames(),
		ExampleQuestions: cfg.Guides.ExampleQuestions,
		ModelName:        cfg.GeminiModel,
		Context:          ctx,
	}
	if d != nil {
		opts.StoreName = d.StoreName
		if docs := d.DisplayNames(); len(docs) > 0 {
			opts.Documents = docs
		}
	}
	_, err = tea.NewProgram(tui.New(opts), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// gate asks for a Store ID until a valid one is entered.
func gate(in *bufio.Reader, out io.Writer, resolver *access.Resolver) (*descriptor.Descriptor, error) {
	fmt.Fprintln(out, "No File Search store is configured.")
	fmt.Fprintln(out, "Run setup first, or enter the Store ID it printed (fileSearchStores/...).")
	for {
		fmt.Fprint(out, "\nStore ID: ")
		line, err := in.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			name, verr := access.ValidateStoreName(line)
			if verr == nil {
				return resolver.ForStore(name), nil
			}
			fmt.Fprintln(out, verr)
		} else if err == nil {
			fmt.Fprintln(out, access.ErrEmptyStoreName)
		}
		if err != nil {
			return nil, access.ErrNoStore
		}
	}
}
