// Package config loads all environment variables and the guides file for the
// guides-search binaries.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// DefaultModel is the generation model used when neither GEMINI_MODEL nor the
// guides file names one.
const DefaultModel = "gemini-3-flash-preview"

// Guide is one PDF to index.
type Guide struct {
	Path        string `toml:"path"`
	DisplayName string `toml:"display_name"`
}

// Guides is the content side of the configuration: what gets indexed and how
// the assistant is framed.
type Guides struct {
	StoreDisplayName  string   `toml:"store_display_name"`
	Model             string   `toml:"model"`
	SystemInstruction string   `toml:"system_instruction"`
	ExampleQuestions  []string `toml:"example_questions"`
	Files             []Guide  `toml:"files"`
}

// DefaultGuides returns the built-in GSPP guide set.
func DefaultGuides() Guides {
	return Guides{
		StoreDisplayName: "GSPP-User-Guides",
		Model:            DefaultModel,
		ExampleQuestions: []string{
			"How do I create a new job?",
			"What are the keyboard shortcuts?",
			"How do I export data?",
			"What file formats are supported?",
		},
		Files: []Guide{
			{Path: "user guides/GSPP Job Planning Application User Guide.pdf", DisplayName: "GSPP Job Planning User Guide"},
			{Path: "user guides/GSPP Sweet Editor User Guide.pdf", DisplayName: "GSPP Sweet Editor User Guide"},
		},
	}
}

// DisplayNames lists the guide titles in order.
func (g Guides) DisplayNames() []string {
	names := make([]string, 0, len(g.Files))
	for _, f := range g.Files {
		names = append(names, f.DisplayName)
	}
	return names
}

// LoadGuides reads a TOML guides file. A missing file yields DefaultGuides;
// fields the file leaves empty keep their defaults.
func LoadGuides(path string) (Guides, error) {
	g := DefaultGuides()
	if path == "" {
		return g, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return g, nil
	}
	if err != nil {
		return g, fmt.Errorf("failed to read guides file '%s': %w", path, err)
	}

	var fromFile Guides
	if err := toml.Unmarshal(data, &fromFile); err != nil {
		return g, fmt.Errorf("failed to parse guides TOML '%s': %w", path, err)
	}

	if fromFile.StoreDisplayName != "" {
		g.StoreDisplayName = fromFile.StoreDisplayName
	}
	if fromFile.Model != "" {
		g.Model = fromFile.Model
	}
	if fromFile.SystemInstruction != "" {
		g.SystemInstruction = fromFile.SystemInstruction
	}
	if len(fromFile.ExampleQuestions) > 0 {
		g.ExampleQuestions = fromFile.ExampleQuestions
	}
	if len(fromFile.Files) > 0 {
		g.Files = fromFile.Files
	}
	return g, nil
}

// WriteTimeoutMargin is added to the Gemini timeout to get the server write
// timeout.
const WriteTimeoutMargin = 30 * time.Second

// Config holds all configuration for the server, setup and chat binaries.
type Config struct {
	// Server
	APIHost string
	APIPort string

	// Gemini
	GeminiAPIKey    string
	GeminiBaseURL   string
	GeminiModel     string
	GeminiTimeoutMS int

	// StoreName is the STORE_NAME fallback used when no descriptor exists.
	StoreName string

	// StoreConfigFile is the descriptor written by setup.
	StoreConfigFile string

	// IndexPollIntervalMS is the fixed wait between indexing status polls.
	IndexPollIntervalMS int

	// DatabaseURL enables the Postgres audit trail when set.
	DatabaseURL string

	// CrashGuardRunningStaleMin marks running runs as failed if not updated for this many minutes
	CrashGuardRunningStaleMin int

	// SessionSecret signs access gate tokens. Empty means an ephemeral key.
	SessionSecret string

	// SessionExpiryHours is the session token lifetime in hours (default 24)
	SessionExpiryHours int

	// WebDir is served as the static chat UI when it exists.
	WebDir string

	// GuidesConfig is the path of the TOML guides file.
	GuidesConfig string
	Guides       Guides

	// Timeouts
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		APIHost: envOr("API_HOST", "0.0.0.0"),
		APIPort: envOr("API_PORT", "8000"),

		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:   os.Getenv("GEMINI_BASE_URL"),
		GeminiTimeoutMS: envInt("GEMINI_TIMEOUT_MS", 120000),

		StoreName:           os.Getenv("STORE_NAME"),
		StoreConfigFile:     envOr("STORE_CONFIG_FILE", "file_search_config.json"),
		IndexPollIntervalMS: envInt("INDEX_POLL_INTERVAL_MS", 3000),

		DatabaseURL:               os.Getenv("DATABASE_URL"),
		CrashGuardRunningStaleMin: envInt("CRASH_GUARD_RUNNING_STALE_MIN", 15),

		SessionSecret:      os.Getenv("SESSION_SECRET"),
		SessionExpiryHours: envInt("SESSION_EXPIRY_HOURS", 24),

		WebDir:       envOr("WEB_DIR", "/web"),
		GuidesConfig: envOr("GUIDES_CONFIG", "config/guides.toml"),

		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	guides, err := LoadGuides(cfg.GuidesConfig)
	if err != nil {
		return nil, err
	}
	cfg.Guides = guides
	cfg.GeminiModel = envOr("GEMINI_MODEL", guides.Model)

	if cfg.IndexPollIntervalMS <= 0 {
		return nil, fmt.Errorf("INDEX_POLL_INTERVAL_MS must be positive, got %d", cfg.IndexPollIntervalMS)
	}
	if cfg.GeminiTimeoutMS <= 0 {
		return nil, fmt.Errorf("GEMINI_TIMEOUT_MS must be positive, got %d", cfg.GeminiTimeoutMS)
	}

	// A response must outlive the generate call it is waiting on.
	cfg.WriteTimeout = cfg.GeminiTimeout() + WriteTimeoutMargin

	return cfg, nil
}

// Addr returns the listen address as "host:port".
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.APIHost, c.APIPort)
}

// GeminiTimeout returns the Gemini HTTP timeout as a time.Duration.
func (c *Config) GeminiTimeout() time.Duration {
	return time.Duration(c.GeminiTimeoutMS) * time.Millisecond
}

// PollInterval returns the indexing poll interval as a time.Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.IndexPollIntervalMS) * time.Millisecond
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
