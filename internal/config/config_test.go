package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GUIDES_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))
	for _, key := range []string{
		"API_HOST", "API_PORT", "GEMINI_MODEL", "GEMINI_TIMEOUT_MS", "STORE_CONFIG_FILE",
		"INDEX_POLL_INTERVAL_MS", "SESSION_EXPIRY_HOURS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIHost != "0.0.0.0" {
		t.Errorf("expected APIHost '0.0.0.0', got %q", cfg.APIHost)
	}
	if cfg.APIPort != "8000" {
		t.Errorf("expected APIPort '8000', got %q", cfg.APIPort)
	}
	if cfg.GeminiModel != DefaultModel {
		t.Errorf("expected GeminiModel %q, got %q", DefaultModel, cfg.GeminiModel)
	}
	if cfg.StoreConfigFile != "file_search_config.json" {
		t.Errorf("expected StoreConfigFile 'file_search_config.json', got %q", cfg.StoreConfigFile)
	}
	if cfg.PollInterval() != 3*time.Second {
		t.Errorf("expected 3s poll interval, got %v", cfg.PollInterval())
	}
	if cfg.GeminiTimeout() != 2*time.Minute {
		t.Errorf("expected 2m Gemini timeout, got %v", cfg.GeminiTimeout())
	}
	if cfg.WriteTimeout != 150*time.Second {
		t.Errorf("expected 150s write timeout, got %v", cfg.WriteTimeout)
	}
	if cfg.SessionExpiryHours != 24 {
		t.Errorf("expected SessionExpiryHours 24, got %d", cfg.SessionExpiryHours)
	}
	if len(cfg.Guides.Files) != 2 {
		t.Errorf("expected 2 default guides, got %d", len(cfg.Guides.Files))
	}
	if cfg.Guides.StoreDisplayName != "GSPP-User-Guides" {
		t.Errorf("expected default store display name, got %q", cfg.Guides.StoreDisplayName)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("GUIDES_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("GEMINI_MODEL", "gemini-2.5-flash")
	t.Setenv("STORE_NAME", "fileSearchStores/env")
	t.Setenv("INDEX_POLL_INTERVAL_MS", "500")
	t.Setenv("GEMINI_TIMEOUT_MS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.GeminiModel != "gemini-2.5-flash" {
		t.Errorf("expected GeminiModel override, got %q", cfg.GeminiModel)
	}
	if cfg.StoreName != "fileSearchStores/env" {
		t.Errorf("expected StoreName from env, got %q", cfg.StoreName)
	}
	if cfg.PollInterval() != 500*time.Millisecond {
		t.Errorf("expected 500ms poll interval, got %v", cfg.PollInterval())
	}
	if cfg.GeminiTimeoutMS != 120000 {
		t.Errorf("expected fallback timeout for invalid value, got %d", cfg.GeminiTimeoutMS)
	}
}

func TestLoad_WriteTimeoutFollowsGeminiTimeout(t *testing.T) {
	t.Setenv("GUIDES_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("GEMINI_TIMEOUT_MS", "300000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.WriteTimeout != 5*time.Minute+WriteTimeoutMargin {
		t.Errorf("expected write timeout %v, got %v", 5*time.Minute+WriteTimeoutMargin, cfg.WriteTimeout)
	}
	if cfg.WriteTimeout <= cfg.GeminiTimeout() {
		t.Error("write timeout must exceed the Gemini timeout")
	}
}

func TestLoad_InvalidGeminiTimeout(t *testing.T) {
	t.Setenv("GUIDES_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("GEMINI_TIMEOUT_MS", "0")

	if _, err := Load(); err == nil {
		t.Error("expected error for non-positive GEMINI_TIMEOUT_MS")
	}
}

func TestLoad_InvalidPollInterval(t *testing.T) {
	t.Setenv("GUIDES_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("INDEX_POLL_INTERVAL_MS", "0")

	if _, err := Load(); err == nil {
		t.Error("expected error for zero poll interval")
	}
}

func TestLoadGuides_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guides.toml")
	content := `
store_display_name = "Test-Guides"
system_instruction = "Answer from the docs."

[[files]]
path = "docs/a.pdf"
display_name = "Guide A"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	g, err := LoadGuides(path)
	if err != nil {
		t.Fatalf("LoadGuides: %v", err)
	}
	if g.StoreDisplayName != "Test-Guides" {
		t.Errorf("StoreDisplayName: got %q", g.StoreDisplayName)
	}
	if g.SystemInstruction != "Answer from the docs." {
		t.Errorf("SystemInstruction: got %q", g.SystemInstruction)
	}
	if len(g.Files) != 1 || g.Files[0].DisplayName != "Guide A" {
		t.Errorf("Files: got %+v", g.Files)
	}
	if g.Model != DefaultModel {
		t.Errorf("Model should keep default, got %q", g.Model)
	}
	if len(g.ExampleQuestions) != 4 {
		t.Errorf("ExampleQuestions should keep defaults, got %d", len(g.ExampleQuestions))
	}
}

func TestLoadGuides_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guides.toml")
	if err := os.WriteFile(path, []byte("store_display_name = "), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadGuides(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadGuides_ShippedFile(t *testing.T) {
	g, err := LoadGuides(filepath.Join("..", "..", "config", "guides.toml"))
	if err != nil {
		t.Fatalf("LoadGuides: %v", err)
	}
	if len(g.Files) != 2 {
		t.Errorf("expected 2 guides, got %d", len(g.Files))
	}
	if g.SystemInstruction == "" {
		t.Error("expected a system instruction in the shipped guides file")
	}
}

func TestDisplayNames(t *testing.T) {
	names := DefaultGuides().DisplayNames()
	if len(names) != 2 || names[0] != "GSPP Job Planning User Guide" {
		t.Errorf("unexpected display names: %v", names)
	}
}

func TestAddr(t *testing.T) {
	cfg := &Config{APIHost: "0.0.0.0", APIPort: "8000"}
	if cfg.Addr() != "0.0.0.0:8000" {
		t.Errorf("expected '0.0.0.0:8000', got %q", cfg.Addr())
	}
}
