package descriptor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultPath)
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	d := New("fileSearchStores/abc", "GSPP-User-Guides", []PDFFile{
		{Path: "user guides/a.pdf", DisplayName: "Guide A"},
		{Path: "user guides/b.pdf", DisplayName: "Guide B"},
	}, now)

	if err := Save(path, d); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.StoreName != "fileSearchStores/abc" {
		t.Errorf("StoreName: got %q", got.StoreName)
	}
	if got.CreatedAt != "2026-03-04 05:06:07" {
		t.Errorf("CreatedAt: got %q", got.CreatedAt)
	}
	names := got.DisplayNames()
	if len(names) != 2 || names[0] != "Guide A" || names[1] != "Guide B" {
		t.Errorf("DisplayNames: got %v", names)
	}
}

func TestSave_Indented(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	if err := Save(path, New("fileSearchStores/x", "X", nil, time.Now())); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n  \"store_name\": \"fileSearchStores/x\","
	if len(data) < len(want) || string(data[:len(want)]) != want {
		t.Errorf("expected two-space indented JSON, got:\n%s", data)
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestLoad_NoStoreName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	if err := os.WriteFile(path, []byte(`{"store_display_name":"x"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for descriptor without store_name")
	}
}
