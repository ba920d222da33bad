// Package descriptor persists the store descriptor written by setup and read
// by the query surfaces.
package descriptor

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// DefaultPath is where setup writes the descriptor.
const DefaultPath = "file_search_config.json"

// TimeLayout formats created_at as "YYYY-MM-DD HH:MM:SS".
const TimeLayout = "2006-01-02 15:04:05"

// PDFFile is one indexed guide.
type PDFFile struct {
	Path        string `json:"path,omitempty"`
	DisplayName string `json:"display_name"`
}

// Descriptor names the File Search store that holds the guides.
type Descriptor struct {
	StoreName        string    `json:"store_name"`
	StoreDisplayName string    `json:"store_display_name"`
	PDFFiles         []PDFFile `json:"pdf_files"`
	CreatedAt        string    `json:"created_at,omitempty"`
}

// New builds a descriptor stamped with the given time.
func New(storeName, displayName string, files []PDFFile, now time.Time) *Descriptor {
	return &Descriptor{
		StoreName:        storeName,
		StoreDisplayName: displayName,
		PDFFiles:         files,
		CreatedAt:        now.Format(TimeLayout),
	}
}

// DisplayNames lists the guide titles in order.
func (d *Descriptor) DisplayNames() []string {
	names := make([]string, 0, len(d.PDFFiles))
	for _, f := range d.PDFFiles {
		names = append(names, f.DisplayName)
	}
	return names
}

// Load reads a descriptor. A missing file is reported with os.ErrNotExist.
func Load(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor %s: %w", path, err)
	}
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse descriptor %s: %w", path, err)
	}
	if d.StoreName == "" {
		return nil, fmt.Errorf("descriptor %s has no store_name", path)
	}
	return &d, nil
}

// Save writes the descriptor as indented JSON.
func Save(path string, d *Descriptor) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal descriptor: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write descriptor %s: %w", path, err)
	}
	return nil
}
