// Package access decides which File Search store a session queries.
//
// The store comes from, in order: the descriptor file written by setup, the
// STORE_NAME environment variable, or an ID the user types at the access gate.
package access

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jharjadi/guides-search/internal/descriptor"
	"github.com/jharjadi/guides-search/internal/gemini"
)

// FallbackDisplayName names stores that were not described by setup.
const FallbackDisplayName = "GSPP-User-Guides"

var (
	// ErrNoStore means no store is configured and none was supplied.
	ErrNoStore = errors.New("no File Search store configured")
	// ErrEmptyStoreName means the user submitted a blank store ID.
	ErrEmptyStoreName = errors.New("please enter a Store ID")
	// ErrInvalidStoreName means a supplied store ID lacks the resource prefix.
	ErrInvalidStoreName = fmt.Errorf("invalid Store ID format: it should start with '%s'", gemini.StoreNamePrefix)
)

// Resolver resolves the store for a session.
type Resolver struct {
	DescriptorPath string
	EnvStoreName   string

	// Documents are the guide titles shown when the descriptor is synthesized.
	Documents []string
}

// Configured returns the store configured for every session: the descriptor
// file first, then EnvStoreName. It returns ErrNoStore when neither is set.
func (r *Resolver) Configured() (*descriptor.Descriptor, error) {
	if r.DescriptorPath != "" {
		d, err := descriptor.Load(r.DescriptorPath)
		if err == nil {
			return d, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	if name := strings.TrimSpace(r.EnvStoreName); name != "" {
		return r.ForStore(name), nil
	}
	return nil, ErrNoStore
}

// Resolve returns the configured store, or the user-supplied one when nothing
// is configured.
func (r *Resolver) Resolve(userStore string) (*descriptor.Descriptor, error) {
	d, err := r.Configured()
	if err == nil || !errors.Is(err, ErrNoStore) {
		return d, err
	}
	if strings.TrimSpace(userStore) == "" {
		return nil, ErrNoStore
	}
	name, err := ValidateStoreName(userStore)
	if err != nil {
		return nil, err
	}
	return r.ForStore(name), nil
}

// ForStore synthesizes a descriptor for a bare store name.
func (r *Resolver) ForStore(name string) *descriptor.Descriptor {
	files := make([]descriptor.PDFFile, 0, len(r.Documents))
	for _, doc := range r.Documents {
		files = append(files, descriptor.PDFFile{DisplayName: doc})
	}
	return &descriptor.Descriptor{
		StoreName:        name,
		StoreDisplayName: FallbackDisplayName,
		PDFFiles:         files,
	}
}

// ValidateStoreName trims a user-supplied store ID and checks its prefix.
func ValidateStoreName(s string) (string, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return "", ErrEmptyStoreName
	case !strings.HasPrefix(s, gemini.StoreNamePrefix) || s == gemini.StoreNamePrefix:
		return "", ErrInvalidStoreName
	}
	return s, nil
}
