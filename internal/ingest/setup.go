package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jharjadi/guides-search/internal/descriptor"
	"github.com/jharjadi/guides-search/internal/gemini"
	"github.com/jharjadi/guides-search/internal/model"
)

// ErrNoFiles is returned when none of the configured guides exist locally.
var ErrNoFiles = errors.New("none of the PDF files were found")

// StoreAPI is the store lifecycle surface setup needs.
type StoreAPI interface {
	OperationGetter
	ListStores(ctx context.Context) ([]gemini.Store, error)
	CreateStore(ctx context.Context, displayName string) (*gemini.Store, error)
	DeleteStore(ctx context.Context, name string, force bool) error
	UploadToStore(ctx context.Context, filePath, storeName, displayName string) (*gemini.Operation, error)
}

// Confirmer asks the operator a yes/no question.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// LineConfirmer reads one line per question; only "y" means yes.
type LineConfirmer struct {
	In  *bufio.Reader
	Out io.Writer
}

// NewLineConfirmer wraps r and w.
func NewLineConfirmer(r io.Reader, w io.Writer) *LineConfirmer {
	return &LineConfirmer{In: bufio.NewReader(r), Out: w}
}

// Confirm implements Confirmer.
func (c *LineConfirmer) Confirm(prompt string) (bool, error) {
	fmt.Fprint(c.Out, prompt)
	line, err := c.In.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read answer: %w", err)
	}
	return strings.ToLower(strings.TrimSpace(line)) == "y", nil
}

// RunRecorder persists ingestion run progress.
type RunRecorder interface {
	StartRun(ctx context.Context, runID uuid.UUID, storeName string, filesTotal int) error
	FinishRun(ctx context.Context, runID uuid.UUID, status string, stats model.RunStats, errMsg string) error
}

// FileCheck is the local state of one configured guide.
type FileCheck struct {
	File   descriptor.PDFFile
	Found  bool
	SizeMB float64
}

// Summary reports what a setup run did.
type Summary struct {
	RunID     uuid.UUID
	StoreName string
	Status    string
	Stats     model.RunStats
}

// Setup finds or creates the store, uploads the guides and writes the
// descriptor.
type Setup struct {
	API      StoreAPI
	Confirm  Confirmer
	Recorder RunRecorder

	// Out receives human-readable progress.
	Out io.Writer

	StoreDisplayName string
	Files            []descriptor.PDFFile
	PollInterval     time.Duration
	DescriptorPath   string

	Now func() time.Time
}

// Preflight reports each configured guide with its size, before any remote
// call is made.
func (s *Setup) Preflight() []FileCheck {
	checks := make([]FileCheck, 0, len(s.Files))
	for _, f := range s.Files {
		c := FileCheck{File: f}
		if info, err := os.Stat(f.Path); err == nil && !info.IsDir() {
			c.Found = true
			c.SizeMB = float64(info.Size()) / (1024 * 1024)
			s.printf("   OK  %s (%.1f MB)\n", f.DisplayName, c.SizeMB)
		} else {
			s.printf("   !!  %s - NOT FOUND at %s\n", f.DisplayName, f.Path)
		}
		checks = append(checks, c)
	}
	return checks
}

// FindExisting returns the store whose display name matches, or nil. Listing
// errors are logged and treated as "not found".
func (s *Setup) FindExisting(ctx context.Context) *gemini.Store {
	stores, err := s.API.ListStores(ctx)
	if err != nil {
		slog.Warn("listing stores failed, assuming none exist", "error", err)
		s.printf("Error listing stores: %v\n", err)
		return nil
	}
	for i := range stores {
		if stores[i].DisplayName == s.StoreDisplayName {
			return &stores[i]
		}
	}
	return nil
}

// Run executes the whole setup. A missing or failing guide is reported and
// skipped; the returned error is reserved for failures that leave no usable
// store.
func (s *Setup) Run(ctx context.Context) (*Summary, error) {
	checks := s.Preflight()
	found := 0
	for _, c := range checks {
		if c.Found {
			found++
		}
	}
	if found == 0 && len(checks) > 0 {
		return nil, ErrNoFiles
	}

	sum := &Summary{
		RunID:  uuid.New(),
		Status: model.RunStatusRunning,
		Stats: model.RunStats{
			FilesTotal: len(s.Files),
			Uploaded:   []string{},
			Failed:     []model.FileFailure{},
		},
	}

	s.printf("\nChecking for existing store: %s\n", s.StoreDisplayName)
	if existing := s.FindExisting(ctx); existing != nil {
		s.printf("Found existing store: %s\n", existing.Name)
		reuse, err := s.Confirm.Confirm("\nDo you want to use the existing store? (y/n): ")
		if err != nil {
			return nil, err
		}
		if reuse {
			sum.StoreName = existing.Name
			sum.Stats.ReusedStore = true
			sum.Status = model.RunStatusSucceeded
			s.record(ctx, sum, "")
			return sum, s.saveDescriptor(sum.StoreName)
		}
		s.printf("Deleting existing store...\n")
		if err := s.API.DeleteStore(ctx, existing.Name, true); err != nil {
			return nil, err
		}
		s.printf("Deleted.\n")
	}

	s.printf("\nCreating new File Search store: %s\n", s.StoreDisplayName)
	store, err := s.API.CreateStore(ctx, s.StoreDisplayName)
	if err != nil {
		return nil, err
	}
	sum.StoreName = store.Name
	s.printf("Created store: %s\n", store.Name)

	if s.Recorder != nil {
		if err := s.Recorder.StartRun(ctx, sum.RunID, sum.StoreName, len(s.Files)); err != nil {
			slog.Warn("failed to record ingestion run start", "run_id", sum.RunID, "error", err)
		}
	}

	for _, c := range checks {
		if err := s.uploadOne(ctx, store.Name, c); err != nil {
			sum.Stats.Failed = append(sum.Stats.Failed, model.FileFailure{
				DisplayName: c.File.DisplayName,
				Path:        c.File.Path,
				Error:       err.Error(),
			})
			if errors.Is(err, ErrCancelled) {
				sum.Status = model.RunStatusFailed
				s.record(ctx, sum, err.Error())
				return sum, err
			}
			continue
		}
		sum.Stats.Uploaded = append(sum.Stats.Uploaded, c.File.DisplayName)
	}

	errMsg := ""
	switch {
	case len(sum.Stats.Failed) == 0:
		sum.Status = model.RunStatusSucceeded
	case len(sum.Stats.Uploaded) == 0:
		sum.Status = model.RunStatusFailed
		errMsg = "no guide could be indexed"
	default:
		sum.Status = model.RunStatusPartial
		errMsg = fmt.Sprintf("%d of %d guides failed", len(sum.Stats.Failed), len(s.Files))
	}
	s.record(ctx, sum, errMsg)

	return sum, s.saveDescriptor(sum.StoreName)
}

func (s *Setup) uploadOne(ctx context.Context, storeName string, c FileCheck) error {
	s.printf("\nUploading: %s\n   File: %s\n", c.File.DisplayName, c.File.Path)
	if !c.Found {
		s.printf("   ERROR: File not found!\n")
		return fmt.Errorf("%s: %w", c.File.Path, os.ErrNotExist)
	}
	s.printf("   Size: %.1f MB\n", c.SizeMB)

	op, err := s.API.UploadToStore(ctx, c.File.Path, storeName, c.File.DisplayName)
	if err != nil {
		s.printf("   ERROR: %v\n", err)
		return err
	}

	p := &Poller{
		Ops:      s.API,
		Interval: s.PollInterval,
		OnState: func(st State, _ *gemini.Operation) {
			switch st {
			case StateSubmitted:
				s.printf("   Indexing")
			case StatePolling:
				s.printf(".")
			case StateDone:
				s.printf(" Done!\n")
			case StateFailed:
				s.printf(" FAILED\n")
			case StateCancelled:
				s.printf(" cancelled\n")
			}
		},
	}
	if _, err := p.Wait(ctx, op); err != nil {
		slog.Warn("indexing failed", "file", c.File.Path, "error", err)
		return err
	}
	return nil
}

func (s *Setup) record(ctx context.Context, sum *Summary, errMsg string) {
	if s.Recorder == nil {
		return
	}
	if sum.Stats.ReusedStore {
		if err := s.Recorder.StartRun(ctx, sum.RunID, sum.StoreName, 0); err != nil {
			slog.Warn("failed to record ingestion run start", "run_id", sum.RunID, "error", err)
			return
		}
	}
	// The run row is finished even when ctx was cancelled.
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.Recorder.FinishRun(finishCtx, sum.RunID, sum.Status, sum.Stats, errMsg); err != nil {
		slog.Warn("failed to record ingestion run finish", "run_id", sum.RunID, "error", err)
	}
}

func (s *Setup) saveDescriptor(storeName string) error {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	path := s.DescriptorPath
	if path == "" {
		path = descriptor.DefaultPath
	}
	d := descriptor.New(storeName, s.StoreDisplayName, s.Files, now())
	if err := descriptor.Save(path, d); err != nil {
		return err
	}
	s.printf("\nConfiguration saved to: %s\n", path)
	return nil
}

func (s *Setup) printf(format string, args ...any) {
	if s.Out != nil {
		fmt.Fprintf(s.Out, format, args...)
	}
}
