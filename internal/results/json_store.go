package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/abo-offspring-analyzer/internal/domain"
)

// JSONFileStore keeps the result history as one indented JSON array.
// Entries already in the file are preserved verbatim on append, whatever
// their shape.
type JSONFileStore struct {
	path       string
	appendMode bool
	mu         sync.Mutex
}

// NewJSONFileStore creates a store backed by the file at path. When
// appendMode is false every Append replaces the file contents.
func NewJSONFileStore(path string, appendMode bool) (*JSONFileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("result file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	return &JSONFileStore{path: path, appendMode: appendMode}, nil
}

// Path returns the result file location.
func (s *JSONFileStore) Path() string {
	return s.path
}

// readEntries loads the existing array. A missing, unreadable or non-array
// file is treated as an empty history.
func (s *JSONFileStore) readEntries() []json.RawMessage {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil
	}
	return entries
}

// Append adds results to the file.
func (s *JSONFileStore) Append(ctx context.Context, results []*domain.AnalysisResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []json.RawMessage
	if s.appendMode {
		entries = s.readEntries()
	}
	for _, r := range results {
		raw, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to encode result %s: %w", r.ID, err)
		}
		entries = append(entries, raw)
	}
	if entries == nil {
		entries = []json.RawMessage{}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return writeFileAtomic(s.path, append(data, '\n'))
}

// List returns results in file order. Entries that do not decode as
// analysis results are skipped.
func (s *JSONFileStore) List(ctx context.Context, limit, offset int) ([]*domain.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	entries := s.readEntries()
	s.mu.Unlock()

	all := make([]*domain.AnalysisResult, 0, len(entries))
	for _, raw := range entries {
		r := &domain.AnalysisResult{}
		if err := json.Unmarshal(raw, r); err != nil {
			continue
		}
		all = append(all, r)
	}
	return page(all, limit, offset), nil
}

// Count returns the number of entries in the file.
func (s *JSONFileStore) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.readEntries())), nil
}

// Close is a no-op; the file is not held open.
func (s *JSONFileStore) Close() error {
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	merr := tmp.Chmod(0644)
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if err := errors.Join(merr, werr, cerr); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write results: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace result file: %w", err)
	}
	return nil
}
