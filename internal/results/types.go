// Package results persists analysis results. The JSON result log is the
// authoritative history; SQLite and PostgreSQL stores keep queryable copies.
package results

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/abo-offspring-analyzer/internal/domain"
)

// Store defines the interface for result storage operations.
type Store interface {
	// Append adds results to the end of the history, keeping their order.
	Append(ctx context.Context, results []*domain.AnalysisResult) error

	// List returns stored results in insertion order with pagination.
	List(ctx context.Context, limit, offset int) ([]*domain.AnalysisResult, error)

	// Count returns the total number of stored results.
	Count(ctx context.Context) (int64, error)

	// Close closes the store and releases resources.
	Close() error
}

// Export represents the JSON export format.
type Export struct {
	Version    string                   `json:"version"`
	ExportedAt time.Time                `json:"exported_at"`
	Count      int                      `json:"count"`
	Results    []*domain.AnalysisResult `json:"results"`
}

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// ExportJSON writes every stored result to writer.
func ExportJSON(ctx context.Context, store Store, writer io.Writer) error {
	all, err := store.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list results: %w", err)
	}

	export := &Export{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Count:      len(all),
		Results:    all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// page applies limit/offset to an in-memory slice.
func page(all []*domain.AnalysisResult, limit, offset int) []*domain.AnalysisResult {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []*domain.AnalysisResult{}
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}
