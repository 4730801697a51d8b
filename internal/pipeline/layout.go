// Package pipeline processes batches of parent-pair files dropped in a
// pending directory.
package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Layout holds the directories used by the pipeline.
type Layout struct {
	Pending     string
	Done        string
	Results     string
	Charts      string
	ResultsFile string
}

// NewLayout derives the standard layout under base.
func NewLayout(base string) Layout {
	results := filepath.Join(base, "resultados")
	return Layout{
		Pending:     filepath.Join(base, "pending"),
		Done:        filepath.Join(base, "done"),
		Results:     results,
		Charts:      filepath.Join(results, "graficos"),
		ResultsFile: filepath.Join(results, "resultados.json"),
	}
}

// Ensure creates every directory of the layout.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.Pending, l.Done, l.Results, l.Charts} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// PendingFiles returns the *.json files in the pending directory sorted by
// name.
func (l Layout) PendingFiles() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(l.Pending, "*.json"))
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, m)
	}
	// Glob already returns lexical order.
	return files, nil
}

// moveFile renames src to dst, copying and removing the source when the
// rename crosses devices.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	in.Close()
	return os.Remove(src)
}
