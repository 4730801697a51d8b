// Package report prints analysis results for the console.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/abo-offspring-analyzer/internal/domain"
)

// WriteText prints the parent pair followed by one line per offspring
// phenotype in canonical order.
func WriteText(w io.Writer, result *domain.AnalysisResult) error {
	if _, err := fmt.Fprintf(w, "\nFather: %s | Mother: %s\n", result.Father, result.Mother); err != nil {
		return err
	}
	if result.Error != "" {
		_, err := fmt.Fprintf(w, "Error: %s\n", result.Error)
		return err
	}
	if _, err := fmt.Fprintln(w, "Possible offspring blood groups:"); err != nil {
		return err
	}
	for _, p := range result.Percentages.Phenotypes() {
		pct := strconv.FormatFloat(result.Percentages[p], 'f', -1, 64)
		if _, err := fmt.Fprintf(w, "%s: %s%%\n", p, pct); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummaryLine prints a one-line digest used after batch runs.
func WriteSummaryLine(w io.Writer, files, failedFiles, records, failedRecords int, resultsFile string) error {
	_, err := fmt.Fprintf(w, "%d file(s) processed, %d failed; %d record(s), %d with errors. Results: %s\n",
		files, failedFiles, records, failedRecords, resultsFile)
	return err
}
