package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/abo-offspring-analyzer/internal/batch"
	"github.com/abo-offspring-analyzer/internal/domain"
	"github.com/abo-offspring-analyzer/internal/ingest"
	"github.com/abo-offspring-analyzer/internal/logging"
	"github.com/abo-offspring-analyzer/internal/results"
)

// ChartRenderer renders the charts of one file's results.
type ChartRenderer interface {
	RenderAll(ctx context.Context, results []*domain.AnalysisResult, dir string) (int, error)
}

// FileReport describes how one pending file was handled.
type FileReport struct {
	Name          string `json:"name"`
	Records       int    `json:"records"`
	FailedRecords int    `json:"failed_records"`
	Charts        int    `json:"charts"`
	MovedTo       string `json:"moved_to,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Failed reports whether the file stayed in pending.
func (r FileReport) Failed() bool {
	return r.Error != ""
}

// Summary aggregates a pipeline run.
type Summary struct {
	Files         []FileReport `json:"files"`
	Processed     int          `json:"processed"`
	FailedFiles   int          `json:"failed_files"`
	Records       int          `json:"records"`
	FailedRecords int          `json:"failed_records"`
	ResultsFile   string       `json:"results_file"`
}

// Processor runs the pending → done pipeline.
type Processor struct {
	layout   Layout
	analyzer *batch.Analyzer
	store    results.Store
	charts   ChartRenderer
	log      *logrus.Logger
}

// NewProcessor creates a processor. A nil charts renderer disables charts.
func NewProcessor(layout Layout, analyzer *batch.Analyzer, store results.Store, charts ChartRenderer, logger *logrus.Logger) *Processor {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Processor{
		layout:   layout,
		analyzer: analyzer,
		store:    store,
		charts:   charts,
		log:      logger,
	}
}

// Run processes every pending file once. File-level failures are recorded
// in the summary and do not stop the run; only cancellation and layout
// errors are returned.
func (p *Processor) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{Files: []FileReport{}, ResultsFile: p.layout.ResultsFile}

	if err := p.layout.Ensure(); err != nil {
		return summary, err
	}

	files, err := p.layout.PendingFiles()
	if err != nil {
		return summary, fmt.Errorf("failed to list pending files: %w", err)
	}
	if len(files) == 0 {
		p.log.WithField("pending_dir", p.layout.Pending).
			Info("No pending files to process; drop JSON files into the pending directory")
		return summary, nil
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	p.log.WithField("files", names).Info("Pending files found")

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		report, err := p.processFile(ctx, path)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return summary, err
		}
		if err != nil {
			report.Error = err.Error()
			summary.FailedFiles++
			p.log.WithError(err).WithField("file", report.Name).Error("Failed to process file")
		} else {
			summary.Processed++
		}
		summary.Records += report.Records
		summary.FailedRecords += report.FailedRecords
		summary.Files = append(summary.Files, report)
	}

	p.log.WithFields(logrus.Fields{
		"processed":      summary.Processed,
		"failed_files":   summary.FailedFiles,
		"records":        summary.Records,
		"failed_records": summary.FailedRecords,
		"results_file":   p.layout.ResultsFile,
	}).Info("Pending files processed")
	return summary, nil
}

func (p *Processor) processFile(ctx context.Context, path string) (FileReport, error) {
	name := filepath.Base(path)
	report := FileReport{Name: name}
	log := p.log.WithField("file", name)
	log.Info("Processing file")

	records, err := ingest.ReadFile(path)
	if err != nil {
		return report, err
	}

	outcomes, err := p.analyzer.Analyze(ctx, records, name)
	if err != nil {
		return report, err
	}
	analysed := batch.Results(outcomes)
	report.Records = len(analysed)
	for _, o := range outcomes {
		if o.Failed() {
			report.FailedRecords++
		}
	}

	if err := p.store.Append(ctx, analysed); err != nil {
		if !errors.Is(err, results.ErrSecondaryStore) {
			return report, fmt.Errorf("failed to store results: %w", err)
		}
		log.WithError(err).Warn("Results stored with mirror failures")
	}

	if p.charts != nil {
		n, err := p.charts.RenderAll(ctx, analysed, p.layout.Charts)
		report.Charts = n
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			log.WithError(err).Warn("Failed to render some charts")
		}
	}

	dst := filepath.Join(p.layout.Done, name)
	if err := moveFile(path, dst); err != nil {
		return report, fmt.Errorf("failed to move file to done: %w", err)
	}
	report.MovedTo = dst
	log.WithField("moved_to", dst).Info("File moved")
	return report, nil
}
