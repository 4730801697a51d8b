// Package batch turns raw parent-pair records into analysis results.
// Every record yields exactly one result; a failing record carries its
// error message instead of percentages and never affects its siblings.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/abo-offspring-analyzer/internal/domain"
	"github.com/abo-offspring-analyzer/internal/ingest"
	"github.com/abo-offspring-analyzer/internal/logging"
	"github.com/abo-offspring-analyzer/internal/service"
)

// Outcome is the result of one record. Err is nil on success; Result is
// always set so that failures are persisted alongside successes.
type Outcome struct {
	Result *domain.AnalysisResult
	Err    error
}

// Failed reports whether the record could not be analysed.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Analyzer validates records and runs them through a Crosser.
type Analyzer struct {
	engine  service.Crosser
	logger  *logrus.Logger
	workers int
	now     func() time.Time
	newID   func() string
}

// Option is a functional option for Analyzer.
type Option func(*Analyzer)

// WithWorkers sets how many records are analysed concurrently.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		a.now = now
	}
}

// WithIDGenerator overrides the result ID source.
func WithIDGenerator(newID func() string) Option {
	return func(a *Analyzer) {
		a.newID = newID
	}
}

// NewAnalyzer creates a new batch analyzer
func NewAnalyzer(engine service.Crosser, logger *logrus.Logger, opts ...Option) *Analyzer {
	a := &Analyzer{
		engine:  engine,
		logger:  logger,
		workers: 1,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logging.Discard()
	}
	return a
}

// Analyze processes records in order. The returned slice has one outcome
// per record at the same index. Only context cancellation is returned as
// an error.
func (a *Analyzer) Analyze(ctx context.Context, records []ingest.RawRecord, source string) ([]Outcome, error) {
	outcomes := make([]Outcome, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	for i := range records {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = a.AnalyzeRecord(records[i], source)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	failed := 0
	for _, o := range outcomes {
		if o.Failed() {
			failed++
		}
	}
	a.logger.WithFields(logrus.Fields{
		"source":    source,
		"records":   len(records),
		"failed":    failed,
		"succeeded": len(records) - failed,
	}).Info("Analysed records")

	return outcomes, nil
}

// AnalyzeRecord validates both parents and computes the distribution for a
// single record.
func (a *Analyzer) AnalyzeRecord(rec ingest.RawRecord, source string) (out Outcome) {
	result := &domain.AnalysisResult{
		ID:          a.newID(),
		AnalyzedAt:  a.now().Truncate(time.Second),
		Father:      displayValue(rec.Father),
		Mother:      displayValue(rec.Mother),
		FatherRh:    domain.NormalizeRh(rec.FatherRh),
		MotherRh:    domain.NormalizeRh(rec.MotherRh),
		SourceFile:  source,
		RecordIndex: rec.Index,
	}

	defer func() {
		if r := recover(); r != nil {
			out = a.fail(result, fmt.Errorf("panic while analysing record: %v", r))
		}
	}()

	if rec.Err != nil {
		return a.fail(result, rec.Err)
	}

	father, err := domain.ParsePhenotypeValue(rec.Father)
	if err != nil {
		return a.fail(result, fmt.Errorf("father: %w", err))
	}
	result.Father = father.String()

	mother, err := domain.ParsePhenotypeValue(rec.Mother)
	if err != nil {
		return a.fail(result, fmt.Errorf("mother: %w", err))
	}
	result.Mother = mother.String()

	pair, err := domain.NewParentPair(father, mother)
	if err != nil {
		return a.fail(result, err)
	}

	dist, err := a.engine.Cross(pair)
	if err != nil {
		return a.fail(result, err)
	}
	result.Percentages = dist

	return Outcome{Result: result}
}

func (a *Analyzer) fail(result *domain.AnalysisResult, err error) Outcome {
	result.Percentages = nil
	result.Error = err.Error()

	a.logger.WithFields(logrus.Fields{
		"source": result.SourceFile,
		"record": result.RecordIndex,
		"father": result.Father,
		"mother": result.Mother,
	}).WithError(err).Warn("Record analysis failed")

	return Outcome{Result: result, Err: err}
}

// Results extracts the analysis results from outcomes, preserving order.
func Results(outcomes []Outcome) []*domain.AnalysisResult {
	out := make([]*domain.AnalysisResult, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, o.Result)
	}
	return out
}

func displayValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
