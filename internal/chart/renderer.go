// Package chart renders offspring distributions as PNG pie charts.
package chart

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	gochart "github.com/wcharczuk/go-chart/v2"
	"golang.org/x/sync/errgroup"

	"github.com/abo-offspring-analyzer/internal/domain"
	"github.com/abo-offspring-analyzer/internal/logging"
)

const (
	defaultSize        = 600
	defaultConcurrency = 4
)

// Renderer writes one pie chart per successful analysis result.
type Renderer struct {
	width       int
	height      int
	concurrency int
	log         *logrus.Logger
}

// NewRenderer creates a renderer. Zero sizes and concurrency use defaults.
func NewRenderer(cfg domain.ChartConfig, logger *logrus.Logger) *Renderer {
	r := &Renderer{
		width:       cfg.Width,
		height:      cfg.Height,
		concurrency: cfg.Concurrency,
		log:         logger,
	}
	if r.width <= 0 {
		r.width = defaultSize
	}
	if r.height <= 0 {
		r.height = defaultSize
	}
	if r.concurrency <= 0 {
		r.concurrency = defaultConcurrency
	}
	if r.log == nil {
		r.log = logging.Discard()
	}
	return r
}

// FileName returns the chart file name for the result at 1-based position
// index in a batch of total results.
func FileName(index, total int, father, mother string) string {
	width := len(strconv.Itoa(total))
	prefix := fmt.Sprintf("%0*d", width, index)
	name := fmt.Sprintf("%s_%s_%s.png", prefix, father, mother)
	return strings.ReplaceAll(name, "/", "_")
}

// Title returns the chart title for a parent pair.
func Title(father, mother string) string {
	return fmt.Sprintf("Father %s × Mother %s", father, mother)
}

// SliceLabel formats one pie slice label, e.g. "A (75%)".
func SliceLabel(p domain.Phenotype, pct float64) string {
	return fmt.Sprintf("%s (%s%%)", p, strconv.FormatFloat(pct, 'f', -1, 64))
}

// Render writes the pie chart of a single result to w.
func (r *Renderer) Render(result *domain.AnalysisResult, w io.Writer) error {
	if len(result.Percentages) == 0 {
		return fmt.Errorf("result %s has no percentages to chart", result.ID)
	}

	values := make([]gochart.Value, 0, len(result.Percentages))
	for _, p := range result.Percentages.Phenotypes() {
		pct := result.Percentages[p]
		values = append(values, gochart.Value{
			Value: pct,
			Label: SliceLabel(p, pct),
		})
	}

	pie := gochart.PieChart{
		Title:  Title(result.Father, result.Mother),
		Width:  r.width,
		Height: r.height,
		Values: values,
	}
	return pie.Render(gochart.PNG, w)
}

// RenderAll writes charts for results into dir and returns how many were
// written. Results without percentages are skipped but still count towards
// the numbering, so file prefixes follow record order.
func (r *Renderer) RenderAll(ctx context.Context, results []*domain.AnalysisResult, dir string) (int, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create chart directory: %w", err)
	}

	total := len(results)
	written := make([]bool, total)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, result := range results {
		if !result.Succeeded() {
			continue
		}
		i, result := i, result
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(dir, FileName(i+1, total, result.Father, result.Mother))
			if err := r.renderFile(result, path); err != nil {
				return fmt.Errorf("chart %s: %w", filepath.Base(path), err)
			}
			written[i] = true
			return nil
		})
	}
	err := g.Wait()

	count := 0
	for _, ok := range written {
		if ok {
			count++
		}
	}
	r.log.WithFields(logrus.Fields{
		"charts": count,
		"dir":    dir,
	}).Info("Charts rendered")
	return count, err
}

func (r *Renderer) renderFile(result *domain.AnalysisResult, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.Render(result, f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
