package results

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/abo-offspring-analyzer/internal/domain"
)

// resultColumns is the column list shared by the SQL stores.
const resultColumns = `id, analyzed_at, father, mother, father_rh, mother_rh,
	percentages, error, source_file, record_index`

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanResult scans a row into an AnalysisResult.
func scanResult(s scanner) (*domain.AnalysisResult, error) {
	r := &domain.AnalysisResult{}
	var fatherRh, motherRh, percentages, errMsg, source sql.NullString
	var index sql.NullInt64

	err := s.Scan(
		&r.ID, &r.AnalyzedAt, &r.Father, &r.Mother, &fatherRh, &motherRh,
		&percentages, &errMsg, &source, &index,
	)
	if err != nil {
		return nil, err
	}

	r.FatherRh = domain.NormalizeRh(nullString(fatherRh))
	r.MotherRh = domain.NormalizeRh(nullString(motherRh))
	r.Error = errMsg.String
	r.SourceFile = source.String
	r.RecordIndex = int(index.Int64)

	if percentages.Valid && percentages.String != "" {
		var dist domain.Distribution
		if err := json.Unmarshal([]byte(percentages.String), &dist); err != nil {
			return nil, fmt.Errorf("failed to decode percentages of %s: %w", r.ID, err)
		}
		r.Percentages = dist
	}
	return r, nil
}

func nullString(ns sql.NullString) interface{} {
	if !ns.Valid {
		return nil
	}
	return ns.String
}

// rowValues returns the column values for r in resultColumns order.
func rowValues(r *domain.AnalysisResult) ([]interface{}, error) {
	var percentages interface{}
	if len(r.Percentages) > 0 {
		data, err := json.Marshal(r.Percentages)
		if err != nil {
			return nil, fmt.Errorf("failed to encode percentages of %s: %w", r.ID, err)
		}
		percentages = string(data)
	}

	return []interface{}{
		r.ID,
		r.AnalyzedAt.UTC(),
		r.Father,
		r.Mother,
		rhValue(r.FatherRh),
		rhValue(r.MotherRh),
		percentages,
		r.Error,
		r.SourceFile,
		r.RecordIndex,
	}, nil
}

func rhValue(rh *domain.Rh) interface{} {
	if rh == nil {
		return nil
	}
	return string(*rh)
}
