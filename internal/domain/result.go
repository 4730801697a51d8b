package domain

import (
	"fmt"
	"sort"
	"time"
)

// ParentPair holds the validated phenotypes of both parents.
type ParentPair struct {
	Father Phenotype `json:"father"`
	Mother Phenotype `json:"mother"`
}

// NewParentPair builds a ParentPair. Both phenotypes must already be
// canonical values; anything else is reported as ErrInvalidParent.
func NewParentPair(father, mother Phenotype) (ParentPair, error) {
	if !father.IsValid() {
		return ParentPair{}, fmt.Errorf("%w: father %q", ErrInvalidParent, string(father))
	}
	if !mother.IsValid() {
		return ParentPair{}, fmt.Errorf("%w: mother %q", ErrInvalidParent, string(mother))
	}
	return ParentPair{Father: father, Mother: mother}, nil
}

// String renders the pair as "A x B".
func (pp ParentPair) String() string {
	return fmt.Sprintf("%s x %s", pp.Father, pp.Mother)
}

// Distribution maps offspring phenotypes to percentages rounded to two
// decimals. Phenotypes that cannot occur are absent.
type Distribution map[Phenotype]float64

// Phenotypes returns the phenotypes present in canonical order.
func (d Distribution) Phenotypes() []Phenotype {
	out := make([]Phenotype, 0, len(d))
	for p := range d {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank() < out[j].Rank() })
	return out
}

// Total returns the sum of all percentages.
func (d Distribution) Total() float64 {
	var total float64
	for _, p := range d.Phenotypes() {
		total += d[p]
	}
	return total
}

// Clone returns an independent copy of d.
func (d Distribution) Clone() Distribution {
	if d == nil {
		return nil
	}
	out := make(Distribution, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// AnalysisResult is one analysed parent pair as written to the result log.
// Exactly one of Percentages and Error is set.
type AnalysisResult struct {
	ID          string       `json:"id"`
	AnalyzedAt  time.Time    `json:"analyzed_at"`
	Father      string       `json:"father"`
	Mother      string       `json:"mother"`
	FatherRh    *Rh          `json:"father_rh"`
	MotherRh    *Rh          `json:"mother_rh"`
	Percentages Distribution `json:"percentages,omitempty"`
	Error       string       `json:"error,omitempty"`
	SourceFile  string       `json:"source_file,omitempty"`
	RecordIndex int          `json:"record_index,omitempty"`
}

// Succeeded reports whether the record produced a distribution.
func (r *AnalysisResult) Succeeded() bool {
	return r.Error == "" && len(r.Percentages) > 0
}
