// Package domain contains the core entities of ABO blood-group inheritance:
// phenotypes, alleles, genotypes and the records produced when a parent pair
// is analysed.
//
// The ABO locus carries three alleles. A and B are co-dominant with each
// other and dominant over O, so four phenotypes are observable.
package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Phenotype is the observable ABO blood group. Values obtained from
// ParsePhenotype are always one of the four canonical groups.
type Phenotype string

const (
	PhenotypeA  Phenotype = "A"
	PhenotypeB  Phenotype = "B"
	PhenotypeAB Phenotype = "AB"
	PhenotypeO  Phenotype = "O"
)

// zeroSynonym is how input files write group O.
const zeroSynonym = "0"

var allPhenotypes = [...]Phenotype{PhenotypeA, PhenotypeB, PhenotypeAB, PhenotypeO}

// AllPhenotypes returns the four phenotypes in canonical order (A, B, AB, O).
func AllPhenotypes() []Phenotype {
	out := make([]Phenotype, len(allPhenotypes))
	copy(out, allPhenotypes[:])
	return out
}

// IsValid reports whether p is one of the four canonical phenotypes.
func (p Phenotype) IsValid() bool {
	switch p {
	case PhenotypeA, PhenotypeB, PhenotypeAB, PhenotypeO:
		return true
	default:
		return false
	}
}

// String returns the phenotype label
func (p Phenotype) String() string {
	return string(p)
}

// Rank orders phenotypes canonically; invalid values sort last.
func (p Phenotype) Rank() int {
	for i, c := range allPhenotypes {
		if c == p {
			return i
		}
	}
	return len(allPhenotypes)
}

// ParsePhenotype normalizes a raw blood-group token. Surrounding whitespace
// is removed, case is folded and "0" is read as O.
func ParsePhenotype(raw string) (Phenotype, error) {
	v := strings.ToUpper(strings.TrimSpace(raw))
	if v == zeroSynonym {
		v = string(PhenotypeO)
	}
	p := Phenotype(v)
	if !p.IsValid() {
		return "", NewInvalidPhenotypeError(raw)
	}
	return p, nil
}

// ParsePhenotypeValue accepts a decoded JSON value. Numbers are stringified
// as integers before normalization, so 0 becomes O.
func ParsePhenotypeValue(raw interface{}) (Phenotype, error) {
	switch v := raw.(type) {
	case nil:
		return "", &InvalidPhenotypeError{Value: nil, Message: "missing blood group"}
	case string:
		return ParsePhenotype(v)
	case Phenotype:
		return ParsePhenotype(string(v))
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return parseNumeric(raw, strconv.FormatInt(i, 10))
		}
		f, err := v.Float64()
		if err != nil {
			return "", NewInvalidPhenotypeError(raw)
		}
		return parseFloat(raw, f)
	case float64:
		return parseFloat(raw, v)
	case float32:
		return parseFloat(raw, float64(v))
	case int:
		return parseNumeric(raw, strconv.Itoa(v))
	case int64:
		return parseNumeric(raw, strconv.FormatInt(v, 10))
	case int32:
		return parseNumeric(raw, strconv.FormatInt(int64(v), 10))
	default:
		return "", NewInvalidPhenotypeError(raw)
	}
}

func parseFloat(raw interface{}, f float64) (Phenotype, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", NewInvalidPhenotypeError(raw)
	}
	return parseNumeric(raw, strconv.FormatInt(int64(f), 10))
}

// parseNumeric keeps the original value in the error rather than its
// stringified form.
func parseNumeric(raw interface{}, s string) (Phenotype, error) {
	p, err := ParsePhenotype(s)
	if err != nil {
		return "", NewInvalidPhenotypeError(raw)
	}
	return p, nil
}

// Rh is the Rh factor echoed in results. It never takes part in the
// ABO computation.
type Rh string

const (
	RhPositive Rh = "+"
	RhNegative Rh = "-"
)

// NormalizeRh returns the Rh factor for a raw value, or nil when the value
// is absent or anything other than a literal "+" or "-".
func NormalizeRh(raw interface{}) *Rh {
	var s string
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		s = v
	case Rh:
		s = string(v)
	case *Rh:
		if v == nil {
			return nil
		}
		s = string(*v)
	default:
		s = fmt.Sprint(v)
	}
	rh := Rh(strings.TrimSpace(s))
	if rh != RhPositive && rh != RhNegative {
		return nil
	}
	return &rh
}
