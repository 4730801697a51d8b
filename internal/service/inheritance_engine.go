package service

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/abo-offspring-analyzer/internal/domain"
)

// allelesPerParent is the number of alleles each parent can transmit.
const allelesPerParent = 2

// Tally holds the raw outcome counts of a cross. Total is
// len(father genotypes) x len(mother genotypes) x 2 x 2.
type Tally struct {
	Counts map[domain.Phenotype]int `json:"counts"`
	Total  int                      `json:"total"`
}

// Crosser computes offspring distributions for a parent pair.
type Crosser interface {
	Cross(pair domain.ParentPair) (domain.Distribution, error)
}

// CrossCounts enumerates every equally likely allele combination an
// offspring can inherit and counts the phenotype each one expresses.
func CrossCounts(pair domain.ParentPair) (Tally, error) {
	fatherGenotypes, err := domain.PossibleGenotypes(pair.Father)
	if err != nil {
		return Tally{}, fmt.Errorf("father: %w", err)
	}
	motherGenotypes, err := domain.PossibleGenotypes(pair.Mother)
	if err != nil {
		return Tally{}, fmt.Errorf("mother: %w", err)
	}

	return crossGenotypes(fatherGenotypes, motherGenotypes)
}

// CrossGenotypes is CrossCounts for parents whose genotypes are known, for
// example after genetic testing. It returns the rounded distribution.
func CrossGenotypes(father, mother domain.Genotype) (domain.Distribution, error) {
	tally, err := crossGenotypes([]domain.Genotype{father}, []domain.Genotype{mother})
	if err != nil {
		return nil, err
	}
	return tally.Percentages(), nil
}

func crossGenotypes(fatherGenotypes, motherGenotypes []domain.Genotype) (Tally, error) {
	tally := Tally{
		Counts: make(map[domain.Phenotype]int, 4),
		Total:  len(fatherGenotypes) * len(motherGenotypes) * allelesPerParent * allelesPerParent,
	}

	for _, fg := range fatherGenotypes {
		for _, mg := range motherGenotypes {
			for _, fa := range fg {
				for _, ma := range mg {
					child := domain.NewGenotype(fa, ma)
					p, ok := child.Phenotype()
					if !ok {
						return Tally{}, fmt.Errorf("no phenotype for genotype %s", child)
					}
					tally.Counts[p]++
				}
			}
		}
	}

	return tally, nil
}

// Percentages converts the tally into a distribution rounded to two decimals.
func (t Tally) Percentages() domain.Distribution {
	dist := make(domain.Distribution, len(t.Counts))
	if t.Total == 0 {
		return dist
	}
	for p, n := range t.Counts {
		if n == 0 {
			continue
		}
		dist[p] = roundPercent(float64(n) / float64(t.Total) * 100)
	}
	return dist
}

func roundPercent(v float64) float64 {
	return math.Round(v*100) / 100
}

// CrossPhenotypes returns the offspring phenotype distribution for two
// validated parent phenotypes.
func CrossPhenotypes(father, mother domain.Phenotype) (domain.Distribution, error) {
	pair, err := domain.NewParentPair(father, mother)
	if err != nil {
		return nil, err
	}
	tally, err := CrossCounts(pair)
	if err != nil {
		return nil, err
	}
	return tally.Percentages(), nil
}

// InheritanceEngine is the Crosser used by the batch analyzer and the
// servers. It holds no state besides its logger.
type InheritanceEngine struct {
	logger *logrus.Logger
}

// NewInheritanceEngine creates a new inheritance engine
func NewInheritanceEngine(logger *logrus.Logger) *InheritanceEngine {
	return &InheritanceEngine{logger: logger}
}

// Cross computes the offspring distribution for pair.
func (e *InheritanceEngine) Cross(pair domain.ParentPair) (domain.Distribution, error) {
	dist, err := CrossPhenotypes(pair.Father, pair.Mother)
	if err != nil {
		return nil, err
	}

	if e.logger != nil {
		e.logger.WithFields(logrus.Fields{
			"father":       pair.Father,
			"mother":       pair.Mother,
			"distribution": dist,
		}).Debug("Computed offspring distribution")
	}

	return dist, nil
}
