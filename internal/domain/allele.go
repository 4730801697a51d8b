package domain

import "fmt"

// Allele is one of the three variant forms at the ABO locus.
type Allele string

const (
	AlleleA Allele = "A"
	AlleleB Allele = "B"
	AlleleO Allele = "O"
)

// Genotype is the pair of alleles an individual carries. The pair is
// unordered: (A,O) and (O,A) express the same phenotype.
type Genotype [2]Allele

// NewGenotype builds the genotype for two alleles in canonical order.
func NewGenotype(a, b Allele) Genotype {
	return Genotype{a, b}.Sorted()
}

// Sorted returns the genotype with its alleles in lexical order, which is
// the key form used by the dominance table.
func (g Genotype) Sorted() Genotype {
	if g[1] < g[0] {
		return Genotype{g[1], g[0]}
	}
	return g
}

// String renders the genotype as "A/O".
func (g Genotype) String() string {
	return fmt.Sprintf("%s/%s", g[0], g[1])
}

// Phenotype returns the blood group expressed by the genotype. The second
// return value is false for alleles outside the ABO locus.
func (g Genotype) Phenotype() (Phenotype, bool) {
	p, ok := dominance[g.Sorted()]
	return p, ok
}

// genotypesByPhenotype lists the genotypes consistent with each phenotype.
// This is fixed ABO domain data and must not be derived from the dominance
// table.
var genotypesByPhenotype = map[Phenotype][]Genotype{
	PhenotypeA:  {{AlleleA, AlleleA}, {AlleleA, AlleleO}},
	PhenotypeB:  {{AlleleB, AlleleB}, {AlleleB, AlleleO}},
	PhenotypeAB: {{AlleleA, AlleleB}},
	PhenotypeO:  {{AlleleO, AlleleO}},
}

// dominance maps sorted genotypes to the phenotype they express.
var dominance = map[Genotype]Phenotype{
	{AlleleA, AlleleA}: PhenotypeA,
	{AlleleA, AlleleO}: PhenotypeA,
	{AlleleB, AlleleB}: PhenotypeB,
	{AlleleB, AlleleO}: PhenotypeB,
	{AlleleA, AlleleB}: PhenotypeAB,
	{AlleleO, AlleleO}: PhenotypeO,
}

// PossibleGenotypes returns the genotypes that can underlie a phenotype, in
// table order. Only phenotypes produced by ParsePhenotype are accepted; any
// other value is a caller bug and yields ErrInvalidParent.
func PossibleGenotypes(p Phenotype) ([]Genotype, error) {
	gs, ok := genotypesByPhenotype[p]
	if !ok {
		return nil, fmt.Errorf("%w: no genotypes for %q", ErrInvalidParent, string(p))
	}
	out := make([]Genotype, len(gs))
	copy(out, gs)
	return out, nil
}
