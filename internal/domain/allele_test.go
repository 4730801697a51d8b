package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPossibleGenotypes(t *testing.T) {
	tests := []struct {
		phenotype Phenotype
		expected  []Genotype
	}{
		{PhenotypeA, []Genotype{{AlleleA, AlleleA}, {AlleleA, AlleleO}}},
		{PhenotypeB, []Genotype{{AlleleB, AlleleB}, {AlleleB, AlleleO}}},
		{PhenotypeAB, []Genotype{{AlleleA, AlleleB}}},
		{PhenotypeO, []Genotype{{AlleleO, AlleleO}}},
	}

	for _, tt := range tests {
		t.Run(tt.phenotype.String(), func(t *testing.T) {
			got, err := PossibleGenotypes(tt.phenotype)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)

			for _, g := range got {
				p, ok := g.Phenotype()
				require.True(t, ok)
				assert.Equal(t, tt.phenotype, p, "genotype %s should express its own phenotype", g)
			}
		})
	}
}

func TestPossibleGenotypes_UnknownPhenotype(t *testing.T) {
	_, err := PossibleGenotypes("AO")
	assert.ErrorIs(t, err, ErrInvalidParent)
}

func TestPossibleGenotypes_TableIsNotShared(t *testing.T) {
	got, err := PossibleGenotypes(PhenotypeA)
	require.NoError(t, err)
	got[0] = Genotype{AlleleB, AlleleB}

	again, err := PossibleGenotypes(PhenotypeA)
	require.NoError(t, err)
	assert.Equal(t, Genotype{AlleleA, AlleleA}, again[0])
}

func TestGenotype_PhenotypeIsOrderIndependent(t *testing.T) {
	tests := []struct {
		a, b     Allele
		expected Phenotype
	}{
		{AlleleA, AlleleA, PhenotypeA},
		{AlleleA, AlleleO, PhenotypeA},
		{AlleleB, AlleleB, PhenotypeB},
		{AlleleB, AlleleO, PhenotypeB},
		{AlleleA, AlleleB, PhenotypeAB},
		{AlleleO, AlleleO, PhenotypeO},
	}

	for _, tt := range tests {
		forward, ok := Genotype{tt.a, tt.b}.Phenotype()
		require.True(t, ok)
		reverse, ok := Genotype{tt.b, tt.a}.Phenotype()
		require.True(t, ok)

		assert.Equal(t, tt.expected, forward)
		assert.Equal(t, forward, reverse)
	}
}

func TestGenotype_UnknownAllele(t *testing.T) {
	_, ok := Genotype{AlleleA, "C"}.Phenotype()
	assert.False(t, ok)
}

func TestNewGenotype_Sorts(t *testing.T) {
	assert.Equal(t, Genotype{AlleleA, AlleleO}, NewGenotype(AlleleO, AlleleA))
	assert.Equal(t, "A/B", NewGenotype(AlleleB, AlleleA).String())
}
