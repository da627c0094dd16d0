package expand

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/beaconq/internal/filter"
	"github.com/roach88/beaconq/internal/ontology"
)

// testOntology is a small chain R > A > C with siblings:
//
//	R
//	├── A
//	│   ├── C
//	│   └── D
//	└── B
//	    └── E
func testOntology() *ontology.Memory {
	return ontology.NewMemory().
		SetDescendants("R", "R", "A", "B", "C", "D", "E").
		SetDescendants("A", "A", "C", "D").
		SetDescendants("B", "B", "E").
		SetDescendants("C", "C").
		SetAncestors("C", "C", "A", "R").
		SetAncestors("A", "A", "R").
		SetAncestors("E", "E", "B", "R")
}

var allSimilarities = []filter.Similarity{
	filter.SimilarityExact,
	filter.SimilarityHigh,
	filter.SimilarityMedium,
	filter.SimilarityLow,
}

func TestExpand_WithoutDescendantsIsTermOnly(t *testing.T) {
	e := NewExpander(testOntology(), nil)
	for _, sim := range allSimilarities {
		t.Run(string(sim), func(t *testing.T) {
			assert.Equal(t, []string{"A"}, e.Expand(context.Background(), "A", sim, false))
		})
	}
}

func TestExpand_Similarity(t *testing.T) {
	e := NewExpander(testOntology(), nil)

	tests := []struct {
		name string
		term string
		sim  filter.Similarity
		want []string
	}{
		{"exact uses descendants", "A", filter.SimilarityExact, []string{"A", "C", "D"}},
		{"high uses descendants", "A", filter.SimilarityHigh, []string{"A", "C", "D"}},
		{"exact leaf", "C", filter.SimilarityExact, []string{"C"}},
		{"medium picks middle ancestor", "C", filter.SimilarityMedium, []string{"A", "C", "D"}},
		{"low picks broadest ancestor", "C", filter.SimilarityLow, []string{"A", "B", "C", "D", "E", "R"}},
		{"medium with two ancestors", "A", filter.SimilarityMedium, []string{"A", "B", "C", "D", "E", "R"}},
		{"unset similarity is exact", "B", "", []string{"B", "E"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Expand(context.Background(), tt.term, tt.sim, true))
		})
	}
}

func TestExpand_UnknownTermFallsBack(t *testing.T) {
	e := NewExpander(ontology.NewMemory(), nil)
	for _, sim := range allSimilarities {
		t.Run(string(sim), func(t *testing.T) {
			assert.Equal(t, []string{"NCIT:C0000"}, e.Expand(context.Background(), "NCIT:C0000", sim, true))
		})
	}
}

func TestExpand_AncestorWithoutDescendantsCountsAsItself(t *testing.T) {
	// X's ancestor P has no recorded descendants, so its neighbourhood is {P}.
	svc := ontology.NewMemory().
		SetAncestors("X", "X", "P").
		SetDescendants("X", "X", "Y", "Z")
	e := NewExpander(svc, nil)

	ctx := context.Background()
	assert.Equal(t, []string{"X", "Y", "Z"}, e.Expand(ctx, "X", filter.SimilarityMedium, true))
	assert.Equal(t, []string{"X", "Y", "Z"}, e.Expand(ctx, "X", filter.SimilarityLow, true))
}

func TestExpand_EqualSizedNeighbourhoodsAreDeterministic(t *testing.T) {
	svc := ontology.NewMemory().
		SetAncestors("T", "T", "Y", "X").
		SetDescendants("T", "T").
		SetDescendants("X", "X", "P").
		SetDescendants("Y", "Y", "P")
	e := NewExpander(svc, nil)

	ctx := context.Background()
	for n := 0; n < 5; n++ {
		assert.Equal(t, []string{"P", "X"}, e.Expand(ctx, "T", filter.SimilarityMedium, true))
		assert.Equal(t, []string{"P", "Y"}, e.Expand(ctx, "T", filter.SimilarityLow, true))
	}
}

func TestExpand_ResultIsNeverEmpty(t *testing.T) {
	e := NewExpander(testOntology(), nil)
	ctx := context.Background()
	for _, term := range []string{"R", "A", "B", "C", "D", "E", "missing"} {
		for _, sim := range allSimilarities {
			for _, include := range []bool{true, false} {
				got := e.Expand(ctx, term, sim, include)
				assert.NotEmpty(t, got, "%s %s %v", term, sim, include)
				assert.IsIncreasing(t, got, "%s %s %v", term, sim, include)
			}
		}
	}
}
