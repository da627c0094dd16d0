package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func crossSelect() Select {
	return Select{
		TargetKey: "individualid",
		Relations: "relations",
		Joined:    "biosamples",
		Alias:     AliasEntity,
		JoinKey:   "biosampleid",
		Filter:    Compare{Alias: AliasEntity, Field: "tissue", Op: OpLike, Value: "blood"},
	}
}

func TestValidate_Valid(t *testing.T) {
	tests := []struct {
		name string
		pred Predicate
	}{
		{"nil", nil},
		{"empty conjunction", And{}},
		{"local comparison", Compare{Field: "age", Op: OpGT, Value: "30"}},
		{"membership", Member{Field: "id", Query: Intersect{Queries: []Query{crossSelect()}}}},
		{"bare select", Member{Field: "id", Query: crossSelect()}},
		{"term list", In{Alias: AliasTerms, Field: "term", Values: []string{"A"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.pred)
			assert.True(t, result.Valid, "problems: %v", result.Problems)
			assert.Empty(t, result.Problems)
		})
	}
}

func TestValidate_Problems(t *testing.T) {
	badTable := crossSelect()
	badTable.Joined = `biosamples"; DROP TABLE x; --`

	reusedAlias := crossSelect()
	reusedAlias.Alias = AliasRelations

	noFilter := crossSelect()
	noFilter.Filter = nil

	tests := []struct {
		name    string
		pred    Predicate
		problem string
	}{
		{"unsafe column", Compare{Field: "age; --", Op: OpGT, Value: "1"}, "not a plain identifier"},
		{"unknown operator", Compare{Field: "age", Op: "<>", Value: "1"}, "unknown operator"},
		{"empty in list", In{Alias: AliasTerms, Field: "term"}, "empty IN list"},
		{"unsafe table", Member{Field: "id", Query: badTable}, "not a plain identifier"},
		{"reused alias", Member{Field: "id", Query: reusedAlias}, "reuses the relations alias"},
		{"missing sub-query filter", Member{Field: "id", Query: noFilter}, "has no filter"},
		{"empty intersection", Member{Field: "id", Query: Intersect{}}, "empty intersection"},
		{"nil query", Member{Field: "id"}, "nil query"},
		{"nil conjunct", And{Predicates: []Predicate{nil}}, "nil predicate"},
		{"unsafe id column", Member{Field: "1id", Query: crossSelect()}, "not a plain identifier"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.pred)
			assert.False(t, result.Valid)
			if assert.NotEmpty(t, result.Problems) {
				assert.Contains(t, result.Problems[0], tt.problem)
			}
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	pred := And{Predicates: []Predicate{
		Compare{Field: "a-b", Op: OpEQ, Value: "1"},
		Compare{Field: "c", Op: "~", Value: "2"},
	}}
	result := Validate(pred)
	assert.False(t, result.Valid)
	assert.Len(t, result.Problems, 2)
}
