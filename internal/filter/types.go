// Package filter defines search filters as they arrive in a request and the
// classification step that decides what each filter constrains.
//
// Request filters are a sealed union of OntologyFilter, AlphanumericFilter and
// CustomFilter. Classification turns each one into zero or more Target values
// (LocalTarget, CrossEntityTarget, TermTarget), each carrying only the fields
// its constraint builder needs.
package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/beaconq/internal/entity"
)

// Operator is a declarative comparison operator from a request.
type Operator string

const (
	OpNone Operator = ""
	OpEQ   Operator = "="
	OpLT   Operator = "<"
	OpGT   Operator = ">"
	OpLE   Operator = "<="
	OpGE   Operator = ">="
	OpNE   Operator = "!="
	// OpNOT is the string-context negation, an alias for OpNE.
	OpNOT Operator = "!"
)

var operators = map[Operator]struct{}{
	OpEQ: {}, OpLT: {}, OpGT: {}, OpLE: {}, OpGE: {}, OpNE: {}, OpNOT: {},
}

// ParseOperator accepts the symbolic spellings plus the upper-case names
// (EQ, LT, GT, LE, GE, NE, NOT).
func ParseOperator(s string) (Operator, error) {
	s = strings.TrimSpace(s)
	switch strings.ToUpper(s) {
	case "":
		return OpNone, nil
	case "EQ":
		return OpEQ, nil
	case "LT":
		return OpLT, nil
	case "GT":
		return OpGT, nil
	case "LE":
		return OpLE, nil
	case "GE":
		return OpGE, nil
	case "NE":
		return OpNE, nil
	case "NOT":
		return OpNOT, nil
	}
	op := Operator(s)
	if _, ok := operators[op]; !ok {
		return OpNone, &UnsupportedOperatorError{Operator: op}
	}
	return op, nil
}

// Similarity grades how far ontology term expansion reaches.
type Similarity string

const (
	SimilarityExact  Similarity = "exact"
	SimilarityHigh   Similarity = "high"
	SimilarityMedium Similarity = "medium"
	SimilarityLow    Similarity = "low"
)

// ParseSimilarity is case-insensitive. An empty string yields SimilarityExact.
func ParseSimilarity(s string) (Similarity, error) {
	switch sim := Similarity(strings.ToLower(strings.TrimSpace(s))); sim {
	case "":
		return SimilarityExact, nil
	case SimilarityExact, SimilarityHigh, SimilarityMedium, SimilarityLow:
		return sim, nil
	default:
		return "", fmt.Errorf("unknown similarity %q", s)
	}
}

// Value is a sealed interface over the two filter value kinds.
// A nil Value means the filter carries no value.
type Value interface {
	filterValue()
	// Param renders the value as a positional query parameter.
	Param() string
}

// Number is a fractional numeric filter value.
type Number float64

func (Number) filterValue() {}

// Param renders integral values without a fractional part ("30", not "30.0").
func (n Number) Param() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

// Integer is an integral numeric filter value, held as its decimal digits so
// that values beyond 2^53 bind without rounding.
type Integer string

// Int returns v as an Integer.
func Int(v int64) Integer { return Integer(strconv.FormatInt(v, 10)) }

func (Integer) filterValue() {}

// Param returns the decimal digits unchanged.
func (i Integer) Param() string { return string(i) }

// Text is a string filter value.
type Text string

func (Text) filterValue() {}

// Param returns the text unchanged.
func (t Text) Param() string { return string(t) }

// Kind names the request filter variant.
type Kind string

const (
	KindOntology     Kind = "ontology"
	KindAlphanumeric Kind = "alphanumeric"
	KindCustom       Kind = "custom"
)

// Filter is a sealed interface over the request filter variants.
type Filter interface {
	filterNode()
	// Kind returns the variant name.
	Kind() Kind
	// Fields returns the shared id/operator/value fields.
	Fields() Comparison
}

// Comparison holds the fields shared by every filter variant.
// Operator and Value may be unset; they are only required when the id
// resolves to a column.
type Comparison struct {
	ID       string
	Operator Operator
	Value    Value
}

// OntologyFilter matches records annotated with an ontology term, optionally
// expanded to related terms.
type OntologyFilter struct {
	Comparison
	IncludeDescendantTerms bool
	Similarity             Similarity
	// Scope names the entity whose relations column holds the term.
	// The zero Type means the caller's default scope.
	Scope entity.Type
}

func (OntologyFilter) filterNode() {}

// Kind returns KindOntology.
func (OntologyFilter) Kind() Kind { return KindOntology }

// Fields returns the shared fields.
func (f OntologyFilter) Fields() Comparison { return f.Comparison }

// AlphanumericFilter compares a column against a value.
type AlphanumericFilter struct {
	Comparison
}

func (AlphanumericFilter) filterNode() {}

// Kind returns KindAlphanumeric.
func (AlphanumericFilter) Kind() Kind { return KindAlphanumeric }

// Fields returns the shared fields.
func (f AlphanumericFilter) Fields() Comparison { return f.Comparison }

// CustomFilter is a deployment-specific filter. It is classified by id alone.
type CustomFilter struct {
	Comparison
}

func (CustomFilter) filterNode() {}

// Kind returns KindCustom.
func (CustomFilter) Kind() Kind { return KindCustom }

// Fields returns the shared fields.
func (f CustomFilter) Fields() Comparison { return f.Comparison }

// Alphanumeric builds an AlphanumericFilter.
func Alphanumeric(id string, op Operator, v Value) AlphanumericFilter {
	return AlphanumericFilter{Comparison: Comparison{ID: id, Operator: op, Value: v}}
}

// Custom builds a CustomFilter.
func Custom(id string, op Operator, v Value) CustomFilter {
	return CustomFilter{Comparison: Comparison{ID: id, Operator: op, Value: v}}
}

// Ontology builds an OntologyFilter for term with the given expansion and the
// caller's default scope.
func Ontology(term string, sim Similarity, includeDescendants bool) OntologyFilter {
	return OntologyFilter{
		Comparison:             Comparison{ID: term},
		IncludeDescendantTerms: includeDescendants,
		Similarity:             sim,
	}
}

// WithScope returns a copy of f scoped to t.
func (f OntologyFilter) WithScope(t entity.Type) OntologyFilter {
	f.Scope = t
	return f
}
