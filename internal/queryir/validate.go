package queryir

import (
	"fmt"

	"github.com/roach88/beaconq/internal/entity"
)

// ValidationResult lists the problems found in a predicate tree.
type ValidationResult struct {
	// Valid is true when the tree can be rendered safely.
	Valid bool

	// Problems describes each rule violation, in traversal order.
	// Empty when Valid is true.
	Problems []string
}

// Validate checks a predicate tree before rendering.
//
// Rules:
//  1. Identifiers (tables, columns, aliases) are plain SQL names, since they
//     are spliced into predicate text
//  2. Operators are known comparison operators
//  3. In lists, Intersect lists and sub-query filters are non-empty
//  4. A sub-query alias differs from the relations alias
//
// A nil predicate is valid and means "no constraint".
//
// Validate is a pure function with no side effects.
func Validate(p Predicate) ValidationResult {
	v := &validator{problems: []string{}}
	if p != nil {
		v.validatePredicate(p)
	}
	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) identifier(what, name string) {
	if !entity.ValidIdentifier(name) {
		v.addProblem("%s %q is not a plain identifier", what, name)
	}
}

// optionalAlias accepts the empty alias of an unqualified column.
func (v *validator) optionalAlias(alias string) {
	if alias != "" {
		v.identifier("alias", alias)
	}
}

func (v *validator) validateQuery(q Query) {
	if q == nil {
		v.addProblem("nil query")
		return
	}

	switch query := q.(type) {
	case Select:
		v.validateSelect(query)
	case Intersect:
		if len(query.Queries) == 0 {
			v.addProblem("empty intersection")
		}
		for _, sub := range query.Queries {
			v.validateQuery(sub)
		}
	default:
		v.addProblem("unknown query type: %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	v.identifier("target key", sel.TargetKey)
	v.identifier("relations table", sel.Relations)
	v.identifier("joined table", sel.Joined)
	v.identifier("alias", sel.Alias)
	v.identifier("join key", sel.JoinKey)
	if sel.Alias == AliasRelations {
		v.addProblem("joined table %q reuses the relations alias %q", sel.Joined, AliasRelations)
	}

	if sel.Filter == nil {
		v.addProblem("sub-query on %q has no filter", sel.Joined)
		return
	}
	v.validatePredicate(sel.Filter)
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case Compare:
		v.optionalAlias(pred.Alias)
		v.identifier("column", pred.Field)
		if !pred.Op.Valid() {
			v.addProblem("column %q uses unknown operator %q", pred.Field, pred.Op)
		}
	case In:
		v.optionalAlias(pred.Alias)
		v.identifier("column", pred.Field)
		if len(pred.Values) == 0 {
			v.addProblem("column %q has an empty IN list", pred.Field)
		}
	case Member:
		v.identifier("column", pred.Field)
		v.validateQuery(pred.Query)
	case And:
		for _, sub := range pred.Predicates {
			if sub == nil {
				v.addProblem("nil predicate in conjunction")
				continue
			}
			v.validatePredicate(sub)
		}
	default:
		v.addProblem("unknown predicate type: %T", p)
	}
}
