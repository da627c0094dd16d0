package filter

import (
	"fmt"
	"strings"

	"github.com/roach88/beaconq/internal/entity"
)

// Target is a sealed interface over the classified filter variants.
// Each variant feeds exactly one constraint builder.
type Target interface {
	targetNode()
	// Source returns the id of the request filter that produced the target.
	Source() string
}

// LocalTarget compares a column of the target entity.
type LocalTarget struct {
	ID       string
	Column   string
	Operator Operator
	Value    Value
}

func (LocalTarget) targetNode() {}

// Source returns the originating filter id.
func (t LocalTarget) Source() string { return t.ID }

// CrossEntityTarget compares a column of a linked entity, reached through the
// relations table.
type CrossEntityTarget struct {
	ID       string
	Entity   entity.Entity
	Column   string
	Operator Operator
	Value    Value
}

func (CrossEntityTarget) targetNode() {}

// Source returns the originating filter id.
func (t CrossEntityTarget) Source() string { return t.ID }

// TermTarget matches an ontology term (after expansion) in the terms index,
// joined through the relations column of Scope.
type TermTarget struct {
	ID                 string
	Term               string
	Similarity         Similarity
	IncludeDescendants bool
	Scope              entity.Entity
}

func (TermTarget) targetNode() {}

// Source returns the originating filter id.
func (t TermTarget) Source() string { return t.ID }

// Separator splits a cross-entity filter id into model name and column.
const Separator = "."

// Classifier decides what each filter constrains for one compilation.
type Classifier struct {
	registry     *entity.Registry
	target       entity.Entity
	defaultScope entity.Entity
	strict       bool
}

// NewClassifier resolves the target and default scope against reg.
// Both must be registered entity types.
func NewClassifier(reg *entity.Registry, target, defaultScope entity.Type) (*Classifier, error) {
	tgt, err := reg.Lookup(target)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	scope, err := reg.Lookup(defaultScope)
	if err != nil {
		return nil, fmt.Errorf("default scope: %w", err)
	}
	return &Classifier{registry: reg, target: tgt, defaultScope: scope}, nil
}

// Strict makes Classify reject filters that match nothing instead of
// silently dropping them.
func (c *Classifier) Strict(strict bool) *Classifier {
	c.strict = strict
	return c
}

// Target returns the resolved target entity.
func (c *Classifier) Target() entity.Entity { return c.target }

// Classify returns the targets f contributes, in a fixed order: the column
// target (local or cross-entity) first, then the term target.
//
// Column and ontology classification are independent: an ontology filter
// whose id is also a column produces both a column target and a term target.
// An id containing more than one separator is never a column reference.
// A filter that matches nothing yields no targets, or an UnknownFilterError
// in strict mode.
func (c *Classifier) Classify(f Filter) ([]Target, error) {
	if f == nil {
		return nil, &MissingFieldError{Field: "filter"}
	}
	cmp := f.Fields()
	if cmp.ID == "" {
		return nil, &MissingFieldError{Field: "id"}
	}

	var targets []Target

	parts := strings.Split(cmp.ID, Separator)
	switch len(parts) {
	case 1:
		if c.target.HasColumn(parts[0]) {
			targets = append(targets, LocalTarget{
				ID:       cmp.ID,
				Column:   parts[0],
				Operator: cmp.Operator,
				Value:    cmp.Value,
			})
		}
	case 2:
		if joined, ok := c.registry.LookupModel(parts[0]); ok && joined.HasColumn(parts[1]) {
			targets = append(targets, CrossEntityTarget{
				ID:       cmp.ID,
				Entity:   joined,
				Column:   parts[1],
				Operator: cmp.Operator,
				Value:    cmp.Value,
			})
		}
	}

	if of, ok := f.(OntologyFilter); ok {
		scope := c.defaultScope
		if of.Scope != 0 {
			resolved, err := c.registry.Lookup(of.Scope)
			if err != nil {
				return nil, fmt.Errorf("filter %q scope: %w", cmp.ID, err)
			}
			scope = resolved
		}
		targets = append(targets, TermTarget{
			ID:                 cmp.ID,
			Term:               cmp.ID,
			Similarity:         of.Similarity,
			IncludeDescendants: of.IncludeDescendantTerms,
			Scope:              scope,
		})
	}

	if len(targets) == 0 && c.strict {
		return nil, &UnknownFilterError{ID: cmp.ID, Target: c.target.Type}
	}
	return targets, nil
}
