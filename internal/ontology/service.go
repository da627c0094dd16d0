// Package ontology provides read-only access to ontology term closures:
// the ancestors and the descendants of a term.
//
// Lookups never fail from the caller's point of view. A term that is unknown,
// or a backend that errors or times out, is reported as "not found" and the
// failure is logged. Callers fall back to the literal term.
//
// Adapters:
//   - Memory: in-process maps, loadable from a YAML fixture file
//   - SQLiteService: closure tables in a local SQLite database
//   - DynamoService: the two DynamoDB key-value tables keyed by term
//   - CachedService: memoizing decorator with per-term request coalescing
package ontology

import (
	"context"
	"slices"
)

// Service looks up the closure sets of an ontology term.
// The boolean result is false when the term has no recorded set.
// Implementations must be safe for concurrent use.
type Service interface {
	Ancestors(ctx context.Context, term string) ([]string, bool)
	Descendants(ctx context.Context, term string) ([]string, bool)
}

// Relation names a closure direction.
type Relation string

const (
	RelationAncestors   Relation = "ancestors"
	RelationDescendants Relation = "descendants"
)

// Lookup dispatches to Ancestors or Descendants by relation.
func Lookup(ctx context.Context, svc Service, rel Relation, term string) ([]string, bool) {
	if rel == RelationAncestors {
		return svc.Ancestors(ctx, term)
	}
	return svc.Descendants(ctx, term)
}

// normalizeSet sorts and deduplicates terms, dropping empty strings.
// It returns nil for an empty result.
func normalizeSet(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	slices.Sort(out)
	return slices.Compact(out)
}
