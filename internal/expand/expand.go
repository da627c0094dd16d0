// Package expand turns an ontology filter term into the set of terms a
// record may be annotated with to match it.
//
// Expansion is graded by similarity:
//
//	exact, high   the term's descendants
//	medium        descendants of the ancestor at the middle rank
//	low           descendants of the broadest ancestor
//
// Ranks come from sorting each ancestor's descendant set by size. This is a
// cheap neighbourhood heuristic over the ontology DAG, not a graph distance.
package expand

import (
	"cmp"
	"context"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/beaconq/internal/filter"
	"github.com/roach88/beaconq/internal/ontology"
)

// Expander expands ontology terms using an ontology.Service.
// It holds no per-call state and is safe for concurrent use.
type Expander struct {
	svc    ontology.Service
	logger *slog.Logger
}

// NewExpander creates an Expander. A nil logger discards output.
func NewExpander(svc ontology.Service, logger *slog.Logger) *Expander {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Expander{svc: svc, logger: logger}
}

// Expand returns the sorted, non-empty term set for term.
//
// Without includeDescendants the result is always {term}. Terms unknown to
// the ontology fall back to themselves at every lookup, so a term missing
// from the ontology expands to {term} for every similarity.
func (e *Expander) Expand(ctx context.Context, term string, sim filter.Similarity, includeDescendants bool) []string {
	if !includeDescendants {
		return []string{term}
	}

	var out []string
	switch sim {
	case filter.SimilarityMedium, filter.SimilarityLow:
		neighbourhoods := e.neighbourhoods(ctx, term)
		if sim == filter.SimilarityMedium {
			out = neighbourhoods[len(neighbourhoods)/2]
		} else {
			out = neighbourhoods[len(neighbourhoods)-1]
		}
	default:
		// exact and high
		out = e.descendants(ctx, term)
	}

	e.logger.Debug("expanded ontology term",
		"term", term,
		"similarity", sim,
		"terms", len(out))
	return out
}

// neighbourhoods returns the descendant set of every ancestor of term,
// ordered by ascending size. Equal sizes are ordered by content so that
// repeated expansions pick the same set.
func (e *Expander) neighbourhoods(ctx context.Context, term string) [][]string {
	ancestors, ok := e.svc.Ancestors(ctx, term)
	if !ok || len(ancestors) == 0 {
		ancestors = []string{term}
	}

	sets := make([][]string, 0, len(ancestors))
	for _, a := range ancestors {
		sets = append(sets, e.descendants(ctx, a))
	}
	slices.SortStableFunc(sets, func(a, b []string) int {
		if c := cmp.Compare(len(a), len(b)); c != 0 {
			return c
		}
		return slices.Compare(a, b)
	})
	return sets
}

// descendants returns the sorted descendant set of term, or {term} on a miss.
func (e *Expander) descendants(ctx context.Context, term string) []string {
	set, ok := e.svc.Descendants(ctx, term)
	if !ok || len(set) == 0 {
		e.logger.Debug("ontology term has no descendants", "term", term)
		return []string{term}
	}
	out := slices.Clone(set)
	slices.Sort(out)
	return slices.Compact(out)
}
