package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/beaconq/internal/queryir"
)

// Render converts a predicate tree to predicate text and parameters.
// Returns (text, params, error); text has no "WHERE " prefix.
//
// CRITICAL: Values are NEVER interpolated - always "?" placeholders.
// An empty tree renders as "" with nil params.
func Render(p queryir.Predicate) (string, []string, error) {
	if p == nil {
		return "", nil, nil
	}
	return renderPredicate(p)
}

func renderPredicate(p queryir.Predicate) (string, []string, error) {
	switch pred := p.(type) {
	case queryir.Compare:
		return fmt.Sprintf("%s %s ?", qualify(pred.Alias, pred.Field), pred.Op), []string{pred.Value}, nil
	case queryir.In:
		return renderIn(pred)
	case queryir.Member:
		return renderMember(pred)
	case queryir.And:
		return renderAnd(pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// renderIn renders "field IN (?, ?, ...)" with one placeholder per value.
func renderIn(in queryir.In) (string, []string, error) {
	if len(in.Values) == 0 {
		return "", nil, fmt.Errorf("empty IN list for %q", in.Field)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(in.Values)), ", ")
	text := fmt.Sprintf("%s IN (%s)", qualify(in.Alias, in.Field), placeholders)

	params := make([]string, len(in.Values))
	copy(params, in.Values)
	return text, params, nil
}

func renderMember(m queryir.Member) (string, []string, error) {
	sub, params, err := renderQuery(m.Query)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("%s IN ( %s )", m.Field, sub), params, nil
}

// renderAnd joins conjuncts with AND, keeping each conjunct's parameters in
// order.
func renderAnd(and queryir.And) (string, []string, error) {
	var parts []string
	var params []string
	for _, pred := range and.Predicates {
		text, p, err := renderPredicate(pred)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, text)
		params = append(params, p...)
	}
	return strings.Join(parts, " AND "), params, nil
}

func renderQuery(q queryir.Query) (string, []string, error) {
	switch query := q.(type) {
	case queryir.Select:
		return renderSelect(query)
	case queryir.Intersect:
		return renderIntersect(query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

// renderSelect renders a relations-table membership sub-query:
//
//	SELECT R.<target> FROM <relations> R JOIN <joined> <alias> ON R.<key> = <alias>.id WHERE <filter>
func renderSelect(s queryir.Select) (string, []string, error) {
	if s.Filter == nil {
		return "", nil, fmt.Errorf("sub-query on %q has no filter", s.Joined)
	}
	where, params, err := renderPredicate(s.Filter)
	if err != nil {
		return "", nil, fmt.Errorf("render filter on %q: %w", s.Joined, err)
	}

	r := queryir.AliasRelations
	text := fmt.Sprintf("SELECT %s.%s FROM %s %s JOIN %s %s ON %s.%s = %s.id WHERE %s",
		r, s.TargetKey,
		s.Relations, r,
		s.Joined, s.Alias,
		r, s.JoinKey, s.Alias,
		where)
	return text, params, nil
}

func renderIntersect(in queryir.Intersect) (string, []string, error) {
	if len(in.Queries) == 0 {
		return "", nil, fmt.Errorf("empty intersection")
	}
	parts := make([]string, 0, len(in.Queries))
	var params []string
	for _, q := range in.Queries {
		text, p, err := renderQuery(q)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, text)
		params = append(params, p...)
	}
	return strings.Join(parts, " INTERSECT "), params, nil
}

func qualify(alias, field string) string {
	if alias == "" {
		return field
	}
	return alias + "." + field
}
