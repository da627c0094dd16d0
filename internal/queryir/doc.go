// Package queryir provides the intermediate representation (IR) of a search
// predicate, between filter classification and predicate text rendering.
//
// ARCHITECTURE:
//
//	[request filters] → [classified targets] → [Query IR] → [predicate text + params]
//
// The IR keeps the shape of the predicate explicit so that it can be
// validated (identifiers, operators, parameter counts) independently of how
// it is rendered.
//
// SHAPE:
//
// A compiled request is always
//
//	And(
//	  Member(idColumn, Intersect(Select, Select, ...)),   // join-derived
//	  Compare, Compare, ...                                // local columns
//	)
//
// where each Select is a membership sub-query through the relations table:
//
//	SELECT R.<TargetKey> FROM <Relations> R
//	JOIN <Joined> <Alias> ON R.<JoinKey> = <Alias>.id
//	WHERE <Filter>
//
// Cross-entity filters join an entity table (alias J) and filter with a
// Compare; ontology filters join the terms index (alias T) and filter with
// an In over the expanded terms.
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed interfaces using the marker method pattern.
// Only types in this package can implement them, so renderers can switch
// exhaustively:
//
//	switch p := pred.(type) {
//	case Compare:
//	case In:
//	case Member:
//	case And:
//	}
//
// PARAMETERS:
//
// Every literal is a string parameter bound to one "?" placeholder. Values
// are never spliced into predicate text; only identifiers are, and Validate
// rejects identifiers that are not plain SQL names.
package queryir
