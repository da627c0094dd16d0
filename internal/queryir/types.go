package queryir

// Query represents a membership sub-query yielding a single id column.
//
// This is a sealed interface - only types in this package implement it.
//
// Query types:
//   - Select: ids related to rows of a joined table that match a filter
//   - Intersect: ids returned by every sub-query
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Predicate represents a filter condition in the IR.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - Compare: column <op> ?
//   - In: column IN (?, ?, ...)
//   - Member: column IN (<query>)
//   - And: all predicates must be true
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Alias names the tables of a membership sub-query.
const (
	AliasRelations = "R"
	AliasEntity    = "J"
	AliasTerms     = "T"
)

// Select represents a membership sub-query through the relations table.
//
// Semantics:
//
//	SELECT R.<TargetKey> FROM <Relations> R
//	JOIN <Joined> <Alias> ON R.<JoinKey> = <Alias>.id
//	WHERE <Filter>
//
// TargetKey is the relations column holding ids of the entity being
// searched; JoinKey is the relations column holding ids of the joined
// entity (or the term row ids, for the terms index). Filter fields are
// qualified with Alias.
type Select struct {
	TargetKey string
	Relations string
	Joined    string
	Alias     string
	JoinKey   string
	Filter    Predicate
}

func (Select) queryNode() {}

// Intersect represents the set intersection of sub-queries.
//
// Semantics:
//
//	<q1> INTERSECT <q2> INTERSECT ... INTERSECT <qN>
//
// Queries must not be empty.
type Intersect struct {
	Queries []Query
}

func (Intersect) queryNode() {}

// Op is a comparison operator as written in predicate text.
type Op string

const (
	OpEQ      Op = "="
	OpLT      Op = "<"
	OpGT      Op = ">"
	OpLE      Op = "<="
	OpGE      Op = ">="
	OpNE      Op = "!="
	OpLike    Op = "LIKE"
	OpNotLike Op = "NOT LIKE"
)

// Valid reports whether o is one of the known operators.
func (o Op) Valid() bool {
	switch o {
	case OpEQ, OpLT, OpGT, OpLE, OpGE, OpNE, OpLike, OpNotLike:
		return true
	}
	return false
}

// Compare represents a column-versus-parameter comparison.
//
// Semantics:
//
//	[<Alias>.]<Field> <Op> ?
//
// Value is bound to the single placeholder.
type Compare struct {
	Alias string // empty for columns of the searched entity
	Field string
	Op    Op
	Value string
}

func (Compare) predicateNode() {}

// In represents membership of a column in a list of parameters.
//
// Semantics:
//
//	[<Alias>.]<Field> IN (?, ?, ...)
//
// Values must not be empty; each value binds one placeholder.
type In struct {
	Alias  string
	Field  string
	Values []string
}

func (In) predicateNode() {}

// Member represents membership of a column in a sub-query result.
//
// Semantics:
//
//	<Field> IN ( <Query> )
type Member struct {
	Field string
	Query Query
}

func (Member) predicateNode() {}

// And represents a conjunction of predicates (all must be true).
//
// Semantics:
//
//	<predicate1> AND <predicate2> AND ... AND <predicateN>
//
// An empty And is "no constraint" and renders as empty text.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Params returns the parameters of p in placeholder order.
// The result is nil when p binds no parameters.
func Params(p Predicate) []string {
	var out []string
	appendPredicateParams(&out, p)
	return out
}

func appendPredicateParams(out *[]string, p Predicate) {
	switch pred := p.(type) {
	case Compare:
		*out = append(*out, pred.Value)
	case In:
		*out = append(*out, pred.Values...)
	case Member:
		appendQueryParams(out, pred.Query)
	case And:
		for _, sub := range pred.Predicates {
			appendPredicateParams(out, sub)
		}
	}
}

func appendQueryParams(out *[]string, q Query) {
	switch query := q.(type) {
	case Select:
		appendPredicateParams(out, query.Filter)
	case Intersect:
		for _, sub := range query.Queries {
			appendQueryParams(out, sub)
		}
	}
}
