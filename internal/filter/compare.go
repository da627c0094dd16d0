package filter

// Comparator is an engine comparison operator as emitted in predicate text.
type Comparator string

const (
	CmpEQ      Comparator = "="
	CmpLT      Comparator = "<"
	CmpGT      Comparator = ">"
	CmpLE      Comparator = "<="
	CmpGE      Comparator = ">="
	CmpNE      Comparator = "!="
	CmpLike    Comparator = "LIKE"
	CmpNotLike Comparator = "NOT LIKE"
)

// numericComparators maps request operators to engine operators for numeric
// values. OpNOT collapses onto "!=".
var numericComparators = map[Operator]Comparator{
	OpEQ:  CmpEQ,
	OpLT:  CmpLT,
	OpGT:  CmpGT,
	OpLE:  CmpLE,
	OpGE:  CmpGE,
	OpNE:  CmpNE,
	OpNOT: CmpNE,
}

// textComparators maps request operators to engine operators for text values.
// Text supports pattern equality and its negation only.
var textComparators = map[Operator]Comparator{
	OpEQ:  CmpLike,
	OpNOT: CmpNotLike,
}

// Normalize turns a declarative operator and value into an engine comparator
// and a positional parameter.
//
// Numeric values accept =, <, >, <=, >=, != and ! (as !=). Text values accept
// = (as LIKE) and ! (as NOT LIKE). Anything else is an
// UnsupportedOperatorError; a missing operator or value is a
// MissingFieldError. The result depends only on the operator and the kind of
// value, never on the column being compared.
func Normalize(op Operator, v Value) (Comparator, string, error) {
	if op == OpNone {
		return "", "", &MissingFieldError{Field: "operator"}
	}
	if v == nil {
		return "", "", &MissingFieldError{Field: "value"}
	}

	switch val := v.(type) {
	case Number, Integer:
		cmp, ok := numericComparators[op]
		if !ok {
			return "", "", &UnsupportedOperatorError{Operator: op, ValueKind: "numeric"}
		}
		return cmp, val.Param(), nil
	case Text:
		cmp, ok := textComparators[op]
		if !ok {
			return "", "", &UnsupportedOperatorError{Operator: op, ValueKind: "text"}
		}
		return cmp, val.Param(), nil
	default:
		return "", "", &UnsupportedOperatorError{Operator: op, ValueKind: "unknown"}
	}
}

// NormalizeFor is Normalize with the filter id attached to any error.
func NormalizeFor(id string, op Operator, v Value) (Comparator, string, error) {
	cmp, param, err := Normalize(op, v)
	if err != nil {
		switch e := err.(type) {
		case *MissingFieldError:
			e.ID = id
		case *UnsupportedOperatorError:
			e.ID = id
		}
		return "", "", err
	}
	return cmp, param, nil
}
