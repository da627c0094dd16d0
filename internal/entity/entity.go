package entity

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Type identifies one of the fixed searchable record kinds.
// The zero value is invalid so an unset Type is never mistaken for Individual.
type Type int

const (
	Individual Type = iota + 1
	Biosample
	Run
	Analysis
	Dataset
	Cohort
)

// All lists every entity type in declaration order.
var All = []Type{Individual, Biosample, Run, Analysis, Dataset, Cohort}

var idTypes = map[Type]string{
	Individual: "individuals",
	Biosample:  "biosamples",
	Run:        "runs",
	Analysis:   "analyses",
	Dataset:    "datasets",
	Cohort:     "cohorts",
}

var modelNames = map[Type]string{
	Individual: "Individual",
	Biosample:  "Biosample",
	Run:        "Run",
	Analysis:   "Analysis",
	Dataset:    "Dataset",
	Cohort:     "Cohort",
}

var (
	byIDType = invert(idTypes)
	byModel  = invert(modelNames)
)

func invert(m map[Type]string) map[string]Type {
	out := make(map[string]Type, len(m))
	for t, s := range m {
		out[s] = t
	}
	return out
}

// Valid reports whether t is one of the declared entity types.
func (t Type) Valid() bool {
	_, ok := idTypes[t]
	return ok
}

// IDType returns the plural request spelling, e.g. "individuals".
func (t Type) IDType() string {
	return idTypes[t]
}

// Model returns the singular spelling used in cross-entity filter ids,
// e.g. "Biosample" in "Biosample.tissue".
func (t Type) Model() string {
	return modelNames[t]
}

// String implements fmt.Stringer.
func (t Type) String() string {
	if s, ok := idTypes[t]; ok {
		return s
	}
	return fmt.Sprintf("entity.Type(%d)", int(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, &UnknownEntityTypeError{Name: t.String()}
	}
	return []byte(t.IDType()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using ParseType.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ModelType resolves an exact model name ("Biosample").
// Used by the filter classifier, where matching is case-sensitive.
func ModelType(name string) (Type, bool) {
	t, ok := byModel[name]
	return t, ok
}

// ParseType resolves a user-supplied entity name. Both spellings are
// accepted, case-insensitively and after NFC normalization, so "Individuals",
// "individuals" and "Individual" all resolve to Individual.
func ParseType(name string) (Type, error) {
	key := strings.TrimSpace(norm.NFC.String(name))
	if key == "" {
		return 0, &UnknownEntityTypeError{Name: name}
	}
	if t, ok := byIDType[key]; ok {
		return t, nil
	}
	if t, ok := byModel[key]; ok {
		return t, nil
	}
	// A Caser is stateful, so each call gets its own.
	folder := cases.Fold()
	folded := folder.String(key)
	for t, s := range idTypes {
		if folder.String(s) == folded {
			return t, nil
		}
	}
	for t, s := range modelNames {
		if folder.String(s) == folded {
			return t, nil
		}
	}
	return 0, &UnknownEntityTypeError{Name: name}
}

// MustParseType is like ParseType but panics on unknown names.
// Intended for package-level variables and tests.
func MustParseType(name string) Type {
	t, err := ParseType(name)
	if err != nil {
		panic(err)
	}
	return t
}
