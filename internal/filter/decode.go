package filter

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/roach88/beaconq/internal/entity"
)

// Spec is the wire form of a request filter. JSON documents decode too, since
// JSON is valid YAML.
//
// Kind may be omitted: a filter setting similarity, scope or
// includeDescendantTerms is an ontology filter, otherwise one with an operator
// or a value is alphanumeric, and anything else is an ontology filter.
// Alphanumeric and custom filters reject the ontology-only fields.
type Spec struct {
	Kind                   string `yaml:"kind,omitempty" json:"kind,omitempty"`
	ID                     string `yaml:"id" json:"id"`
	Operator               string `yaml:"operator,omitempty" json:"operator,omitempty"`
	Value                  any    `yaml:"value,omitempty" json:"value,omitempty"`
	IncludeDescendantTerms *bool  `yaml:"includeDescendantTerms,omitempty" json:"includeDescendantTerms,omitempty"`
	Similarity             string `yaml:"similarity,omitempty" json:"similarity,omitempty"`
	Scope                  string `yaml:"scope,omitempty" json:"scope,omitempty"`
}

// Build converts the wire form to a typed Filter. The id is NFC-normalized so
// that visually identical ids classify identically.
//
// Ontology filters default to includeDescendantTerms=true and
// similarity=exact.
func (s Spec) Build() (Filter, error) {
	id := norm.NFC.String(s.ID)
	if id == "" {
		return nil, &MissingFieldError{Field: "id"}
	}

	op, err := ParseOperator(s.Operator)
	if err != nil {
		var unsupported *UnsupportedOperatorError
		if errors.As(err, &unsupported) {
			unsupported.ID = id
		}
		return nil, err
	}
	val, err := ParseValue(s.Value)
	if err != nil {
		return nil, err
	}
	cmp := Comparison{ID: id, Operator: op, Value: val}

	kind := Kind(s.Kind)
	if kind == "" {
		switch {
		case s.ontologyField() != "":
			kind = KindOntology
		case op != OpNone || val != nil:
			kind = KindAlphanumeric
		default:
			kind = KindOntology
		}
	}

	if kind == KindAlphanumeric || kind == KindCustom {
		if field := s.ontologyField(); field != "" {
			return nil, fmt.Errorf("%s filter %q does not take %s", kind, id, field)
		}
	}

	switch kind {
	case KindAlphanumeric:
		return AlphanumericFilter{Comparison: cmp}, nil
	case KindCustom:
		return CustomFilter{Comparison: cmp}, nil
	case KindOntology:
		sim, err := ParseSimilarity(s.Similarity)
		if err != nil {
			return nil, err
		}
		include := true
		if s.IncludeDescendantTerms != nil {
			include = *s.IncludeDescendantTerms
		}
		of := OntologyFilter{
			Comparison:             cmp,
			IncludeDescendantTerms: include,
			Similarity:             sim,
		}
		if s.Scope != "" {
			scope, err := entity.ParseType(s.Scope)
			if err != nil {
				return nil, err
			}
			of.Scope = scope
		}
		return of, nil
	default:
		return nil, fmt.Errorf("unknown filter kind %q", s.Kind)
	}
}

// ontologyField returns the name of the first ontology-only field set on s,
// or "" when there is none.
func (s Spec) ontologyField() string {
	switch {
	case s.IncludeDescendantTerms != nil:
		return "includeDescendantTerms"
	case s.Similarity != "":
		return "similarity"
	case s.Scope != "":
		return "scope"
	}
	return ""
}

// ParseValue converts a decoded YAML/JSON scalar to a Value.
// Integers become Integer with their exact digits, other numbers become
// Number, strings become Text, nil stays nil.
func ParseValue(raw any) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return Text(v), nil
	case int:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint64:
		return Integer(strconv.FormatUint(v, 10)), nil
	case float64:
		return Number(v), nil
	case float32:
		return Number(v), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", raw)
	}
}

// Decode reads request filters from YAML or JSON. The document may be a bare
// list of filters or a mapping with a "filters" key. Unknown fields are
// rejected.
func Decode(r io.Reader) ([]Filter, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read filters: %w", err)
	}

	var probe yaml.Node
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse filters: %w", err)
	}
	if len(probe.Content) == 0 {
		return []Filter{}, nil
	}

	var specs []Spec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if probe.Content[0].Kind == yaml.MappingNode {
		var wrapper struct {
			Filters []Spec `yaml:"filters"`
		}
		err = decoder.Decode(&wrapper)
		specs = wrapper.Filters
	} else {
		err = decoder.Decode(&specs)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse filters: %w", err)
	}

	return BuildAll(specs)
}

// BuildAll converts wire filters in order, reporting the index of the first
// invalid one.
func BuildAll(specs []Spec) ([]Filter, error) {
	filters := make([]Filter, 0, len(specs))
	for i, s := range specs {
		f, err := s.Build()
		if err != nil {
			return nil, &InvalidFilterError{Index: i, Err: err}
		}
		filters = append(filters, f)
	}
	return filters, nil
}

// DecodeFile reads request filters from a YAML or JSON file.
func DecodeFile(path string) ([]Filter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open filters: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
