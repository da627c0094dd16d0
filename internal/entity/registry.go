package entity

import (
	"fmt"
	"regexp"
	"slices"
)

// Default table names for the two shared tables.
const (
	DefaultRelationsTable  = "relations"
	DefaultTermsIndexTable = "terms_index"
)

// identifierPattern restricts table and column names to plain SQL identifiers.
// Names are spliced into predicate text, so anything else is rejected at
// registry construction.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether s can be emitted unquoted in predicate text.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// Config is the registry layout. Entities is keyed by id type ("individuals").
type Config struct {
	Relations  string                  `json:"relations"`
	TermsIndex string                  `json:"terms_index"`
	Entities   map[string]EntityConfig `json:"entities"`
}

// EntityConfig describes one entity table.
type EntityConfig struct {
	Table   string   `json:"table"`
	JoinKey string   `json:"join_key"`
	Columns []string `json:"columns"`
}

// Entity is the resolved, immutable registry entry for one entity type.
type Entity struct {
	Type    Type
	Table   string
	JoinKey string
	columns map[string]struct{}
	ordered []string
}

// HasColumn reports whether column is a filterable local column.
func (e Entity) HasColumn(column string) bool {
	_, ok := e.columns[column]
	return ok
}

// Columns returns the filterable columns in configuration order.
// The returned slice is a copy.
func (e Entity) Columns() []string {
	return slices.Clone(e.ordered)
}

// Registry maps entity types to their tables, columns and join keys.
// It is immutable after NewRegistry returns.
type Registry struct {
	relations  string
	termsIndex string
	entities   map[Type]Entity
}

// NewRegistry validates cfg and builds a Registry.
// Every entity type must be present and every name must be a plain identifier.
func NewRegistry(cfg Config) (*Registry, error) {
	if !ValidIdentifier(cfg.Relations) {
		return nil, &ConfigError{Field: "relations", Message: fmt.Sprintf("invalid table name %q", cfg.Relations)}
	}
	if !ValidIdentifier(cfg.TermsIndex) {
		return nil, &ConfigError{Field: "terms_index", Message: fmt.Sprintf("invalid table name %q", cfg.TermsIndex)}
	}

	r := &Registry{
		relations:  cfg.Relations,
		termsIndex: cfg.TermsIndex,
		entities:   make(map[Type]Entity, len(All)),
	}

	for name := range cfg.Entities {
		if _, ok := byIDType[name]; !ok {
			return nil, &ConfigError{Field: "entities." + name, Message: "unknown entity type"}
		}
	}

	for _, t := range All {
		field := "entities." + t.IDType()
		ec, ok := cfg.Entities[t.IDType()]
		if !ok {
			return nil, &ConfigError{Field: field, Message: "missing entity configuration"}
		}
		if !ValidIdentifier(ec.Table) {
			return nil, &ConfigError{Field: field + ".table", Message: fmt.Sprintf("invalid table name %q", ec.Table)}
		}
		if !ValidIdentifier(ec.JoinKey) {
			return nil, &ConfigError{Field: field + ".join_key", Message: fmt.Sprintf("invalid column name %q", ec.JoinKey)}
		}

		ent := Entity{
			Type:    t,
			Table:   ec.Table,
			JoinKey: ec.JoinKey,
			columns: make(map[string]struct{}, len(ec.Columns)),
		}
		for _, col := range ec.Columns {
			if !ValidIdentifier(col) {
				return nil, &ConfigError{Field: field + ".columns", Message: fmt.Sprintf("invalid column name %q", col)}
			}
			if _, dup := ent.columns[col]; dup {
				continue
			}
			ent.columns[col] = struct{}{}
			ent.ordered = append(ent.ordered, col)
		}
		r.entities[t] = ent
	}

	return r, nil
}

// MustNewRegistry is like NewRegistry but panics on an invalid config.
func MustNewRegistry(cfg Config) *Registry {
	r, err := NewRegistry(cfg)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the registry entry for t.
func (r *Registry) Lookup(t Type) (Entity, error) {
	ent, ok := r.entities[t]
	if !ok {
		return Entity{}, &UnknownEntityTypeError{Name: t.String()}
	}
	return ent, nil
}

// LookupModel resolves a model name ("Biosample") to its registry entry.
func (r *Registry) LookupModel(model string) (Entity, bool) {
	t, ok := ModelType(model)
	if !ok {
		return Entity{}, false
	}
	ent, ok := r.entities[t]
	return ent, ok
}

// Columns returns the filterable columns of t.
func (r *Registry) Columns(t Type) ([]string, error) {
	ent, err := r.Lookup(t)
	if err != nil {
		return nil, err
	}
	return ent.Columns(), nil
}

// Table returns the table name of t.
func (r *Registry) Table(t Type) (string, error) {
	ent, err := r.Lookup(t)
	if err != nil {
		return "", err
	}
	return ent.Table, nil
}

// JoinKey returns the column holding t's identifiers in the relations table.
func (r *Registry) JoinKey(t Type) (string, error) {
	ent, err := r.Lookup(t)
	if err != nil {
		return "", err
	}
	return ent.JoinKey, nil
}

// Relations returns the relations table name.
func (r *Registry) Relations() string { return r.relations }

// TermsIndex returns the terms index table name.
func (r *Registry) TermsIndex() string { return r.termsIndex }
