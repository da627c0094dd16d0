package ontology

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

// Memory is an in-process Service. It is used for tests, scenario fixtures
// and small static ontologies.
type Memory struct {
	mu          sync.RWMutex
	ancestors   map[string][]string
	descendants map[string][]string
}

// NewMemory returns an empty Memory.
func NewMemory() *Memory {
	return &Memory{
		ancestors:   make(map[string][]string),
		descendants: make(map[string][]string),
	}
}

// SetAncestors records the ancestor set of term.
// An empty set removes the term.
func (m *Memory) SetAncestors(term string, ancestors ...string) *Memory {
	m.set(m.ancestors, term, ancestors)
	return m
}

// SetDescendants records the descendant set of term.
// An empty set removes the term.
func (m *Memory) SetDescendants(term string, descendants ...string) *Memory {
	m.set(m.descendants, term, descendants)
	return m
}

func (m *Memory) set(table map[string][]string, term string, terms []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if set := normalizeSet(terms); set != nil {
		table[term] = set
	} else {
		delete(table, term)
	}
}

// Ancestors implements Service.
func (m *Memory) Ancestors(_ context.Context, term string) ([]string, bool) {
	return m.get(m.ancestors, term)
}

// Descendants implements Service.
func (m *Memory) Descendants(_ context.Context, term string) ([]string, bool) {
	return m.get(m.descendants, term)
}

func (m *Memory) get(table map[string][]string, term string) ([]string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set, ok := table[term]
	if !ok {
		return nil, false
	}
	return slices.Clone(set), true
}

// Terms returns every term with a recorded ancestor or descendant set, sorted.
func (m *Memory) Terms() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	terms := make([]string, 0, len(m.ancestors)+len(m.descendants))
	for t := range m.ancestors {
		terms = append(terms, t)
	}
	for t := range m.descendants {
		terms = append(terms, t)
	}
	slices.Sort(terms)
	return slices.Compact(terms)
}

// Fixture is the YAML form of a Memory ontology.
//
//	terms:
//	  "NCIT:C3262":
//	    ancestors: ["NCIT:C3262", "NCIT:C7062"]
//	    descendants: ["NCIT:C3262", "NCIT:C4910"]
type Fixture struct {
	Terms map[string]FixtureTerm `yaml:"terms" json:"terms"`
}

// FixtureTerm holds the closure sets of one term.
type FixtureTerm struct {
	Ancestors   []string `yaml:"ancestors,omitempty" json:"ancestors,omitempty"`
	Descendants []string `yaml:"descendants,omitempty" json:"descendants,omitempty"`
}

// NewMemoryFromFixture builds a Memory from a decoded fixture.
func NewMemoryFromFixture(f Fixture) *Memory {
	m := NewMemory()
	for term, sets := range f.Terms {
		m.SetAncestors(term, sets.Ancestors...)
		m.SetDescendants(term, sets.Descendants...)
	}
	return m
}

// LoadFixture reads a YAML (or JSON) fixture file into a Memory.
// Unknown fields are rejected.
func LoadFixture(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ontology fixture: %w", err)
	}

	var f Fixture
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse ontology fixture: %w", err)
	}
	return NewMemoryFromFixture(f), nil
}
