package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_ResolvesRelativePaths(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/cohort_search.yaml")
	require.NoError(t, err)

	assert.Equal(t, "cohort_search", s.Name)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "registry.cue"), s.Registry)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "ontology.yaml"), s.OntologyFile)
	require.Len(t, s.Steps, 5)

	age := s.Steps[0]
	assert.Equal(t, "age", age.Name)
	require.Len(t, age.Filters, 1)
	assert.Equal(t, ">", age.Filters[0].Operator)
	assert.Equal(t, 30, age.Filters[0].Value)
	require.NotNil(t, age.Expect.Predicate)
	assert.Equal(t, "WHERE age > ?", *age.Expect.Predicate)

	empty := s.Steps[3]
	require.NotNil(t, empty.Expect.Predicate)
	assert.Equal(t, "", *empty.Expect.Predicate)
}

func TestLoadScenario_InlineOntology(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/similarity.yaml")
	require.NoError(t, err)

	require.NotNil(t, s.Ontology)
	assert.Len(t, s.Ontology.Terms, 3)
	assert.Equal(t, []string{"NCIT:C3262", "NCIT:C4910"}, s.Ontology.Terms["NCIT:C3262"].Descendants)
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "unknown field",
			content: "name: x\ndescription: y\nstep: []\n",
			errMsg:  "failed to parse YAML",
		},
		{
			name:    "missing name",
			content: "description: y\nsteps: [{name: a, target: individuals, filters: []}]\n",
			errMsg:  "name is required",
		},
		{
			name:    "missing steps",
			content: "name: x\ndescription: y\n",
			errMsg:  "steps list is required",
		},
		{
			name:    "unknown target",
			content: "name: x\ndescription: y\nsteps: [{name: a, target: spaceships, filters: []}]\n",
			errMsg:  "UNKNOWN_ENTITY_TYPE",
		},
		{
			name:    "duplicate step",
			content: "name: x\ndescription: y\nsteps: [{name: a, target: runs, filters: []}, {name: a, target: runs, filters: []}]\n",
			errMsg:  "duplicate name",
		},
		{
			name:    "empty expect",
			content: "name: x\ndescription: y\nsteps: [{name: a, target: runs, filters: [], expect: {params: [x]}}]\n",
			errMsg:  "predicate or error is required",
		},
		{
			name:    "assertion on unknown step",
			content: "name: x\ndescription: y\nsteps: [{name: a, target: runs, filters: []}]\nassertions: [{type: predicate_contains, step: b, text: IN}]\n",
			errMsg:  `unknown step "b"`,
		},
		{
			name:    "unknown assertion type",
			content: "name: x\ndescription: y\nsteps: [{name: a, target: runs, filters: []}]\nassertions: [{type: final_state}]\n",
			errMsg:  "unknown assertion type",
		},
		{
			name:    "missing registry file",
			content: "name: x\ndescription: y\nregistry: nope.cue\nsteps: [{name: a, target: runs, filters: []}]\n",
			errMsg:  "file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
