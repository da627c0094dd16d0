package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/beaconq/internal/filter"
)

func ptr(s string) *string { return &s }

func TestRun_CohortSearch(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/cohort_search.yaml")
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 5)

	bad, ok := result.Event("bad_operator")
	require.True(t, ok)
	assert.Equal(t, filter.ErrCodeUnsupportedOperator, bad.Error)
	assert.Empty(t, bad.Predicate)
}

func TestRun_ReportsMismatches(t *testing.T) {
	s := &Scenario{
		Name:        "mismatch",
		Description: "expectations that do not hold",
		Steps: []Step{
			{
				Name:    "wrong_text",
				Target:  "individuals",
				Filters: []filter.Spec{{ID: "sex", Operator: "=", Value: "female"}},
				Expect:  &ExpectClause{Predicate: ptr("WHERE sex = ?"), Params: []string{"female"}},
			},
			{
				Name:    "wrong_params",
				Target:  "individuals",
				Filters: []filter.Spec{{ID: "sex", Operator: "=", Value: "female"}},
				Expect:  &ExpectClause{Predicate: ptr("WHERE sex LIKE ?"), Params: []string{"male"}},
			},
			{
				Name:    "expected_error",
				Target:  "individuals",
				Filters: []filter.Spec{{ID: "sex", Operator: "=", Value: "female"}},
				Expect:  &ExpectClause{Error: filter.ErrCodeUnsupportedOperator},
			},
			{
				Name:    "unexpected_error",
				Target:  "individuals",
				Filters: []filter.Spec{{ID: "sex", Operator: "<", Value: "female"}},
			},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "predicate mismatch")
	assert.Contains(t, result.Errors[1], "params mismatch")
	assert.Contains(t, result.Errors[2], "expected error UNSUPPORTED_OPERATOR")
	assert.Contains(t, result.Errors[3], "unexpected_error")
}

func TestRun_DecodeErrorsReportCause(t *testing.T) {
	s := &Scenario{
		Name:        "bad_scope",
		Description: "scope names an unknown entity",
		Steps: []Step{{
			Name:    "scope",
			Target:  "individuals",
			Filters: []filter.Spec{{ID: "NCIT:C3262", Scope: "spaceships"}},
			Expect:  &ExpectClause{Error: "UNKNOWN_ENTITY_TYPE"},
		}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_StrictStep(t *testing.T) {
	s := &Scenario{
		Name:        "strict",
		Description: "unmatched filters",
		Steps: []Step{
			{
				Name:    "lenient",
				Target:  "individuals",
				Filters: []filter.Spec{{Kind: "alphanumeric", ID: "height", Operator: ">", Value: 180}},
				Expect:  &ExpectClause{Predicate: ptr("")},
			},
			{
				Name:    "strict",
				Target:  "individuals",
				Strict:  true,
				Filters: []filter.Spec{{Kind: "alphanumeric", ID: "height", Operator: ">", Value: 180}},
				Expect:  &ExpectClause{Error: filter.ErrCodeUnknownFilter},
			},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_SetupFailures(t *testing.T) {
	_, err := Run(&Scenario{Name: "x", Registry: "testdata/missing.cue"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load registry")

	_, err = Run(&Scenario{Name: "x", OntologyFile: "testdata/missing.yaml"})
	require.Error(t, err)
}
