package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType_AcceptsBothSpellings(t *testing.T) {
	testCases := []struct {
		input string
		want  Type
	}{
		{"individuals", Individual},
		{"Individual", Individual},
		{"INDIVIDUALS", Individual},
		{" biosamples ", Biosample},
		{"runs", Run},
		{"Analysis", Analysis},
		{"analyses", Analysis},
		{"datasets", Dataset},
		{"cohort", Cohort},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseType(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseType_Unknown(t *testing.T) {
	for _, input := range []string{"", "variants", "individual.sex"} {
		_, err := ParseType(input)
		require.Error(t, err)
		assert.True(t, IsUnknownEntityType(err), "input %q", input)
	}
}

func TestModelType_IsCaseSensitive(t *testing.T) {
	got, ok := ModelType("Biosample")
	require.True(t, ok)
	assert.Equal(t, Biosample, got)

	_, ok = ModelType("biosample")
	assert.False(t, ok)
	_, ok = ModelType("biosamples")
	assert.False(t, ok)
}

func TestType_Spellings(t *testing.T) {
	assert.Equal(t, "analyses", Analysis.IDType())
	assert.Equal(t, "Analysis", Analysis.Model())
	assert.Equal(t, "analyses", Analysis.String())
	assert.Equal(t, "entity.Type(0)", Type(0).String())
	assert.False(t, Type(0).Valid())
	assert.True(t, Cohort.Valid())
}

func TestType_TextRoundTrip(t *testing.T) {
	text, err := Run.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "runs", string(text))

	var got Type
	require.NoError(t, got.UnmarshalText([]byte("Run")))
	assert.Equal(t, Run, got)

	_, err = Type(42).MarshalText()
	assert.True(t, IsUnknownEntityType(err))
}
