package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_Numeric(t *testing.T) {
	testCases := []struct {
		op   Operator
		want Comparator
	}{
		{OpEQ, CmpEQ},
		{OpLT, CmpLT},
		{OpGT, CmpGT},
		{OpLE, CmpLE},
		{OpGE, CmpGE},
		{OpNE, CmpNE},
		{OpNOT, CmpNE},
	}

	for _, tc := range testCases {
		t.Run(string(tc.op), func(t *testing.T) {
			cmp, param, err := Normalize(tc.op, Number(30))
			require.NoError(t, err)
			assert.Equal(t, tc.want, cmp)
			assert.Equal(t, "30", param)
		})
	}
}

func TestNormalize_NumericRendersFractions(t *testing.T) {
	_, param, err := Normalize(OpLE, Number(1.75))
	require.NoError(t, err)
	assert.Equal(t, "1.75", param)

	_, param, err = Normalize(OpGT, Number(-2))
	require.NoError(t, err)
	assert.Equal(t, "-2", param)
}

func TestNormalize_Text(t *testing.T) {
	cmp, param, err := Normalize(OpEQ, Text("blood"))
	require.NoError(t, err)
	assert.Equal(t, CmpLike, cmp)
	assert.Equal(t, "blood", param)

	cmp, param, err = Normalize(OpNOT, Text("blood%"))
	require.NoError(t, err)
	assert.Equal(t, CmpNotLike, cmp)
	assert.Equal(t, "blood%", param)
}

func TestNormalize_TextRejectsOrderingOperators(t *testing.T) {
	for _, op := range []Operator{OpLT, OpGT, OpLE, OpGE, OpNE, Operator("~")} {
		t.Run(string(op), func(t *testing.T) {
			_, _, err := Normalize(op, Text("x"))
			require.Error(t, err)
			assert.True(t, IsUnsupportedOperator(err))

			var ue *UnsupportedOperatorError
			require.ErrorAs(t, err, &ue)
			assert.Equal(t, "text", ue.ValueKind)
		})
	}
}

func TestNormalize_NumericRejectsUnknownOperators(t *testing.T) {
	for _, op := range []Operator{Operator("LIKE"), Operator("=="), Operator("<>")} {
		_, _, err := Normalize(op, Number(1))
		require.Error(t, err)
		assert.True(t, IsUnsupportedOperator(err), "operator %q", op)
		assert.Equal(t, ErrCodeUnsupportedOperator, ErrorCode(err))
	}
}

func TestNormalize_MissingFields(t *testing.T) {
	_, _, err := Normalize(OpNone, Number(1))
	require.Error(t, err)
	var me *MissingFieldError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "operator", me.Field)

	_, _, err = Normalize(OpEQ, nil)
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "value", me.Field)
	assert.True(t, IsMissingField(err))
}

func TestNormalizeFor_AttachesID(t *testing.T) {
	_, _, err := NormalizeFor("age", OpNOT, nil)
	var me *MissingFieldError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "age", me.ID)
	assert.Contains(t, err.Error(), `"age"`)

	_, _, err = NormalizeFor("sex", OpGT, Text("male"))
	var ue *UnsupportedOperatorError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "sex", ue.ID)
}
