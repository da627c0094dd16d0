package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeResponse(t *testing.T, buf *bytes.Buffer) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	return resp
}

func TestOutputFormatter_JSON(t *testing.T) {
	t.Run("success carries data and a trace id", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "json", Writer: buf, TraceID: NewTraceID()}

		require.NoError(t, formatter.Success(CompileResult{
			Target:    "individuals",
			Predicate: "WHERE sex LIKE ?",
			Params:    []string{"female"},
		}))

		resp := decodeResponse(t, buf)
		assert.Equal(t, "ok", resp.Status)
		assert.Nil(t, resp.Error)
		assert.Equal(t, formatter.TraceID, resp.TraceID)
		data, ok := resp.Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "WHERE sex LIKE ?", data["predicate"])
	})

	t.Run("error with details", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "json", Writer: buf}

		details := map[string]string{"filter": "0", "id": "sex"}
		require.NoError(t, formatter.Error(ErrCodeUnsupportedOperator, "operator < not supported for text", details))

		resp := decodeResponse(t, buf)
		assert.Equal(t, "error", resp.Status)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "E101", resp.Error.Code)
		assert.Equal(t, "operator < not supported for text", resp.Error.Message)
		assert.NotNil(t, resp.Error.Details)
		assert.NotEmpty(t, resp.TraceID)
	})
}

func TestOutputFormatter_Text(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		details any
		want    []string
		absent  []string
	}{
		{
			name: "plain",
			want: []string{"Error [E104]", "filter height matches nothing"},
		},
		{
			name:    "details hidden without verbose",
			details: map[string]string{"id": "height"},
			want:    []string{"Error [E104]"},
			absent:  []string{"Details:"},
		},
		{
			name:    "details shown with verbose",
			verbose: true,
			details: map[string]string{"id": "height"},
			want:    []string{"Error [E104]", "Details:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: tt.verbose}

			require.NoError(t, formatter.Error(ErrCodeUnknownFilter, "filter height matches nothing", tt.details))
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
			for _, a := range tt.absent {
				assert.NotContains(t, buf.String(), a)
			}
		})
	}
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success("All 3 filter(s) valid"))
	assert.Contains(t, buf.String(), "All 3 filter(s) valid")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	for _, verbose := range []bool{true, false} {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: verbose}

		formatter.VerboseLog("Read %d filter(s) from %s", 3, "filters.yaml")

		if verbose {
			assert.Contains(t, buf.String(), "Read 3 filter(s) from filters.yaml")
		} else {
			assert.Empty(t, buf.String())
		}
	}
}

func TestOutputFormatter_TraceID(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "json",
		Writer:  buf,
		TraceID: "0192d0a4-7b3c-7000-8000-000000000001",
	}

	require.NoError(t, formatter.Error("E101", "filter rejected", nil))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "0192d0a4-7b3c-7000-8000-000000000001", resp.TraceID)
}

func TestNewTraceID(t *testing.T) {
	id := NewTraceID()
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.NotEqual(t, id, NewTraceID())
}

func TestOutputFormatter_JSONUnescaped(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(CompileResult{Predicate: "WHERE age > ?"}))
	assert.Contains(t, buf.String(), "WHERE age > ?")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "missing")))
	assert.Equal(t, ExitFailure, GetExitCode(WrapExitError(ExitFailure, "E101", errors.New("bad"))))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}
