package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_Default(t *testing.T) {
	reg, err := NewRegistry(DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, DefaultRelationsTable, reg.Relations())
	assert.Equal(t, DefaultTermsIndexTable, reg.TermsIndex())

	for _, typ := range All {
		ent, err := reg.Lookup(typ)
		require.NoError(t, err, typ.String())
		assert.Equal(t, typ.IDType(), ent.Table)
		assert.True(t, ent.HasColumn("id"), "%s should expose id", typ)
	}

	key, err := reg.JoinKey(Biosample)
	require.NoError(t, err)
	assert.Equal(t, "biosampleid", key)

	table, err := reg.Table(Analysis)
	require.NoError(t, err)
	assert.Equal(t, "analyses", table)
}

func TestRegistry_LookupUnknown(t *testing.T) {
	reg := MustNewRegistry(DefaultConfig())

	_, err := reg.Lookup(Type(99))
	require.Error(t, err)
	assert.True(t, IsUnknownEntityType(err))

	_, err = reg.Columns(Type(0))
	assert.True(t, IsUnknownEntityType(err))
}

func TestRegistry_LookupModel(t *testing.T) {
	reg := MustNewRegistry(DefaultConfig())

	ent, ok := reg.LookupModel("Run")
	require.True(t, ok)
	assert.Equal(t, Run, ent.Type)
	assert.True(t, ent.HasColumn("platform"))

	_, ok = reg.LookupModel("runs")
	assert.False(t, ok)
}

func TestRegistry_ColumnsAreCopied(t *testing.T) {
	reg := MustNewRegistry(DefaultConfig())

	cols, err := reg.Columns(Cohort)
	require.NoError(t, err)
	cols[0] = "mutated"

	again, err := reg.Columns(Cohort)
	require.NoError(t, err)
	assert.Equal(t, "id", again[0])
}

func TestNewRegistry_DeduplicatesColumns(t *testing.T) {
	cfg := DefaultConfig()
	ec := cfg.Entities["individuals"]
	ec.Columns = []string{"id", "age", "age", "sex"}
	cfg.Entities["individuals"] = ec

	reg, err := NewRegistry(cfg)
	require.NoError(t, err)

	cols, err := reg.Columns(Individual)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "age", "sex"}, cols)
}

func TestNewRegistry_RejectsInvalidConfig(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{
			name:   "relations with quote",
			mutate: func(c *Config) { c.Relations = `relations"; --` },
			field:  "relations",
		},
		{
			name:   "empty terms index",
			mutate: func(c *Config) { c.TermsIndex = "" },
			field:  "terms_index",
		},
		{
			name:   "missing entity",
			mutate: func(c *Config) { delete(c.Entities, "cohorts") },
			field:  "entities.cohorts",
		},
		{
			name:   "unknown entity",
			mutate: func(c *Config) { c.Entities["variants"] = EntityConfig{Table: "v", JoinKey: "vid"} },
			field:  "entities.variants",
		},
		{
			name: "hyphenated table",
			mutate: func(c *Config) {
				ec := c.Entities["runs"]
				ec.Table = "sbeacon-runs"
				c.Entities["runs"] = ec
			},
			field: "entities.runs.table",
		},
		{
			name: "column with space",
			mutate: func(c *Config) {
				ec := c.Entities["datasets"]
				ec.Columns = append(ec.Columns, "bad column")
				c.Entities["datasets"] = ec
			},
			field: "entities.datasets.columns",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)

			_, err := NewRegistry(cfg)
			require.Error(t, err)

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.field, cfgErr.Field)
		})
	}
}
