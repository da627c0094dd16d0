package ontology

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T) *SQLiteService {
	t.Helper()
	svc, err := OpenSQLite(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestSQLite_PutAndLookup(t *testing.T) {
	ctx := context.Background()
	svc := openTestSQLite(t)

	require.NoError(t, svc.Put(ctx, RelationDescendants, "A", []string{"C", "A", "B", "A"}))

	got, ok := svc.Descendants(ctx, "A")
	require.True(t, ok)
	assert.Equal(t, []string{"A", "B", "C"}, got)

	_, ok = svc.Ancestors(ctx, "A")
	assert.False(t, ok, "relations are stored independently")
}

func TestSQLite_PutReplacesAndRemoves(t *testing.T) {
	ctx := context.Background()
	svc := openTestSQLite(t)

	require.NoError(t, svc.Put(ctx, RelationAncestors, "B", []string{"A", "B"}))
	require.NoError(t, svc.Put(ctx, RelationAncestors, "B", []string{"B"}))

	got, ok := svc.Ancestors(ctx, "B")
	require.True(t, ok)
	assert.Equal(t, []string{"B"}, got)

	require.NoError(t, svc.Put(ctx, RelationAncestors, "B", nil))
	_, ok = svc.Ancestors(ctx, "B")
	assert.False(t, ok)
}

func TestSQLite_PutUnknownRelation(t *testing.T) {
	svc := openTestSQLite(t)
	err := svc.Put(context.Background(), Relation("siblings"), "A", []string{"B"})
	require.Error(t, err)
}

func TestSQLite_Import(t *testing.T) {
	ctx := context.Background()
	svc := openTestSQLite(t)

	mem := NewMemory().
		SetAncestors("B", "A", "B").
		SetDescendants("A", "A", "B").
		SetDescendants("B", "B")
	require.NoError(t, svc.Import(ctx, mem))

	for _, term := range mem.Terms() {
		for _, rel := range []Relation{RelationAncestors, RelationDescendants} {
			want, wantOK := Lookup(ctx, mem, rel, term)
			got, gotOK := Lookup(ctx, svc, rel, term)
			assert.Equal(t, wantOK, gotOK, "%s of %s", rel, term)
			assert.Equal(t, want, got, "%s of %s", rel, term)
		}
	}
}

func TestSQLite_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ontology.db")

	svc, err := OpenSQLite(path, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Put(ctx, RelationDescendants, "A", []string{"A", "B"}))
	require.NoError(t, svc.Close())

	reopened, err := OpenSQLite(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	got, ok := reopened.Descendants(ctx, "A")
	require.True(t, ok)
	assert.Equal(t, []string{"A", "B"}, got)
}

func TestSQLite_ClosedDatabaseIsAMiss(t *testing.T) {
	svc, err := OpenSQLite(":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	_, ok := svc.Descendants(context.Background(), "A")
	assert.False(t, ok)
}
