package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polystore/polystore"
	"github.com/polystore/polystore/optest"
	_ "github.com/polystore/polystore/services/sqlite"
)

func TestConformance(t *testing.T) {
	optest.TestSuite(t, func(t *testing.T) *polystore.Operator {
		op, err := polystore.NewOperator("sqlite", map[string]string{
			"path": filepath.Join(t.TempDir(), "store.db"),
		})
		require.NoError(t, err)
		t.Cleanup(func() { op.Close() })
		return op
	})
}

func TestMemoryDatabase(t *testing.T) {
	op, err := polystore.NewOperator("sqlite", map[string]string{"path": ":memory:"})
	require.NoError(t, err)
	defer op.Close()

	ctx := context.Background()
	require.NoError(t, op.Write(ctx, "a.txt", []byte("x")))
	data, err := op.Read(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestPathRequired(t *testing.T) {
	_, err := polystore.NewOperator("sqlite", nil)
	require.Error(t, err)
	assert.Equal(t, polystore.KindConfigInvalid, polystore.KindOf(err))
}

func TestBadTableName(t *testing.T) {
	_, err := polystore.NewOperator("sqlite", map[string]string{
		"path":  ":memory:",
		"table": "objects; DROP TABLE users",
	})
	require.Error(t, err)
	assert.Equal(t, polystore.KindConfigInvalid, polystore.KindOf(err))
}

// TestSharedDatabase verifies two roots in one database file stay
// disjoint.
func TestSharedDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	ctx := context.Background()

	a, err := polystore.NewOperator("sqlite", map[string]string{"path": path, "root": "tenants/a"})
	require.NoError(t, err)
	defer a.Close()
	b, err := polystore.NewOperator("sqlite", map[string]string{"path": path, "root": "tenants/b"})
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.Write(ctx, "doc.txt", []byte("a only")))

	ok, err := b.IsExist(ctx, "doc.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}
