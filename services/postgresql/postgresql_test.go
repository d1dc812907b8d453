package postgresql

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/polystore/polystore"
	"github.com/polystore/polystore/optest"
)

func TestConfigValidation(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	assert.Equal(t, polystore.KindConfigInvalid, polystore.KindOf(err))

	_, err = New(Config{DSN: "postgres://localhost/db", Table: "objects; --"})
	require.Error(t, err)
	assert.Equal(t, polystore.KindConfigInvalid, polystore.KindOf(err))
}

func TestLikeEscaping(t *testing.T) {
	assert.Equal(t, `/a/b/`, likeEscaper.Replace("/a/b/"))
	assert.Equal(t, `/50\%off/`, likeEscaper.Replace("/50%off/"))
	assert.Equal(t, `/under\_score`, likeEscaper.Replace("/under_score"))
}

// setupTestDatabase starts a PostgreSQL container and returns its DSN.
func setupTestDatabase(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "polystore",
			"POSTGRES_PASSWORD": "polystore",
			"POSTGRES_DB":       "polystore",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() { _ = pgC.Terminate(context.Background()) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://polystore:polystore@%s:%s/polystore?sslmode=disable", host, port.Port())
}

func TestIntegrationConformance(t *testing.T) {
	dsn := setupTestDatabase(t)

	optest.TestSuite(t, func(t *testing.T) *polystore.Operator {
		acc, err := New(Config{DSN: dsn, Root: "suite/" + t.Name()})
		require.NoError(t, err)
		op := polystore.NewOperatorFrom(acc)
		t.Cleanup(func() { op.Close() })
		return op
	})
}
