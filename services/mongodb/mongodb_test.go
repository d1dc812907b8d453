package mongodb

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

	_, err = New(Config{URI: "mongodb://localhost:27017"})
	require.Error(t, err)
	assert.Equal(t, polystore.KindConfigInvalid, polystore.KindOf(err))
}

func TestPrefixUpper(t *testing.T) {
	assert.Equal(t, "/a0", prefixUpper("/a/"))
	assert.Equal(t, "0", prefixUpper("/"))
	assert.Equal(t, "", prefixUpper(""))
	assert.Equal(t, "\x01", prefixUpper("\x00\xff"))
}

// setupTestServer starts a MongoDB container and returns its URI.
func setupTestServer(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForLog("Waiting for connections"),
	}
	mongoC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start MongoDB container")
	t.Cleanup(func() { _ = mongoC.Terminate(context.Background()) })

	host, err := mongoC.Host(ctx)
	require.NoError(t, err)
	port, err := mongoC.MappedPort(ctx, "27017")
	require.NoError(t, err)

	return fmt.Sprintf("mongodb://%s:%s", host, port.Port())
}

func TestIntegrationConformance(t *testing.T) {
	uri := setupTestServer(t)

	optest.TestSuite(t, func(t *testing.T) *polystore.Operator {
		acc, err := New(Config{URI: uri, Database: "polystore", Root: "suite/" + t.Name()})
		require.NoError(t, err)
		op := polystore.NewOperatorFrom(acc)
		t.Cleanup(func() { op.Close() })
		return op
	})
}
