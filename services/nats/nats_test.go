package nats

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

	_, err = New(Config{URL: "nats://localhost:4222"})
	require.Error(t, err)
	assert.Equal(t, polystore.KindConfigInvalid, polystore.KindOf(err))
}

func TestKeyEncoding(t *testing.T) {
	for _, key := range []string{"/", "/a/b.txt", "/dir/", "/spaced name", "/dots..everywhere."} {
		decoded, ok := decodeKey(encodeKey(key))
		require.True(t, ok)
		assert.Equal(t, key, decoded)
	}

	_, ok := decodeKey("not!base64")
	assert.False(t, ok)
}

// startNATSContainer starts a JetStream-enabled NATS server and returns
// its client URL.
func startNATSContainer(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "nats:2.10-alpine",
		ExposedPorts: []string{"4222/tcp"},
		Cmd:          []string{"--js"},
		WaitingFor:   wait.ForLog("Server is ready"),
	}
	natsC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start NATS container")
	t.Cleanup(func() { _ = natsC.Terminate(context.Background()) })

	host, err := natsC.Host(ctx)
	require.NoError(t, err)
	port, err := natsC.MappedPort(ctx, "4222")
	require.NoError(t, err)

	return fmt.Sprintf("nats://%s:%s", host, port.Port())
}

func TestIntegrationConformance(t *testing.T) {
	url := startNATSContainer(t)

	optest.TestSuite(t, func(t *testing.T) *polystore.Operator {
		acc, err := New(Config{URL: url, Bucket: "polystore-test", Root: "suite/" + t.Name()})
		require.NoError(t, err)
		op := polystore.NewOperatorFrom(acc)
		t.Cleanup(func() { op.Close() })
		return op
	})
}
