package s3

import (
	"context"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/polystore/polystore"
	"github.com/polystore/polystore/optest"
)

// setupTestBucket starts a MinIO container and returns a client bound to
// a fresh bucket.
func setupTestBucket(t *testing.T) *minio.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     "minioadmin",
			"MINIO_ROOT_PASSWORD": "minioadmin",
		},
		Cmd:        []string{"server", "/data"},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp"),
	}
	minioC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start MinIO container")
	t.Cleanup(func() { _ = minioC.Terminate(context.Background()) })

	endpoint, err := minioC.Endpoint(ctx, "")
	require.NoError(t, err, "failed to get container endpoint")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	require.NoError(t, err, "failed to create client")

	require.NoError(t, client.MakeBucket(ctx, "polystore-test", minio.MakeBucketOptions{}))
	return client
}

func TestIntegrationConformance(t *testing.T) {
	client := setupTestBucket(t)

	optest.TestSuite(t, func(t *testing.T) *polystore.Operator {
		acc, err := New(Config{Client: client, Bucket: "polystore-test", Root: "suite/" + t.Name()})
		require.NoError(t, err)
		op := polystore.NewOperatorFrom(acc)
		t.Cleanup(func() { op.Close() })
		return op
	})
}

// TestIntegrationRootIsolation verifies two operators with different
// roots in one bucket do not see each other's objects.
func TestIntegrationRootIsolation(t *testing.T) {
	client := setupTestBucket(t)
	ctx := context.Background()

	newOp := func(root string) *polystore.Operator {
		acc, err := New(Config{Client: client, Bucket: "polystore-test", Root: root})
		require.NoError(t, err)
		return polystore.NewOperatorFrom(acc)
	}
	a := newOp("tenants/a")
	defer a.Close()
	b := newOp("tenants/b")
	defer b.Close()

	require.NoError(t, a.Write(ctx, "private.txt", []byte("a's data")))

	_, err := b.Read(ctx, "private.txt")
	require.Error(t, err)
	require.Equal(t, polystore.KindNotFound, polystore.KindOf(err))

	ok, err := b.IsExist(ctx, "private.txt")
	require.NoError(t, err)
	require.False(t, ok)
}
