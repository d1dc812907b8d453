package s3

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polystore/polystore"
)

func TestConfigValidation(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	assert.Equal(t, polystore.KindConfigInvalid, polystore.KindOf(err))

	_, err = New(Config{Bucket: "data"})
	require.Error(t, err)
	assert.Equal(t, polystore.KindConfigInvalid, polystore.KindOf(err))
	assert.Contains(t, err.Error(), "endpoint")
}

func TestKeyMapping(t *testing.T) {
	client, err := minio.New("localhost:9000", &minio.Options{
		Creds: credentials.NewStaticV4("ak", "sk", ""),
	})
	require.NoError(t, err)

	acc, err := New(Config{Client: client, Bucket: "data", Root: "tenant/a"})
	require.NoError(t, err)
	a := acc.(*accessor)

	assert.Equal(t, "/tenant/a/", a.info.Root)
	assert.Equal(t, "tenant/a/", a.key("/"))
	assert.Equal(t, "tenant/a/x.txt", a.key("x.txt"))
	assert.Equal(t, "tenant/a/sub/", a.key("sub/"))
	assert.Equal(t, "tenant/a/", a.rootKey())
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		code string
		kind polystore.ErrorKind
	}{
		{"NoSuchKey", polystore.KindNotFound},
		{"NoSuchBucket", polystore.KindNotFound},
		{"AccessDenied", polystore.KindPermissionDenied},
		{"BucketAlreadyOwnedByYou", polystore.KindAlreadyExists},
		{"SlowDown", polystore.KindRateLimited},
		{"InternalError", polystore.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := translate(minio.ErrorResponse{Code: tt.code})
			assert.Equal(t, tt.kind, polystore.KindOf(err))
		})
	}

	assert.NoError(t, translate(nil))
	assert.True(t, polystore.IsTemporary(translate(minio.ErrorResponse{Code: "SlowDown"})))

	// Cancellation is not an s3 failure and passes through for the
	// operator to classify.
	err := translate(context.Canceled)
	assert.True(t, errors.Is(err, context.Canceled))
	var e *polystore.Error
	assert.False(t, errors.As(err, &e))
}
