package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polystore/polystore"
	"github.com/polystore/polystore/optest"
)

var fileModTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// newTestServer serves a fixed set of objects plus paths that answer
// with specific statuses. Everything else is a 404.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/files/hello.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"abc123"`)
		http.ServeContent(w, r, "hello.txt", fileModTime, bytes.NewReader([]byte("hello over http")))
	})
	for path, status := range map[string]int{
		"/errors/unauthorized": http.StatusUnauthorized,
		"/errors/forbidden":    http.StatusForbidden,
		"/errors/gone":         http.StatusGone,
		"/errors/throttled":    http.StatusTooManyRequests,
		"/errors/broken":       http.StatusInternalServerError,
	} {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
	}

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestOperator(t *testing.T, srv *httptest.Server, root string) *polystore.Operator {
	t.Helper()

	acc, err := New(Config{Endpoint: srv.URL, Root: root, Client: srv.Client()})
	require.NoError(t, err)
	op := polystore.NewOperatorFrom(acc)
	t.Cleanup(func() { op.Close() })
	return op
}

func TestConfigValidation(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	assert.Equal(t, polystore.KindConfigInvalid, polystore.KindOf(err))

	_, err = New(Config{Endpoint: "ftp://example.com"})
	require.Error(t, err)
	assert.Equal(t, polystore.KindConfigInvalid, polystore.KindOf(err))
}

// TestConformance runs the shared suite; with only stat and read
// declared, it exercises the unsupported paths of every mutation.
func TestConformance(t *testing.T) {
	srv := newTestServer(t)

	optest.TestSuite(t, func(t *testing.T) *polystore.Operator {
		return newTestOperator(t, srv, "")
	})
}

func TestReadAndStat(t *testing.T) {
	srv := newTestServer(t)
	op := newTestOperator(t, srv, "files")
	ctx := context.Background()

	data, err := op.Read(ctx, "hello.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello over http", string(data))

	meta, err := op.Stat(ctx, "hello.txt")
	require.NoError(t, err)
	assert.True(t, meta.IsFile())
	assert.Equal(t, int64(len("hello over http")), meta.ContentLength())
	assert.Equal(t, `"abc123"`, meta.ETag())
	assert.True(t, fileModTime.Equal(meta.LastModified()))
	assert.Contains(t, meta.ContentType(), "text/plain")
}

func TestStatusMapping(t *testing.T) {
	srv := newTestServer(t)
	op := newTestOperator(t, srv, "errors")
	ctx := context.Background()

	cases := []struct {
		path string
		kind polystore.ErrorKind
	}{
		{"unauthorized", polystore.KindPermissionDenied},
		{"forbidden", polystore.KindPermissionDenied},
		{"gone", polystore.KindNotFound},
		{"throttled", polystore.KindRateLimited},
		{"broken", polystore.KindInternal},
	}
	for _, c := range cases {
		t.Run(c.path, func(t *testing.T) {
			_, err := op.Stat(ctx, c.path)
			require.Error(t, err)
			assert.Equal(t, c.kind, polystore.KindOf(err))
		})
	}

	_, err := op.Read(ctx, "broken")
	require.Error(t, err)
	assert.True(t, polystore.IsTemporary(err), "5xx responses should be retryable")
}

func TestAuthHeaders(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	t.Cleanup(srv.Close)

	acc, err := New(Config{Endpoint: srv.URL, Token: "sesame", Client: srv.Client()})
	require.NoError(t, err)
	op := polystore.NewOperatorFrom(acc)
	t.Cleanup(func() { op.Close() })

	_, err = op.Stat(context.Background(), "anything.txt")
	require.NoError(t, err)
	assert.Equal(t, "Bearer sesame", gotAuth)

	acc, err = New(Config{Endpoint: srv.URL, Username: "alice", Password: "wonder", Client: srv.Client()})
	require.NoError(t, err)
	op2 := polystore.NewOperatorFrom(acc)
	t.Cleanup(func() { op2.Close() })

	_, err = op2.Stat(context.Background(), "anything.txt")
	require.NoError(t, err)
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.SetBasicAuth("alice", "wonder")
	assert.Equal(t, req.Header.Get("Authorization"), gotAuth)
}
