package kv

import (
	"context"
	"errors"
	"io"
	"maps"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polystore/polystore"
)

// fakeStore is an in-memory Adapter with an adjustable capability, used
// to exercise the bridge without a real database.
type fakeStore struct {
	caps   Capability
	data   map[string][]byte
	closed bool
}

func newFakeStore(caps Capability) *fakeStore {
	return &fakeStore{caps: caps, data: map[string][]byte{}}
}

func (s *fakeStore) Info() Info {
	return Info{Scheme: "fake", Name: "unit", Capability: s.caps}
}

func (s *fakeStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, ok := s.data[key]
	return value, ok, nil
}

func (s *fakeStore) Set(_ context.Context, key string, value []byte) error {
	s.data[key] = slices.Clone(value)
	return nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	delete(s.data, key)
	return nil
}

func (s *fakeStore) Scan(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	for key := range maps.Keys(s.data) {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (s *fakeStore) Close() error {
	s.closed = true
	return nil
}

func fullCaps() Capability {
	return Capability{Get: true, Set: true, Delete: true, Scan: true}
}

func TestCapabilityMapping(t *testing.T) {
	tests := []struct {
		name string
		caps Capability
		want polystore.Capability
	}{
		{
			name: "get only",
			caps: Capability{Get: true},
			want: polystore.Capability{Stat: true, Read: true},
		},
		{
			name: "get and set",
			caps: Capability{Get: true, Set: true},
			want: polystore.Capability{
				Stat: true, Read: true, Write: true, CreateDir: true, Copy: true,
			},
		},
		{
			name: "full",
			caps: fullCaps(),
			want: polystore.Capability{
				Stat: true, Read: true, Write: true, CreateDir: true,
				Delete: true, Copy: true, Rename: true,
				List: true, ListWithRecursive: true,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBackend(newFakeStore(tt.caps), "/")
			assert.Equal(t, tt.want, b.Info().Capability)
		})
	}
}

func TestRootScoping(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(fullCaps())
	tenant := NewBackend(store, "/tenant")
	other := NewBackend(store, "/other")

	require.NoError(t, tenant.Write(ctx, "a.txt", []byte("scoped")))

	// The key carries the root prefix.
	_, ok := store.data["/tenant/a.txt"]
	assert.True(t, ok, "expected key /tenant/a.txt, have %v", slices.Collect(maps.Keys(store.data)))

	// The other root cannot see it.
	_, err := other.Stat(ctx, "a.txt")
	assert.Equal(t, polystore.KindNotFound, polystore.KindOf(err))

	_, err = tenant.Stat(ctx, "a.txt")
	require.NoError(t, err)
}

func TestStatRootAlwaysDir(t *testing.T) {
	b := NewBackend(newFakeStore(fullCaps()), "/")
	meta, err := b.Stat(context.Background(), "/")
	require.NoError(t, err)
	assert.True(t, meta.IsDir())
}

func TestDirMarker(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(fullCaps())
	b := NewBackend(store, "/")

	require.NoError(t, b.CreateDir(ctx, "made/"))

	value, ok := store.data["/made/"]
	require.True(t, ok, "marker key /made/ missing")
	assert.Empty(t, value)

	meta, err := b.Stat(ctx, "made/")
	require.NoError(t, err)
	assert.True(t, meta.IsDir())
}

func TestListCollapse(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(fullCaps())
	b := NewBackend(store, "/")

	require.NoError(t, b.Write(ctx, "a/x.txt", []byte("x")))
	require.NoError(t, b.CreateDir(ctx, "a/b/"))
	require.NoError(t, b.Write(ctx, "a/b/c.txt", []byte("c")))
	require.NoError(t, b.Write(ctx, "a/b/d.txt", []byte("d")))

	pager, err := b.List(ctx, "a/", polystore.ListArgs{})
	require.NoError(t, err)
	entries := drain(t, pager)

	got := map[string]polystore.EntryMode{}
	for _, entry := range entries {
		got[entry.Path()] = entry.Metadata().Mode()
	}
	assert.Len(t, got, 2, "marker and children must collapse into one dir entry: %v", got)
	assert.Equal(t, polystore.EntryModeFile, got["a/x.txt"])
	assert.Equal(t, polystore.EntryModeDir, got["a/b/"])
}

func TestListRecursive(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(newFakeStore(fullCaps()), "/")

	require.NoError(t, b.Write(ctx, "a/x.txt", []byte("x")))
	require.NoError(t, b.Write(ctx, "a/b/c.txt", []byte("c")))

	pager, err := b.List(ctx, "a/", polystore.ListArgs{Recursive: true})
	require.NoError(t, err)
	entries := drain(t, pager)

	var paths []string
	for _, entry := range entries {
		paths = append(paths, entry.Path())
	}
	assert.ElementsMatch(t, []string{"a/x.txt", "a/b/c.txt"}, paths)
}

func TestListExcludesListedDir(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(newFakeStore(fullCaps()), "/")

	require.NoError(t, b.CreateDir(ctx, "a/"))
	require.NoError(t, b.Write(ctx, "a/x.txt", []byte("x")))

	pager, err := b.List(ctx, "a/", polystore.ListArgs{})
	require.NoError(t, err)
	entries := drain(t, pager)

	require.Len(t, entries, 1)
	assert.Equal(t, "a/x.txt", entries[0].Path())
}

func TestRenameMovesValue(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(fullCaps())
	b := NewBackend(store, "/")

	require.NoError(t, b.Write(ctx, "src.txt", []byte("payload")))
	require.NoError(t, b.Rename(ctx, "src.txt", "dst.txt"))

	_, srcLeft := store.data["/src.txt"]
	assert.False(t, srcLeft, "source key must be removed")

	value, ok := store.data["/dst.txt"]
	require.True(t, ok)
	assert.Equal(t, "payload", string(value))
}

func TestCopyMissingSource(t *testing.T) {
	b := NewBackend(newFakeStore(fullCaps()), "/")
	err := b.Copy(context.Background(), "absent.txt", "dst.txt")
	assert.Equal(t, polystore.KindNotFound, polystore.KindOf(err))
}

func TestCloseForwards(t *testing.T) {
	store := newFakeStore(fullCaps())
	b := NewBackend(store, "/")
	require.NoError(t, b.Close())
	assert.True(t, store.closed)
}

func drain(t *testing.T, pager polystore.Pager) []polystore.Entry {
	t.Helper()
	ctx := context.Background()
	var entries []polystore.Entry
	for {
		page, err := pager.NextPage(ctx)
		if errors.Is(err, io.EOF) {
			return entries
		}
		if err != nil {
			t.Fatalf("NextPage: %v", err)
		}
		entries = append(entries, page...)
	}
}
