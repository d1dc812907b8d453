package handle

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGet(t *testing.T) {
	r := NewRegistry[string]()

	h1 := r.Put("first")
	h2 := r.Put("second")
	assert.NotZero(t, h1)
	assert.NotZero(t, h2)
	assert.NotEqual(t, h1, h2)

	v, err := r.Get(h1)
	require.NoError(t, err)
	assert.Equal(t, "first", v)

	v, err = r.Get(h2)
	require.NoError(t, err)
	assert.Equal(t, "second", v)

	assert.Equal(t, 2, r.Len())
}

func TestRelease(t *testing.T) {
	r := NewRegistry[int]()
	h := r.Put(42)

	v, err := r.Release(h)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 0, r.Len())

	_, err = r.Release(h)
	assert.ErrorIs(t, err, ErrReleased)

	_, err = r.Get(h)
	assert.ErrorIs(t, err, ErrReleased)
}

func TestInvalidHandle(t *testing.T) {
	r := NewRegistry[int]()

	_, err := r.Get(0)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = r.Get(12345)
	assert.ErrorIs(t, err, ErrInvalid)

	r.Put(1)
	_, err = r.Get(999)
	assert.ErrorIs(t, err, ErrInvalid, "beyond the watermark means never issued")
}

func TestConcurrentPut(t *testing.T) {
	const goroutines = 16
	const puts = 200

	r := NewRegistry[int]()
	handles := make([][]Handle, goroutines)

	var wg sync.WaitGroup
	for g := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range puts {
				handles[g] = append(handles[g], r.Put(i))
			}
		}()
	}
	wg.Wait()

	seen := make(map[Handle]bool)
	for _, hs := range handles {
		for _, h := range hs {
			assert.False(t, seen[h], "handle %d issued twice", h)
			seen[h] = true
		}
	}
	assert.Equal(t, goroutines*puts, r.Len())
}
