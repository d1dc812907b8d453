package layers_test

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/polystore/polystore"
	"github.com/polystore/polystore/layers"
	"github.com/polystore/polystore/services/memory"
)

// flakyAccessor fails Read with the scripted errors, one per call,
// before delegating to the wrapped backend.
type flakyAccessor struct {
	polystore.Accessor
	mu    sync.Mutex
	errs  []error
	calls int
}

func (f *flakyAccessor) Read(ctx context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	var err error
	if len(f.errs) > 0 {
		err = f.errs[0]
		f.errs = f.errs[1:]
	}
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Accessor.Read(ctx, path)
}

func (f *flakyAccessor) readCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestLoggingEmitsEvents(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	op := polystore.NewOperatorFrom(memory.New(memory.Config{})).
		Layer(layers.Logging(logger))
	t.Cleanup(func() { op.Close() })
	ctx := context.Background()

	require.NoError(t, op.Write(ctx, "a.txt", []byte("x")))
	assert.Contains(t, buf.String(), `"op":"write"`)
	assert.Contains(t, buf.String(), `"level":"debug"`)

	buf.Reset()
	_, err := op.Stat(ctx, "missing.txt")
	require.Error(t, err)
	assert.Contains(t, buf.String(), `"kind":"NotFound"`)
	assert.NotContains(t, buf.String(), `"level":"warn"`, "misses are routine, not warnings")
}

func TestLoggingWarnsOnFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	flaky := &flakyAccessor{
		Accessor: memory.New(memory.Config{}),
		errs:     []error{polystore.NewError(polystore.KindInternal, "disk on fire")},
	}
	op := polystore.NewOperatorFrom(flaky).Layer(layers.Logging(logger))
	t.Cleanup(func() { op.Close() })

	_, err := op.Read(context.Background(), "a.txt")
	require.Error(t, err)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"kind":"Internal"`)
}

func TestMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()

	op := polystore.NewOperatorFrom(memory.New(memory.Config{})).
		Layer(layers.Metrics(reg))
	t.Cleanup(func() { op.Close() })
	ctx := context.Background()

	require.NoError(t, op.Write(ctx, "a.txt", []byte("x")))
	require.NoError(t, op.Write(ctx, "b.txt", []byte("y")))
	_, err := op.Read(ctx, "a.txt")
	require.NoError(t, err)
	_, err = op.Stat(ctx, "missing.txt")
	require.Error(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	assert.Equal(t, 2.0, counterValue(t, families, "polystore_requests_total",
		map[string]string{"operation": "write", "scheme": "memory"}))
	assert.Equal(t, 1.0, counterValue(t, families, "polystore_requests_total",
		map[string]string{"operation": "read", "scheme": "memory"}))
	assert.Equal(t, 1.0, counterValue(t, families, "polystore_errors_total",
		map[string]string{"operation": "stat", "kind": "NotFound"}))

	for _, mf := range families {
		if mf.GetName() == "polystore_requests_duration_seconds" {
			return
		}
	}
	t.Error("duration histogram not registered")
}

// counterValue returns the value of the counter matching every given
// label, or 0 when no series matches.
func counterValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metric:
		for _, m := range mf.GetMetric() {
			for k, v := range labels {
				found := false
				for _, lp := range m.GetLabel() {
					if lp.GetName() == k && lp.GetValue() == v {
						found = true
						break
					}
				}
				if !found {
					continue metric
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestRetryRetriesTemporary(t *testing.T) {
	flaky := &flakyAccessor{
		Accessor: memory.New(memory.Config{}),
		errs: []error{
			polystore.NewError(polystore.KindRateLimited, "throttled"),
			polystore.NewError(polystore.KindRateLimited, "throttled"),
		},
	}
	op := polystore.NewOperatorFrom(flaky).
		Layer(layers.Retry(layers.WithInitialInterval(time.Millisecond), layers.WithMaxRetries(5)))
	t.Cleanup(func() { op.Close() })
	ctx := context.Background()

	require.NoError(t, op.Write(ctx, "a.txt", []byte("eventually")))

	data, err := op.Read(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "eventually", string(data))
	assert.Equal(t, 3, flaky.readCalls())
}

func TestRetrySkipsPermanent(t *testing.T) {
	flaky := &flakyAccessor{
		Accessor: memory.New(memory.Config{}),
		errs:     []error{polystore.NewError(polystore.KindInternal, "corrupt block")},
	}
	op := polystore.NewOperatorFrom(flaky).
		Layer(layers.Retry(layers.WithInitialInterval(time.Millisecond)))
	t.Cleanup(func() { op.Close() })

	_, err := op.Read(context.Background(), "a.txt")
	require.Error(t, err)
	assert.Equal(t, polystore.KindInternal, polystore.KindOf(err))
	assert.Equal(t, 1, flaky.readCalls(), "permanent errors must not be retried")
}

func TestRetryGivesUp(t *testing.T) {
	var errs []error
	for range 6 {
		errs = append(errs, polystore.NewError(polystore.KindRateLimited, "throttled"))
	}
	flaky := &flakyAccessor{Accessor: memory.New(memory.Config{}), errs: errs}
	op := polystore.NewOperatorFrom(flaky).
		Layer(layers.Retry(layers.WithInitialInterval(time.Millisecond), layers.WithMaxRetries(2)))
	t.Cleanup(func() { op.Close() })

	_, err := op.Read(context.Background(), "a.txt")
	require.Error(t, err)
	assert.Equal(t, polystore.KindRateLimited, polystore.KindOf(err))
	assert.Equal(t, 3, flaky.readCalls(), "initial attempt plus two retries")
}

// slowAccessor tracks how many Reads overlap.
type slowAccessor struct {
	polystore.Accessor
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (s *slowAccessor) Read(ctx context.Context, path string) ([]byte, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)
	return s.Accessor.Read(ctx, path)
}

func TestConcurrentLimit(t *testing.T) {
	slow := &slowAccessor{Accessor: memory.New(memory.Config{})}
	op := polystore.NewOperatorFrom(slow).Layer(layers.ConcurrentLimit(2))
	t.Cleanup(func() { op.Close() })
	ctx := context.Background()

	require.NoError(t, op.Write(ctx, "a.txt", []byte("shared")))

	g, gctx := errgroup.WithContext(ctx)
	for range 8 {
		g.Go(func() error {
			_, err := op.Read(gctx, "a.txt")
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.LessOrEqual(t, slow.peak.Load(), int32(2))
}

// closeRecorder notes whether Close reached the backend.
type closeRecorder struct {
	polystore.Accessor
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestCloseReachesBackendThroughStack(t *testing.T) {
	rec := &closeRecorder{Accessor: memory.New(memory.Config{})}
	op := polystore.NewOperatorFrom(rec).Layer(
		layers.Logging(zerolog.Nop()),
		layers.Metrics(prometheus.NewRegistry()),
		layers.Retry(),
		layers.ConcurrentLimit(4),
	)

	require.NoError(t, op.Close())
	assert.True(t, rec.closed, "close must traverse every layer")
}
