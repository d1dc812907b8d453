package layers

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/polystore/polystore"
)

// Metrics returns a layer that records operation counts, latencies, and
// error counts:
//
//	polystore_requests_total{operation,scheme}
//	polystore_requests_duration_seconds{operation,scheme}
//	polystore_errors_total{operation,kind}
//
// The collectors are registered once, when the layer is created. Create
// one Metrics layer per registry; it may then be applied to any number
// of operators, whose schemes separate the series.
func Metrics(reg prometheus.Registerer) polystore.Layer {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "polystore",
		Name:      "requests_total",
		Help:      "Total number of storage operations.",
	}, []string{"operation", "scheme"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "polystore",
		Name:      "requests_duration_seconds",
		Help:      "Storage operation latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "scheme"})
	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "polystore",
		Name:      "errors_total",
		Help:      "Total number of failed storage operations by error kind.",
	}, []string{"operation", "kind"})
	reg.MustRegister(requests, duration, errs)

	return func(inner polystore.Accessor) polystore.Accessor {
		return &metricsAccessor{
			inner:    inner,
			scheme:   inner.Info().Scheme,
			requests: requests,
			duration: duration,
			errs:     errs,
		}
	}
}

type metricsAccessor struct {
	inner    polystore.Accessor
	scheme   string
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	errs     *prometheus.CounterVec
}

func (m *metricsAccessor) Info() polystore.AccessorInfo {
	return m.inner.Info()
}

func (m *metricsAccessor) Close() error {
	return closeInner(m.inner)
}

// observe starts timing an operation; the returned func records the
// outcome.
func (m *metricsAccessor) observe(op string) func(error) {
	start := time.Now()
	m.requests.WithLabelValues(op, m.scheme).Inc()
	return func(err error) {
		m.duration.WithLabelValues(op, m.scheme).Observe(time.Since(start).Seconds())
		if err != nil {
			m.errs.WithLabelValues(op, polystore.KindOf(err).String()).Inc()
		}
	}
}

func (m *metricsAccessor) Stat(ctx context.Context, path string) (*polystore.Metadata, error) {
	done := m.observe("stat")
	meta, err := m.inner.Stat(ctx, path)
	done(err)
	return meta, err
}

func (m *metricsAccessor) Read(ctx context.Context, path string) ([]byte, error) {
	done := m.observe("read")
	data, err := m.inner.Read(ctx, path)
	done(err)
	return data, err
}

func (m *metricsAccessor) Write(ctx context.Context, path string, data []byte) error {
	done := m.observe("write")
	err := m.inner.Write(ctx, path, data)
	done(err)
	return err
}

func (m *metricsAccessor) Delete(ctx context.Context, path string) error {
	done := m.observe("delete")
	err := m.inner.Delete(ctx, path)
	done(err)
	return err
}

func (m *metricsAccessor) CreateDir(ctx context.Context, path string) error {
	done := m.observe("create_dir")
	err := m.inner.CreateDir(ctx, path)
	done(err)
	return err
}

func (m *metricsAccessor) Copy(ctx context.Context, src, dst string) error {
	done := m.observe("copy")
	err := m.inner.Copy(ctx, src, dst)
	done(err)
	return err
}

func (m *metricsAccessor) Rename(ctx context.Context, src, dst string) error {
	done := m.observe("rename")
	err := m.inner.Rename(ctx, src, dst)
	done(err)
	return err
}

func (m *metricsAccessor) List(ctx context.Context, path string, args polystore.ListArgs) (polystore.Pager, error) {
	done := m.observe("list")
	pager, err := m.inner.List(ctx, path, args)
	done(err)
	return pager, err
}
