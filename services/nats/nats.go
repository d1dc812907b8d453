// Package nats provides the "nats" scheme: objects stored in a NATS
// JetStream key-value bucket through the kv bridge.
//
// Bucket keys admit only a narrow character set, so store keys are
// written base64url-encoded; values are stored raw. Bucket keys that do
// not decode are ignored on scans, which lets a bucket be shared with
// other writers.
package nats

import (
	"context"
	"encoding/base64"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/polystore/polystore"
	"github.com/polystore/polystore/kv"
)

// Scheme is the registry name of this service.
const Scheme = "nats"

// bucketTimeout bounds the bucket lookup during construction.
const bucketTimeout = 10 * time.Second

func init() {
	polystore.Register(Scheme, func(options map[string]string) (polystore.Accessor, error) {
		var cfg Config
		if err := polystore.DecodeOptions(options, &cfg); err != nil {
			return nil, err
		}
		return New(cfg)
	})
}

// Config holds the options of the nats service.
type Config struct {
	// URL is the server address, e.g. "nats://localhost:4222".
	// Required.
	URL string `mapstructure:"url"`

	// Bucket is the key-value bucket holding the objects, created on
	// first use. Required.
	Bucket string `mapstructure:"bucket"`

	// Root is the path prefix all operations are scoped under.
	Root string `mapstructure:"root"`
}

// New connects to the server, opens or creates the bucket, and
// constructs the accessor.
func New(cfg Config) (polystore.Accessor, error) {
	if cfg.URL == "" {
		return nil, polystore.NewError(polystore.KindConfigInvalid, "nats service requires a url")
	}
	if cfg.Bucket == "" {
		return nil, polystore.NewError(polystore.KindConfigInvalid, "nats service requires a bucket")
	}

	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, polystore.NewError(polystore.KindConfigInvalid, "connecting to nats server").WithCause(err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, polystore.NewError(polystore.KindConfigInvalid, "opening jetstream context").WithCause(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), bucketTimeout)
	defer cancel()
	bucket, err := js.KeyValue(ctx, cfg.Bucket)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		bucket, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      cfg.Bucket,
			Description: "polystore objects",
		})
	}
	if err != nil {
		conn.Close()
		return nil, polystore.NewError(polystore.KindConfigInvalid, "opening nats bucket").WithCause(err)
	}

	return kv.NewBackend(&store{conn: conn, bucket: bucket, name: cfg.Bucket}, cfg.Root), nil
}

type store struct {
	conn   *nats.Conn
	bucket jetstream.KeyValue
	name   string
}

func (s *store) Info() kv.Info {
	return kv.Info{
		Scheme:     Scheme,
		Name:       s.name,
		Capability: kv.Capability{Get: true, Set: true, Delete: true, Scan: true},
	}
}

func (s *store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := s.bucket.Get(ctx, encodeKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storeErr(err)
	}
	return entry.Value(), true, nil
}

func (s *store) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.bucket.Put(ctx, encodeKey(key), value)
	return storeErr(err)
}

func (s *store) Delete(ctx context.Context, key string) error {
	// Purge rather than Delete, so removed keys do not pile up as
	// tombstones in the underlying stream.
	err := s.bucket.Purge(ctx, encodeKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return storeErr(err)
}

func (s *store) Scan(ctx context.Context, prefix string) ([]string, error) {
	// The bucket has no ordered range scan, so list every key and
	// filter client-side.
	raw, err := s.bucket.Keys(ctx)
	if errors.Is(err, jetstream.ErrNoKeysFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(err)
	}

	var keys []string
	for _, r := range raw {
		key, ok := decodeKey(r)
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *store) Close() error {
	s.conn.Close()
	return nil
}

// encodeKey maps a store key onto the bucket's restricted key space.
func encodeKey(key string) string {
	return base64.URLEncoding.EncodeToString([]byte(key))
}

func decodeKey(raw string) (string, bool) {
	b, err := base64.URLEncoding.DecodeString(raw)
	if err != nil {
		return "", false
	}
	return string(b), true
}

func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return polystore.NewError(polystore.KindInternal, "nats operation failed").WithCause(err)
}
