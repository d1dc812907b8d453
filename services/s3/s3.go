// Package s3 provides the "s3" scheme: objects stored in an S3 or
// MinIO compatible bucket through minio-go.
//
// Directories are virtual, in the usual S3 fashion: a trailing-slash
// zero-byte object acts as the marker, and listing groups keys by the
// "/" delimiter. Copy and rename are server-side; object bytes never
// travel through the client.
package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/polystore/polystore"
)

// Scheme is the registry name of this service.
const Scheme = "s3"

// listPageSize is the number of entries handed out per pager fetch.
const listPageSize = 200

func init() {
	polystore.Register(Scheme, func(options map[string]string) (polystore.Accessor, error) {
		var cfg Config
		if err := polystore.DecodeOptions(options, &cfg); err != nil {
			return nil, err
		}
		return New(cfg)
	})
}

// Config holds the options of the s3 service.
type Config struct {
	// Endpoint is the server address, e.g. "localhost:9000" or
	// "s3.amazonaws.com".
	Endpoint string `mapstructure:"endpoint"`

	// Bucket is the bucket all objects live in. Required.
	Bucket string `mapstructure:"bucket"`

	// AccessKeyID and SecretAccessKey authenticate the client.
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`

	// Region is the bucket region, if the endpoint requires one.
	Region string `mapstructure:"region"`

	// Secure selects HTTPS.
	Secure bool `mapstructure:"secure"`

	// Root is the key prefix all paths are scoped under.
	Root string `mapstructure:"root"`

	// Client optionally injects a pre-configured client; Endpoint and
	// the credentials are then ignored. Not reachable through string
	// options, used by tests and embedding programs.
	Client *minio.Client `mapstructure:"-"`
}

type accessor struct {
	client *minio.Client
	bucket string
	root   string
	info   polystore.AccessorInfo
}

// New constructs an S3 accessor from the configuration.
func New(cfg Config) (polystore.Accessor, error) {
	if cfg.Bucket == "" {
		return nil, polystore.NewError(polystore.KindConfigInvalid, "s3 service requires a bucket")
	}
	client := cfg.Client
	if client == nil {
		if cfg.Endpoint == "" {
			return nil, polystore.NewError(polystore.KindConfigInvalid, "s3 service requires an endpoint")
		}
		var err error
		client, err = minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
			Secure: cfg.Secure,
			Region: cfg.Region,
		})
		if err != nil {
			return nil, polystore.NewError(polystore.KindConfigInvalid, "building s3 client").WithCause(err)
		}
	}
	root := polystore.NormalizeRoot(cfg.Root)
	return &accessor{
		client: client,
		bucket: cfg.Bucket,
		root:   root,
		info: polystore.AccessorInfo{
			Scheme: Scheme,
			Name:   cfg.Bucket,
			Root:   root,
			Capability: polystore.Capability{
				Stat: true, Read: true, Write: true, CreateDir: true,
				Delete: true, Copy: true, Rename: true,
				List: true, ListWithRecursive: true,
			},
		},
	}, nil
}

func (a *accessor) Info() polystore.AccessorInfo {
	return a.info
}

// key maps a normalized path to the object key. Keys carry no leading
// slash; directory keys keep the trailing one.
func (a *accessor) key(path string) string {
	return strings.TrimPrefix(polystore.JoinRoot(a.root, path), "/")
}

// rootKey is the key prefix of the accessor root, "" for the bucket
// root.
func (a *accessor) rootKey() string {
	return strings.TrimPrefix(a.root, "/")
}

func (a *accessor) Stat(ctx context.Context, path string) (*polystore.Metadata, error) {
	if path == "/" {
		return polystore.NewMetadata(polystore.EntryModeDir), nil
	}
	key := a.key(path)
	info, err := a.client.StatObject(ctx, a.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		if strings.HasSuffix(key, "/") {
			return polystore.NewMetadata(polystore.EntryModeDir).
				WithLastModified(info.LastModified), nil
		}
		return polystore.NewMetadata(polystore.EntryModeFile).
			WithContentLength(info.Size).
			WithLastModified(info.LastModified).
			WithContentType(info.ContentType).
			WithETag(info.ETag), nil
	}
	terr := translate(err)
	if !polystore.IsNotFound(terr) || !strings.HasSuffix(key, "/") {
		return nil, terr
	}
	// No marker object. The directory still exists virtually if any key
	// lives under the prefix.
	probe, cancel := context.WithCancel(ctx)
	defer cancel()
	for obj := range a.client.ListObjects(probe, a.bucket, minio.ListObjectsOptions{
		Prefix:  key,
		MaxKeys: 1,
	}) {
		if obj.Err != nil {
			return nil, translate(obj.Err)
		}
		return polystore.NewMetadata(polystore.EntryModeDir), nil
	}
	return nil, terr
}

func (a *accessor) Read(ctx context.Context, path string) ([]byte, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, a.key(path), minio.GetObjectOptions{})
	if err != nil {
		return nil, translate(err)
	}
	defer func() { _ = obj.Close() }()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, translate(err)
	}
	return data, nil
}

func (a *accessor) Write(ctx context.Context, path string, data []byte) error {
	_, err := a.client.PutObject(ctx, a.bucket, a.key(path),
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	return translate(err)
}

func (a *accessor) Delete(ctx context.Context, path string) error {
	if path == "/" {
		return nil
	}
	return translate(a.client.RemoveObject(ctx, a.bucket, a.key(path), minio.RemoveObjectOptions{}))
}

func (a *accessor) CreateDir(ctx context.Context, path string) error {
	if path == "/" {
		return nil
	}
	_, err := a.client.PutObject(ctx, a.bucket, a.key(path),
		bytes.NewReader(nil), 0, minio.PutObjectOptions{})
	return translate(err)
}

func (a *accessor) Copy(ctx context.Context, src, dst string) error {
	_, err := a.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: a.bucket, Object: a.key(dst)},
		minio.CopySrcOptions{Bucket: a.bucket, Object: a.key(src)})
	return translate(err)
}

func (a *accessor) Rename(ctx context.Context, src, dst string) error {
	if err := a.Copy(ctx, src, dst); err != nil {
		return err
	}
	return translate(a.client.RemoveObject(ctx, a.bucket, a.key(src), minio.RemoveObjectOptions{}))
}

func (a *accessor) List(ctx context.Context, path string, args polystore.ListArgs) (polystore.Pager, error) {
	dirKey := a.key(path)
	ch := a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{
		Prefix:    dirKey,
		Recursive: args.Recursive,
	})
	return &objectPager{ch: ch, rootKey: a.rootKey(), dirKey: dirKey}, nil
}

// objectPager batches the ListObjects channel into pages. Non-recursive
// listings arrive pre-grouped: the server's common prefixes surface as
// trailing-slash keys.
type objectPager struct {
	ch      <-chan minio.ObjectInfo
	rootKey string
	dirKey  string
	drained bool
}

func (p *objectPager) NextPage(ctx context.Context) ([]polystore.Entry, error) {
	if p.drained {
		return nil, io.EOF
	}
	entries := make([]polystore.Entry, 0, listPageSize)
	for len(entries) < listPageSize {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case obj, ok := <-p.ch:
			if !ok {
				p.drained = true
				if len(entries) == 0 {
					return nil, io.EOF
				}
				return entries, nil
			}
			if obj.Err != nil {
				return nil, translate(obj.Err)
			}
			// The listed directory's own marker is not a child.
			if obj.Key == p.dirKey {
				continue
			}
			rel := strings.TrimPrefix(obj.Key, p.rootKey)
			if rel == "" {
				continue
			}
			if strings.HasSuffix(rel, "/") {
				entries = append(entries, polystore.NewEntry(rel,
					polystore.NewMetadata(polystore.EntryModeDir)))
				continue
			}
			entries = append(entries, polystore.NewEntry(rel,
				polystore.NewMetadata(polystore.EntryModeFile).
					WithContentLength(obj.Size).
					WithLastModified(obj.LastModified).
					WithETag(obj.ETag)))
		}
	}
	return entries, nil
}

// translate maps minio error responses onto the portable error kinds.
// Context cancellation passes through untouched.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return polystore.NewError(polystore.KindNotFound, "no such object").WithCause(err)
	case "AccessDenied":
		return polystore.NewError(polystore.KindPermissionDenied, "access denied").WithCause(err)
	case "BucketAlreadyExists", "BucketAlreadyOwnedByYou":
		return polystore.NewError(polystore.KindAlreadyExists, "bucket already exists").WithCause(err)
	case "SlowDown":
		return polystore.NewError(polystore.KindRateLimited, "server asked to slow down").WithCause(err)
	default:
		return polystore.NewError(polystore.KindInternal, "s3 request failed").WithCause(err)
	}
}
