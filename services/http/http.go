// Package http provides the "http" scheme: a read-only view of objects
// served by a plain HTTP server.
//
// Only stat and read are supported. Servers expose no directory model,
// so any directory path stats as a directory without a request, and
// listing is unsupported.
package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/polystore/polystore"
)

// Scheme is the registry name of this service.
const Scheme = "http"

func init() {
	polystore.Register(Scheme, func(options map[string]string) (polystore.Accessor, error) {
		var cfg Config
		if err := polystore.DecodeOptions(options, &cfg); err != nil {
			return nil, err
		}
		return New(cfg)
	})
}

// Config holds the options of the http service.
type Config struct {
	// Endpoint is the base URL objects are served under, e.g.
	// "https://static.example.com". Required.
	Endpoint string `mapstructure:"endpoint"`

	// Username and Password enable basic authentication when set.
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// Token is sent as a bearer token when set, taking precedence over
	// basic authentication.
	Token string `mapstructure:"token"`

	// Root is the path prefix all operations are scoped under.
	Root string `mapstructure:"root"`

	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client `mapstructure:"-"`
}

// New constructs a read-only accessor for the endpoint.
func New(cfg Config) (polystore.Accessor, error) {
	if cfg.Endpoint == "" {
		return nil, polystore.NewError(polystore.KindConfigInvalid, "http service requires an endpoint")
	}
	base, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, polystore.NewError(polystore.KindConfigInvalid, "parsing http endpoint").WithCause(err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, polystore.Errorf(polystore.KindConfigInvalid, "unsupported endpoint scheme %q", base.Scheme)
	}
	base.Path = strings.TrimSuffix(base.Path, "/")

	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	root := polystore.NormalizeRoot(cfg.Root)
	return &accessor{
		client: client,
		base:   base,
		cfg:    cfg,
		root:   root,
		info: polystore.AccessorInfo{
			Scheme:     Scheme,
			Name:       base.Host,
			Root:       root,
			Capability: polystore.Capability{Stat: true, Read: true},
		},
	}, nil
}

type accessor struct {
	client *http.Client
	base   *url.URL
	cfg    Config
	root   string
	info   polystore.AccessorInfo
}

func (a *accessor) Info() polystore.AccessorInfo {
	return a.info
}

// urlFor resolves a normalized path to the absolute request URL.
func (a *accessor) urlFor(path string) string {
	u := *a.base
	u.Path = a.base.Path + polystore.JoinRoot(a.root, path)
	return u.String()
}

func (a *accessor) newRequest(ctx context.Context, method, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.urlFor(path), nil)
	if err != nil {
		return nil, polystore.NewError(polystore.KindConfigInvalid, "building http request").WithCause(err)
	}
	switch {
	case a.cfg.Token != "":
		req.Header.Set("Authorization", "Bearer "+a.cfg.Token)
	case a.cfg.Username != "":
		req.SetBasicAuth(a.cfg.Username, a.cfg.Password)
	}
	return req, nil
}

func (a *accessor) Stat(ctx context.Context, path string) (*polystore.Metadata, error) {
	// Servers have no directory objects, so any directory path stats
	// as one without a request.
	if polystore.IsDirPath(path) {
		return polystore.NewMetadata(polystore.EntryModeDir), nil
	}

	req, err := a.newRequest(ctx, http.MethodHead, path)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, requestErr(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusErr(resp)
	}

	meta := polystore.NewMetadata(polystore.EntryModeFile)
	if resp.ContentLength >= 0 {
		meta.WithContentLength(resp.ContentLength)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		meta.WithContentType(ct)
	}
	if etag := resp.Header.Get("ETag"); etag != "" {
		meta.WithETag(etag)
	}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			meta.WithLastModified(t)
		}
	}
	return meta, nil
}

func (a *accessor) Read(ctx context.Context, path string) ([]byte, error) {
	req, err := a.newRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, requestErr(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusErr(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, requestErr(err)
	}
	return data, nil
}

func (a *accessor) Write(ctx context.Context, path string, data []byte) error {
	return errReadOnly
}

func (a *accessor) Delete(ctx context.Context, path string) error {
	return errReadOnly
}

func (a *accessor) CreateDir(ctx context.Context, path string) error {
	return errReadOnly
}

func (a *accessor) Copy(ctx context.Context, src, dst string) error {
	return errReadOnly
}

func (a *accessor) Rename(ctx context.Context, src, dst string) error {
	return errReadOnly
}

func (a *accessor) List(ctx context.Context, path string, args polystore.ListArgs) (polystore.Pager, error) {
	return nil, errReadOnly
}

var errReadOnly = polystore.NewError(polystore.KindUnsupported, "http service is read-only")

func requestErr(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return polystore.NewError(polystore.KindInternal, "http request failed").WithCause(err)
}

// statusErr maps a non-2xx response to the matching error kind.
func statusErr(resp *http.Response) error {
	var kind polystore.ErrorKind
	switch resp.StatusCode {
	case http.StatusNotFound, http.StatusGone:
		kind = polystore.KindNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = polystore.KindPermissionDenied
	case http.StatusTooManyRequests:
		kind = polystore.KindRateLimited
	default:
		kind = polystore.KindInternal
	}
	err := polystore.Errorf(kind, "unexpected status %s", resp.Status)
	if resp.StatusCode >= 500 {
		err.SetTemporary()
	}
	return err
}
