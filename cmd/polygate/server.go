package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/polystore/polystore"
)

type server struct {
	cfg      *Config
	op       *polystore.Operator
	logger   zerolog.Logger
	registry *prometheus.Registry
}

func newServer(cfg *Config, op *polystore.Operator, logger zerolog.Logger, registry *prometheus.Registry) *server {
	return &server{cfg: cfg, op: op, logger: logger, registry: registry}
}

// handler assembles the route table with recovery, access logging and
// request id middleware around it.
func (s *server) handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.cfg.Metrics.Enabled {
		r.Handle(s.cfg.Metrics.Path,
			promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	r.HandleFunc("/v1/{path:.*}", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/v1/{path:.*}", s.handleHead).Methods(http.MethodHead)
	r.HandleFunc("/v1/{path:.*}", s.handlePut).Methods(http.MethodPut)
	r.HandleFunc("/v1/{path:.*}", s.handleDelete).Methods(http.MethodDelete)

	h := s.withRequestID(r)
	h = handlers.LoggingHandler(accessLog{logger: s.logger}, h)
	return handlers.RecoveryHandler()(h)
}

// withRequestID tags every response with a unique id, so a client
// report can be matched to the access log. An id supplied by the caller
// is echoed back instead.
func (s *server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

// accessLog feeds gorilla's Apache-format access lines into zerolog.
type accessLog struct {
	logger zerolog.Logger
}

func (a accessLog) Write(p []byte) (int, error) {
	a.logger.Debug().Msg(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

func objectPath(r *http.Request) string {
	return mux.Vars(r)["path"]
}

// isDirRequest reports whether the request addresses a directory. The
// empty path is the root.
func isDirRequest(path string) bool {
	return path == "" || strings.HasSuffix(path, "/")
}

func (s *server) handleGet(w http.ResponseWriter, r *http.Request) {
	path := objectPath(r)
	if isDirRequest(path) {
		s.handleList(w, r, path)
		return
	}
	ctx := r.Context()
	meta, err := s.op.Stat(ctx, path)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var (
		data   []byte
		status = http.StatusOK
	)
	offset, length, partial := parseRange(r.Header.Get("Range"))
	if partial {
		data, err = s.op.ReadRange(ctx, path, offset, length)
		status = http.StatusPartialContent
	} else {
		data, err = s.op.Read(ctx, path)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	if partial && len(data) == 0 {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", meta.ContentLength()))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	writeMetaHeaders(w, meta)
	if partial {
		w.Header().Set("Content-Range",
			fmt.Sprintf("bytes %d-%d/%d", offset, offset+int64(len(data))-1, meta.ContentLength()))
	}
	w.WriteHeader(status)
	w.Write(data)
}

func (s *server) handleHead(w http.ResponseWriter, r *http.Request) {
	meta, err := s.op.Stat(r.Context(), objectPath(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeMetaHeaders(w, meta)
	if meta.IsFile() {
		w.Header().Set("Content-Length", strconv.FormatInt(meta.ContentLength(), 10))
	}
	w.WriteHeader(http.StatusOK)
}

func (s *server) handlePut(w http.ResponseWriter, r *http.Request) {
	path := objectPath(r)
	ctx := r.Context()
	if isDirRequest(path) {
		if err := s.op.CreateDir(ctx, path); err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusCreated)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: errorDetail{
				Kind:    polystore.KindConfigInvalid.String(),
				Message: fmt.Sprintf("request body exceeds %d bytes", s.cfg.MaxBodyBytes),
			}})
			return
		}
		s.writeError(w, err)
		return
	}
	if err := s.op.Write(ctx, path, body); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.op.Delete(r.Context(), objectPath(r)); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type listResponse struct {
	Path    string          `json:"path"`
	Entries []entryResponse `json:"entries"`
}

type entryResponse struct {
	Path         string     `json:"path"`
	Mode         string     `json:"mode"`
	Size         int64      `json:"size"`
	LastModified *time.Time `json:"last_modified,omitempty"`
	ContentType  string     `json:"content_type,omitempty"`
	ETag         string     `json:"etag,omitempty"`
}

func (s *server) handleList(w http.ResponseWriter, r *http.Request, path string) {
	ctx := r.Context()
	var opts []polystore.ListOption
	if r.URL.Query().Get("recursive") == "true" {
		opts = append(opts, polystore.WithRecursive())
	}
	lister, err := s.op.List(ctx, path, opts...)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer lister.Close()

	entries, err := lister.All(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := listResponse{Path: "/" + path, Entries: make([]entryResponse, 0, len(entries))}
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, toEntryResponse(entry))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func toEntryResponse(entry polystore.Entry) entryResponse {
	er := entryResponse{Path: entry.Path(), Mode: "?"}
	meta := entry.Metadata()
	if meta == nil {
		return er
	}
	switch meta.Mode() {
	case polystore.EntryModeFile:
		er.Mode = "file"
	case polystore.EntryModeDir:
		er.Mode = "dir"
	}
	er.Size = meta.ContentLength()
	if lm := meta.LastModified(); !lm.IsZero() {
		utc := lm.UTC()
		er.LastModified = &utc
	}
	er.ContentType = meta.ContentType()
	er.ETag = meta.ETag()
	return er
}

type healthResponse struct {
	Status string `json:"status"`
	Scheme string `json:"scheme,omitempty"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.op.Available(r.Context()) {
		s.writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Scheme: s.op.Info().Scheme})
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	kind := polystore.KindOf(err)
	s.writeJSON(w, httpStatus(kind), errorResponse{Error: errorDetail{
		Kind:    kind.String(),
		Message: err.Error(),
	}})
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("encoding response")
	}
}

// httpStatus maps an error kind onto the response status.
func httpStatus(kind polystore.ErrorKind) int {
	switch kind {
	case polystore.KindNotFound:
		return http.StatusNotFound
	case polystore.KindPermissionDenied:
		return http.StatusForbidden
	case polystore.KindAlreadyExists:
		return http.StatusConflict
	case polystore.KindIsADirectory, polystore.KindNotADirectory, polystore.KindIsSameFile, polystore.KindConfigInvalid:
		return http.StatusBadRequest
	case polystore.KindRateLimited:
		return http.StatusTooManyRequests
	case polystore.KindUnsupported:
		return http.StatusNotImplemented
	case polystore.KindIndeterminate:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// parseRange understands the single-range forms bytes=a-b and bytes=a-.
// Anything else is served whole, which RFC 7233 permits.
func parseRange(header string) (offset, length int64, ok bool) {
	spec, found := strings.CutPrefix(header, "bytes=")
	if !found || strings.Contains(spec, ",") {
		return 0, 0, false
	}
	start, end, found := strings.Cut(spec, "-")
	if !found {
		return 0, 0, false
	}
	offset, err := strconv.ParseInt(start, 10, 64)
	if err != nil || offset < 0 {
		return 0, 0, false
	}
	if end == "" {
		return offset, -1, true
	}
	last, err := strconv.ParseInt(end, 10, 64)
	if err != nil || last < offset {
		return 0, 0, false
	}
	return offset, last - offset + 1, true
}

func writeMetaHeaders(w http.ResponseWriter, meta *polystore.Metadata) {
	h := w.Header()
	if ct := meta.ContentType(); ct != "" {
		h.Set("Content-Type", ct)
	}
	if etag := meta.ETag(); etag != "" {
		h.Set("ETag", etag)
	}
	if lm := meta.LastModified(); !lm.IsZero() {
		h.Set("Last-Modified", lm.UTC().Format(http.TimeFormat))
	}
}
