package server

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	lru "github.com/hashicorp/golang-lru/v2"

	eventbus "github.com/hanpama/fieldmerge/internal/eventbus"
	events "github.com/hanpama/fieldmerge/internal/events"
	language "github.com/hanpama/fieldmerge/internal/language"
	reqid "github.com/hanpama/fieldmerge/internal/reqid"
	schema "github.com/hanpama/fieldmerge/internal/schema"
	validator "github.com/hanpama/fieldmerge/internal/validator"
)

// Handler is an http.Handler that validates GraphQL documents against a schema.
type Handler struct {
	schema *schema.Schema
	opt    Options
	router chi.Router
	cache  *lru.Cache[uint64, Result]
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORSOrigins lists the allowed origins. Empty disables CORS.
	CORSOrigins []string

	// CacheSize is the number of validation results kept per query text.
	// 0 disables the cache.
	CacheSize int

	// Metrics is mounted on GET /metrics when set.
	Metrics http.Handler
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCacheSize(n int) Option         { return func(o *Options) { o.CacheSize = n } }
func WithMetrics(h http.Handler) Option  { return func(o *Options) { o.Metrics = h } }
func WithCORS(origins ...string) Option  { return func(o *Options) { o.CORSOrigins = origins } }

// New creates a validation handler for sch.
func New(sch *schema.Schema, opts ...Option) (*Handler, error) {
	op := Options{Timeout: 10 * time.Second}
	for _, f := range opts {
		f(&op)
	}
	h := &Handler{schema: sch, opt: op}
	if op.CacheSize > 0 {
		cache, err := lru.New[uint64, Result](op.CacheSize)
		if err != nil {
			return nil, err
		}
		h.cache = cache
	}
	h.router = h.routes()
	return h, nil
}

func (h *Handler) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.instrument)
	if len(h.opt.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: h.opt.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"*"},
		}))
	}
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.writeJSON(w, http.StatusMethodNotAllowed, errorResult(&language.Error{Message: "method not allowed"}))
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeJSON(w, http.StatusNotFound, errorResult(&language.Error{Message: "not found"}))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok\n")
	})
	r.Get("/validate", h.serveValidate)
	r.Post("/validate", h.serveValidate)
	if h.opt.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.opt.Metrics)
	}
	return r
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// instrument attaches a request ID, applies the default timeout and
// publishes the HTTP events around every request.
func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
			defer cancel()
		}
		ctx, _ = reqid.NewContext(ctx)
		r = r.WithContext(ctx)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		eventbus.Publish(ctx, events.HTTPStart{Request: r})
		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}
			eventbus.Publish(ctx, events.HTTPFinish{Request: r, Route: route, Status: status, Duration: time.Since(start)})
		}()
		next.ServeHTTP(ww, r)
	})
}

func (h *Handler) serveValidate(w http.ResponseWriter, r *http.Request) {
	req, batch, berr := parseRequest(r, h.opt.MaxBodyBytes)
	if berr != nil {
		status := http.StatusBadRequest
		if berr.Message == errBodyTooLargeMessage {
			status = http.StatusRequestEntityTooLarge
		}
		h.writeJSON(w, status, errorResult(berr))
		return
	}

	if batch != nil {
		out := make([]Result, len(batch))
		for i := range batch {
			out[i] = h.validateOne(r.Context(), batch[i])
		}
		h.writeJSON(w, http.StatusOK, out)
		return
	}
	h.writeJSON(w, http.StatusOK, h.validateOne(r.Context(), req))
}

func (h *Handler) validateOne(ctx context.Context, req ValidateRequest) Result {
	if req.Query == "" {
		return errorResult(&language.Error{Message: "missing 'query'"})
	}
	var key uint64
	if h.cache != nil {
		key = cacheKey(req)
		if res, ok := h.cache.Get(key); ok {
			return res
		}
	}
	report := validator.ValidateRequest(ctx, h.schema, validator.Request{
		Query:         req.Query,
		OperationName: req.OperationName,
	})
	res := NewResult(report.Errors)
	if h.cache != nil {
		h.cache.Add(key, res)
	}
	return res
}

func cacheKey(req ValidateRequest) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(req.Query)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(req.OperationName)
	return d.Sum64()
}

// ------------------ Request parsing ------------------

type ValidateRequest struct {
	Query         string `json:"query"`
	OperationName string `json:"operationName,omitempty"`
}

func parseRequest(r *http.Request, maxBody int64) (ValidateRequest, []ValidateRequest, *language.Error) {
	if r.Method == http.MethodGet {
		q := r.URL.Query().Get("query")
		if q == "" {
			return ValidateRequest{}, nil, &language.Error{Message: "missing 'query'"}
		}
		return ValidateRequest{Query: q, OperationName: r.URL.Query().Get("operationName")}, nil, nil
	}

	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
			return ValidateRequest{}, nil, &language.Error{Message: "unsupported Content-Type"}
		}
	}
	defer r.Body.Close()
	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return ValidateRequest{}, nil, &language.Error{Message: "failed to read body"}
	}
	if maxBody > 0 && int64(len(body)) > maxBody {
		return ValidateRequest{}, nil, &language.Error{Message: errBodyTooLargeMessage}
	}

	if len(body) > 0 && body[0] == '[' {
		var arr []ValidateRequest
		if err := json.Unmarshal(body, &arr); err != nil {
			return ValidateRequest{}, nil, &language.Error{Message: "invalid JSON"}
		}
		if len(arr) == 0 {
			return ValidateRequest{}, nil, &language.Error{Message: "empty batch"}
		}
		return ValidateRequest{}, arr, nil
	}
	var req ValidateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return ValidateRequest{}, nil, &language.Error{Message: "invalid JSON"}
	}
	if req.Query == "" {
		return ValidateRequest{}, nil, &language.Error{Message: "missing 'query'"}
	}
	return req, nil, nil
}

const errBodyTooLargeMessage = "body too large"

// ------------------ Response formatting ------------------

type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type Diagnostic struct {
	Message    string         `json:"message"`
	Locations  []Location     `json:"locations,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Result is the response to one validation request.
type Result struct {
	Valid  bool         `json:"valid"`
	Errors []Diagnostic `json:"errors,omitempty"`
}

// NewResult converts diagnostics into their response form.
func NewResult(errs language.ErrorList) Result {
	res := Result{Valid: len(errs) == 0}
	for _, e := range errs {
		d := Diagnostic{Message: e.Message}
		for _, loc := range e.Locations {
			d.Locations = append(d.Locations, Location{Line: loc.Line, Column: loc.Column})
		}
		if e.Rule != "" {
			d.Extensions = map[string]any{"rule": e.Rule}
		}
		res.Errors = append(res.Errors, d)
	}
	return res
}

func errorResult(err *language.Error) Result {
	return Result{Errors: []Diagnostic{{Message: err.Message}}}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if h.opt.Pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}
