package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	eventbus "github.com/hanpama/fieldmerge/internal/eventbus"
	events "github.com/hanpama/fieldmerge/internal/events"
	schema "github.com/hanpama/fieldmerge/internal/schema"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testSDL = `
type Query { dog: Dog }
type Dog { name: String nickname: String barkVolume: Int }
`

const conflicting = `{ dog { name: nickname name } }`

func newTestHandler(t *testing.T, opts ...Option) *Handler {
	t.Helper()
	sch, err := schema.BuildFromSDL(testSDL)
	require.NoError(t, err)
	h, err := New(sch, opts...)
	require.NoError(t, err)
	return h
}

func do(t *testing.T, h http.Handler, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	res := w.Result()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, body
}

func postJSON(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/validate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

func TestValidatePost(t *testing.T) {
	h := newTestHandler(t)

	res, body := do(t, h, postJSON(`{"query":"{ dog { name } }"}`))
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, Result{Valid: true}, decode[Result](t, body))

	payload, err := json.Marshal(ValidateRequest{Query: conflicting})
	require.NoError(t, err)
	res, body = do(t, h, postJSON(string(payload)))
	require.Equal(t, http.StatusOK, res.StatusCode)

	want := Result{Errors: []Diagnostic{{
		Message:    `Fields "name" conflict because nickname and name are different fields. Use different aliases on the fields to fetch both if this was intentional.`,
		Locations:  []Location{{Line: 1, Column: 9}, {Line: 1, Column: 24}},
		Extensions: map[string]any{"rule": "OverlappingFieldsCanBeMerged"},
	}}}
	if diff := cmp.Diff(want, decode[Result](t, body)); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateGet(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/validate?query="+url.QueryEscape(conflicting), nil)
	res, body := do(t, h, req)
	require.Equal(t, http.StatusOK, res.StatusCode)
	got := decode[Result](t, body)
	assert.False(t, got.Valid)
	assert.Len(t, got.Errors, 1)
}

func TestValidateBatch(t *testing.T) {
	h := newTestHandler(t)
	payload, err := json.Marshal([]ValidateRequest{
		{Query: `{ dog { name } }`},
		{Query: conflicting},
		{Query: `{ dog {`},
	})
	require.NoError(t, err)

	res, body := do(t, h, postJSON(string(payload)))
	require.Equal(t, http.StatusOK, res.StatusCode)
	got := decode[[]Result](t, body)
	require.Len(t, got, 3)
	assert.True(t, got[0].Valid)
	assert.False(t, got[1].Valid)
	assert.False(t, got[2].Valid)
	require.Len(t, got[2].Errors, 1)
	assert.Nil(t, got[2].Errors[0].Extensions)
}

func TestBadRequests(t *testing.T) {
	h := newTestHandler(t, WithMaxBodyBytes(64))
	tests := []struct {
		name    string
		req     *http.Request
		status  int
		message string
	}{
		{"invalid json", postJSON(`{"query":`), http.StatusBadRequest, "invalid JSON"},
		{"missing query", postJSON(`{}`), http.StatusBadRequest, "missing 'query'"},
		{"empty batch", postJSON(`[]`), http.StatusBadRequest, "empty batch"},
		{"too large", postJSON(`{"query":"` + strings.Repeat(" ", 100) + `{ dog { name } }"}`), http.StatusRequestEntityTooLarge, "body too large"},
		{"get without query", httptest.NewRequest(http.MethodGet, "/validate", nil), http.StatusBadRequest, "missing 'query'"},
		{"method", httptest.NewRequest(http.MethodPut, "/validate", nil), http.StatusMethodNotAllowed, "method not allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, body := do(t, h, tt.req)
			require.Equal(t, tt.status, res.StatusCode, string(body))
			got := decode[Result](t, body)
			require.Len(t, got.Errors, 1)
			assert.Equal(t, tt.message, got.Errors[0].Message)
		})
	}

	t.Run("content type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/validate", strings.NewReader("{ dog { name } }"))
		req.Header.Set("Content-Type", "application/graphql")
		res, _ := do(t, h, req)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})
}

func TestResultCache(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })
	validations := 0
	defer eventbus.Subscribe(func(context.Context, events.ValidationFinish) { validations++ })()

	h := newTestHandler(t, WithCacheSize(8))
	for i := 0; i < 3; i++ {
		res, _ := do(t, h, postJSON(`{"query":"{ dog { name } }"}`))
		require.Equal(t, http.StatusOK, res.StatusCode)
	}
	assert.Equal(t, 1, validations)

	do(t, h, postJSON(`{"query":"{ dog { name } }","operationName":"Other"}`))
	assert.Equal(t, 2, validations)
	assert.Equal(t, 2, h.cache.Len())
}

func TestHTTPEvents(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })
	var (
		statuses []int
		routes   []string
	)
	defer eventbus.Subscribe(func(_ context.Context, e events.HTTPFinish) {
		statuses = append(statuses, e.Status)
		routes = append(routes, e.Route)
	})()

	h := newTestHandler(t)
	do(t, h, postJSON(`{"query":"{ dog { name } }"}`))
	do(t, h, postJSON(`{}`))
	do(t, h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	do(t, h, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, []int{http.StatusOK, http.StatusBadRequest, http.StatusOK, http.StatusNotFound}, statuses)
	assert.Equal(t, []string{"/validate", "/validate", "/healthz", ""}, routes)
}

func TestCORSAndPreflight(t *testing.T) {
	h := newTestHandler(t, WithCORS("https://example.com"))

	req := httptest.NewRequest(http.MethodOptions, "/validate", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	res, _ := do(t, h, req)
	assert.Less(t, res.StatusCode, 300)
	assert.Equal(t, "https://example.com", res.Header.Get("Access-Control-Allow-Origin"))

	req = postJSON(`{"query":"{ dog { name } }"}`)
	req.Header.Set("Origin", "https://other.example")
	res, _ = do(t, h, req)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Empty(t, res.Header.Get("Access-Control-Allow-Origin"))
}

func TestHealthzAndMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "fieldmerge_up 1\n")
	})
	h := newTestHandler(t, WithMetrics(metrics), WithPretty())

	res, body := do(t, h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "ok\n", string(body))

	_, body = do(t, h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, "fieldmerge_up 1\n", string(body))

	res, body = do(t, h, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Contains(t, string(body), "\n  \"errors\"")
}

func TestServeOverNetwork(t *testing.T) {
	h := newTestHandler(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	res, err := srv.Client().Post(srv.URL+"/validate", "application/json", strings.NewReader(`{"query":"{ dog { name } }"}`))
	require.NoError(t, err)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"valid":true}`, string(body))
}
