package httpengine

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	infos  []string
	errors []string
}

func (l *recordingLogger) Info(msg string, _ ...any)  { l.infos = append(l.infos, msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.errors = append(l.errors, msg) }
func (l *recordingLogger) Warn(string, ...any)        {}
func (l *recordingLogger) Debug(string, ...any)       {}

func TestRequestID(t *testing.T) {
	e := New()
	require.NoError(t, e.Use(RequestID()))

	var seen string
	require.NoError(t, e.Get("/", func(c *Context) error {
		seen = c.RequestID()
		return c.Text(http.StatusOK, seen)
	}))

	rec := doRequest(t, e, http.MethodGet, "/", "", "")
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(middleware.RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "incoming-id")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "incoming-id", rec.Body.String())
}

func TestContext_RequestIDFallback(t *testing.T) {
	e := New()
	var first, second string
	require.NoError(t, e.Get("/", func(c *Context) error {
		first, second = c.RequestID(), c.RequestID()
		return nil
	}))

	doRequest(t, e, http.MethodGet, "/", "", "")
	assert.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestFromHTTP_StopsWhenNextIsNotCalled(t *testing.T) {
	e := New()
	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusUnauthorized)
		})
	}
	require.NoError(t, e.Use(FromHTTP(deny)))
	require.NoError(t, e.Get("/", func(c *Context) error {
		t.Fatal("handler must not run")
		return nil
	}))

	rec := doRequest(t, e, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "nope", strings.TrimSpace(rec.Body.String()))
}

func TestFromHTTP_HeaderMiddleware(t *testing.T) {
	e := New()
	require.NoError(t, e.Use(FromHTTP(middleware.SetHeader("X-Engine", "flow"))))
	require.NoError(t, e.Get("/", func(c *Context) error { return c.Text(http.StatusOK, "ok") }))

	rec := doRequest(t, e, http.MethodGet, "/", "", "")
	assert.Equal(t, "flow", rec.Header().Get("X-Engine"))
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRequestLogger(t *testing.T) {
	logger := &recordingLogger{}
	e := New()
	require.NoError(t, e.Use(RequestLogger(logger)))
	require.NoError(t, e.Get("/ok", func(c *Context) error { return c.Text(http.StatusOK, "ok") }))
	require.NoError(t, e.Get("/panic", func(c *Context) error { panic("boom") }))

	doRequest(t, e, http.MethodGet, "/ok", "", "")
	doRequest(t, e, http.MethodGet, "/panic", "", "")
	doRequest(t, e, http.MethodGet, "/missing", "", "")

	assert.Equal(t, []string{"Request completed", "Request completed"}, logger.infos)
	assert.Equal(t, []string{"Request completed"}, logger.errors)
}

func TestMetrics(t *testing.T) {
	m, err := NewMetrics(nil)
	require.NoError(t, err)

	e := New(WithConfig(Config{MetricsPath: "/metrics"}), WithMetrics(m))
	require.NoError(t, e.Get("/ok", func(c *Context) error { return c.Text(http.StatusOK, "ok") }))
	require.NoError(t, e.Init(testContext(t)))

	doRequest(t, e, http.MethodGet, "/ok", "", "")
	doRequest(t, e, http.MethodGet, "/ok", "", "")
	doRequest(t, e, http.MethodGet, "/nowhere", "", "")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/ok", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, unmatchedRoute, "404")))

	rec := doRequest(t, e, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "flow_http_requests_total")
	assert.Contains(t, rec.Body.String(), "flow_http_request_duration_seconds")
}

func TestMetrics_PathConflictsWithRoute(t *testing.T) {
	e := New(WithConfig(Config{MetricsPath: "/metrics"}))
	require.NoError(t, e.Get("/metrics", func(c *Context) error { return nil }))

	err := e.Init(testContext(t))
	require.ErrorIs(t, err, ErrDuplicateRoute)
}
