package httpengine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/GoCodeAlone/flow"
)

// Context is the per-request state passed through the middleware chain and
// into the route handler. It is never shared between requests.
type Context struct {
	Request  *http.Request
	Response http.ResponseWriter

	Method string
	Query  url.Values

	// Path is the cleaned, still percent-encoded pathname used for routing.
	Path string

	// Params is always empty; routes are exact paths.
	Params map[string]string

	// Body is nil, the decoded JSON value, or the raw body text. It is only
	// filled for POST, PUT and PATCH.
	Body any

	// Values carries data from middleware to handlers.
	Values map[string]any

	Engine *Engine
	App    *flow.Application

	writer    *responseWriter
	requestID string
	after     []func(c *Context)
}

func newContext(e *Engine, w *responseWriter, r *http.Request) *Context {
	return &Context{
		Request:  r,
		Response: w,
		Method:   r.Method,
		Path:     cleanPath(r.URL),
		Query:    r.URL.Query(),
		Params:   map[string]string{},
		Values:   map[string]any{},
		Engine:   e,
		App:      e.App(),
		writer:   w,
	}
}

// cleanPath returns the percent-encoded pathname of u with dot segments and
// repeated slashes removed. A trailing slash is kept, so "/foo" and "/foo/"
// remain distinct routes.
func cleanPath(u *url.URL) string {
	raw := u.EscapedPath()
	if raw == "" {
		return "/"
	}
	cleaned := path.Clean(raw)
	if strings.HasSuffix(raw, "/") && cleaned != "/" {
		cleaned += "/"
	}
	return cleaned
}

// Context returns the request's context.
func (c *Context) Context() context.Context {
	return c.Request.Context()
}

// RequestID returns the ID assigned by the RequestID middleware. Without it
// a random ID is generated once per request.
func (c *Context) RequestID() string {
	if id := middleware.GetReqID(c.Request.Context()); id != "" {
		return id
	}
	if c.requestID == "" {
		c.requestID = uuid.NewString()
	}
	return c.requestID
}

// Set stores a value for later middleware or the handler.
func (c *Context) Set(key string, value any) {
	c.Values[key] = value
}

// Get returns a value stored with Set.
func (c *Context) Get(key string) (any, bool) {
	value, ok := c.Values[key]
	return value, ok
}

// Written reports whether a response status has been sent.
func (c *Context) Written() bool {
	return c.writer.written
}

// Status returns the response status, or 0 if nothing was written yet.
func (c *Context) Status() int {
	return c.writer.status
}

// AfterResponse registers fn to run once the request is fully handled,
// including the fallback responses. Callbacks run in registration order.
func (c *Context) AfterResponse(fn func(c *Context)) {
	c.after = append(c.after, fn)
}

// JSON writes v as a JSON response with status.
func (c *Context) JSON(status int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	c.Response.Header().Set("Content-Type", "application/json")
	c.Response.WriteHeader(status)
	if _, err := c.Response.Write(data); err != nil {
		return fmt.Errorf("writing response: %w", err)
	}
	return nil
}

// Text writes s as a plain text response with status.
func (c *Context) Text(status int, s string) error {
	c.Response.Header().Set("Content-Type", "text/plain; charset=utf-8")
	c.Response.WriteHeader(status)
	if _, err := io.WriteString(c.Response, s); err != nil {
		return fmt.Errorf("writing response: %w", err)
	}
	return nil
}

// readBody buffers the request body. JSON bodies are decoded; a body that
// fails to decode is kept as text.
func (c *Context) readBody(limit int64) error {
	if c.Request.Body == nil {
		return nil
	}
	reader := c.Request.Body
	if limit > 0 {
		reader = http.MaxBytesReader(c.writer, c.Request.Body, limit)
	}

	raw, err := io.ReadAll(reader)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, tooLarge.Limit)
		}
		return fmt.Errorf("reading request body: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}

	if isJSON(c.Request.Header.Get("Content-Type")) {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err == nil {
			c.Body = decoded
			return nil
		}
	}
	c.Body = string(raw)
	return nil
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func hasBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.written {
		return
	}
	rw.status = code
	rw.written = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
