package httpengine

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/GoCodeAlone/flow"
)

// FromHTTP adapts a net/http middleware such as those in
// github.com/go-chi/chi/v5/middleware. If the wrapped middleware calls its
// next handler the chain continues with the request it passed on, so context
// values it added are visible downstream. If it does not, the chain stops and
// what it wrote is the response. Work the wrapped middleware does after next
// returns runs before the rest of the chain.
func FromHTTP(mw func(http.Handler) http.Handler) Middleware {
	return func(c *Context) error {
		called := false
		next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			called = true
			c.Request = r
		})
		mw(next).ServeHTTP(c.Response, c.Request)
		if !called {
			return ErrStop
		}
		return nil
	}
}

// FromHTTPHandler adapts an http.Handler to a route handler.
func FromHTTPHandler(h http.Handler) Handler {
	return func(c *Context) error {
		h.ServeHTTP(c.Response, c.Request)
		return nil
	}
}

// RequestID assigns every request an ID using chi's RequestID middleware,
// honoring an incoming X-Request-Id header, and echoes it in the response.
func RequestID() Middleware {
	assign := FromHTTP(middleware.RequestID)
	return func(c *Context) error {
		if err := assign(c); err != nil {
			return err
		}
		c.Response.Header().Set(middleware.RequestIDHeader, c.RequestID())
		return nil
	}
}

// RequestLogger logs every completed request at info level, and requests
// that ended in a server error at error level.
func RequestLogger(logger flow.Logger) Middleware {
	return func(c *Context) error {
		started := time.Now()
		c.AfterResponse(func(c *Context) {
			status := c.Status()
			if status == 0 {
				status = http.StatusOK
			}
			args := []any{
				"method", c.Method,
				"path", c.Path,
				"status", status,
				"duration", time.Since(started),
				"request_id", c.RequestID(),
			}
			if status >= http.StatusInternalServerError {
				logger.Error("Request completed", args...)
				return
			}
			logger.Info("Request completed", args...)
		})
		return nil
	}
}

