// Package httpengine provides an HTTP engine for the flow application
// container. It owns a listening socket, an exact-match route table and a
// sequential middleware chain.
//
// Every request is handled in the same order: the body of POST, PUT and
// PATCH requests is buffered (and decoded when it is JSON), the middleware
// run in registration order, then the handler registered for the exact
// method and path runs. Unmatched requests get a 404 JSON body; errors and
// panics from middleware or handlers get a 500 JSON body and the engine
// keeps serving.
package httpengine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/GoCodeAlone/flow"
	"github.com/GoCodeAlone/flow/lifecycle"
)

// Kind is the event source used before the engine is registered.
const Kind = "http"

// Handler serves a matched route.
type Handler func(c *Context) error

// Middleware runs before the route handler. Returning nil continues the
// chain, returning ErrStop ends it without error, and any other error is
// turned into a 500 response.
type Middleware func(c *Context) error

type routeKey struct {
	method string
	path   string
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sets the engine configuration explicitly. Without it the engine
// reads its section from the application configuration during Init.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
		e.explicit = true
	}
}

// WithSection changes the application config section the engine reads.
func WithSection(section string) Option {
	return func(e *Engine) {
		e.section = section
	}
}

// WithMetrics records request metrics into m. Without it a private
// registry is created when metrics_path is set.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// Engine is the HTTP engine.
type Engine struct {
	*flow.BaseEngine

	section  string
	explicit bool

	mu         sync.RWMutex
	cfg        Config
	routes     map[routeKey]Handler
	middleware []Middleware
	metrics    *Metrics

	server    *http.Server
	listener  net.Listener
	serveDone chan struct{}
}

// New creates an HTTP engine. Routes and middleware should be added before
// the engine starts.
func New(opts ...Option) *Engine {
	e := &Engine{
		section: DefaultSection,
		cfg:     DefaultConfig(),
		routes:  make(map[routeKey]Handler),
	}
	e.BaseEngine = flow.NewBaseEngine(Kind, e, lifecycle.HookFuncs{
		Init:  e.init,
		Start: e.start,
		Stop:  e.stop,
	})
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the active configuration. Before Init this is the default
// or explicit configuration.
func (e *Engine) Config() Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// Metrics returns the metrics recorder, or nil when metrics are disabled.
func (e *Engine) Metrics() *Metrics {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.metrics
}

// Addr returns the bound address while the engine is listening, or "".
func (e *Engine) Addr() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.listener == nil {
		return ""
	}
	return e.listener.Addr().String()
}

// Use appends middleware to the chain.
func (e *Engine) Use(mw ...Middleware) error {
	for _, m := range mw {
		if m == nil {
			return fmt.Errorf("%w: middleware", ErrNilHandler)
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.middleware = append(e.middleware, mw...)
	return nil
}

// AddRoute registers handler for the exact method and path.
func (e *Engine) AddRoute(method, path string, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("%w: %s %s", ErrNilHandler, method, path)
	}
	key := routeKey{method: strings.ToUpper(method), path: path}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.routes[key]; exists {
		return fmt.Errorf("%w: %s %s", ErrDuplicateRoute, key.method, key.path)
	}
	e.routes[key] = handler
	return nil
}

// Get registers a GET route.
func (e *Engine) Get(path string, handler Handler) error {
	return e.AddRoute(http.MethodGet, path, handler)
}

// Post registers a POST route.
func (e *Engine) Post(path string, handler Handler) error {
	return e.AddRoute(http.MethodPost, path, handler)
}

// Put registers a PUT route.
func (e *Engine) Put(path string, handler Handler) error {
	return e.AddRoute(http.MethodPut, path, handler)
}

// Patch registers a PATCH route.
func (e *Engine) Patch(path string, handler Handler) error {
	return e.AddRoute(http.MethodPatch, path, handler)
}

// Delete registers a DELETE route.
func (e *Engine) Delete(path string, handler Handler) error {
	return e.AddRoute(http.MethodDelete, path, handler)
}

func (e *Engine) init(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.explicit {
		if app := e.App(); app != nil {
			e.cfg = ConfigFromSection(app.Config(), e.section)
		}
	}

	if e.cfg.MetricsPath != "" {
		if e.metrics == nil {
			m, err := NewMetrics(nil)
			if err != nil {
				return err
			}
			e.metrics = m
		}
		key := routeKey{method: http.MethodGet, path: e.cfg.MetricsPath}
		if _, exists := e.routes[key]; exists {
			return fmt.Errorf("%w: metrics path %s", ErrDuplicateRoute, e.cfg.MetricsPath)
		}
		e.routes[key] = FromHTTPHandler(e.metrics.Handler())
	}

	e.server = &http.Server{
		Handler:      e,
		ReadTimeout:  e.cfg.ReadTimeout,
		WriteTimeout: e.cfg.WriteTimeout,
		IdleTimeout:  e.cfg.IdleTimeout,
	}
	e.Logger().Debug("HTTP engine initialized", "engine", e.Name(), "addr", e.cfg.Addr())
	return nil
}

func (e *Engine) start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	addr := e.cfg.Addr()
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBind, addr, err)
	}
	e.listener = listener
	e.serveDone = make(chan struct{})

	server, done, logger, name := e.server, e.serveDone, e.Logger(), e.Name()
	go func() {
		defer close(done)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "engine", name, "error", err)
		}
	}()

	logger.Info("HTTP engine listening", "engine", name, "addr", listener.Addr().String())
	return nil
}

func (e *Engine) stop(ctx context.Context) error {
	e.mu.Lock()
	server, done, timeout := e.server, e.serveDone, e.cfg.ShutdownTimeout
	e.mu.Unlock()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	e.Logger().Info("HTTP engine shutting down", "engine", e.Name())
	if err := server.Shutdown(ctx); err != nil {
		_ = server.Close()
		return fmt.Errorf("shutting down http server: %w", err)
	}
	<-done

	e.mu.Lock()
	e.listener = nil
	e.mu.Unlock()
	return nil
}

// ServeHTTP runs the request protocol. The engine can also be mounted in any
// http.Server or tested with httptest without being started.
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	rw := &responseWriter{ResponseWriter: w}
	c := newContext(e, rw, r)

	e.mu.RLock()
	middleware := e.middleware
	maxBody := e.cfg.MaxBodyBytes
	e.mu.RUnlock()

	route, err := e.handle(c, middleware, maxBody)
	if err != nil {
		e.fail(c, err)
	}
	e.finish(c, route, started)
}

// handle runs body parsing, the middleware chain and the route handler. It
// returns the matched route path, or "" when nothing matched.
func (e *Engine) handle(c *Context, middleware []Middleware, maxBody int64) (route string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()

	if hasBody(c.Method) {
		if err := c.readBody(maxBody); err != nil {
			return "", err
		}
	}

	for _, mw := range middleware {
		if err := mw(c); err != nil {
			if errors.Is(err, ErrStop) {
				return "", nil
			}
			return "", err
		}
	}

	e.mu.RLock()
	handler, ok := e.routes[routeKey{method: c.Method, path: c.Path}]
	e.mu.RUnlock()
	if !ok {
		return "", c.JSON(http.StatusNotFound, errorBody(http.StatusNotFound))
	}

	if err := handler(c); err != nil && !errors.Is(err, ErrStop) {
		return c.Path, err
	}
	return c.Path, nil
}

// fail converts a request error into a JSON response unless one was sent.
func (e *Engine) fail(c *Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, ErrBodyTooLarge) {
		status = http.StatusRequestEntityTooLarge
	}

	logger := e.Logger()
	logger.Error("Request failed",
		"engine", e.Name(),
		"method", c.Method,
		"path", c.Path,
		"request_id", c.RequestID(),
		"error", err,
	)
	if emitErr := e.Emit(c.Context(), EventRequestError, map[string]any{
		"method":     c.Method,
		"path":       c.Path,
		"request_id": c.RequestID(),
		"error":      err.Error(),
	}); emitErr != nil {
		logger.Debug("Failed to emit event", "event", EventRequestError, "error", emitErr)
	}

	if c.Written() {
		return
	}
	if writeErr := c.JSON(status, errorBody(status)); writeErr != nil {
		logger.Error("Failed to write error response", "engine", e.Name(), "error", writeErr)
	}
}

func (e *Engine) finish(c *Context, route string, started time.Time) {
	duration := time.Since(started)
	status := c.Status()
	if status == 0 {
		status = http.StatusOK
	}

	for _, fn := range c.after {
		fn(c)
	}

	if m := e.Metrics(); m != nil {
		m.Observe(c.Method, route, status, duration)
	}

	if err := e.Emit(c.Context(), EventRequest, map[string]any{
		"method":      c.Method,
		"path":        c.Path,
		"status":      status,
		"duration_ms": duration.Milliseconds(),
		"request_id":  c.RequestID(),
	}); err != nil {
		e.Logger().Debug("Failed to emit event", "event", EventRequest, "error", err)
	}
}

func errorBody(status int) map[string]string {
	return map[string]string{"error": http.StatusText(status)}
}
