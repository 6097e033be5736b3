package httpengine

import (
	"errors"
)

// Error definitions
var (
	// ErrStop is returned by a middleware to end the request early. Remaining
	// middleware and the route handler do not run; whatever the middleware
	// wrote is the response.
	ErrStop = errors.New("stop middleware chain")

	// ErrBind is returned by Start when the listening socket cannot be opened.
	ErrBind = errors.New("failed to bind http listener")

	// ErrDuplicateRoute is returned when a (method, path) pair is registered twice.
	ErrDuplicateRoute = errors.New("route already registered")

	// ErrNilHandler is returned when a route or middleware is nil.
	ErrNilHandler = errors.New("handler is nil")

	// ErrBodyTooLarge is reported when a request body exceeds max_body_bytes.
	ErrBodyTooLarge = errors.New("request body too large")

	// ErrHandlerPanic wraps a value recovered from a panicking middleware or handler.
	ErrHandlerPanic = errors.New("handler panicked")
)
