package httpengine

// Events emitted on the engine bus in addition to the lifecycle events.
// Attached to an application they arrive as "<engine>:request" and so on.
const (
	// EventRequest is emitted after every response with method, path,
	// status, duration_ms and request_id.
	EventRequest = "request"

	// EventRequestError is emitted when a middleware or handler fails.
	EventRequestError = "request_error"
)
