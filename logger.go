package flow

// Logger defines the interface for application logging.
// Logging is structured: messages carry key-value pairs so the output stays
// parseable across the container and every engine.
//
//	logger.Info("Engine started", "engine", "http", "addr", "127.0.0.1:3000")
//
// *slog.Logger satisfies Logger directly. NewZapLogger adapts a zap logger.
type Logger interface {
	// Info logs an informational message with optional key-value pairs.
	Info(msg string, args ...any)

	// Error logs an error message with optional key-value pairs.
	Error(msg string, args ...any)

	// Warn logs a warning message with optional key-value pairs.
	Warn(msg string, args ...any)

	// Debug logs a debug message with optional key-value pairs.
	Debug(msg string, args ...any)
}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}
