package flow

import (
	"time"

	"github.com/GoCodeAlone/flow/config"
	"github.com/GoCodeAlone/flow/registry"
)

// Option configures an Application.
type Option func(*Application)

// WithLogger sets the application logger. Nil is ignored.
func WithLogger(logger Logger) Option {
	return func(app *Application) {
		if logger != nil {
			app.logger = logger
		}
	}
}

// WithConfig sets the configuration handle.
func WithConfig(cfg *config.Config) Option {
	return func(app *Application) {
		app.config = cfg
	}
}

// WithRegistry sets the service registry.
func WithRegistry(r *registry.Registry) Option {
	return func(app *Application) {
		app.services = r
	}
}

// WithShutdownTimeout bounds the Stop call made by Run.
func WithShutdownTimeout(d time.Duration) Option {
	return func(app *Application) {
		if d > 0 {
			app.shutdownTimeout = d
		}
	}
}
