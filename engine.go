package flow

import (
	"context"
	"sync"

	"github.com/GoCodeAlone/flow/lifecycle"
)

// Engine is a pluggable subsystem driven by the Application. Concrete engines
// usually embed *BaseEngine, which supplies everything except the hooks.
type Engine interface {
	Init(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	State() lifecycle.State

	// On registers a listener on the engine's own bus.
	On(event string, listener lifecycle.Listener)

	// Attach is called once by Application.RegisterEngine with the name the
	// engine was registered under.
	Attach(name string, app *Application)
}

// BaseEngine composes a lifecycle unit with the attachment bookkeeping every
// engine needs. Once attached, every event emitted on the engine is re-emitted
// on the application bus as "<name>:<event>" with the owning engine as Subject.
type BaseEngine struct {
	*lifecycle.Unit

	owner any

	mu   sync.RWMutex
	name string
	app  *Application
}

// NewBaseEngine creates the shared part of an engine. kind is used as the
// event source until the engine is attached; owner is the concrete engine and
// is what forwarded events carry as their subject.
func NewBaseEngine(kind string, owner any, hooks lifecycle.Hooks) *BaseEngine {
	return &BaseEngine{
		Unit:  lifecycle.NewUnit(kind, hooks),
		owner: owner,
		name:  kind,
	}
}

// Attach implements Engine.
func (e *BaseEngine) Attach(name string, app *Application) {
	e.mu.Lock()
	e.name = name
	e.app = app
	e.mu.Unlock()

	if app == nil {
		e.Unit.SetForwarder(nil)
		return
	}

	e.Unit.SetForwarder(func(ctx context.Context, event lifecycle.Event) error {
		forwarded := event
		forwarded.Name = name + ":" + event.Name
		forwarded.Source = name
		forwarded.Subject = e.owner
		return app.Publish(ctx, forwarded)
	})
}

// Name returns the registered name, or the engine kind before registration.
func (e *BaseEngine) Name() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.name
}

// App returns the owning application, or nil if the engine is detached.
func (e *BaseEngine) App() *Application {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.app
}

// Logger returns the application's logger, or a no-op logger when detached.
func (e *BaseEngine) Logger() Logger {
	if app := e.App(); app != nil {
		return app.Logger()
	}
	return NopLogger()
}
