// Package lifecycle defines the shared init/start/stop state machine and the
// per-scope event bus used by the application container and every engine.
package lifecycle

import (
	"context"
	"time"
)

// Hooks is implemented by the owner of a Unit. The unit calls the hooks while
// moving through its states; the owner supplies the actual work.
type Hooks interface {
	// OnInit prepares the owner. A failure leaves the unit uninitialized.
	OnInit(ctx context.Context) error

	// OnStart brings the owner into its running state.
	OnStart(ctx context.Context) error

	// OnStop releases whatever OnStart acquired.
	OnStop(ctx context.Context) error
}

// HookFuncs adapts plain functions to the Hooks interface. Nil functions are
// treated as no-ops.
type HookFuncs struct {
	Init  func(ctx context.Context) error
	Start func(ctx context.Context) error
	Stop  func(ctx context.Context) error
}

// OnInit implements Hooks.
func (h HookFuncs) OnInit(ctx context.Context) error {
	if h.Init == nil {
		return nil
	}
	return h.Init(ctx)
}

// OnStart implements Hooks.
func (h HookFuncs) OnStart(ctx context.Context) error {
	if h.Start == nil {
		return nil
	}
	return h.Start(ctx)
}

// OnStop implements Hooks.
func (h HookFuncs) OnStop(ctx context.Context) error {
	if h.Stop == nil {
		return nil
	}
	return h.Stop(ctx)
}

// Event is a single emission on a unit's bus.
type Event struct {
	// ID is unique per emission (UUIDv7).
	ID string `json:"id"`

	// Name is the event name, e.g. "before_start" or "http:after_start".
	Name string `json:"name"`

	// Source identifies the unit that emitted the event.
	Source string `json:"source"`

	// Time is when the event was emitted.
	Time time.Time `json:"time"`

	// Data is the payload supplied by the emitter. It may be nil.
	Data any `json:"data,omitempty"`

	// Subject is the entity the event is about. Events forwarded from an
	// engine to its container carry the engine here.
	Subject any `json:"-"`
}

// Listener receives events from a unit's bus. A returned error aborts the
// emission and is returned to whoever emitted.
type Listener func(ctx context.Context, event Event) error

// Forwarder receives every event after the unit's own listeners ran.
type Forwarder func(ctx context.Context, event Event) error

// Lifecycle event names.
const (
	EventBeforeInit  = "before_init"
	EventAfterInit   = "after_init"
	EventBeforeStart = "before_start"
	EventAfterStart  = "after_start"
	EventBeforeStop  = "before_stop"
	EventAfterStop   = "after_stop"
)

// Events lists the lifecycle event names in the order a full run emits them.
func Events() []string {
	return []string{
		EventBeforeInit, EventAfterInit,
		EventBeforeStart, EventAfterStart,
		EventBeforeStop, EventAfterStop,
	}
}
