package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Static errors for lifecycle package
var (
	// ErrStopped is returned by Start on a unit that was already stopped.
	// A stopped unit cannot be restarted.
	ErrStopped = errors.New("unit is stopped")

	// ErrNilHooks is returned when a unit is used without hooks.
	ErrNilHooks = errors.New("unit has no hooks")
)

// Unit is the init/start/stop state machine with an attached event bus.
// Owners embed a *Unit and pass themselves as Hooks.
//
// Transitions on one unit are serialized. Listeners must not call Init, Start
// or Stop on the unit that is emitting to them.
type Unit struct {
	source string
	hooks  Hooks

	opMu sync.Mutex

	mu        sync.RWMutex
	state     State
	listeners map[string][]Listener
	wildcard  []Listener
	forward   Forwarder
}

// NewUnit creates a unit named source that drives hooks.
func NewUnit(source string, hooks Hooks) *Unit {
	return &Unit{
		source:    source,
		hooks:     hooks,
		state:     StateUninitialized,
		listeners: make(map[string][]Listener),
	}
}

// Source returns the name the unit emits events under.
func (u *Unit) Source() string {
	return u.source
}

// State returns the current state.
func (u *Unit) State() State {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.state
}

// Init runs the init hook once. Calling Init on a unit that is initialized or
// further along is a no-op.
func (u *Unit) Init(ctx context.Context) error {
	u.opMu.Lock()
	defer u.opMu.Unlock()
	return u.init(ctx)
}

func (u *Unit) init(ctx context.Context) error {
	if u.State() >= StateInitialized {
		return nil
	}
	if u.hooks == nil {
		return ErrNilHooks
	}

	if err := u.Emit(ctx, EventBeforeInit, nil); err != nil {
		return err
	}
	if err := u.hooks.OnInit(ctx); err != nil {
		return fmt.Errorf("%s: init: %w", u.source, err)
	}
	u.setState(StateInitialized)
	return u.Emit(ctx, EventAfterInit, nil)
}

// Start initializes the unit if needed and then runs the start hook once.
func (u *Unit) Start(ctx context.Context) error {
	u.opMu.Lock()
	defer u.opMu.Unlock()

	if err := u.init(ctx); err != nil {
		return err
	}

	switch u.State() {
	case StateStarted:
		return nil
	case StateStopped:
		return fmt.Errorf("%s: %w", u.source, ErrStopped)
	}

	if err := u.Emit(ctx, EventBeforeStart, nil); err != nil {
		return err
	}
	if err := u.hooks.OnStart(ctx); err != nil {
		return fmt.Errorf("%s: start: %w", u.source, err)
	}
	u.setState(StateStarted)
	return u.Emit(ctx, EventAfterStart, nil)
}

// Stop runs the stop hook if the unit is started. Otherwise it does nothing.
func (u *Unit) Stop(ctx context.Context) error {
	u.opMu.Lock()
	defer u.opMu.Unlock()

	if u.State() != StateStarted {
		return nil
	}

	if err := u.Emit(ctx, EventBeforeStop, nil); err != nil {
		return err
	}
	if err := u.hooks.OnStop(ctx); err != nil {
		return fmt.Errorf("%s: stop: %w", u.source, err)
	}
	u.setState(StateStopped)
	return u.Emit(ctx, EventAfterStop, nil)
}

// On registers listener for event. Listeners are never removed or
// de-duplicated: registering the same listener twice makes it fire twice.
func (u *Unit) On(event string, listener Listener) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.listeners[event] = append(u.listeners[event], listener)
}

// OnAny registers listener for every event emitted on this unit. Wildcard
// listeners run after the listeners registered for the specific event.
func (u *Unit) OnAny(listener Listener) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.wildcard = append(u.wildcard, listener)
}

// SetForwarder installs fn to receive every event after local listeners.
// Engines use it to re-emit their events on the container bus.
func (u *Unit) SetForwarder(fn Forwarder) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.forward = fn
}

// Emit publishes a new event named name with data.
func (u *Unit) Emit(ctx context.Context, name string, data any) error {
	return u.Publish(ctx, Event{
		ID:     newEventID(),
		Name:   name,
		Source: u.source,
		Time:   time.Now(),
		Data:   data,
	})
}

// Publish delivers an already built event to the listeners for its name, then
// the wildcard listeners, then the forwarder. The first error stops delivery.
func (u *Unit) Publish(ctx context.Context, event Event) error {
	u.mu.RLock()
	listeners := append([]Listener(nil), u.listeners[event.Name]...)
	listeners = append(listeners, u.wildcard...)
	forward := u.forward
	u.mu.RUnlock()

	for _, listener := range listeners {
		if err := listener(ctx, event); err != nil {
			return fmt.Errorf("%s: listener for %q: %w", u.source, event.Name, err)
		}
	}

	if forward != nil {
		return forward(ctx, event)
	}
	return nil
}

func (u *Unit) setState(s State) {
	u.mu.Lock()
	u.state = s
	u.mu.Unlock()
}

// newEventID generates a unique identifier using UUIDv7, which keeps IDs
// time-ordered.
func newEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}
