// CloudEvents integration for the application bus. Every event published on
// the application, including events forwarded from engines, is converted to a
// CloudEvent and handed to registered observers.

package flow

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/GoCodeAlone/flow/lifecycle"
)

// CloudEvent is an alias for the CloudEvents Event type for convenience
type CloudEvent = cloudevents.Event

// EventTypePrefix is prepended to bus event names to form CloudEvent types:
// "http:after_start" becomes "com.flow.http.after_start".
const EventTypePrefix = "com.flow."

// Observer defines the interface for objects that want to be notified of
// application events.
type Observer interface {
	// OnEvent is called for every matching event. Errors are logged and do
	// not affect the emitter.
	OnEvent(ctx context.Context, event cloudevents.Event) error

	// ObserverID returns a unique identifier for this observer.
	ObserverID() string
}

// ObserverInfo describes a registered observer.
type ObserverInfo struct {
	ID           string    `json:"id"`
	EventTypes   []string  `json:"eventTypes"`
	RegisteredAt time.Time `json:"registeredAt"`
}

type observerRegistration struct {
	observer     Observer
	eventTypes   map[string]bool
	registeredAt time.Time
}

// FunctionalObserver provides a simple way to create observers using functions.
type FunctionalObserver struct {
	id      string
	handler func(ctx context.Context, event cloudevents.Event) error
}

// NewFunctionalObserver creates a new observer that uses the provided function
// to handle events.
func NewFunctionalObserver(id string, handler func(ctx context.Context, event cloudevents.Event) error) Observer {
	return &FunctionalObserver{
		id:      id,
		handler: handler,
	}
}

// OnEvent implements the Observer interface by calling the handler function.
func (f *FunctionalObserver) OnEvent(ctx context.Context, event cloudevents.Event) error {
	return f.handler(ctx, event)
}

// ObserverID implements the Observer interface by returning the observer ID.
func (f *FunctionalObserver) ObserverID() string {
	return f.id
}

// EventType returns the CloudEvent type for a bus event name.
func EventType(name string) string {
	return EventTypePrefix + strings.ReplaceAll(name, ":", ".")
}

// RegisterObserver adds an observer. If eventTypes is empty the observer
// receives all events; otherwise only events whose CloudEvent type is listed.
// Registering an ID again replaces the earlier registration.
func (app *Application) RegisterObserver(observer Observer, eventTypes ...string) error {
	if observer == nil {
		return ErrNilObserver
	}

	registration := &observerRegistration{
		observer:     observer,
		eventTypes:   make(map[string]bool, len(eventTypes)),
		registeredAt: time.Now(),
	}
	for _, eventType := range eventTypes {
		registration.eventTypes[eventType] = true
	}

	app.observerMu.Lock()
	app.observers = slices.DeleteFunc(app.observers, func(r *observerRegistration) bool {
		return r.observer.ObserverID() == observer.ObserverID()
	})
	app.observers = append(app.observers, registration)
	app.observerMu.Unlock()

	app.logger.Debug("Observer registered", "observerID", observer.ObserverID(), "eventTypes", eventTypes)
	return nil
}

// UnregisterObserver removes an observer. It is idempotent.
func (app *Application) UnregisterObserver(observer Observer) error {
	if observer == nil {
		return ErrNilObserver
	}

	app.observerMu.Lock()
	defer app.observerMu.Unlock()
	app.observers = slices.DeleteFunc(app.observers, func(r *observerRegistration) bool {
		return r.observer.ObserverID() == observer.ObserverID()
	})
	return nil
}

// GetObservers returns information about currently registered observers.
func (app *Application) GetObservers() []ObserverInfo {
	app.observerMu.RLock()
	defer app.observerMu.RUnlock()

	info := make([]ObserverInfo, 0, len(app.observers))
	for _, registration := range app.observers {
		eventTypes := make([]string, 0, len(registration.eventTypes))
		for eventType := range registration.eventTypes {
			eventTypes = append(eventTypes, eventType)
		}
		slices.Sort(eventTypes)

		info = append(info, ObserverInfo{
			ID:           registration.observer.ObserverID(),
			EventTypes:   eventTypes,
			RegisteredAt: registration.registeredAt,
		})
	}
	return info
}

// NewCloudEvent converts a bus event into a CloudEvent. The bus event ID is
// kept so both sides can be correlated. When the payload cannot be encoded the
// event is still returned, without data, alongside the encoding error.
func NewCloudEvent(event lifecycle.Event) (cloudevents.Event, error) {
	ce := cloudevents.NewEvent()
	ce.SetID(event.ID)
	ce.SetSource(event.Source)
	ce.SetType(EventType(event.Name))
	ce.SetTime(event.Time)
	ce.SetSpecVersion(cloudevents.VersionV1)

	if event.Data != nil {
		if err := ce.SetData(cloudevents.ApplicationJSON, event.Data); err != nil {
			return ce, fmt.Errorf("encoding data for %s: %w", event.Name, err)
		}
	}
	return ce, nil
}

// notifyObservers is installed as a wildcard listener on the application bus.
// Observers are called synchronously, in registration order, so they see
// events in the order they were emitted.
func (app *Application) notifyObservers(ctx context.Context, event lifecycle.Event) error {
	app.observerMu.RLock()
	observers := slices.Clone(app.observers)
	app.observerMu.RUnlock()
	if len(observers) == 0 {
		return nil
	}

	ce, err := NewCloudEvent(event)
	if err != nil {
		app.logger.Debug("CloudEvent data dropped", "eventType", ce.Type(), "error", err)
	}
	if err = ce.Validate(); err != nil {
		app.logger.Error("Invalid CloudEvent", "eventType", ce.Type(), "error", err)
		return nil
	}

	for _, registration := range observers {
		if len(registration.eventTypes) > 0 && !registration.eventTypes[ce.Type()] {
			continue
		}
		app.deliver(ctx, registration.observer, ce)
	}
	return nil
}

func (app *Application) deliver(ctx context.Context, observer Observer, event cloudevents.Event) {
	defer func() {
		if r := recover(); r != nil {
			app.logger.Error("Observer panicked", "observerID", observer.ObserverID(), "event", event.Type(), "panic", fmt.Sprint(r))
		}
	}()

	if err := observer.OnEvent(ctx, event); err != nil {
		app.logger.Error("Observer error", "observerID", observer.ObserverID(), "event", event.Type(), "error", err)
	}
}
