// Package flow is a small application container. It drives the lifecycle of
// a set of named engines, holds the configuration handle and the service
// registry, and exposes one event bus that every engine forwards into.
package flow

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/GoCodeAlone/flow/config"
	"github.com/GoCodeAlone/flow/lifecycle"
	"github.com/GoCodeAlone/flow/registry"
)

// DefaultShutdownTimeout bounds Stop when Run shuts the application down.
const DefaultShutdownTimeout = 30 * time.Second

// Application owns an ordered set of engines and fans its own lifecycle out
// to them: init and start in registration order, stop in reverse. The first
// engine that fails aborts the transition; engines that already moved are
// left as they are.
type Application struct {
	*lifecycle.Unit

	logger          Logger
	config          *config.Config
	services        *registry.Registry
	shutdownTimeout time.Duration

	mu      sync.RWMutex
	engines map[string]Engine
	order   []string

	observerMu sync.RWMutex
	observers  []*observerRegistration
}

// New creates an application. Without options it has an empty configuration,
// an empty registry and a no-op logger.
func New(opts ...Option) *Application {
	app := &Application{
		logger:          NopLogger(),
		shutdownTimeout: DefaultShutdownTimeout,
		engines:         make(map[string]Engine),
	}
	app.Unit = lifecycle.NewUnit("application", lifecycle.HookFuncs{
		Init:  app.initEngines,
		Start: app.startEngines,
		Stop:  app.stopEngines,
	})

	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		app.config = config.New(nil)
	}
	if app.services == nil {
		app.services = registry.New()
	}

	app.Unit.OnAny(app.notifyObservers)
	return app
}

// Logger returns the application logger.
func (app *Application) Logger() Logger {
	return app.logger
}

// Config returns the configuration handle.
func (app *Application) Config() *config.Config {
	return app.config
}

// Services returns the service registry.
func (app *Application) Services() *registry.Registry {
	return app.services
}

// RegisterEngine adds engine under name and attaches it to the application.
// Engines must be registered before the application starts.
func (app *Application) RegisterEngine(name string, engine Engine) error {
	if engine == nil {
		return fmt.Errorf("%w: %q", ErrNilEngine, name)
	}
	if app.State() >= lifecycle.StateStarted {
		return fmt.Errorf("%w: %q", ErrRegistrationClosed, name)
	}

	app.mu.Lock()
	if _, exists := app.engines[name]; exists {
		app.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrEngineAlreadyRegistered, name)
	}
	app.engines[name] = engine
	app.order = append(app.order, name)
	app.mu.Unlock()

	engine.Attach(name, app)
	app.logger.Debug("Registered engine", "engine", name)
	return nil
}

// Engine returns the engine registered under name.
func (app *Application) Engine(name string) (Engine, error) {
	app.mu.RLock()
	defer app.mu.RUnlock()

	engine, ok := app.engines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrEngineNotRegistered, name)
	}
	return engine, nil
}

// Engines returns the engine names in registration order.
func (app *Application) Engines() []string {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return slices.Clone(app.order)
}

// EngineStates reports the lifecycle state of every registered engine.
func (app *Application) EngineStates() map[string]lifecycle.State {
	app.mu.RLock()
	defer app.mu.RUnlock()

	states := make(map[string]lifecycle.State, len(app.engines))
	for name, engine := range app.engines {
		states[name] = engine.State()
	}
	return states
}

// Run starts the application and blocks until ctx is done or the process
// receives SIGINT or SIGTERM, then stops it within the shutdown timeout.
func (app *Application) Run(ctx context.Context) error {
	if err := app.Start(ctx); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		app.logger.Info("Received signal, shutting down", "signal", sig)
	case <-ctx.Done():
		app.logger.Info("Context done, shutting down")
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), app.shutdownTimeout)
	defer cancel()
	return app.Stop(stopCtx)
}

// snapshot returns the engines in registration order.
func (app *Application) snapshot() ([]string, []Engine) {
	app.mu.RLock()
	defer app.mu.RUnlock()

	names := slices.Clone(app.order)
	engines := make([]Engine, len(names))
	for i, name := range names {
		engines[i] = app.engines[name]
	}
	return names, engines
}

func (app *Application) initEngines(ctx context.Context) error {
	names, engines := app.snapshot()
	for i, engine := range engines {
		app.logger.Debug("Initializing engine", "engine", names[i])
		if err := engine.Init(ctx); err != nil {
			app.logger.Error("Engine failed to initialize", "engine", names[i], "error", err)
			return fmt.Errorf("engine %q: %w", names[i], err)
		}
	}
	app.logger.Info("Application initialized", "engines", len(engines))
	return nil
}

func (app *Application) startEngines(ctx context.Context) error {
	names, engines := app.snapshot()
	for i, engine := range engines {
		app.logger.Debug("Starting engine", "engine", names[i])
		if err := engine.Start(ctx); err != nil {
			app.logger.Error("Engine failed to start", "engine", names[i], "error", err)
			return fmt.Errorf("engine %q: %w", names[i], err)
		}
	}
	app.logger.Info("Application started", "engines", len(engines))
	return nil
}

func (app *Application) stopEngines(ctx context.Context) error {
	names, engines := app.snapshot()
	for i := len(engines) - 1; i >= 0; i-- {
		app.logger.Debug("Stopping engine", "engine", names[i])
		if err := engines[i].Stop(ctx); err != nil {
			app.logger.Error("Engine failed to stop", "engine", names[i], "error", err)
			return fmt.Errorf("engine %q: %w", names[i], err)
		}
	}
	app.logger.Info("Application stopped")
	return nil
}
