package flow

import (
	"fmt"

	"github.com/GoCodeAlone/flow/config"
	"github.com/GoCodeAlone/flow/registry"
)

// Service names registered by NewServiceContainer.
const (
	ServiceRegistry = "registry"
	ServiceConfig   = "config"
	ServiceApp      = "app"
)

// ServiceContainer bundles a registry, a configuration handle and the
// application built on them.
type ServiceContainer struct {
	Registry *registry.Registry
	Config   *config.Config
	App      *Application
}

// NewServiceContainer wires a fresh registry, a configuration handle seeded
// with values and an application. The three are registered in the registry
// under "registry", "config" and "app". WithConfig and WithRegistry in opts
// are overridden by the container's own handle and registry.
func NewServiceContainer(values map[string]any, opts ...Option) (*ServiceContainer, error) {
	services := registry.New()
	cfg := config.New(values)

	all := make([]Option, 0, len(opts)+2)
	all = append(all, opts...)
	all = append(all, WithConfig(cfg), WithRegistry(services))
	app := New(all...)

	for name, value := range map[string]any{
		ServiceRegistry: services,
		ServiceConfig:   cfg,
		ServiceApp:      app,
	} {
		if err := services.Register(name, value); err != nil {
			return nil, fmt.Errorf("bootstrapping service container: %w", err)
		}
	}

	return &ServiceContainer{
		Registry: services,
		Config:   cfg,
		App:      app,
	}, nil
}
