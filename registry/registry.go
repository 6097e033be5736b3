// Package registry provides the name based service registry used for
// dependency injection: concrete instances, lazily built factories, aliases
// and tags.
package registry

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
)

// Factory builds a service on first resolution. It receives a view of the
// registry that remembers which factories are being built, so resolving a
// name already under construction fails with ErrFactoryCycle.
type Factory func(r *Registry) (any, error)

// factoryEntry serializes the first invocation of a factory so it runs at most
// once even when the name is resolved concurrently.
type factoryEntry struct {
	mu      sync.Mutex
	factory Factory
	built   bool
	value   any
}

// Registry maps names to services. The zero value is not usable; call New.
type Registry struct {
	*store

	// building lists the factories on the current resolution path.
	building []string
}

type store struct {
	mu        sync.RWMutex
	instances map[string]any
	factories map[string]*factoryEntry
	aliases   map[string]string
	tags      map[string][]string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{store: &store{
		instances: make(map[string]any),
		factories: make(map[string]*factoryEntry),
		aliases:   make(map[string]string),
		tags:      make(map[string][]string),
	}}
}

// Register stores value under name and indexes it under tags.
func (r *Registry) Register(name string, value any, tags ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkNameLocked(name); err != nil {
		return err
	}
	r.instances[name] = value
	r.indexLocked(name, tags)
	return nil
}

// RegisterFactory stores a factory under name. The factory runs on the first
// successful resolution and its product is cached from then on.
func (r *Registry) RegisterFactory(name string, factory Factory, tags ...string) error {
	if factory == nil {
		return fmt.Errorf("%w: %s", ErrNilFactory, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkNameLocked(name); err != nil {
		return err
	}
	r.factories[name] = &factoryEntry{factory: factory}
	r.indexLocked(name, tags)
	return nil
}

// RegisterAlias makes alias resolve to whatever target resolves to at
// resolution time. The target does not need to exist yet.
func (r *Registry) RegisterAlias(alias, target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.aliases[alias]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateAlias, alias)
	}
	r.aliases[alias] = target
	return nil
}

// Resolve returns the service registered under name, following aliases and
// building factory products on demand.
func (r *Registry) Resolve(name string) (any, error) {
	var chain []string
	for {
		r.mu.RLock()
		target, isAlias := r.aliases[name]
		r.mu.RUnlock()
		if !isAlias {
			break
		}
		if slices.Contains(chain, name) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrAliasCycle, strings.Join(chain, " -> "), name)
		}
		chain = append(chain, name)
		name = target
	}

	r.mu.RLock()
	instance, isInstance := r.instances[name]
	entry, isFactory := r.factories[name]
	r.mu.RUnlock()

	if isInstance {
		return instance, nil
	}
	if isFactory {
		if slices.Contains(r.building, name) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrFactoryCycle, strings.Join(r.building, " -> "), name)
		}
		return r.build(name, entry)
	}
	return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
}

func (r *Registry) build(name string, entry *factoryEntry) (any, error) {
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.built {
		return entry.value, nil
	}

	view := &Registry{store: r.store, building: append(slices.Clone(r.building), name)}
	value, err := entry.factory(view)
	if err != nil {
		return nil, fmt.Errorf("building service %s: %w", name, err)
	}
	entry.value = value
	entry.built = true

	r.mu.Lock()
	r.instances[name] = value
	delete(r.factories, name)
	r.mu.Unlock()

	return value, nil
}

// Exists reports whether name is registered as an instance, a factory or an
// alias. An existing alias does not guarantee that its target resolves.
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.aliases[name]; ok {
		return true
	}
	if _, ok := r.instances[name]; ok {
		return true
	}
	_, ok := r.factories[name]
	return ok
}

// ByTag resolves every service registered under tag, in registration order.
// An unknown tag yields an empty slice.
func (r *Registry) ByTag(tag string) ([]any, error) {
	r.mu.RLock()
	names := slices.Clone(r.tags[tag])
	r.mu.RUnlock()

	values := make([]any, 0, len(names))
	for _, name := range names {
		value, err := r.Resolve(name)
		if err != nil {
			return nil, fmt.Errorf("resolving tag %s: %w", tag, err)
		}
		values = append(values, value)
	}
	return values, nil
}

// Names returns every instance and factory name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.instances)+len(r.factories))
	for name := range r.instances {
		names = append(names, name)
	}
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (r *Registry) checkNameLocked(name string) error {
	if _, exists := r.instances[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	return nil
}

func (r *Registry) indexLocked(name string, tags []string) {
	for _, tag := range tags {
		r.tags[tag] = append(r.tags[tag], name)
	}
}

// Get resolves name and asserts the result to T.
func Get[T any](r *Registry, name string) (T, error) {
	var zero T

	value, err := r.Resolve(name)
	if err != nil {
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T, want %s", ErrServiceTypeMismatch, name, value, reflect.TypeOf((*T)(nil)).Elem())
	}
	return typed, nil
}
