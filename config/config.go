// Package config provides the configuration handle consumed by the application
// container and its engines: a concurrency safe nested map addressed by dotted
// paths, plus loaders for YAML, TOML, JSON and environment variables.
package config

import (
	"fmt"
	"strings"
	"sync"
)

// Separator splits a path into nested keys.
const Separator = "."

// Config is a nested map of settings. Paths such as "http.port" address
// nested maps. The zero value is not usable; call New.
type Config struct {
	mu     sync.RWMutex
	values map[string]any
}

// New creates a handle holding a deep copy of values. values may be nil.
func New(values map[string]any) *Config {
	c := &Config{values: make(map[string]any)}
	if values != nil {
		c.values = normalizeMap(values)
	}
	return c
}

// Get returns the value at path, or def when nothing is stored there. Maps
// and slices are returned as copies.
func (c *Config) Get(path string, def any) any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	value, ok := lookup(c.values, path)
	if !ok {
		return def
	}
	return deepCopy(value)
}

// Has reports whether a value is stored at path.
func (c *Config) Has(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := lookup(c.values, path)
	return ok
}

// Set stores value at path, creating intermediate maps. A non-map value on
// the way is replaced by a map.
func (c *Config) Set(path string, value any) {
	keys := splitPath(path)
	if len(keys) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	node := c.values
	for _, key := range keys[:len(keys)-1] {
		next, ok := node[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			node[key] = next
		}
		node = next
	}
	node[keys[len(keys)-1]] = normalize(value)
}

// GetAll returns a deep copy of every setting.
func (c *Config) GetAll() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return deepCopy(c.values).(map[string]any)
}

// Merge deep merges partial into the configuration. Nested maps are merged
// key by key; any other value replaces what was there.
func (c *Config) Merge(partial map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	mergeInto(c.values, normalizeMap(partial))
}

// Sub returns a new handle holding a copy of the map at path. It is empty if
// path does not hold a map.
func (c *Config) Sub(path string) *Config {
	section, _ := c.Get(path, nil).(map[string]any)
	return New(section)
}

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, Separator)
}

func lookup(values map[string]any, path string) (any, bool) {
	keys := splitPath(path)
	if len(keys) == 0 {
		return nil, false
	}

	var current any = values
	for _, key := range keys {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func mergeInto(dst, src map[string]any) {
	for key, value := range src {
		srcMap, srcIsMap := value.(map[string]any)
		dstMap, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			mergeInto(dstMap, srcMap)
			continue
		}
		dst[key] = value
	}
}

func deepCopy(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = deepCopy(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = deepCopy(item)
		}
		return out
	default:
		return v
	}
}

// normalize converts decoder specific shapes (map[any]any, []map[string]any,
// map[string]string) into map[string]any and []any and copies containers.
func normalize(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return normalizeMap(v)
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[toKey(key)] = normalize(item)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = item
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalize(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeMap(item)
		}
		return out
	default:
		return v
	}
}

func normalizeMap(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for key, value := range values {
		out[key] = normalize(value)
	}
	return out
}

func toKey(key any) string {
	if s, ok := key.(string); ok {
		return s
	}
	return fmt.Sprint(key)
}
