package config

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/golobby/cast"
)

// Static errors for configuration package
var (
	// ErrUnsupportedFormat is returned when a file extension has no decoder.
	ErrUnsupportedFormat = errors.New("unsupported config format")

	// ErrTypeConversion is returned when a value cannot be converted to the requested type.
	ErrTypeConversion = errors.New("config value cannot be converted")
)

var (
	intType    = reflect.TypeOf(0)
	boolType   = reflect.TypeOf(false)
	stringType = reflect.TypeOf("")
)

// GetString returns the value at path as a string, or def.
func (c *Config) GetString(path, def string) string {
	value, ok := c.scalar(path)
	if !ok {
		return def
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

// GetInt returns the value at path as an int. Strings are parsed; def is
// returned when nothing is stored or the value does not convert.
func (c *Config) GetInt(path string, def int) int {
	value, ok := c.scalar(path)
	if !ok {
		return def
	}
	n, err := toInt(value)
	if err != nil {
		return def
	}
	return n
}

// GetBool returns the value at path as a bool, or def.
func (c *Config) GetBool(path string, def bool) bool {
	value, ok := c.scalar(path)
	if !ok {
		return def
	}
	switch v := value.(type) {
	case bool:
		return v
	case string:
		converted, err := cast.FromType(v, boolType)
		if err != nil {
			return def
		}
		b, ok := converted.(bool)
		if !ok {
			return def
		}
		return b
	default:
		return def
	}
}

// GetDuration returns the value at path as a duration. Strings use
// time.ParseDuration syntax ("15s"); bare numbers are seconds.
func (c *Config) GetDuration(path string, def time.Duration) time.Duration {
	value, ok := c.scalar(path)
	if !ok {
		return def
	}
	switch v := value.(type) {
	case time.Duration:
		return v
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		n, err := toInt(v)
		if err != nil {
			return def
		}
		return time.Duration(n) * time.Second
	default:
		n, err := toInt(v)
		if err != nil {
			return def
		}
		return time.Duration(n) * time.Second
	}
}

func (c *Config) scalar(path string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	value, ok := lookup(c.values, path)
	if !ok || value == nil {
		return nil, false
	}
	switch value.(type) {
	case map[string]any, []any:
		return nil, false
	}
	return value, true
}

func toInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case int32:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%w: %v is not an integer", ErrTypeConversion, v)
		}
		return int(v), nil
	case string:
		converted, err := cast.FromType(v, intType)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %w", ErrTypeConversion, v, err)
		}
		rv := reflect.ValueOf(converted)
		if !rv.CanInt() {
			return 0, fmt.Errorf("%w: %q to int", ErrTypeConversion, v)
		}
		return int(rv.Int()), nil
	default:
		rv := reflect.ValueOf(value)
		if rv.CanInt() {
			return int(rv.Int()), nil
		}
		if rv.CanUint() {
			return int(rv.Uint()), nil
		}
		return 0, fmt.Errorf("%w: %T to int", ErrTypeConversion, value)
	}
}

// coerce converts raw to the type of like. Strings that cannot be converted
// produce an error; when like is nil or a string, raw is kept as is.
func coerce(raw string, like any) (any, error) {
	if like == nil {
		return raw, nil
	}
	target := reflect.TypeOf(like)
	if target == stringType {
		return raw, nil
	}
	switch like.(type) {
	case time.Duration:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q to duration: %w", ErrTypeConversion, raw, err)
		}
		return d, nil
	case map[string]any, []any:
		return nil, fmt.Errorf("%w: %q to %s", ErrTypeConversion, raw, target)
	}

	converted, err := cast.FromType(raw, target)
	if err != nil {
		return nil, fmt.Errorf("%w: %q to %s: %w", ErrTypeConversion, raw, target, err)
	}
	return converted, nil
}
