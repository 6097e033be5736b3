package config

import (
	"fmt"
	"strings"
)

// NestedSeparator separates nesting levels in environment variable names.
const NestedSeparator = "__"

// ApplyEnv overlays environment variables that start with prefix followed by
// an underscore. APP_HTTP__PORT=8080 with prefix "APP" sets "http.port". When
// a value already exists at the path the string is converted to its type.
// It returns the number of variables applied.
func (c *Config) ApplyEnv(prefix string, environ []string) (int, error) {
	marker := strings.ToUpper(prefix) + "_"
	applied := 0

	for _, kv := range environ {
		name, raw, found := strings.Cut(kv, "=")
		if !found || !strings.HasPrefix(strings.ToUpper(name), marker) {
			continue
		}

		key := name[len(marker):]
		if key == "" {
			continue
		}
		path := strings.ToLower(strings.ReplaceAll(key, NestedSeparator, Separator))

		value, err := coerce(raw, c.Get(path, nil))
		if err != nil {
			return applied, fmt.Errorf("environment variable %s: %w", name, err)
		}
		c.Set(path, value)
		applied++
	}

	return applied, nil
}
