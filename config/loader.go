package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format names a supported file format.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// FormatFromPath picks a format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// LoadFile reads path and returns a new handle with its contents.
func LoadFile(path string) (*Config, error) {
	values, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return New(values), nil
}

// ReadFile decodes path into a nested map without wrapping it in a handle.
func ReadFile(path string) (map[string]any, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	values, err := Decode(format, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	return values, nil
}

// Decode parses data in the given format into a nested map.
func Decode(format Format, data []byte) (map[string]any, error) {
	values := make(map[string]any)

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &values); err != nil {
			return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), &values); err != nil {
			return nil, fmt.Errorf("failed to unmarshal TOML: %w", err)
		}
	case FormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber()
		var raw map[string]any
		if err := decoder.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
		}
		values = fromJSONNumbers(raw).(map[string]any)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	if values == nil {
		values = make(map[string]any)
	}
	return normalizeMap(values), nil
}

// fromJSONNumbers turns json.Number into int64 when integral and float64
// otherwise, so JSON files yield the same shapes as YAML and TOML.
func fromJSONNumbers(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, item := range v {
			v[key] = fromJSONNumbers(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = fromJSONNumbers(item)
		}
		return v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		f, _ := v.Float64()
		return f
	default:
		return v
	}
}
