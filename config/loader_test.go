package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile_Formats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "config.yaml",
			content: `app: demo
http:
  host: localhost
  port: 3000
features: [a, b]
`,
		},
		{
			name: "yml",
			file: "config.yml",
			content: `app: demo
http: {host: localhost, port: 3000}
features: [a, b]
`,
		},
		{
			name: "toml",
			file: "config.toml",
			content: `app = "demo"
features = ["a", "b"]

[http]
host = "localhost"
port = 3000
`,
		},
		{
			name:    "json",
			file:    "config.json",
			content: `{"app": "demo", "http": {"host": "localhost", "port": 3000}, "features": ["a", "b"]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := LoadFile(writeFile(t, tt.file, tt.content))
			require.NoError(t, err)

			assert.Equal(t, "demo", c.GetString("app", ""))
			assert.Equal(t, "localhost", c.GetString("http.host", ""))
			assert.Equal(t, 3000, c.GetInt("http.port", 0))
			assert.Equal(t, []any{"a", "b"}, c.Get("features", nil))
		})
	}
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(writeFile(t, "config.ini", "a=b"))
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = LoadFile(writeFile(t, "broken.json", "{"))
	require.Error(t, err)
}

func TestLoadFile_EmptyYAML(t *testing.T) {
	c, err := LoadFile(writeFile(t, "empty.yaml", ""))
	require.NoError(t, err)
	assert.Empty(t, c.GetAll())
}

func TestDecode_JSONNumbers(t *testing.T) {
	values, err := Decode(FormatJSON, []byte(`{"int": 3, "float": 2.5, "list": [1, 1.5]}`))
	require.NoError(t, err)

	assert.Equal(t, int64(3), values["int"])
	assert.Equal(t, 2.5, values["float"])
	assert.Equal(t, []any{int64(1), 1.5}, values["list"])
}
