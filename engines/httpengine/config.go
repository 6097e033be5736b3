package httpengine

import (
	"net"
	"strconv"
	"time"

	"github.com/GoCodeAlone/flow/config"
)

// Defaults used when a key is absent from the engine's config section.
const (
	DefaultSection         = "http"
	DefaultHost            = "localhost"
	DefaultPort            = 3000
	DefaultMaxBodyBytes    = 1 << 20
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)

// Config holds the HTTP engine settings.
type Config struct {
	// Host is the interface to bind. Default "localhost".
	Host string `json:"host" yaml:"host" toml:"host"`

	// Port to listen on. 0 picks a free port; Engine.Addr reports it.
	Port int `json:"port" yaml:"port" toml:"port"`

	// MaxBodyBytes bounds buffered request bodies. Zero or less disables the limit.
	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`

	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" toml:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout" yaml:"idle_timeout" toml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown in Stop.
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" toml:"shutdown_timeout"`

	// MetricsPath exposes Prometheus metrics on GET at this path. Empty disables metrics.
	MetricsPath string `json:"metrics_path" yaml:"metrics_path" toml:"metrics_path"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Host:            DefaultHost,
		Port:            DefaultPort,
		MaxBodyBytes:    DefaultMaxBodyBytes,
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// ConfigFromSection reads the engine settings below section in cfg, falling
// back to DefaultConfig for absent keys.
func ConfigFromSection(cfg *config.Config, section string) Config {
	def := DefaultConfig()
	if cfg == nil {
		return def
	}
	sub := cfg.Sub(section)

	return Config{
		Host:            sub.GetString("host", def.Host),
		Port:            sub.GetInt("port", def.Port),
		MaxBodyBytes:    int64(sub.GetInt("max_body_bytes", int(def.MaxBodyBytes))),
		ReadTimeout:     sub.GetDuration("read_timeout", def.ReadTimeout),
		WriteTimeout:    sub.GetDuration("write_timeout", def.WriteTimeout),
		IdleTimeout:     sub.GetDuration("idle_timeout", def.IdleTimeout),
		ShutdownTimeout: sub.GetDuration("shutdown_timeout", def.ShutdownTimeout),
		MetricsPath:     sub.GetString("metrics_path", def.MetricsPath),
	}
}

// Addr returns the host:port listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
