package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/GoCodeAlone/flow"
	"github.com/GoCodeAlone/flow/config"
)

// Static errors for command options
var (
	ErrUnknownLogFormat = errors.New("unknown log format")
	ErrUnknownLogLevel  = errors.New("unknown log level")
	ErrUnknownOutput    = errors.New("unknown output format")
)

type globalOptions struct {
	configPath string
	envPrefix  string
	logFormat  string
	logLevel   string
}

// loadConfig builds the configuration handle from defaults, the optional
// file and the environment, in that order.
func (o *globalOptions) loadConfig(environ []string) (*config.Config, error) {
	cfg := config.New(defaultValues())

	if o.configPath != "" {
		values, err := config.ReadFile(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg.Merge(values)
	}

	if o.envPrefix != "" {
		if _, err := cfg.ApplyEnv(o.envPrefix, environ); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func defaultValues() map[string]any {
	return map[string]any{
		"name": "flowd",
		"http": map[string]any{
			"host": "localhost",
			"port": 3000,
		},
	}
}

// newLogger creates the logger selected by --log-format. The returned
// function flushes it.
func (o *globalOptions) newLogger(w io.Writer) (flow.Logger, func(), error) {
	format := strings.ToLower(o.logFormat)
	switch format {
	case "text", "json":
		var level slog.Level
		if err := level.UnmarshalText([]byte(o.logLevel)); err != nil {
			return nil, nil, fmt.Errorf("%w: %q", ErrUnknownLogLevel, o.logLevel)
		}
		handlerOpts := &slog.HandlerOptions{Level: level}
		if format == "json" {
			return slog.New(slog.NewJSONHandler(w, handlerOpts)), func() {}, nil
		}
		return slog.New(slog.NewTextHandler(w, handlerOpts)), func() {}, nil

	case "zap":
		level, err := zapcore.ParseLevel(o.logLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %q", ErrUnknownLogLevel, o.logLevel)
		}
		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(w),
			level,
		)
		logger := flow.NewZapLogger(zap.New(core))
		return logger, func() { _ = logger.Sync() }, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownLogFormat, o.logFormat)
	}
}

func environ() []string {
	return os.Environ()
}
