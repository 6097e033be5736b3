package scheduler

import (
	"github.com/GoCodeAlone/flow"
)

// cronLogger adapts a flow.Logger to cron.Logger.
type cronLogger struct {
	logger flow.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
