package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/GoCodeAlone/flow/lifecycle"
)

var errHookFailed = errors.New("hook failed")

// callLog records hook invocations across several engines.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// recordingEngine logs "<id>.<phase>" for every hook and fails the phase
// named in failOn.
type recordingEngine struct {
	*BaseEngine
	id     string
	log    *callLog
	failOn string
}

func newRecordingEngine(id string, log *callLog) *recordingEngine {
	e := &recordingEngine{id: id, log: log}
	e.BaseEngine = NewBaseEngine("recording", e, lifecycle.HookFuncs{
		Init:  func(context.Context) error { return e.hook("init") },
		Start: func(context.Context) error { return e.hook("start") },
		Stop:  func(context.Context) error { return e.hook("stop") },
	})
	return e
}

func (e *recordingEngine) hook(phase string) error {
	e.log.add(e.id + "." + phase)
	if e.failOn == phase {
		return fmt.Errorf("%s %s: %w", e.id, phase, errHookFailed)
	}
	return nil
}

// testLogger captures log entries for assertions.
type testLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	level string
	msg   string
	args  []any
}

func (l *testLogger) log(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *testLogger) Info(msg string, args ...any)  { l.log("info", msg, args) }
func (l *testLogger) Error(msg string, args ...any) { l.log("error", msg, args) }
func (l *testLogger) Warn(msg string, args ...any)  { l.log("warn", msg, args) }
func (l *testLogger) Debug(msg string, args ...any) { l.log("debug", msg, args) }

func (l *testLogger) messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.entries {
		if e.level == level {
			out = append(out, e.msg)
		}
	}
	return out
}
