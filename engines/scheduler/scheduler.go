// Package scheduler provides a cron engine for the flow application
// container. Jobs are registered before start, their schedules are validated
// during Init and they run while the engine is started.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/GoCodeAlone/flow"
	"github.com/GoCodeAlone/flow/lifecycle"
)

// Kind is the event source used before the engine is registered.
const Kind = "scheduler"

// Events emitted on the engine bus for every job execution.
const (
	EventJobRun   = "job_run"
	EventJobError = "job_error"
)

// Error definitions
var (
	ErrInvalidSchedule = errors.New("invalid cron schedule")
	ErrDuplicateJob    = errors.New("job already registered")
	ErrJobNotFound     = errors.New("job not found")
	ErrNilJob          = errors.New("job function is nil")
	ErrNotRunning      = errors.New("scheduler is not running")
)

// JobFunc defines a function that can be executed as a job. The context is
// canceled when the engine stops.
type JobFunc func(ctx context.Context) error

// JobInfo describes a registered job.
type JobInfo struct {
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"`
	Runs      int        `json:"runs"`
	Failures  int        `json:"failures"`
	LastRun   *time.Time `json:"lastRun,omitempty"`
	NextRun   *time.Time `json:"nextRun,omitempty"`
	LastError string     `json:"lastError,omitempty"`
}

type job struct {
	name     string
	spec     string
	fn       JobFunc
	schedule cron.Schedule
	entry    cron.EntryID

	runs      int
	failures  int
	lastRun   *time.Time
	lastError string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocation interprets schedules in loc instead of time.Local.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		e.location = loc
	}
}

// Engine runs named cron jobs.
type Engine struct {
	*flow.BaseEngine

	location *time.Location

	mu     sync.RWMutex
	jobs   map[string]*job
	order  []string
	cron   *cron.Cron
	runCtx context.Context
	cancel context.CancelFunc
}

// New creates a scheduler engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		location: time.Local,
		jobs:     make(map[string]*job),
	}
	e.BaseEngine = flow.NewBaseEngine(Kind, e, lifecycle.HookFuncs{
		Init:  e.init,
		Start: e.start,
		Stop:  e.stop,
	})
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddJob registers fn to run on the standard five-field cron spec, or a
// descriptor such as "@hourly" or "@every 30s". The spec is validated here
// and again during Init.
func (e *Engine) AddJob(name, spec string, fn JobFunc) error {
	if fn == nil {
		return fmt.Errorf("%w: %s", ErrNilJob, name)
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("%w: job %s: %q: %w", ErrInvalidSchedule, name, spec, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}
	if e.cron != nil {
		return fmt.Errorf("job %s: %w", name, flow.ErrRegistrationClosed)
	}
	e.jobs[name] = &job{name: name, spec: spec, fn: fn, schedule: schedule}
	e.order = append(e.order, name)
	return nil
}

// Jobs returns the registered jobs in registration order.
func (e *Engine) Jobs() []JobInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()

	infos := make([]JobInfo, 0, len(e.order))
	for _, name := range e.order {
		j := e.jobs[name]
		info := JobInfo{
			Name:      j.name,
			Schedule:  j.spec,
			Runs:      j.runs,
			Failures:  j.failures,
			LastRun:   j.lastRun,
			LastError: j.lastError,
		}
		if e.cron != nil && j.entry != 0 {
			if next := e.cron.Entry(j.entry).Next; !next.IsZero() {
				info.NextRun = &next
			}
		}
		infos = append(infos, info)
	}
	return infos
}

// Trigger runs the named job immediately in the caller's goroutine. The
// engine must be started.
func (e *Engine) Trigger(name string) error {
	e.mu.RLock()
	j, ok := e.jobs[name]
	running := e.runCtx != nil
	e.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if !running {
		return ErrNotRunning
	}
	return e.run(j)
}

func (e *Engine) init(ctx context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, name := range e.order {
		j := e.jobs[name]
		if _, err := cron.ParseStandard(j.spec); err != nil {
			return fmt.Errorf("%w: job %s: %w", ErrInvalidSchedule, name, err)
		}
	}
	e.Logger().Debug("Scheduler initialized", "engine", e.Name(), "jobs", len(e.order))
	return nil
}

func (e *Engine) start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	logger := cronLogger{logger: e.Logger()}
	e.cron = cron.New(
		cron.WithLocation(e.location),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	e.runCtx, e.cancel = context.WithCancel(context.WithoutCancel(ctx))

	for _, name := range e.order {
		j := e.jobs[name]
		j.entry = e.cron.Schedule(j.schedule, cron.FuncJob(func() {
			_ = e.run(j)
		}))
	}

	e.cron.Start()
	e.Logger().Info("Scheduler started", "engine", e.Name(), "jobs", len(e.order))
	return nil
}

func (e *Engine) stop(ctx context.Context) error {
	e.mu.Lock()
	c, cancel := e.cron, e.cancel
	e.mu.Unlock()

	done := c.Stop()
	cancel()

	select {
	case <-done.Done():
		e.Logger().Info("Scheduler stopped", "engine", e.Name())
	case <-ctx.Done():
		return fmt.Errorf("waiting for running jobs: %w", ctx.Err())
	}

	e.mu.Lock()
	e.runCtx = nil
	e.mu.Unlock()
	return nil
}

// run executes one job, records the outcome and emits the matching event.
func (e *Engine) run(j *job) error {
	e.mu.RLock()
	ctx := e.runCtx
	e.mu.RUnlock()
	if ctx == nil {
		return ErrNotRunning
	}

	started := time.Now()
	err := j.fn(ctx)
	duration := time.Since(started)

	e.mu.Lock()
	j.runs++
	j.lastRun = &started
	if err != nil {
		j.failures++
		j.lastError = err.Error()
	} else {
		j.lastError = ""
	}
	e.mu.Unlock()

	if err != nil {
		e.Logger().Error("Job failed", "engine", e.Name(), "job", j.name, "error", err)
		e.emit(ctx, EventJobError, map[string]any{
			"job":         j.name,
			"error":       err.Error(),
			"duration_ms": duration.Milliseconds(),
		})
		return fmt.Errorf("job %s: %w", j.name, err)
	}

	e.Logger().Debug("Job completed", "engine", e.Name(), "job", j.name, "duration", duration)
	e.emit(ctx, EventJobRun, map[string]any{
		"job":         j.name,
		"duration_ms": duration.Milliseconds(),
	})
	return nil
}

func (e *Engine) emit(ctx context.Context, event string, data map[string]any) {
	if err := e.Emit(ctx, event, data); err != nil {
		e.Logger().Debug("Failed to emit event", "event", event, "error", err)
	}
}

// Names returns the job names in registration order.
func (e *Engine) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.order)
}
