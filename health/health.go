// Package health aggregates named health checks into one status using
// worst-state logic.
package health

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Static errors for health package
var (
	ErrDuplicateCheck = errors.New("health check already registered")
	ErrNilCheck       = errors.New("health check is nil")
)

// Status represents the status of a health check
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
	StatusUnknown  Status = "unknown"
)

// severity orders statuses from best to worst.
func (s Status) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusWarning:
		return 1
	case StatusUnknown:
		return 2
	default:
		return 3
	}
}

// Checker defines the interface for individual health check implementations
type Checker interface {
	// Name returns the unique name of this health check
	Name() string

	// Check performs the check. A returned error marks the check critical.
	Check(ctx context.Context) (*CheckResult, error)
}

// CheckResult represents the result of a single health check
type CheckResult struct {
	Name      string         `json:"name"`
	Status    Status         `json:"status"`
	Message   string         `json:"message,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Duration  time.Duration  `json:"duration"`
	Details   map[string]any `json:"details,omitempty"`
}

// AggregatedStatus represents the aggregated status of all health checks
type AggregatedStatus struct {
	Status    Status                  `json:"status"`
	Timestamp time.Time               `json:"timestamp"`
	Checks    map[string]*CheckResult `json:"checks"`
}

// Healthy reports whether the aggregate can serve traffic. Warnings count
// as healthy.
func (s *AggregatedStatus) Healthy() bool {
	return s.Status == StatusHealthy || s.Status == StatusWarning
}

// CheckFunc adapts a function to the Checker interface.
type CheckFunc struct {
	name string
	fn   func(ctx context.Context) (*CheckResult, error)
}

// NewCheck creates a Checker named name that runs fn.
func NewCheck(name string, fn func(ctx context.Context) (*CheckResult, error)) *CheckFunc {
	return &CheckFunc{name: name, fn: fn}
}

// Name implements Checker.
func (c *CheckFunc) Name() string { return c.name }

// Check implements Checker.
func (c *CheckFunc) Check(ctx context.Context) (*CheckResult, error) { return c.fn(ctx) }

// Aggregator runs registered checks in parallel, each bounded by a timeout.
type Aggregator struct {
	timeout time.Duration

	mu       sync.RWMutex
	checkers []Checker
}

// NewAggregator creates an aggregator. A non-positive timeout defaults to
// ten seconds.
func NewAggregator(timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Aggregator{timeout: timeout}
}

// RegisterCheck adds checker. Names must be unique.
func (a *Aggregator) RegisterCheck(checker Checker) error {
	if checker == nil {
		return ErrNilCheck
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if slices.ContainsFunc(a.checkers, func(c Checker) bool { return c.Name() == checker.Name() }) {
		return fmt.Errorf("%w: %s", ErrDuplicateCheck, checker.Name())
	}
	a.checkers = append(a.checkers, checker)
	return nil
}

// CheckAll runs every check and reports the worst status. With no checks
// registered the aggregate is healthy. A check still running when its timeout
// expires is reported critical and left to finish in the background.
func (a *Aggregator) CheckAll(ctx context.Context) *AggregatedStatus {
	a.mu.RLock()
	checkers := slices.Clone(a.checkers)
	a.mu.RUnlock()

	results := make([]*CheckResult, len(checkers))
	var wg sync.WaitGroup
	for i, checker := range checkers {
		i, checker := i, checker
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = a.await(ctx, checker)
		}()
	}
	wg.Wait()

	status := &AggregatedStatus{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Checks:    make(map[string]*CheckResult, len(results)),
	}
	for _, result := range results {
		status.Checks[result.Name] = result
		if result.Status.severity() > status.Status.severity() {
			status.Status = result.Status
		}
	}
	return status
}

// await bounds a check by the timeout whether or not it honors ctx.
func (a *Aggregator) await(ctx context.Context, checker Checker) *CheckResult {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	started := time.Now()
	done := make(chan *CheckResult, 1)
	go func() { done <- a.run(ctx, checker) }()

	select {
	case result := <-done:
		return result
	case <-ctx.Done():
		return &CheckResult{
			Name:      checker.Name(),
			Status:    StatusCritical,
			Error:     ctx.Err().Error(),
			Timestamp: started,
			Duration:  time.Since(started),
		}
	}
}

func (a *Aggregator) run(ctx context.Context, checker Checker) (result *CheckResult) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = &CheckResult{Status: StatusCritical, Error: fmt.Sprintf("check panicked: %v", r)}
		}
		result.Name = checker.Name()
		result.Timestamp = started
		result.Duration = time.Since(started)
	}()

	res, err := checker.Check(ctx)
	switch {
	case err != nil:
		return &CheckResult{Status: StatusCritical, Error: err.Error()}
	case res == nil:
		return &CheckResult{Status: StatusUnknown}
	}
	if res.Status == "" {
		res.Status = StatusUnknown
	}
	return res
}
