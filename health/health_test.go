package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/flow"
	"github.com/GoCodeAlone/flow/lifecycle"
)

func fixed(name string, status Status) Checker {
	return NewCheck(name, func(context.Context) (*CheckResult, error) {
		return &CheckResult{Status: status}, nil
	})
}

func TestAggregator_WorstStateWins(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
		healthy  bool
	}{
		{"empty", nil, StatusHealthy, true},
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy, true},
		{"warning", []Status{StatusHealthy, StatusWarning}, StatusWarning, true},
		{"unknown", []Status{StatusWarning, StatusUnknown}, StatusUnknown, false},
		{"critical", []Status{StatusCritical, StatusWarning, StatusUnknown}, StatusCritical, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAggregator(time.Second)
			for i, s := range tt.statuses {
				require.NoError(t, a.RegisterCheck(fixed(string(rune('a'+i)), s)))
			}

			status := a.CheckAll(context.Background())
			assert.Equal(t, tt.want, status.Status)
			assert.Equal(t, tt.healthy, status.Healthy())
			assert.Len(t, status.Checks, len(tt.statuses))
		})
	}
}

func TestAggregator_FailuresBecomeResults(t *testing.T) {
	a := NewAggregator(50 * time.Millisecond)
	require.NoError(t, a.RegisterCheck(NewCheck("error", func(context.Context) (*CheckResult, error) {
		return nil, errors.New("db down")
	})))
	require.NoError(t, a.RegisterCheck(NewCheck("panic", func(context.Context) (*CheckResult, error) {
		panic("bad check")
	})))
	require.NoError(t, a.RegisterCheck(NewCheck("nil", func(context.Context) (*CheckResult, error) {
		return nil, nil
	})))
	require.NoError(t, a.RegisterCheck(NewCheck("slow", func(ctx context.Context) (*CheckResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})))

	status := a.CheckAll(context.Background())

	assert.Equal(t, StatusCritical, status.Status)
	assert.Equal(t, "db down", status.Checks["error"].Error)
	assert.Contains(t, status.Checks["panic"].Error, "bad check")
	assert.Equal(t, StatusUnknown, status.Checks["nil"].Status)
	assert.Equal(t, StatusCritical, status.Checks["slow"].Status)
	assert.Equal(t, "slow", status.Checks["slow"].Name)
}

func TestAggregator_TimeoutCutsOffChecksIgnoringContext(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	a := NewAggregator(50 * time.Millisecond)
	require.NoError(t, a.RegisterCheck(NewCheck("stuck", func(context.Context) (*CheckResult, error) {
		<-release
		return &CheckResult{Status: StatusHealthy}, nil
	})))
	require.NoError(t, a.RegisterCheck(fixed("fine", StatusHealthy)))

	started := time.Now()
	status := a.CheckAll(context.Background())

	assert.Less(t, time.Since(started), time.Second)
	assert.Equal(t, StatusCritical, status.Status)
	assert.Equal(t, "stuck", status.Checks["stuck"].Name)
	assert.Equal(t, context.DeadlineExceeded.Error(), status.Checks["stuck"].Error)
	assert.Equal(t, StatusHealthy, status.Checks["fine"].Status)
}

func TestAggregator_RegisterCheck(t *testing.T) {
	a := NewAggregator(0)
	require.NoError(t, a.RegisterCheck(fixed("x", StatusHealthy)))
	require.ErrorIs(t, a.RegisterCheck(fixed("x", StatusHealthy)), ErrDuplicateCheck)
	require.ErrorIs(t, a.RegisterCheck(nil), ErrNilCheck)
}

type idleEngine struct {
	*flow.BaseEngine
}

func newIdleEngine() *idleEngine {
	e := &idleEngine{}
	e.BaseEngine = flow.NewBaseEngine("idle", e, lifecycle.HookFuncs{})
	return e
}

func TestEngineCheck(t *testing.T) {
	ctx := context.Background()
	app := flow.New()
	require.NoError(t, app.RegisterEngine("idle", newIdleEngine()))

	a := NewAggregator(time.Second)
	require.NoError(t, a.RegisterCheck(EngineCheck(app)))

	status := a.CheckAll(ctx)
	assert.Equal(t, StatusCritical, status.Status)
	assert.Equal(t, "1 of 1 engines not started", status.Checks["engines"].Message)

	require.NoError(t, app.Start(ctx))
	status = a.CheckAll(ctx)
	assert.Equal(t, StatusHealthy, status.Status)
	assert.Equal(t, map[string]any{"idle": "started"}, status.Checks["engines"].Details)
}
