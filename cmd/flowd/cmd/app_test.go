package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/flow"
	"github.com/GoCodeAlone/flow/config"
	"github.com/GoCodeAlone/flow/engines/httpengine"
	"github.com/GoCodeAlone/flow/engines/scheduler"
	"github.com/GoCodeAlone/flow/registry"
)

func TestNewContainer_HTTPRoutes(t *testing.T) {
	cfg := config.New(map[string]any{
		"name": "demo",
		"http": map[string]any{"host": "127.0.0.1", "port": 0},
	})
	sc, err := NewContainer(cfg, flow.NopLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{HTTPEngineName}, sc.App.Engines())

	web, err := registry.Get[*httpengine.Engine](sc.Registry, HTTPEngineName)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sc.App.Start(ctx))
	defer func() { _ = sc.App.Stop(ctx) }()

	rec := httptest.NewRecorder()
	web.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/config", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.JSONEq(t, `{"name":"demo","http":{"host":"127.0.0.1","port":0}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	web.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var status struct {
		Status string `json:"status"`
		Checks map[string]struct {
			Details map[string]any `json:"details"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, map[string]any{"http": "started"}, status.Checks["engines"].Details)
}

func TestNewContainer_HealthzBeforeStart(t *testing.T) {
	sc, err := NewContainer(config.New(nil), flow.NopLogger())
	require.NoError(t, err)

	web, err := registry.Get[*httpengine.Engine](sc.Registry, HTTPEngineName)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	web.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.True(t, sc.Registry.Exists(HealthServiceName))
}

func TestNewContainer_Scheduler(t *testing.T) {
	cfg := config.New(map[string]any{
		"http":      map[string]any{"host": "127.0.0.1", "port": 0},
		"scheduler": map[string]any{"heartbeat": "@every 1m"},
	})
	sc, err := NewContainer(cfg, flow.NopLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{HTTPEngineName, SchedulerEngineName}, sc.App.Engines())

	engines, err := sc.Registry.ByTag("engine")
	require.NoError(t, err)
	assert.Len(t, engines, 2)

	cron, err := registry.Get[*scheduler.Engine](sc.Registry, SchedulerEngineName)
	require.NoError(t, err)
	assert.Equal(t, []string{"heartbeat"}, cron.Names())
}

func TestNewContainer_InvalidHeartbeat(t *testing.T) {
	cfg := config.New(map[string]any{
		"scheduler": map[string]any{"heartbeat": "whenever"},
	})
	_, err := NewContainer(cfg, flow.NopLogger())
	require.ErrorIs(t, err, scheduler.ErrInvalidSchedule)
}
