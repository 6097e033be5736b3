package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/GoCodeAlone/flow"
	"github.com/GoCodeAlone/flow/config"
	"github.com/GoCodeAlone/flow/engines/httpengine"
	"github.com/GoCodeAlone/flow/engines/scheduler"
	"github.com/GoCodeAlone/flow/health"
)

// Engine names used by flowd.
const (
	HTTPEngineName      = "http"
	SchedulerEngineName = "scheduler"
	HealthServiceName   = "health"
)

// NewContainer wires the flowd application: an HTTP engine serving
// GET /config and GET /healthz, a health aggregator registered as "health"
// and, when scheduler.heartbeat holds a cron spec, a scheduler logging a
// heartbeat on that schedule.
func NewContainer(cfg *config.Config, logger flow.Logger) (*flow.ServiceContainer, error) {
	sc, err := flow.NewServiceContainer(cfg.GetAll(), flow.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	web := httpengine.New()
	if err := web.Use(httpengine.RequestID(), httpengine.RequestLogger(logger)); err != nil {
		return nil, err
	}
	if err := web.Get("/config", func(c *httpengine.Context) error {
		return c.JSON(http.StatusOK, c.App.Config().GetAll())
	}); err != nil {
		return nil, err
	}

	checks := health.NewAggregator(5 * time.Second)
	if err := checks.RegisterCheck(health.EngineCheck(sc.App)); err != nil {
		return nil, err
	}
	if err := sc.Registry.Register(HealthServiceName, checks); err != nil {
		return nil, err
	}
	if err := web.Get("/healthz", func(c *httpengine.Context) error {
		status := checks.CheckAll(c.Context())
		if !status.Healthy() {
			return c.JSON(http.StatusServiceUnavailable, status)
		}
		return c.JSON(http.StatusOK, status)
	}); err != nil {
		return nil, err
	}
	if err := sc.App.RegisterEngine(HTTPEngineName, web); err != nil {
		return nil, err
	}
	if err := sc.Registry.Register(HTTPEngineName, web, "engine"); err != nil {
		return nil, err
	}

	if spec := sc.Config.GetString("scheduler.heartbeat", ""); spec != "" {
		cron := scheduler.New()
		if err := cron.AddJob("heartbeat", spec, func(ctx context.Context) error {
			logger.Info("Heartbeat", "engines", sc.App.EngineStates())
			return nil
		}); err != nil {
			return nil, fmt.Errorf("configuring scheduler: %w", err)
		}
		if err := sc.App.RegisterEngine(SchedulerEngineName, cron); err != nil {
			return nil, err
		}
		if err := sc.Registry.Register(SchedulerEngineName, cron, "engine"); err != nil {
			return nil, err
		}
	}

	return sc, nil
}
