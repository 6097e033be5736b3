package health

import (
	"context"
	"fmt"

	"github.com/GoCodeAlone/flow"
	"github.com/GoCodeAlone/flow/lifecycle"
)

// EngineCheck reports critical while any engine of app is not started.
func EngineCheck(app *flow.Application) Checker {
	return NewCheck("engines", func(context.Context) (*CheckResult, error) {
		states := app.EngineStates()
		details := make(map[string]any, len(states))
		down := 0
		for name, state := range states {
			details[name] = state.String()
			if state != lifecycle.StateStarted {
				down++
			}
		}

		result := &CheckResult{Status: StatusHealthy, Details: details}
		if down > 0 {
			result.Status = StatusCritical
			result.Message = fmt.Sprintf("%d of %d engines not started", down, len(states))
		}
		return result, nil
	})
}
