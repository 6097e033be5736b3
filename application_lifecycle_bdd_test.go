package flow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/GoCodeAlone/flow/lifecycle"
)

// Static error variables for BDD tests
var (
	errUnexpectedHooks      = errors.New("unexpected hook order")
	errUnexpectedState      = errors.New("unexpected state")
	errUnexpectedCount      = errors.New("unexpected hook count")
	errExpectedFailure      = errors.New("expected the operation to fail")
	errUnexpectedEngine     = errors.New("unexpected engine in error")
	errUnexpectedEventCount = errors.New("unexpected event count")
	errUnexpectedSubject    = errors.New("event subject is not the engine")
)

// LifecycleBDDContext holds the state of one scenario.
type LifecycleBDDContext struct {
	app       *Application
	log       *callLog
	engines   map[string]*recordingEngine
	opErr     error
	lookupErr error
	received  []lifecycle.Event
}

func (c *LifecycleBDDContext) reset() {
	c.app = nil
	c.log = &callLog{}
	c.engines = make(map[string]*recordingEngine)
	c.opErr = nil
	c.lookupErr = nil
	c.received = nil
}

func (c *LifecycleBDDContext) iHaveANewApplication() error {
	c.app = New(WithLogger(&testLogger{}))
	return nil
}

func (c *LifecycleBDDContext) iRegisterEngines(a, b, d string) error {
	for _, id := range []string{a, b, d} {
		e := newRecordingEngine(id, c.log)
		if err := c.app.RegisterEngine(id, e); err != nil {
			return err
		}
		c.engines[id] = e
	}
	return nil
}

func (c *LifecycleBDDContext) engineFailsTo(id, phase string) error {
	c.engines[id].failOn = phase
	return nil
}

func (c *LifecycleBDDContext) iStartTheApplication() error {
	return c.app.Start(context.Background())
}

func (c *LifecycleBDDContext) iTryToStartTheApplication() error {
	c.opErr = c.app.Start(context.Background())
	return nil
}

func (c *LifecycleBDDContext) iStopTheApplication() error {
	return c.app.Stop(context.Background())
}

func (c *LifecycleBDDContext) theHooksShouldHaveRunInOrder(table *godog.Table) error {
	want := make([]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		want = append(want, row.Cells[0].Value)
	}
	if got := c.log.all(); !slices.Equal(got, want) {
		return fmt.Errorf("%w: got %v, want %v", errUnexpectedHooks, got, want)
	}
	return nil
}

func (c *LifecycleBDDContext) theApplicationShouldBe(state string) error {
	if got := c.app.State().String(); got != state {
		return fmt.Errorf("%w: application is %s, want %s", errUnexpectedState, got, state)
	}
	return nil
}

func (c *LifecycleBDDContext) engineShouldBe(id, state string) error {
	if got := c.engines[id].State().String(); got != state {
		return fmt.Errorf("%w: engine %s is %s, want %s", errUnexpectedState, id, got, state)
	}
	return nil
}

func (c *LifecycleBDDContext) engineShouldHaveRunTimes(id, phase string, times int) error {
	count := 0
	for _, call := range c.log.all() {
		if call == id+"."+phase {
			count++
		}
	}
	if count != times {
		return fmt.Errorf("%w: %s.%s ran %d times, want %d", errUnexpectedCount, id, phase, count, times)
	}
	return nil
}

func (c *LifecycleBDDContext) theOperationShouldFailMentioningEngine(id string) error {
	if c.opErr == nil {
		return errExpectedFailure
	}
	if !errors.Is(c.opErr, errHookFailed) {
		return fmt.Errorf("unexpected error: %w", c.opErr)
	}
	if want := fmt.Sprintf("engine %q", id); !strings.Contains(c.opErr.Error(), want) {
		return fmt.Errorf("%w: %v", errUnexpectedEngine, c.opErr)
	}
	return nil
}

func (c *LifecycleBDDContext) iListenForOnTheApplication(event string) error {
	c.app.On(event, func(_ context.Context, ev lifecycle.Event) error {
		c.received = append(c.received, ev)
		return nil
	})
	return nil
}

func (c *LifecycleBDDContext) theListenerShouldHaveReceivedEventsFromEngine(n int, id string) error {
	if len(c.received) != n {
		return fmt.Errorf("%w: got %d, want %d", errUnexpectedEventCount, len(c.received), n)
	}
	for _, ev := range c.received {
		if ev.Subject != c.engines[id] {
			return errUnexpectedSubject
		}
	}
	return nil
}

func (c *LifecycleBDDContext) iLookUpEngine(name string) error {
	_, c.lookupErr = c.app.Engine(name)
	return nil
}

func (c *LifecycleBDDContext) theLookupShouldFailWithEngineNotRegistered() error {
	if !errors.Is(c.lookupErr, ErrEngineNotRegistered) {
		return fmt.Errorf("%w: got %v", errExpectedFailure, c.lookupErr)
	}
	return nil
}

// InitializeLifecycleScenario registers the lifecycle step definitions.
func InitializeLifecycleScenario(ctx *godog.ScenarioContext) {
	c := &LifecycleBDDContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		c.reset()
		return ctx, nil
	})

	ctx.Step(`^I have a new application$`, c.iHaveANewApplication)
	ctx.Step(`^I register engines "([^"]*)", "([^"]*)" and "([^"]*)"$`, c.iRegisterEngines)
	ctx.Step(`^engine "([^"]*)" fails to "([^"]*)"$`, c.engineFailsTo)
	ctx.Step(`^I start the application$`, c.iStartTheApplication)
	ctx.Step(`^I try to start the application$`, c.iTryToStartTheApplication)
	ctx.Step(`^I stop the application$`, c.iStopTheApplication)
	ctx.Step(`^the hooks should have run in order:$`, c.theHooksShouldHaveRunInOrder)
	ctx.Step(`^the application should be "([^"]*)"$`, c.theApplicationShouldBe)
	ctx.Step(`^engine "([^"]*)" should be "([^"]*)"$`, c.engineShouldBe)
	ctx.Step(`^engine "([^"]*)" should have run "([^"]*)" (\d+) times?$`, c.engineShouldHaveRunTimes)
	ctx.Step(`^the operation should fail mentioning engine "([^"]*)"$`, c.theOperationShouldFailMentioningEngine)
	ctx.Step(`^I listen for "([^"]*)" on the application$`, c.iListenForOnTheApplication)
	ctx.Step(`^the listener should have received (\d+) events? from engine "([^"]*)"$`, c.theListenerShouldHaveReceivedEventsFromEngine)
	ctx.Step(`^I look up engine "([^"]*)"$`, c.iLookUpEngine)
	ctx.Step(`^the lookup should fail with engine not registered$`, c.theLookupShouldFailWithEngineNotRegistered)
}

// TestApplicationLifecycle runs the BDD tests for the application lifecycle
func TestApplicationLifecycle(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeLifecycleScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/application_lifecycle.feature"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
