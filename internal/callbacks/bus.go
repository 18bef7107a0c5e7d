// Package callbacks implements the lifecycle event bus published by the
// execution engine.
//
// Subscribers run synchronously in registration order. Execution hooks may
// be registered with an owner; an owned hook only fires for iterations of
// scenarios whose Owner matches, so an extension that requested extra runs
// can observe exactly those runs. Hooks registered with an empty owner fire
// for every iteration.
package callbacks

import (
	"sync"

	"github.com/wesleyorama2/timeit/internal/config"
	"github.com/wesleyorama2/timeit/internal/process"
	"github.com/wesleyorama2/timeit/internal/result"
)

// ExtraRunRequest asks the engine to repeat a scenario after its cool-down.
type ExtraRunRequest struct {
	// Owner is the requesting extension; set by the bus
	Owner string

	// Count is the number of extra iterations
	Count int

	// Env is merged into the scenario environment for these iterations
	Env map[string]string

	// IncludeInResults lets the extra data points feed the statistics
	IncludeInResults bool
}

// ScenarioStartEvent is published before a scenario's warm-up.
type ScenarioStartEvent struct {
	Index    int
	Scenario *config.Scenario
}

// ExecutionStartEvent is published before each spawn. Subscribers may
// modify Command; it is spawned only after every subscriber has run.
type ExecutionStartEvent struct {
	Scenario *config.Scenario
	Phase    result.Phase
	Command  *process.Command
}

// ExecutionEndEvent is published after each iteration is asserted.
type ExecutionEndEvent struct {
	Scenario  *config.Scenario
	Phase     result.Phase
	DataPoint *result.DataPoint
}

type (
	BeforeAllFunc      func(cfg *config.Config, scenarios []*config.Scenario)
	ScenarioStartFunc  func(ev ScenarioStartEvent) *ExtraRunRequest
	ExecutionStartFunc func(ev *ExecutionStartEvent)
	ExecutionEndFunc   func(ev ExecutionEndEvent)
	ScenarioFinishFunc func(res *result.ScenarioResult)
	AfterAllFunc       func(results []*result.ScenarioResult)
	FinishFunc         func(run *result.RunResult)
)

type owned[F any] struct {
	owner string
	fn    F
}

// Bus holds the ordered subscriber lists.
type Bus struct {
	mu             sync.RWMutex
	beforeAll      []BeforeAllFunc
	scenarioStart  []owned[ScenarioStartFunc]
	executionStart []owned[ExecutionStartFunc]
	executionEnd   []owned[ExecutionEndFunc]
	scenarioFinish []ScenarioFinishFunc
	afterAll       []AfterAllFunc
	finish         []FinishFunc
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// OnBeforeAllScenariosStart subscribes to the start of the run.
func (b *Bus) OnBeforeAllScenariosStart(fn BeforeAllFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.beforeAll = append(b.beforeAll, fn)
}

// OnScenarioStart subscribes to scenario starts. Extra-run requests returned
// by fn are attributed to owner.
func (b *Bus) OnScenarioStart(owner string, fn ScenarioStartFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scenarioStart = append(b.scenarioStart, owned[ScenarioStartFunc]{owner: owner, fn: fn})
}

// OnExecutionStart subscribes to iteration starts.
func (b *Bus) OnExecutionStart(owner string, fn ExecutionStartFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.executionStart = append(b.executionStart, owned[ExecutionStartFunc]{owner: owner, fn: fn})
}

// OnExecutionEnd subscribes to iteration ends.
func (b *Bus) OnExecutionEnd(owner string, fn ExecutionEndFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.executionEnd = append(b.executionEnd, owned[ExecutionEndFunc]{owner: owner, fn: fn})
}

// OnScenarioFinish subscribes to finished scenarios.
func (b *Bus) OnScenarioFinish(fn ScenarioFinishFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scenarioFinish = append(b.scenarioFinish, fn)
}

// OnAfterAllScenariosFinish subscribes to the end of the scenario loop.
func (b *Bus) OnAfterAllScenariosFinish(fn AfterAllFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.afterAll = append(b.afterAll, fn)
}

// OnFinish subscribes to the final run result.
func (b *Bus) OnFinish(fn FinishFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.finish = append(b.finish, fn)
}

// BeforeAllScenariosStart publishes the start of the run.
func (b *Bus) BeforeAllScenariosStart(cfg *config.Config, scenarios []*config.Scenario) {
	b.mu.RLock()
	subs := b.beforeAll
	b.mu.RUnlock()

	for _, fn := range subs {
		fn(cfg, scenarios)
	}
}

// ScenarioStart publishes a scenario start and collects extra-run requests.
func (b *Bus) ScenarioStart(index int, scenario *config.Scenario) []ExtraRunRequest {
	b.mu.RLock()
	subs := b.scenarioStart
	b.mu.RUnlock()

	var requests []ExtraRunRequest
	ev := ScenarioStartEvent{Index: index, Scenario: scenario}
	for _, sub := range subs {
		req := sub.fn(ev)
		if req == nil || req.Count <= 0 {
			continue
		}
		r := *req
		r.Owner = sub.owner
		requests = append(requests, r)
	}
	return requests
}

// ExecutionStart publishes an iteration start to the hooks matching the
// scenario owner.
func (b *Bus) ExecutionStart(scenario *config.Scenario, phase result.Phase, cmd *process.Command) {
	b.mu.RLock()
	subs := b.executionStart
	b.mu.RUnlock()

	ev := &ExecutionStartEvent{Scenario: scenario, Phase: phase, Command: cmd}
	for _, sub := range subs {
		if matches(sub.owner, scenario) {
			sub.fn(ev)
		}
	}
}

// ExecutionEnd publishes an iteration end to the hooks matching the
// scenario owner.
func (b *Bus) ExecutionEnd(scenario *config.Scenario, phase result.Phase, dp *result.DataPoint) {
	b.mu.RLock()
	subs := b.executionEnd
	b.mu.RUnlock()

	ev := ExecutionEndEvent{Scenario: scenario, Phase: phase, DataPoint: dp}
	for _, sub := range subs {
		if matches(sub.owner, scenario) {
			sub.fn(ev)
		}
	}
}

// ScenarioFinish publishes a finished scenario.
func (b *Bus) ScenarioFinish(res *result.ScenarioResult) {
	b.mu.RLock()
	subs := b.scenarioFinish
	b.mu.RUnlock()

	for _, fn := range subs {
		fn(res)
	}
}

// AfterAllScenariosFinish publishes the end of the scenario loop.
func (b *Bus) AfterAllScenariosFinish(results []*result.ScenarioResult) {
	b.mu.RLock()
	subs := b.afterAll
	b.mu.RUnlock()

	for _, fn := range subs {
		fn(results)
	}
}

// Finish publishes the final run result.
func (b *Bus) Finish(run *result.RunResult) {
	b.mu.RLock()
	subs := b.finish
	b.mu.RUnlock()

	for _, fn := range subs {
		fn(run)
	}
}

func matches(owner string, scenario *config.Scenario) bool {
	if owner == "" {
		return true
	}
	return scenario != nil && scenario.Owner == owner
}
