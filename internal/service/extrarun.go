// Package service provides the built-in services.
package service

import (
	"errors"
	"sync"

	"github.com/wesleyorama2/timeit/internal/callbacks"
	"github.com/wesleyorama2/timeit/internal/extension"
	"github.com/wesleyorama2/timeit/internal/logger"
	"github.com/wesleyorama2/timeit/internal/result"
)

// NameExtraRun is the registered name of the extra-run service.
const NameExtraRun = "extra-run"

// Register adds the built-in services to r.
func Register(r *extension.Registry) {
	r.RegisterService(NameExtraRun, func(ctx extension.Context) (extension.Service, error) {
		return NewExtraRun(ctx.Name, ctx.Options)
	})
}

// ExtraRun repeats every scenario after its cool-down with an additional
// environment, e.g. to collect a profile without disturbing the measured
// phase.
//
//	services:
//	  - name: extra-run
//	    options:
//	      count: 3
//	      includeInResults: false
//	      scenarios: [instrumented]
//	      environmentVariables:
//	        APP_PROFILE: "1"
type ExtraRun struct {
	owner     string
	count     int
	include   bool
	env       map[string]string
	scenarios map[string]bool

	mu       sync.Mutex
	executed map[string]int
	failed   map[string]int
}

// NewExtraRun builds the service from its options.
func NewExtraRun(owner string, opts extension.Options) (*ExtraRun, error) {
	s := &ExtraRun{
		owner:    owner,
		count:    opts.Int("count", 1),
		include:  opts.Bool("includeInResults", false),
		env:      opts.StringMap("environmentVariables"),
		executed: make(map[string]int),
		failed:   make(map[string]int),
	}
	if s.count <= 0 {
		return nil, errors.New("count must be at least 1")
	}
	if names, ok := opts["scenarios"].([]any); ok {
		s.scenarios = make(map[string]bool, len(names))
		for _, n := range names {
			if name, ok := n.(string); ok {
				s.scenarios[name] = true
			}
		}
	}
	return s, nil
}

// Register implements extension.Service.
func (s *ExtraRun) Register(bus *callbacks.Bus) {
	bus.OnScenarioStart(s.owner, func(ev callbacks.ScenarioStartEvent) *callbacks.ExtraRunRequest {
		if s.scenarios != nil && !s.scenarios[ev.Scenario.Name] {
			return nil
		}
		return &callbacks.ExtraRunRequest{
			Count:            s.count,
			Env:              s.env,
			IncludeInResults: s.include,
		}
	})

	bus.OnExecutionEnd(s.owner, func(ev callbacks.ExecutionEndEvent) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.executed[ev.Scenario.Name]++
		if ev.DataPoint.Failed() {
			s.failed[ev.Scenario.Name]++
		}
	})

	bus.OnScenarioFinish(func(res *result.ScenarioResult) {
		s.mu.Lock()
		executed, failed := s.executed[res.Name], s.failed[res.Name]
		s.mu.Unlock()
		if executed > 0 {
			logger.Info("Extra runs finished", "service", s.owner, "scenario", res.Name, "executed", executed, "failed", failed)
		}
	})
}

// Executed returns how many extra iterations ran for scenario.
func (s *ExtraRun) Executed(scenario string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executed[scenario]
}
