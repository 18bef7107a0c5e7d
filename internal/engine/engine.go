// Package engine runs the configured scenarios and turns their iterations
// into statistics.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wesleyorama2/timeit/internal/callbacks"
	"github.com/wesleyorama2/timeit/internal/clock"
	"github.com/wesleyorama2/timeit/internal/config"
	"github.com/wesleyorama2/timeit/internal/extension"
	"github.com/wesleyorama2/timeit/internal/logger"
	"github.com/wesleyorama2/timeit/internal/process"
	"github.com/wesleyorama2/timeit/internal/result"
	"github.com/wesleyorama2/timeit/internal/stats"
)

// Output tails handed to assertors.
const (
	StdOutTail = 512
	StdErrTail = 1024
)

// Engine is the orchestrator of a timeit run.
//
// It coordinates:
//   - Scenario preparation (defaults, templates, metrics hook)
//   - Warm-up, measured, cool-down and extra-run phases
//   - Assertions and metric correlation per iteration
//   - Statistics, overheads and exporters
//
// Example usage:
//
//	cfg, _ := config.LoadConfig("timeit.yaml")
//	engine, _ := engine.New(cfg, engine.WithAssertors(assertion.NewDefault(5)))
//	run, _ := engine.Run(context.Background())
//	fmt.Printf("Run status: %s\n", run.Status)
type Engine struct {
	config *config.Config

	runner    process.Runner
	bus       *callbacks.Bus
	assertors []extension.Assertor
	exporters []extension.Exporter
	clock     clock.Clock
	tempDir   string

	mu      sync.Mutex
	running bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithRunner replaces the process runner.
func WithRunner(r process.Runner) Option {
	return func(e *Engine) { e.runner = r }
}

// WithBus sets the callback bus services subscribed to.
func WithBus(b *callbacks.Bus) Option {
	return func(e *Engine) { e.bus = b }
}

// WithAssertors sets the assertors consulted after every iteration.
func WithAssertors(a ...extension.Assertor) Option {
	return func(e *Engine) { e.assertors = a }
}

// WithExporters sets the exporters called at the end of the run.
func WithExporters(x ...extension.Exporter) Option {
	return func(e *Engine) { e.exporters = x }
}

// WithClock replaces the clock used for run and scenario timestamps.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithTempDir sets where per-iteration metric files are created.
func WithTempDir(dir string) Option {
	return func(e *Engine) { e.tempDir = dir }
}

// New creates an engine for cfg. The configuration is validated and its
// defaults applied.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("configuration is nil")
	}
	config.ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	e := &Engine{
		config:  cfg,
		runner:  process.NewExecRunner(),
		bus:     callbacks.NewBus(),
		clock:   clock.Real{},
		tempDir: os.TempDir(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Bus returns the callback bus of the engine.
func (e *Engine) Bus() *callbacks.Bus {
	return e.bus
}

// Config returns the engine configuration.
func (e *Engine) Config() *config.Config {
	return e.config
}

// Run executes every scenario in order and hands the result to the
// exporters. Exporter failures are returned joined; the run result is
// returned in every case.
func (e *Engine) Run(ctx context.Context) (*result.RunResult, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, errors.New("engine is already running")
	}
	e.running = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	if minutes := e.config.MaximumDurationInMinutes; minutes > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(minutes)*time.Minute)
		defer cancel()
	}

	run := &result.RunResult{
		ID:        uuid.NewString(),
		Name:      e.config.Name,
		StartTime: e.clock.Now(),
	}

	scenarios := make([]*config.Scenario, 0, len(e.config.Scenarios))
	for _, sc := range e.config.Scenarios {
		scenarios = append(scenarios, e.Prepare(sc))
	}

	logger.Info("Starting run", "id", run.ID, "scenarios", len(scenarios), "count", e.config.Count)
	e.bus.BeforeAllScenariosStart(e.config, scenarios)

	for i, sc := range scenarios {
		if ctx.Err() != nil {
			run.Cancelled = true
			break
		}
		res, ok := e.RunScenario(ctx, i, sc)
		if !ok {
			logger.Warn("Run cancelled", "scenario", sc.Name, "error", ctx.Err())
			run.Cancelled = true
			break
		}
		run.Scenarios = append(run.Scenarios, res)
	}

	e.bus.AfterAllScenariosFinish(run.Scenarios)

	e.applyOverheads(run)

	run.Status = result.Passed
	if run.Cancelled {
		run.Status = result.Failed
	}
	for _, res := range run.Scenarios {
		if res.Status == result.Failed {
			run.Status = result.Failed
		}
	}
	run.EndTime = e.clock.Now()

	var errs []error
	for _, exp := range e.exporters {
		if err := exp.Export(run); err != nil {
			logger.Error("Exporter failed", "error", err)
			errs = append(errs, fmt.Errorf("failed to export: %w", err))
		}
	}

	e.bus.Finish(run)
	logger.Info("Run finished", "id", run.ID, "status", run.Status, "duration", run.Duration())
	return run, errors.Join(errs...)
}

// applyOverheads fills the overhead matrix and fails scenarios above the
// configured threshold. The first scenario is the baseline.
func (e *Engine) applyOverheads(run *result.RunResult) {
	means := make([]float64, len(run.Scenarios))
	for i, res := range run.Scenarios {
		means[i] = res.Mean
	}
	run.Overheads = stats.OverheadMatrix(means)
	if len(run.Overheads) == 0 {
		return
	}

	threshold := e.config.OverheadThreshold
	for i, res := range run.Scenarios {
		res.Overhead = run.Overheads[0][i]
		if i == 0 || threshold <= 0 || res.Mean == 0 {
			continue
		}
		if res.Overhead > threshold {
			res.Fail(fmt.Sprintf("Overhead %.1f%% is above the threshold of %.1f%%.", res.Overhead, threshold))
		}
	}
}
