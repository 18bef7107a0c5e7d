// Package extension resolves the assertors, exporters and services named in
// the configuration from an explicit registry of factories.
package extension

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/wesleyorama2/timeit/internal/callbacks"
	"github.com/wesleyorama2/timeit/internal/config"
	"github.com/wesleyorama2/timeit/internal/result"
)

// Assertor judges iterations and scenarios.
type Assertor interface {
	// ScenarioAssertion judges the measured data points of a scenario.
	ScenarioAssertion(dataPoints []result.DataPoint) result.AssertResponse

	// ExecutionAssertion judges one finished iteration.
	ExecutionAssertion(data result.AssertionData) result.AssertResponse
}

// Exporter presents the final result of a run.
type Exporter interface {
	Export(run *result.RunResult) error
}

// Service subscribes to the bus to observe or extend a run.
type Service interface {
	Register(bus *callbacks.Bus)
}

// Context is handed to factories.
type Context struct {
	// Name is the registered name the extension was resolved by
	Name    string
	Config  *config.Config
	Options Options
	Out     io.Writer
}

type (
	AssertorFactory func(ctx Context) (Assertor, error)
	ExporterFactory func(ctx Context) (Exporter, error)
	ServiceFactory  func(ctx Context) (Service, error)
)

// Registry maps names to factories.
type Registry struct {
	mu        sync.RWMutex
	assertors map[string]AssertorFactory
	exporters map[string]ExporterFactory
	services  map[string]ServiceFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		assertors: make(map[string]AssertorFactory),
		exporters: make(map[string]ExporterFactory),
		services:  make(map[string]ServiceFactory),
	}
}

// RegisterAssertor registers an assertor factory, replacing any previous one.
func (r *Registry) RegisterAssertor(name string, f AssertorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assertors[name] = f
}

// RegisterExporter registers an exporter factory, replacing any previous one.
func (r *Registry) RegisterExporter(name string, f ExporterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exporters[name] = f
}

// RegisterService registers a service factory, replacing any previous one.
func (r *Registry) RegisterService(name string, f ServiceFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[name] = f
}

// Names lists the registered names per kind, sorted.
func (r *Registry) Names() (assertors, exporters, services []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.assertors), sortedKeys(r.exporters), sortedKeys(r.services)
}

// Assertors instantiates the configured assertors in order.
func (r *Registry) Assertors(cfg *config.Config, out io.Writer) ([]Assertor, error) {
	var list []Assertor
	for _, ext := range cfg.Assertors {
		r.mu.RLock()
		f, ok := r.assertors[ext.Name]
		r.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("unknown assertor: %s", ext.Name)
		}
		a, err := f(newContext(ext, cfg, out))
		if err != nil {
			return nil, fmt.Errorf("failed to create assertor %s: %w", ext.Name, err)
		}
		list = append(list, a)
	}
	return list, nil
}

// Exporters instantiates the configured exporters in order.
func (r *Registry) Exporters(cfg *config.Config, out io.Writer) ([]Exporter, error) {
	var list []Exporter
	for _, ext := range cfg.Exporters {
		r.mu.RLock()
		f, ok := r.exporters[ext.Name]
		r.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("unknown exporter: %s", ext.Name)
		}
		e, err := f(newContext(ext, cfg, out))
		if err != nil {
			return nil, fmt.Errorf("failed to create exporter %s: %w", ext.Name, err)
		}
		list = append(list, e)
	}
	return list, nil
}

// Services instantiates the configured services in order.
func (r *Registry) Services(cfg *config.Config, out io.Writer) ([]Service, error) {
	var list []Service
	for _, ext := range cfg.Services {
		r.mu.RLock()
		f, ok := r.services[ext.Name]
		r.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("unknown service: %s", ext.Name)
		}
		s, err := f(newContext(ext, cfg, out))
		if err != nil {
			return nil, fmt.Errorf("failed to create service %s: %w", ext.Name, err)
		}
		list = append(list, s)
	}
	return list, nil
}

func newContext(ext config.ExtensionConfig, cfg *config.Config, out io.Writer) Context {
	if out == nil {
		out = os.Stdout
	}
	return Context{Name: ext.Name, Config: cfg, Options: Options(ext.Options), Out: out}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
