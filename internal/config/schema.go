// Package config provides configuration parsing and validation for timeit runs.
package config

import (
	"github.com/wesleyorama2/timeit/internal/stats"
)

// Config is the run-wide configuration.
//
// Example YAML:
//
//	name: "startup overhead"
//	warmUpCount: 2
//	count: 20
//	processName: ./bin/app
//	processArguments: "--quiet"
//	enableMetrics: true
//	metrics:
//	  hookPath: ./bin/app
//	scenarios:
//	  - name: baseline
//	  - name: instrumented
//	    environmentVariables:
//	      APP_TRACING: "1"
type Config struct {
	// Name of the run (for reporting)
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// WarmUpCount is the number of unmeasured iterations before the run phase
	WarmUpCount int `json:"warmUpCount,omitempty" yaml:"warmUpCount,omitempty"`

	// Count is the number of measured iterations per scenario
	Count int `json:"count,omitempty" yaml:"count,omitempty"`

	// CoolDownCount is the number of unmeasured iterations after the run phase
	CoolDownCount int `json:"coolDownCount,omitempty" yaml:"coolDownCount,omitempty"`

	// Scenario defaults inherited by every scenario that leaves them unset
	ProcessName          string            `json:"processName,omitempty" yaml:"processName,omitempty"`
	ProcessArguments     string            `json:"processArguments,omitempty" yaml:"processArguments,omitempty"`
	WorkingDirectory     string            `json:"workingDirectory,omitempty" yaml:"workingDirectory,omitempty"`
	EnvironmentVariables map[string]string `json:"environmentVariables,omitempty" yaml:"environmentVariables,omitempty"`
	PathValidations      []string          `json:"pathValidations,omitempty" yaml:"pathValidations,omitempty"`
	Timeout              Timeout           `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Tags                 map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// EnableMetrics injects the sampler environment into every iteration
	EnableMetrics bool `json:"enableMetrics,omitempty" yaml:"enableMetrics,omitempty"`

	// Metrics configures the in-process sampler
	Metrics MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`

	// ProcessFailedDataPoints keeps failed iterations in the statistics
	ProcessFailedDataPoints bool `json:"processFailedDataPoints,omitempty" yaml:"processFailedDataPoints,omitempty"`

	// DebugMode disables the consecutive failure circuit breaker
	DebugMode bool `json:"debugMode,omitempty" yaml:"debugMode,omitempty"`

	// ShowStdOutForFirstRun logs the captured output of the first measured iteration
	ShowStdOutForFirstRun bool `json:"showStdOutForFirstRun,omitempty" yaml:"showStdOutForFirstRun,omitempty"`

	// OverheadThreshold fails scenarios slower than the baseline by more than this percentage (0 = disabled)
	OverheadThreshold float64 `json:"overheadThreshold,omitempty" yaml:"overheadThreshold,omitempty"`

	// MaxConsecutiveFailures trips the circuit breaker (0 = default, -1 = always continue)
	MaxConsecutiveFailures int `json:"maxConsecutiveFailures,omitempty" yaml:"maxConsecutiveFailures,omitempty"`

	// MaximumDurationInMinutes bounds the whole run (0 = unbounded)
	MaximumDurationInMinutes int `json:"maximumDurationInMinutes,omitempty" yaml:"maximumDurationInMinutes,omitempty"`

	// StatsOptions tunes the adaptive outlier filters
	StatsOptions stats.FilterOptions `json:"statsOptions,omitempty" yaml:"statsOptions,omitempty"`

	// Variables are user template variables available as $(name)
	Variables map[string]string `json:"variables,omitempty" yaml:"variables,omitempty"`

	// Extensions resolved from the registry by name
	Assertors []ExtensionConfig `json:"assertors,omitempty" yaml:"assertors,omitempty"`
	Exporters []ExtensionConfig `json:"exporters,omitempty" yaml:"exporters,omitempty"`
	Services  []ExtensionConfig `json:"services,omitempty" yaml:"services,omitempty"`

	// Scenarios run sequentially in declaration order; the first is the baseline
	Scenarios []*Scenario `json:"scenarios" yaml:"scenarios"`

	// Path of the file the configuration was loaded from
	Path string `json:"-" yaml:"-"`
}

// MetricsConfig configures how the sampler is injected.
type MetricsConfig struct {
	// HookPath is exported as TIMEIT_STARTUP_HOOKS; it must exist on disk
	HookPath string `json:"hookPath,omitempty" yaml:"hookPath,omitempty"`

	// ProcessName restricts sampling to descendants with this executable name
	ProcessName string `json:"processName,omitempty" yaml:"processName,omitempty"`
}

// ExtensionConfig names a registered extension and its options.
type ExtensionConfig struct {
	Name    string         `json:"name" yaml:"name"`
	Options map[string]any `json:"options,omitempty" yaml:"options,omitempty"`
}

// Scenario describes one benchmarked process.
type Scenario struct {
	Name                 string            `json:"name,omitempty" yaml:"name,omitempty"`
	ProcessName          string            `json:"processName,omitempty" yaml:"processName,omitempty"`
	ProcessArguments     string            `json:"processArguments,omitempty" yaml:"processArguments,omitempty"`
	WorkingDirectory     string            `json:"workingDirectory,omitempty" yaml:"workingDirectory,omitempty"`
	EnvironmentVariables map[string]string `json:"environmentVariables,omitempty" yaml:"environmentVariables,omitempty"`

	// EnvironmentFile is a dotenv file merged under EnvironmentVariables
	EnvironmentFile string `json:"environmentFile,omitempty" yaml:"environmentFile,omitempty"`

	PathValidations []string          `json:"pathValidations,omitempty" yaml:"pathValidations,omitempty"`
	Timeout         *Timeout          `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Tags            map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Owner is the extension that requested this scenario's extra runs
	Owner string `json:"-" yaml:"-"`
}

// Timeout bounds a single iteration.
type Timeout struct {
	// MaxDuration in seconds (0 = disabled)
	MaxDuration int `json:"maxDuration,omitempty" yaml:"maxDuration,omitempty"`

	// ProcessName of the killer run on expiry; %pid% in its arguments is the target PID
	ProcessName      string `json:"processName,omitempty" yaml:"processName,omitempty"`
	ProcessArguments string `json:"processArguments,omitempty" yaml:"processArguments,omitempty"`
}

// Clone returns a deep copy of s.
func (s *Scenario) Clone() *Scenario {
	if s == nil {
		return nil
	}
	clone := *s
	clone.EnvironmentVariables = copyMap(s.EnvironmentVariables)
	clone.Tags = copyMap(s.Tags)
	clone.PathValidations = append([]string(nil), s.PathValidations...)
	if s.Timeout != nil {
		t := *s.Timeout
		clone.Timeout = &t
	}
	return &clone
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// MergeMaps merges maps in order. Later maps override earlier ones.
func MergeMaps(maps ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			result[k] = v
		}
	}
	return result
}
