// Package result defines the values produced by a timeit run: data points,
// assertion verdicts and per-scenario aggregates.
package result

import (
	"fmt"
	"strings"
	"time"

	"github.com/wesleyorama2/timeit/internal/config"
	"github.com/wesleyorama2/timeit/internal/metrics"
	"github.com/wesleyorama2/timeit/internal/stats"
)

// Phase classifies why an iteration ran.
type Phase int

const (
	WarmUp Phase = iota
	Run
	CoolDown
	ExtraRun
)

func (p Phase) String() string {
	switch p {
	case WarmUp:
		return "warmup"
	case Run:
		return "run"
	case CoolDown:
		return "cooldown"
	case ExtraRun:
		return "extrarun"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Status is the pass/fail outcome of an iteration, scenario or run.
type Status int

const (
	Passed Status = iota
	Failed
)

func (s Status) String() string {
	if s == Failed {
		return "failed"
	}
	return "passed"
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Execution messages that let callers tell cancellation and timeout apart.
const (
	MessageCancelled = "Execution cancelled."
	MessageTimeout   = "Process timeout."
)

// AssertResponse is the verdict of an assertor.
type AssertResponse struct {
	Status         Status `json:"status"`
	ShouldContinue bool   `json:"shouldContinue"`
	Message        string `json:"message,omitempty"`
}

// Pass is a passing verdict that lets the phase continue.
func Pass() AssertResponse {
	return AssertResponse{Status: Passed, ShouldContinue: true}
}

// Fail is a failing verdict.
func Fail(message string, shouldContinue bool) AssertResponse {
	return AssertResponse{Status: Failed, ShouldContinue: shouldContinue, Message: message}
}

// Fold combines verdicts: continuation is the AND of all flags, the status
// fails if any verdict fails and messages are concatenated without
// duplicates. Folding nothing passes.
func Fold(responses ...AssertResponse) AssertResponse {
	folded := Pass()
	seen := make(map[string]bool)
	var messages []string

	for _, r := range responses {
		if r.Status == Failed {
			folded.Status = Failed
		}
		if !r.ShouldContinue {
			folded.ShouldContinue = false
		}
		for _, line := range strings.Split(r.Message, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || seen[line] {
				continue
			}
			seen[line] = true
			messages = append(messages, line)
		}
	}

	folded.Message = strings.Join(messages, "\n")
	return folded
}

// AssertionData is the view of a finished iteration handed to assertors.
type AssertionData struct {
	ExitCode int
	StdOut   string
	StdErr   string
	Scenario *config.Scenario
	Phase    Phase
	Duration time.Duration
	Metrics  map[string]float64
}

// DataPoint is the outcome of one iteration.
type DataPoint struct {
	Start          time.Time          `json:"start"`
	End            time.Time          `json:"end"`
	Duration       time.Duration      `json:"duration"`
	Phase          Phase              `json:"phase"`
	PID            int                `json:"pid,omitempty"`
	ExitCode       int                `json:"exitCode"`
	StandardOutput string             `json:"standardOutput,omitempty"`
	StandardError  string             `json:"standardError,omitempty"`
	Metrics        map[string]float64 `json:"metrics,omitempty"`
	Owner          string             `json:"owner,omitempty"`
	AssertResult   AssertResponse     `json:"assertResult"`
}

// Failed reports whether the iteration failed.
func (d *DataPoint) Failed() bool {
	return d.AssertResult.Status == Failed
}

// ScenarioResult aggregates the measured data points of a scenario.
type ScenarioResult struct {
	Index    int               `json:"index"`
	Name     string            `json:"name"`
	Scenario *config.Scenario  `json:"scenario,omitempty"`
	Tags     map[string]string `json:"tags,omitempty"`
	Start    time.Time         `json:"start"`
	End      time.Time         `json:"end"`

	// Accepted durations in nanoseconds, in execution order
	Durations []float64 `json:"durations"`
	Outliers  []float64 `json:"outliers,omitempty"`

	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"stdDev"`
	StdErr float64 `json:"stdErr"`
	P99    float64 `json:"p99"`
	P95    float64 `json:"p95"`
	P90    float64 `json:"p90"`

	OutliersThreshold float64            `json:"outliersThreshold"`
	IsBimodal         bool               `json:"isBimodal"`
	PeakCount         int                `json:"peakCount"`
	Histogram         []int              `json:"histogram,omitempty"`
	HistogramLabels   []float64          `json:"histogramLabels,omitempty"`
	Distribution      stats.Distribution `json:"distribution"`

	MetricsStats map[string]metrics.MetricStats `json:"metricsStats,omitempty"`
	Metrics      map[string]float64             `json:"metrics,omitempty"`

	// Overhead in percent against the baseline scenario
	Overhead float64 `json:"overhead"`

	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`

	DataPoints []DataPoint `json:"dataPoints,omitempty"`
}

// Fail marks the scenario failed and appends msg to its error text.
func (r *ScenarioResult) Fail(msg string) {
	r.Status = Failed
	if msg == "" {
		return
	}
	if r.Error == "" {
		r.Error = msg
		return
	}
	if !strings.Contains(r.Error, msg) {
		r.Error += "\n" + msg
	}
}

// RunResult is handed to exporters at the end of a run.
type RunResult struct {
	ID        string            `json:"id"`
	Name      string            `json:"name,omitempty"`
	Scenarios []*ScenarioResult `json:"scenarios"`
	Overheads [][]float64       `json:"overheads"`
	StartTime time.Time         `json:"startTime"`
	EndTime   time.Time         `json:"endTime"`
	Status    Status            `json:"status"`
	Cancelled bool              `json:"cancelled,omitempty"`
}

// Duration returns the wall time of the run.
func (r *RunResult) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}
