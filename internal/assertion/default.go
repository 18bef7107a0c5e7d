// Package assertion provides the built-in assertors.
package assertion

import (
	"fmt"
	"sync"

	"github.com/wesleyorama2/timeit/internal/extension"
	"github.com/wesleyorama2/timeit/internal/result"
)

// Names of the built-in assertors.
const (
	NameDefault    = "default"
	NameStdoutJSON = "stdout-json"
)

// Register adds the built-in assertors to r.
func Register(r *extension.Registry) {
	r.RegisterAssertor(NameDefault, func(ctx extension.Context) (extension.Assertor, error) {
		limit := ctx.Config.CircuitBreakerLimit()
		if !ctx.Config.DebugMode {
			limit = ctx.Options.Int("maxConsecutiveFailures", limit)
		}
		return NewDefault(limit), nil
	})
	r.RegisterAssertor(NameStdoutJSON, func(ctx extension.Context) (extension.Assertor, error) {
		return NewStdoutJSON(ctx.Options)
	})
}

// Default fails iterations that exit with a non-zero code and trips a
// circuit breaker after too many consecutive failures.
type Default struct {
	// limit of consecutive failures, negative to always continue
	limit int

	mu          sync.Mutex
	key         string
	consecutive int
}

// NewDefault creates the default assertor. A negative limit disables the
// circuit breaker.
func NewDefault(limit int) *Default {
	return &Default{limit: limit}
}

// ExecutionAssertion implements extension.Assertor.
func (d *Default) ExecutionAssertion(data result.AssertionData) result.AssertResponse {
	d.mu.Lock()
	defer d.mu.Unlock()

	// The streak is counted per scenario and phase.
	key := data.Phase.String()
	if data.Scenario != nil {
		key = data.Scenario.Name + "/" + data.Scenario.Owner + "/" + key
	}
	if key != d.key {
		d.key = key
		d.consecutive = 0
	}

	if data.ExitCode == 0 {
		d.consecutive = 0
		return result.Pass()
	}

	d.consecutive++
	msg := fmt.Sprintf("Exit code: %d", data.ExitCode)
	if d.limit >= 0 && d.consecutive >= d.limit {
		return result.Fail(fmt.Sprintf("%s\nToo many consecutive failures (%d).", msg, d.consecutive), false)
	}
	return result.Fail(msg, true)
}

// ScenarioAssertion implements extension.Assertor.
func (d *Default) ScenarioAssertion(dataPoints []result.DataPoint) result.AssertResponse {
	failed := 0
	for i := range dataPoints {
		if dataPoints[i].Failed() {
			failed++
		}
	}
	if failed == 0 {
		return result.Pass()
	}
	return result.Fail(fmt.Sprintf("%d of %d executions failed.", failed, len(dataPoints)), true)
}
