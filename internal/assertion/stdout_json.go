package assertion

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/wesleyorama2/timeit/internal/extension"
	"github.com/wesleyorama2/timeit/internal/result"
)

// Check is one JSONPath condition on the target's output.
type Check struct {
	Path   string
	Equals *string
	Min    *float64
	Max    *float64
}

// StdoutJSON checks the last JSON line written by the target. The tail
// handed to assertors is bounded, so targets should print a compact
// single-line document last.
//
//	assertors:
//	  - name: stdout-json
//	    options:
//	      stopOnFailure: true
//	      checks:
//	        - path: $.status
//	          equals: ok
//	        - path: $.elapsedMs
//	          max: 250
type StdoutJSON struct {
	checks        []Check
	stopOnFailure bool
}

// NewStdoutJSON builds the assertor from its options.
func NewStdoutJSON(opts extension.Options) (*StdoutJSON, error) {
	a := &StdoutJSON{stopOnFailure: opts.Bool("stopOnFailure", false)}

	for i, item := range opts.List("checks") {
		c := Check{Path: item.String("path", "")}
		if c.Path == "" {
			return nil, fmt.Errorf("checks[%d]: path is required", i)
		}
		if _, ok := item["equals"]; ok {
			v := item.String("equals", "")
			c.Equals = &v
		}
		if _, ok := item["min"]; ok {
			v := item.Float("min", 0)
			c.Min = &v
		}
		if _, ok := item["max"]; ok {
			v := item.Float("max", 0)
			c.Max = &v
		}
		a.checks = append(a.checks, c)
	}
	if len(a.checks) == 0 {
		return nil, errors.New("at least one check is required")
	}
	return a, nil
}

// ExecutionAssertion implements extension.Assertor.
func (a *StdoutJSON) ExecutionAssertion(data result.AssertionData) result.AssertResponse {
	doc := lastJSONLine(data.StdOut)
	if doc == "" {
		return result.Fail("Standard output does not end with a JSON document.", !a.stopOnFailure)
	}

	var failures []string
	for _, c := range a.checks {
		if err := c.evaluate(doc); err != nil {
			failures = append(failures, err.Error())
		}
	}
	if len(failures) == 0 {
		return result.Pass()
	}
	return result.Fail(strings.Join(failures, "\n"), !a.stopOnFailure)
}

// ScenarioAssertion implements extension.Assertor.
func (a *StdoutJSON) ScenarioAssertion([]result.DataPoint) result.AssertResponse {
	return result.Pass()
}

func (c Check) evaluate(doc string) error {
	value, err := extract(doc, c.Path)
	if err != nil {
		return err
	}

	if c.Equals != nil && value.String() != *c.Equals {
		return fmt.Errorf("%s: expected %q, got %q", c.Path, *c.Equals, value.String())
	}

	if c.Min != nil || c.Max != nil {
		if value.Type != gjson.Number {
			return fmt.Errorf("%s: expected a number, got %s", c.Path, value.Type)
		}
		n := value.Float()
		if c.Min != nil && n < *c.Min {
			return fmt.Errorf("%s: %v is below minimum %v", c.Path, n, *c.Min)
		}
		if c.Max != nil && n > *c.Max {
			return fmt.Errorf("%s: %v is above maximum %v", c.Path, n, *c.Max)
		}
	}
	return nil
}

func lastJSONLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line != "" && gjson.Valid(line) {
			return line
		}
	}
	return ""
}
