package assertion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/timeit/internal/config"
	"github.com/wesleyorama2/timeit/internal/extension"
	"github.com/wesleyorama2/timeit/internal/result"
)

func failing(sc *config.Scenario, phase result.Phase) result.AssertionData {
	return result.AssertionData{ExitCode: 1, Scenario: sc, Phase: phase}
}

func TestDefault_CircuitBreakerTripsOnFifthFailure(t *testing.T) {
	d := NewDefault(5)
	sc := &config.Scenario{Name: "a"}

	for i := 1; i <= 4; i++ {
		res := d.ExecutionAssertion(failing(sc, result.Run))
		assert.Equal(t, result.Failed, res.Status)
		assert.True(t, res.ShouldContinue, "iteration %d", i)
	}
	res := d.ExecutionAssertion(failing(sc, result.Run))
	assert.Equal(t, result.Failed, res.Status)
	assert.False(t, res.ShouldContinue)
	assert.Contains(t, res.Message, "Exit code: 1")
	assert.Contains(t, res.Message, "Too many consecutive failures (5).")
}

func TestDefault_SuccessResetsStreak(t *testing.T) {
	d := NewDefault(2)
	sc := &config.Scenario{Name: "a"}

	assert.True(t, d.ExecutionAssertion(failing(sc, result.Run)).ShouldContinue)
	assert.Equal(t, result.Pass(), d.ExecutionAssertion(result.AssertionData{Scenario: sc, Phase: result.Run}))
	assert.True(t, d.ExecutionAssertion(failing(sc, result.Run)).ShouldContinue)
	assert.False(t, d.ExecutionAssertion(failing(sc, result.Run)).ShouldContinue)
}

func TestDefault_StreakScopedToScenarioAndPhase(t *testing.T) {
	d := NewDefault(2)
	a := &config.Scenario{Name: "a"}
	b := &config.Scenario{Name: "b"}

	assert.True(t, d.ExecutionAssertion(failing(a, result.WarmUp)).ShouldContinue)
	assert.True(t, d.ExecutionAssertion(failing(a, result.Run)).ShouldContinue)
	assert.True(t, d.ExecutionAssertion(failing(b, result.Run)).ShouldContinue)
}

func TestDefault_DisabledBreakerAlwaysContinues(t *testing.T) {
	d := NewDefault(-1)
	sc := &config.Scenario{Name: "a"}
	for i := 0; i < 20; i++ {
		assert.True(t, d.ExecutionAssertion(failing(sc, result.Run)).ShouldContinue)
	}
}

func TestDefault_ScenarioAssertion(t *testing.T) {
	d := NewDefault(5)
	assert.Equal(t, result.Pass(), d.ScenarioAssertion([]result.DataPoint{{}, {}}))

	res := d.ScenarioAssertion([]result.DataPoint{{}, {AssertResult: result.Fail("x", true)}})
	assert.Equal(t, result.Failed, res.Status)
	assert.Equal(t, "1 of 2 executions failed.", res.Message)
}

func TestRegister_DebugModeDisablesBreaker(t *testing.T) {
	r := extension.NewRegistry()
	Register(r)

	cfg := &config.Config{
		DebugMode: true,
		Assertors: []config.ExtensionConfig{{Name: NameDefault, Options: map[string]any{"maxConsecutiveFailures": 1}}},
	}
	list, err := r.Assertors(cfg, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, -1, list[0].(*Default).limit)

	cfg.DebugMode = false
	list, err = r.Assertors(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, list[0].(*Default).limit)
}

func TestStdoutJSON(t *testing.T) {
	a, err := NewStdoutJSON(extension.Options{
		"stopOnFailure": true,
		"checks": []any{
			map[string]any{"path": "$.status", "equals": "ok"},
			map[string]any{"path": "$.timings[0].ms", "max": 100, "min": 1},
		},
	})
	require.NoError(t, err)

	pass := a.ExecutionAssertion(result.AssertionData{
		StdOut: "starting\n{\"status\":\"ok\",\"timings\":[{\"ms\":42}]}\n",
	})
	assert.Equal(t, result.Pass(), pass)

	fail := a.ExecutionAssertion(result.AssertionData{
		StdOut: `{"status":"degraded","timings":[{"ms":420}]}`,
	})
	assert.Equal(t, result.Failed, fail.Status)
	assert.False(t, fail.ShouldContinue)
	assert.Contains(t, fail.Message, `$.status: expected "ok", got "degraded"`)
	assert.Contains(t, fail.Message, "above maximum 100")

	noJSON := a.ExecutionAssertion(result.AssertionData{StdOut: "plain text"})
	assert.Equal(t, result.Failed, noJSON.Status)

	missing := a.ExecutionAssertion(result.AssertionData{StdOut: `{"timings":[{"ms":5}]}`})
	assert.Contains(t, missing.Message, "path not found: $.status")
}

func TestNewStdoutJSON_Invalid(t *testing.T) {
	_, err := NewStdoutJSON(extension.Options{})
	assert.Error(t, err)

	_, err = NewStdoutJSON(extension.Options{"checks": []any{map[string]any{"equals": "x"}}})
	assert.Error(t, err)
}

func TestToGjsonPath(t *testing.T) {
	tests := map[string]string{
		"$":                "@this",
		"$.name":           "name",
		"$.users[0].name":  "users.0.name",
		"$['key'].value":   "key.value",
		`$["key"]`:         "key",
		"$[1]":             "1",
		"plain.gjson.path": "plain.gjson.path",
	}
	for in, want := range tests {
		assert.Equal(t, want, toGjsonPath(in), in)
	}
}
