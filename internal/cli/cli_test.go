package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helperEnv = "TIMEIT_CLI_HELPER"

// TestHelperProcess is the target process spawned by the run tests.
func TestHelperProcess(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		return
	}
	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+1:]
			break
		}
	}
	code, _ := strconv.Atoi(args[0])
	os.Exit(code)
}

// writeConfig writes a JSON configuration whose single scenario exits with
// the given code.
func writeConfig(t *testing.T, exitCode int, extra map[string]any) string {
	t.Helper()
	cfg := map[string]any{
		"name":                 "cli",
		"count":                2,
		"processName":          os.Args[0],
		"processArguments":     "-test.run=TestHelperProcess -- " + strconv.Itoa(exitCode),
		"environmentVariables": map[string]string{helperEnv: "1"},
		"scenarios":            []map[string]any{{"name": "only"}},
	}
	for k, v := range extra {
		cfg[k] = v
	}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "timeit.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_Help(t *testing.T) {
	out, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "run")
	assert.Contains(t, out, "validate")
	assert.Contains(t, out, "--log-level")
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "timeit "+version+"\n", out)
}

func TestSchemaCmd(t *testing.T) {
	out, err := execute(t, "schema")
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &schema))
	assert.Equal(t, "timeit configuration", schema["title"])
}

func TestValidateCmd(t *testing.T) {
	path := writeConfig(t, 0, nil)

	out, err := execute(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")
	assert.Contains(t, out, "- only")
}

func TestValidateCmd_UnknownExtension(t *testing.T) {
	path := writeConfig(t, 0, map[string]any{
		"exporters": []map[string]any{{"name": "console"}, {"name": "carrier-pigeon"}},
	})

	_, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown exporter: carrier-pigeon")
}

func TestValidateCmd_MissingFile(t *testing.T) {
	_, err := execute(t, "validate", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRunCmd_Passes(t *testing.T) {
	path := writeConfig(t, 0, nil)
	jsonPath := filepath.Join(t.TempDir(), "results.json")

	out, err := execute(t, "run", path, "--json", jsonPath, "--count", "3", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "cli - Completed")
	assert.NotContains(t, out, "\033[")

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)

	var decoded struct {
		Status    string `json:"status"`
		Scenarios []struct {
			DataPoints []json.RawMessage `json:"dataPoints"`
		} `json:"scenarios"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Scenarios, 1)
	assert.Equal(t, "passed", decoded.Status)
	assert.Len(t, decoded.Scenarios[0].DataPoints, 3)
}

func TestRunCmd_FailingScenario(t *testing.T) {
	path := writeConfig(t, 1, nil)

	out, err := execute(t, "run", path)
	require.ErrorIs(t, err, ErrRunFailed)
	assert.Contains(t, out, "2 of 2 executions failed.")
}

func TestRunCmd_EnvOverride(t *testing.T) {
	path := writeConfig(t, 0, nil)
	jsonPath := filepath.Join(t.TempDir(), "results.json")
	t.Setenv("TIMEIT_COUNT", "4")

	_, err := execute(t, "run", path, "--json", jsonPath)
	require.NoError(t, err)

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(data), `"phase": "run"`))
}

func TestRunCmd_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timeit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("count: many\n"), 0o644))

	_, err := execute(t, "run", path)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRunFailed)
}
