package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  log.Level
	}{
		{"debug", log.DebugLevel},
		{"DEBUG", log.DebugLevel},
		{"info", log.InfoLevel},
		{"", log.InfoLevel},
		{"warn", log.WarnLevel},
		{"warning", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"fatal", log.FatalLevel},
		{"bogus", log.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestConfigure_LogFile(t *testing.T) {
	original := Logger
	defer func() { Logger = original }()

	path := filepath.Join(t.TempDir(), "timeit.log")
	require.NoError(t, Configure("debug", path))

	Debug("iteration finished", "phase", "run")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "iteration finished")
	assert.Contains(t, string(data), "phase=run")
}

func TestConfigure_EnvLevel(t *testing.T) {
	original := Logger
	defer func() { Logger = original }()

	t.Setenv("TIMEIT_LOG_LEVEL", "error")
	require.NoError(t, Configure("", ""))
	assert.Equal(t, log.ErrorLevel, Logger.GetLevel())
}

func TestSetOutput_KeepsLevel(t *testing.T) {
	original := Logger
	defer func() { Logger = original }()

	Logger.SetLevel(log.WarnLevel)
	var buf bytes.Buffer
	SetOutput(&buf)

	Info("hidden")
	Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
