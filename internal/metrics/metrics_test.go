package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/timeit/internal/clock"
	"github.com/wesleyorama2/timeit/internal/stats"
	"github.com/wesleyorama2/timeit/internal/wire"
)

func TestReduce(t *testing.T) {
	records := []wire.Record{
		wire.Header(),
		wire.Counter("cpu", 10),
		wire.Counter("cpu", 5),
		wire.Increment("panics", 1),
		wire.Increment("panics", 1),
		wire.Gauge("heap", 100),
		wire.Gauge("heap", 300),
		wire.Timer("pause", 2),
		wire.Timer("pause", 4),
	}

	m := Reduce(records)
	assert.Equal(t, map[string]float64{
		"cpu":    15,
		"panics": 2,
		"heap":   200,
		"pause":  3,
	}, m)
}

func TestReadFile_DeletesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.bin")
	w, err := wire.Create(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(wire.Gauge("runtime.go.gc.size.gen0", 3.5)))
	require.NoError(t, w.Close())

	m, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3.5, m["runtime.go.gc.size.gen0"])

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestReadFile_TruncatedKeepsDecodedRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.bin")

	var buf []byte
	buf = wire.Header().AppendBinary(buf)
	buf = wire.Counter("a", 1).AppendBinary(buf)
	buf = wire.Counter("b", 2).AppendBinary(buf)
	require.NoError(t, os.WriteFile(path, buf[:len(buf)-3], 0600))

	m, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"a": 1}, m)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.bin"))
	assert.Error(t, err)
}

func TestCorrelate(t *testing.T) {
	spawn := time.UnixMilli(1_700_000_000_000)
	spawnMs := clock.UnixMillis(spawn)

	m := map[string]float64{
		wire.ProcessStart:     spawnMs + 20,
		wire.ProcessMainStart: spawnMs + 25,
		wire.ProcessMainEnd:   spawnMs + 95,
		wire.ProcessEnd:       spawnMs + 97,
	}

	Correlate(m, spawn, 100*time.Millisecond)

	assert.InDelta(t, 20, m[wire.TimeToStartMs], 1e-6)
	assert.InDelta(t, 25, m[wire.TimeToMainStartMs], 1e-6)
	assert.InDelta(t, 95, m[wire.TimeToMainEndMs], 1e-6)
	assert.InDelta(t, 70, m[wire.InternalDurationMs], 1e-6)
	assert.InDelta(t, 5, m[wire.StartupHookOverhead], 1e-6)
	assert.InDelta(t, 95, m[wire.CorrectedDurationMs], 1e-6)
}

func TestCorrelate_OverheadClampedAtZero(t *testing.T) {
	spawn := time.UnixMilli(1_700_000_000_000)
	spawnMs := clock.UnixMillis(spawn)

	// main start stamped before the process start marker
	m := map[string]float64{
		wire.ProcessStart:     spawnMs + 30,
		wire.ProcessMainStart: spawnMs + 28,
		wire.ProcessMainEnd:   spawnMs + 90,
	}
	Correlate(m, spawn, 100*time.Millisecond)

	assert.Equal(t, 0.0, m[wire.StartupHookOverhead])
	assert.InDelta(t, 100, m[wire.CorrectedDurationMs], 1e-6)
	assert.InDelta(t, 62, m[wire.InternalDurationMs], 1e-6)
}

func TestCorrelate_MissingMarkers(t *testing.T) {
	m := map[string]float64{"runtime.go.goroutines": 4}
	Correlate(m, time.Now(), time.Second)
	assert.Equal(t, map[string]float64{"runtime.go.goroutines": 4}, m)

	Correlate(nil, time.Now(), time.Second)
}

func TestAggregate(t *testing.T) {
	samples := []map[string]float64{
		{"heap": 10, wire.ProcessStart: 1},
		{"heap": 12, wire.ProcessStart: 2},
		{"heap": 11},
		{"threads": 4},
	}

	agg := Aggregate(samples, stats.DefaultFilterOptions())
	require.Contains(t, agg, "heap")
	require.Contains(t, agg, "threads")
	assert.NotContains(t, agg, wire.ProcessStart)

	assert.Equal(t, 3, agg["heap"].Count+len(agg["heap"].Outliers))
	assert.Equal(t, 4.0, agg["threads"].Mean)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Names(map[string]float64{"c": 1, "a": 2, "b": 3}))
}
