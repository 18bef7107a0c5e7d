package sampler

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"runtime/metrics"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/timeit/internal/clock"
	"github.com/wesleyorama2/timeit/internal/wire"
)

func newTestSampler(t *testing.T) (*Sampler, *bytes.Buffer, *clock.Fake) {
	t.Helper()
	var buf bytes.Buffer
	w, err := wire.NewWriter(&buf)
	require.NoError(t, err)

	fake := clock.NewFake(time.UnixMilli(1_700_000_000_000))
	s := New(w, WithClock(fake), WithInterval(time.Hour))
	return s, &buf, fake
}

func decode(t *testing.T, buf *bytes.Buffer) []wire.Record {
	t.Helper()
	records, err := wire.Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	return records
}

func find(records []wire.Record, name string) []wire.Record {
	var out []wire.Record
	for _, r := range records {
		if r.Name == name {
			out = append(out, r)
		}
	}
	return out
}

func TestSampler_Lifecycle(t *testing.T) {
	s, buf, fake := newTestSampler(t)

	require.NoError(t, s.Start())
	fake.Advance(5 * time.Millisecond)
	require.NoError(t, s.MarkMainStart())
	fake.Advance(50 * time.Millisecond)
	require.NoError(t, s.Sample())
	fake.Advance(10 * time.Millisecond)
	require.NoError(t, s.MarkMainEnd())
	require.NoError(t, s.Stop())

	records := decode(t, buf)

	start := find(records, wire.ProcessStart)
	require.Len(t, start, 1)
	assert.Equal(t, wire.KindTimer, start[0].Kind)
	assert.Equal(t, 1_700_000_000_000.0, start[0].Value)

	mainStart := find(records, wire.ProcessMainStart)
	require.Len(t, mainStart, 1)
	assert.Equal(t, 1_700_000_000_005.0, mainStart[0].Value)

	mainEnd := find(records, wire.ProcessMainEnd)
	require.Len(t, mainEnd, 1)
	assert.Equal(t, 1_700_000_000_065.0, mainEnd[0].Value)

	end := find(records, wire.ProcessEnd)
	require.Len(t, end, 1)
	assert.Equal(t, wire.ProcessEnd, records[len(records)-1].Name)

	// one explicit sample plus the final one written by Stop
	assert.Len(t, find(records, wire.Goroutines), 2)
	for _, r := range find(records, wire.Goroutines) {
		assert.Equal(t, wire.KindGauge, r.Kind)
		assert.GreaterOrEqual(t, r.Value, 1.0)
	}
	threads := find(records, wire.ThreadsCreated)
	require.Len(t, threads, 2)
	assert.GreaterOrEqual(t, threads[0].Value, 1.0)
	assert.GreaterOrEqual(t, threads[1].Value, threads[0].Value, "created threads never decrease")
	for _, r := range find(records, wire.GCCountTotal) {
		assert.Equal(t, wire.KindCounter, r.Kind)
		assert.GreaterOrEqual(t, r.Value, 0.0)
	}
}

func TestSampler_StopIsIdempotent(t *testing.T) {
	s, buf, _ := newTestSampler(t)
	require.NoError(t, s.Start())
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
	require.NoError(t, s.Sample())

	assert.Len(t, find(decode(t, buf), wire.ProcessEnd), 1)
}

func TestSampler_StopWithoutStart(t *testing.T) {
	s, buf, _ := newTestSampler(t)
	require.NoError(t, s.Stop())
	assert.Empty(t, find(decode(t, buf), wire.ProcessEnd))
}

func TestSampler_PanicsFlushedOnNextSample(t *testing.T) {
	s, buf, _ := newTestSampler(t)
	require.NoError(t, s.Start())

	s.RecordPanic(errors.New("boom"))
	s.RecordPanic(errors.New("again"))
	s.RecordPanic("text")
	require.NoError(t, s.Sample())
	require.NoError(t, s.Sample())
	require.NoError(t, s.Stop())

	records := decode(t, buf)
	errs := find(records, wire.PanicPrefix+"errors.errorString")
	require.Len(t, errs, 1)
	assert.Equal(t, wire.KindIncrement, errs[0].Kind)
	assert.Equal(t, 2.0, errs[0].Value)
	assert.Len(t, find(records, wire.PanicPrefix+"string"), 1)
}

func TestSampler_LoopTicks(t *testing.T) {
	var buf bytes.Buffer
	w, err := wire.NewWriter(&buf)
	require.NoError(t, err)

	s := New(w, WithInterval(5*time.Millisecond))
	require.NoError(t, s.Start())
	time.Sleep(60 * time.Millisecond)
	require.NoError(t, s.Stop())

	assert.Greater(t, len(find(decode(t, &buf), wire.Goroutines)), 2)
}

func TestMatchesProcess(t *testing.T) {
	assert.True(t, matchesProcess("app", "/usr/bin/app"))
	assert.True(t, matchesProcess("App.exe", `app`))
	assert.False(t, matchesProcess("app", "/usr/bin/other"))
}

func TestEnabled(t *testing.T) {
	t.Setenv(EnvMetricsFile, "")
	assert.False(t, Enabled())

	t.Setenv(EnvMetricsFile, "/tmp/metrics.bin")
	t.Setenv(EnvProcessName, "")
	assert.True(t, Enabled())

	t.Setenv(EnvProcessName, "definitely-not-this-binary")
	assert.False(t, Enabled())
}

func TestRun_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.bin")
	t.Setenv(EnvMetricsFile, path)
	t.Setenv(EnvProcessName, "")

	ran := false
	Run(func() { ran = true })
	assert.True(t, ran)

	records, err := wire.ReadFile(path)
	require.NoError(t, err)
	for _, name := range []string{wire.ProcessStart, wire.ProcessMainStart, wire.ProcessMainEnd, wire.ProcessEnd} {
		assert.Len(t, find(records, name), 1, name)
	}
	assert.Nil(t, current())
}

func TestRun_Disabled(t *testing.T) {
	t.Setenv(EnvMetricsFile, "")
	ran := false
	Run(func() { ran = true })
	assert.True(t, ran)
}

func TestRecover_Repanics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.bin")
	t.Setenv(EnvMetricsFile, path)
	t.Setenv(EnvProcessName, "")

	assert.PanicsWithValue(t, "kaboom", func() {
		Run(func() {
			defer Recover()
			panic("kaboom")
		})
	})

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	records, err := wire.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Len(t, find(records, wire.PanicPrefix+"string"), 1)
}

func TestHistogramTotal(t *testing.T) {
	h := &metrics.Float64Histogram{
		Counts:  []uint64{1, 2, 3},
		Buckets: []float64{math.Inf(-1), 1, 3, math.Inf(1)},
	}
	// 1*1 + 2*2 + 3*3
	assert.Equal(t, 14.0, histogramTotal(h))
	assert.Equal(t, 0.0, histogramTotal(nil))
}
