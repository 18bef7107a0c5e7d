// Package metrics turns the per-iteration metric files written by the
// sampler into reduced, correlated metric maps and aggregates them across
// iterations.
package metrics

import (
	"errors"
	"os"
	"sort"
	"time"

	"github.com/wesleyorama2/timeit/internal/clock"
	"github.com/wesleyorama2/timeit/internal/logger"
	"github.com/wesleyorama2/timeit/internal/wire"
)

// Reduce folds repeated emissions per name: counters and increments are
// summed, gauges and timers are averaged.
func Reduce(records []wire.Record) map[string]float64 {
	type acc struct {
		kind  wire.Kind
		sum   float64
		count int
	}

	accs := make(map[string]*acc)
	for _, r := range records {
		if r.Kind == wire.KindVersion {
			continue
		}
		a, ok := accs[r.Name]
		if !ok {
			a = &acc{kind: r.Kind}
			accs[r.Name] = a
		}
		a.sum += r.Value
		a.count++
	}

	result := make(map[string]float64, len(accs))
	for name, a := range accs {
		switch a.kind {
		case wire.KindGauge, wire.KindTimer:
			result[name] = a.sum / float64(a.count)
		default:
			result[name] = a.sum
		}
	}
	return result
}

// ReadFile decodes and reduces the metric file at path, then deletes it.
// Decoding stops at the first malformed record; what was decoded up to that
// point is kept and the problem is only logged. The file is removed even
// when reading fails.
func ReadFile(path string) (map[string]float64, error) {
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("failed to delete metrics file", "path", path, "error", err)
		}
	}()

	records, err := wire.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		logger.Warn("metrics file partially decoded", "path", path, "records", len(records), "error", err)
	}

	return Reduce(records), nil
}

// Correlate derives compound timings from the lifecycle timestamps in m,
// the harness-observed spawn time and total duration. Derived values are
// written back into m in milliseconds.
//
//   - time to start: process start minus spawn
//   - time to main start/end: main start/end minus spawn
//   - internal duration: main end minus main start
//   - startup hook overhead: main start minus process start, the time spent
//     by the hook before the program's main ran, clamped at zero. This is
//     measured directly rather than derived as internal duration minus the
//     harness total minus the main duration, which is negative whenever the
//     process does any work.
//   - corrected duration: the harness duration minus that overhead
func Correlate(m map[string]float64, spawn time.Time, duration time.Duration) {
	if m == nil {
		return
	}
	spawnMs := clock.UnixMillis(spawn)

	start, hasStart := m[wire.ProcessStart]
	mainStart, hasMainStart := m[wire.ProcessMainStart]
	mainEnd, hasMainEnd := m[wire.ProcessMainEnd]

	if hasStart {
		m[wire.TimeToStartMs] = start - spawnMs
	}
	if hasMainStart {
		m[wire.TimeToMainStartMs] = mainStart - spawnMs
	}
	if hasMainEnd {
		m[wire.TimeToMainEndMs] = mainEnd - spawnMs
	}
	if hasMainStart && hasMainEnd {
		m[wire.InternalDurationMs] = mainEnd - mainStart
	}

	if hasStart && hasMainStart {
		overhead := mainStart - start
		if overhead < 0 {
			overhead = 0
		}
		m[wire.StartupHookOverhead] = overhead
		m[wire.CorrectedDurationMs] = float64(duration)/float64(time.Millisecond) - overhead
	}
}

// Names returns the sorted metric names of m.
func Names(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
