package sampler

import (
	"math"
	"runtime/metrics"
	"runtime/pprof"
	"time"

	"github.com/wesleyorama2/timeit/internal/wire"
)

const (
	gcPauses        = "/sched/pauses/total/gc:seconds"
	gcCyclesTotal   = "/gc/cycles/total:gc-cycles"
	gcCyclesForced  = "/gc/cycles/forced:gc-cycles"
	gcCyclesAuto    = "/gc/cycles/automatic:gc-cycles"
	gcHeapGoal      = "/gc/heap/goal:bytes"
	heapObjects     = "/memory/classes/heap/objects:bytes"
	heapUnused      = "/memory/classes/heap/unused:bytes"
	heapFree        = "/memory/classes/heap/free:bytes"
	heapReleased    = "/memory/classes/heap/released:bytes"
	heapStacks      = "/memory/classes/heap/stacks:bytes"
	memoryTotal     = "/memory/classes/total:bytes"
	mutexWait       = "/sync/mutex/wait/total:seconds"
	schedGoroutines = "/sched/goroutines:goroutines"
)

var sampleNames = []string{
	gcPauses,
	gcCyclesTotal,
	gcCyclesForced,
	gcCyclesAuto,
	gcHeapGoal,
	heapObjects,
	heapUnused,
	heapFree,
	heapReleased,
	heapStacks,
	memoryTotal,
	mutexWait,
	schedGoroutines,
}

var threadProfile = pprof.Lookup("threadcreate")

// snapshot holds cumulative and instantaneous readings taken on one tick.
type snapshot struct {
	values         map[string]float64
	threadsCreated int
	cpu            cpuTimes
	hasCPU         bool
}

type cpuTimes struct {
	user   time.Duration
	system time.Duration
}

func readSnapshot() snapshot {
	samples := make([]metrics.Sample, len(sampleNames))
	for i, name := range sampleNames {
		samples[i].Name = name
	}
	metrics.Read(samples)

	snap := snapshot{values: make(map[string]float64, len(samples))}
	for _, s := range samples {
		switch s.Value.Kind() {
		case metrics.KindUint64:
			snap.values[s.Name] = float64(s.Value.Uint64())
		case metrics.KindFloat64:
			snap.values[s.Name] = s.Value.Float64()
		case metrics.KindFloat64Histogram:
			snap.values[s.Name] = histogramTotal(s.Value.Float64Histogram())
		}
	}

	if threadProfile != nil {
		snap.threadsCreated = threadProfile.Count()
	}
	snap.cpu, snap.hasCPU = readCPUTimes()
	return snap
}

// histogramTotal approximates the sum of all observations using each
// bucket's midpoint. Unbounded edges fall back to the finite boundary.
func histogramTotal(h *metrics.Float64Histogram) float64 {
	if h == nil {
		return 0
	}
	var total float64
	for i, count := range h.Counts {
		if count == 0 {
			continue
		}
		lo, hi := h.Buckets[i], h.Buckets[i+1]
		switch {
		case math.IsInf(lo, -1):
			lo = hi
		case math.IsInf(hi, 1):
			hi = lo
		}
		total += float64(count) * (lo + hi) / 2
	}
	return total
}

// records converts the difference between prev and s into wire records.
// Cumulative readings become counters holding the delta, instantaneous
// readings become gauges.
func (s snapshot) records(prev snapshot, elapsed time.Duration, numCPU int) []wire.Record {
	delta := func(name string) float64 {
		d := s.values[name] - prev.values[name]
		if d < 0 {
			return 0
		}
		return d
	}

	records := []wire.Record{
		wire.Counter(wire.GCPauseTimeMs, delta(gcPauses)*1000),
		wire.Counter(wire.GCCountTotal, delta(gcCyclesTotal)),
		wire.Counter(wire.GCCountForced, delta(gcCyclesForced)),
		wire.Counter(wire.GCCountAutomatic, delta(gcCyclesAuto)),
		wire.Gauge(wire.GCHeapGoal, s.values[gcHeapGoal]),
		wire.Gauge(wire.HeapObjectsBytes, s.values[heapObjects]),
		wire.Gauge(wire.HeapUnusedBytes, s.values[heapUnused]),
		wire.Gauge(wire.HeapFreeBytes, s.values[heapFree]),
		wire.Gauge(wire.HeapReleasedBytes, s.values[heapReleased]),
		wire.Gauge(wire.StackBytes, s.values[heapStacks]),
		wire.Gauge(wire.Goroutines, s.values[schedGoroutines]),
		wire.Gauge(wire.ThreadsCreated, float64(s.threadsCreated)),
		wire.Gauge(wire.CommittedMemory, s.values[memoryTotal]),
		wire.Gauge(wire.PrivateMemory, s.values[memoryTotal]-s.values[heapReleased]),
	}

	if goal := s.values[gcHeapGoal]; goal > 0 {
		records = append(records, wire.Gauge(wire.GCMemoryLoadPercent, s.values[heapObjects]*100/goal))
	}

	wait := delta(mutexWait)
	records = append(records, wire.Counter(wire.LockContentionTimeMs, wait*1000))
	if wait > 0 {
		records = append(records, wire.Increment(wire.LockContentionTicks, 1))
	}

	if s.hasCPU && prev.hasCPU {
		user := s.cpu.user - prev.cpu.user
		system := s.cpu.system - prev.cpu.system
		total := user + system
		records = append(records,
			wire.Counter(wire.CPUUserTimeMs, millis(user)),
			wire.Counter(wire.CPUSystemTimeMs, millis(system)),
			wire.Counter(wire.CPUTotalTimeMs, millis(total)),
		)
		if elapsed > 0 && numCPU > 0 {
			percent := millis(total) * 100 / (float64(numCPU) * millis(elapsed))
			records = append(records, wire.Gauge(wire.CPUPercent, percent))
		}
	}

	return records
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
