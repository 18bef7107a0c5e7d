package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/wesleyorama2/timeit/internal/export"
	"github.com/wesleyorama2/timeit/internal/metrics"
	"github.com/wesleyorama2/timeit/internal/result"
	"github.com/wesleyorama2/timeit/internal/stats"
)

func main() {
	run := createSampleRun()

	outputPath := "sample-timeit-report.html"
	if len(os.Args) > 1 {
		outputPath = os.Args[1]
	}

	if err := export.NewHTML(outputPath, "Sample startup overhead").Export(run); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Sample report generated: %s\n", outputPath)
}

func createSampleRun() *result.RunResult {
	now := time.Now()
	rng := rand.New(rand.NewSource(42))

	scenarios := []*result.ScenarioResult{
		sampleScenario(rng, 0, "baseline", 42*time.Millisecond, false),
		sampleScenario(rng, 1, "tracing", 47*time.Millisecond, false),
		sampleScenario(rng, 2, "tracing+profiler", 58*time.Millisecond, true),
	}

	means := make([]float64, len(scenarios))
	for i, s := range scenarios {
		means[i] = s.Mean
	}
	overheads := stats.OverheadMatrix(means)
	for i, s := range scenarios {
		s.Overhead = overheads[0][i]
	}

	return &result.RunResult{
		ID:        uuid.NewString(),
		Name:      "Startup overhead",
		Scenarios: scenarios,
		Overheads: overheads,
		StartTime: now.Add(-3 * time.Minute),
		EndTime:   now,
		Status:    result.Passed,
	}
}

// sampleScenario draws 100 durations around mean, with a slow second mode
// when bimodal is set, and summarizes them like the engine does.
func sampleScenario(rng *rand.Rand, index int, name string, mean time.Duration, bimodal bool) *result.ScenarioResult {
	durations := make([]float64, 100)
	for i := range durations {
		center := float64(mean)
		if bimodal && i%3 == 0 {
			center *= 1.4
		}
		durations[i] = center + rng.NormFloat64()*float64(mean)*0.05
	}

	filtered := stats.AdaptiveDurationFilter(durations, stats.DefaultFilterOptions().BinCount)
	summary := stats.Summarize(filtered.Kept)
	shape := stats.IsBimodal(filtered.Kept, stats.DefaultFilterOptions().BinCount)

	heap := make([]float64, len(durations))
	for i := range heap {
		heap[i] = 3*1024*1024 + rng.Float64()*512*1024
	}
	heapStats := stats.DefaultFilterOptions().FilterMetric(heap)

	return &result.ScenarioResult{
		Index:             index,
		Name:              name,
		Durations:         filtered.Kept,
		Outliers:          filtered.Outliers,
		Mean:              summary.Mean,
		Median:            summary.Median,
		Min:               summary.Min,
		Max:               summary.Max,
		StdDev:            summary.StdDev,
		StdErr:            summary.StdErr,
		P99:               summary.P99,
		P95:               summary.P95,
		P90:               summary.P90,
		OutliersThreshold: filtered.Threshold,
		IsBimodal:         shape.IsBimodal,
		PeakCount:         shape.PeakCount,
		Histogram:         shape.Histogram,
		Distribution:      stats.NewDistribution(filtered.Kept, 20),
		MetricsStats: map[string]metrics.MetricStats{
			"runtime.go.heap_objects_bytes": {
				Summary:   stats.Summarize(heapStats.Kept),
				Outliers:  heapStats.Outliers,
				Threshold: heapStats.Threshold,
			},
		},
		Metrics: map[string]float64{"runtime.go.heap_objects_bytes": stats.Mean(heapStats.Kept)},
		Status:  result.Passed,
	}
}
