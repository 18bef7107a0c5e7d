package metrics

import (
	"github.com/wesleyorama2/timeit/internal/stats"
	"github.com/wesleyorama2/timeit/internal/wire"
)

// MetricStats summarizes one metric across the measured iterations.
type MetricStats struct {
	stats.Summary
	Outliers  []float64 `json:"outliers,omitempty"`
	Threshold float64   `json:"threshold"`
}

// Aggregate computes per-metric statistics over the metric maps of several
// iterations. Each series is filtered with the adaptive metric filter before
// being summarized. Absolute lifecycle timestamps are skipped.
func Aggregate(samples []map[string]float64, opts stats.FilterOptions) map[string]MetricStats {
	series := make(map[string][]float64)
	for _, sample := range samples {
		for name, value := range sample {
			if isTimestamp(name) {
				continue
			}
			series[name] = append(series[name], value)
		}
	}

	result := make(map[string]MetricStats, len(series))
	for name, values := range series {
		filtered := opts.FilterMetric(values)
		result[name] = MetricStats{
			Summary:   stats.Summarize(filtered.Kept),
			Outliers:  filtered.Outliers,
			Threshold: filtered.Threshold,
		}
	}
	return result
}

func isTimestamp(name string) bool {
	switch name {
	case wire.ProcessStart, wire.ProcessMainStart, wire.ProcessMainEnd, wire.ProcessEnd:
		return true
	}
	return false
}
