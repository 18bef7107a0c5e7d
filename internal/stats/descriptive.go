// Package stats provides the pure statistical functions used to summarize
// noisy timing samples: outlier rejection, bimodality detection and
// descriptive statistics.
package stats

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean, or 0 for an empty sample.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

// Median returns the middle value of the sample, or 0 for an empty sample.
func Median(data []float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}
	sorted := sortedCopy(data)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// StdDev returns the population standard deviation. Degenerate inputs
// yield 0 rather than NaN.
func StdDev(data []float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}
	mean := Mean(data)
	sum := 0.0
	for _, v := range data {
		d := v - mean
		sum += d * d
	}
	sd := math.Sqrt(sum / float64(n))
	if math.IsNaN(sd) || math.IsInf(sd, 0) {
		return 0
	}
	return sd
}

// StdErr returns the standard error of the mean.
func StdErr(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return StdDev(data) / math.Sqrt(float64(len(data)))
}

// Percentile returns the p-th percentile (0-100) using linear
// interpolation between closest ranks.
func Percentile(data []float64, p float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}
	sorted := sortedCopy(data)
	if n == 1 || p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[n-1]
	}

	rank := p / 100 * float64(n-1)
	lower := int(math.Floor(rank))
	upper := lower + 1
	if upper >= n {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// Min returns the smallest value, or 0 for an empty sample.
func Min(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	m := data[0]
	for _, v := range data[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// Max returns the largest value, or 0 for an empty sample.
func Max(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	m := data[0]
	for _, v := range data[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Summary holds the descriptive statistics of a sample.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"stdDev"`
	StdErr float64 `json:"stdErr"`
	P99    float64 `json:"p99"`
	P95    float64 `json:"p95"`
	P90    float64 `json:"p90"`
}

// Summarize computes every descriptive statistic of data.
func Summarize(data []float64) Summary {
	return Summary{
		Count:  len(data),
		Mean:   Mean(data),
		Median: Median(data),
		Min:    Min(data),
		Max:    Max(data),
		StdDev: StdDev(data),
		StdErr: StdErr(data),
		P99:    Percentile(data, 99),
		P95:    Percentile(data, 95),
		P90:    Percentile(data, 90),
	}
}

// OverheadMatrix returns, for every ordered pair (i, j), the percentage
// overhead of mean j relative to baseline mean i, rounded to one decimal.
// The diagonal is zero.
func OverheadMatrix(means []float64) [][]float64 {
	matrix := make([][]float64, len(means))
	for i := range means {
		matrix[i] = make([]float64, len(means))
		for j := range means {
			if i == j || means[i] == 0 {
				continue
			}
			matrix[i][j] = round1(((means[j] * 100) / means[i]) - 100)
		}
	}
	return matrix
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func sortedCopy(data []float64) []float64 {
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)
	return sorted
}
