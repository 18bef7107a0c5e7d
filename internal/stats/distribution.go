package stats

import (
	"math"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// DistributionSigFigs is the HDR histogram precision.
const DistributionSigFigs = 3

// Bar is one populated bucket of a Distribution.
type Bar struct {
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Count int64   `json:"count"`
}

// Distribution is an HDR histogram view of a sample, used by exporters to
// draw distribution charts. Values are recorded with 3 significant figures,
// so the quantiles are approximations of the exact ones in Summary.
type Distribution struct {
	Count int64   `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P90   float64 `json:"p90"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Bars  []Bar   `json:"bars,omitempty"`
}

// NewDistribution records values (non-negative, typically nanoseconds) in
// an HDR histogram and returns its quantiles and populated buckets, merged
// down to at most maxBars bars. Non-positive and NaN values are ignored.
func NewDistribution(values []float64, maxBars int) Distribution {
	highest := int64(2)
	for _, v := range values {
		if v > float64(highest) && !math.IsInf(v, 0) {
			highest = int64(v) + 1
		}
	}

	hist := hdrhistogram.New(1, highest*2, DistributionSigFigs)
	for _, v := range values {
		if math.IsNaN(v) || v <= 0 || math.IsInf(v, 0) {
			continue
		}
		_ = hist.RecordValue(int64(math.Round(v)))
	}

	if hist.TotalCount() == 0 {
		return Distribution{}
	}

	return Distribution{
		Count: hist.TotalCount(),
		Min:   float64(hist.Min()),
		Max:   float64(hist.Max()),
		Mean:  hist.Mean(),
		P50:   float64(hist.ValueAtQuantile(50)),
		P90:   float64(hist.ValueAtQuantile(90)),
		P95:   float64(hist.ValueAtQuantile(95)),
		P99:   float64(hist.ValueAtQuantile(99)),
		Bars:  mergeBars(hist.Distribution(), maxBars),
	}
}

// mergeBars drops empty HDR buckets and merges the rest into at most
// maxBars adjacent groups.
func mergeBars(buckets []hdrhistogram.Bar, maxBars int) []Bar {
	var populated []Bar
	for _, b := range buckets {
		if b.Count == 0 {
			continue
		}
		populated = append(populated, Bar{From: float64(b.From), To: float64(b.To), Count: b.Count})
	}

	if maxBars <= 0 || len(populated) <= maxBars {
		return populated
	}

	per := int(math.Ceil(float64(len(populated)) / float64(maxBars)))
	merged := make([]Bar, 0, maxBars)
	for i := 0; i < len(populated); i += per {
		end := i + per
		if end > len(populated) {
			end = len(populated)
		}
		group := Bar{From: populated[i].From, To: populated[end-1].To}
		for _, b := range populated[i:end] {
			group.Count += b.Count
		}
		merged = append(merged, group)
	}
	return merged
}
