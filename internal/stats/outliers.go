package stats

import "math"

// Default scan bounds for the adaptive filters.
const (
	DefaultStartThreshold       = 0.4
	DefaultThresholdStep        = 0.1
	DefaultMaxDurationThreshold = 2.0
	DefaultMaxMetricThreshold   = 3.0
	DefaultMaxOutlierFraction   = 0.2
	DefaultBinCount             = 10
)

// FilterOptions tunes the adaptive outlier filters.
type FilterOptions struct {
	StartThreshold       float64 `json:"startThreshold,omitempty" yaml:"startThreshold,omitempty"`
	ThresholdStep        float64 `json:"thresholdStep,omitempty" yaml:"thresholdStep,omitempty"`
	MaxDurationThreshold float64 `json:"maxDurationThreshold,omitempty" yaml:"maxDurationThreshold,omitempty"`
	MaxMetricThreshold   float64 `json:"maxMetricThreshold,omitempty" yaml:"maxMetricThreshold,omitempty"`
	MaxOutlierFraction   float64 `json:"maxOutlierFraction,omitempty" yaml:"maxOutlierFraction,omitempty"`
	BinCount             int     `json:"binCount,omitempty" yaml:"binCount,omitempty"`
}

// DefaultFilterOptions returns the default scan bounds.
func DefaultFilterOptions() FilterOptions {
	return FilterOptions{
		StartThreshold:       DefaultStartThreshold,
		ThresholdStep:        DefaultThresholdStep,
		MaxDurationThreshold: DefaultMaxDurationThreshold,
		MaxMetricThreshold:   DefaultMaxMetricThreshold,
		MaxOutlierFraction:   DefaultMaxOutlierFraction,
		BinCount:             DefaultBinCount,
	}
}

// WithDefaults fills every unset field from DefaultFilterOptions.
func (o FilterOptions) WithDefaults() FilterOptions {
	d := DefaultFilterOptions()
	if o.StartThreshold <= 0 {
		o.StartThreshold = d.StartThreshold
	}
	if o.ThresholdStep <= 0 {
		o.ThresholdStep = d.ThresholdStep
	}
	if o.MaxDurationThreshold <= 0 {
		o.MaxDurationThreshold = d.MaxDurationThreshold
	}
	if o.MaxMetricThreshold <= 0 {
		o.MaxMetricThreshold = d.MaxMetricThreshold
	}
	if o.MaxOutlierFraction <= 0 {
		o.MaxOutlierFraction = d.MaxOutlierFraction
	}
	if o.BinCount <= 0 {
		o.BinCount = d.BinCount
	}
	return o
}

// RemoveOutliers keeps the values within threshold standard deviations of
// the mean. A sample with zero deviation is returned unchanged.
func RemoveOutliers(data []float64, threshold float64) []float64 {
	kept, _ := SplitOutliers(data, threshold)
	return kept
}

// SplitOutliers partitions data into the values within threshold standard
// deviations of the mean and the rejected ones, preserving input order.
func SplitOutliers(data []float64, threshold float64) (kept, outliers []float64) {
	sd := StdDev(data)
	if sd == 0 {
		kept = make([]float64, len(data))
		copy(kept, data)
		return kept, nil
	}

	mean := Mean(data)
	limit := threshold * sd
	kept = make([]float64, 0, len(data))
	for _, v := range data {
		if math.Abs(v-mean) <= limit {
			kept = append(kept, v)
		} else {
			outliers = append(outliers, v)
		}
	}
	return kept, outliers
}

// FilterResult is the outcome of an adaptive filter scan.
type FilterResult struct {
	Kept      []float64     `json:"kept"`
	Outliers  []float64     `json:"outliers"`
	Threshold float64       `json:"threshold"`
	Bimodal   BimodalResult `json:"bimodal"`
}

// OutlierFraction returns the share of rejected values.
func (r FilterResult) OutlierFraction() float64 {
	total := len(r.Kept) + len(r.Outliers)
	if total == 0 {
		return 0
	}
	return float64(len(r.Outliers)) / float64(total)
}

// AdaptiveDurationFilter scans the outlier threshold with the default bounds.
func AdaptiveDurationFilter(durations []float64, binCount int) FilterResult {
	opts := DefaultFilterOptions()
	opts.BinCount = binCount
	return opts.FilterDurations(durations)
}

// AdaptiveMetricFilter scans the outlier threshold for a metric series with
// the default bounds.
func AdaptiveMetricFilter(values []float64) FilterResult {
	return DefaultFilterOptions().FilterMetric(values)
}

// FilterDurations raises the threshold from StartThreshold in ThresholdStep
// increments up to MaxDurationThreshold and stops at the first threshold
// whose outlier fraction is below MaxOutlierFraction and whose kept values
// are not bimodal. If none qualifies, the last computed result is kept.
func (o FilterOptions) FilterDurations(durations []float64) FilterResult {
	o = o.WithDefaults()
	return o.scan(durations, o.MaxDurationThreshold, true)
}

// FilterMetric is FilterDurations without the bimodality requirement and
// with MaxMetricThreshold as the cap.
func (o FilterOptions) FilterMetric(values []float64) FilterResult {
	o = o.WithDefaults()
	return o.scan(values, o.MaxMetricThreshold, false)
}

func (o FilterOptions) scan(data []float64, maxThreshold float64, checkBimodal bool) FilterResult {
	var result FilterResult
	for step := 0; ; step++ {
		threshold := round1(o.StartThreshold + float64(step)*o.ThresholdStep)
		if step > 0 && threshold > maxThreshold+1e-9 {
			break
		}

		kept, outliers := SplitOutliers(data, threshold)
		result = FilterResult{Kept: kept, Outliers: outliers, Threshold: threshold}
		if checkBimodal {
			result.Bimodal = IsBimodal(kept, o.BinCount)
		}

		if result.OutlierFraction() < o.MaxOutlierFraction && !result.Bimodal.IsBimodal {
			break
		}
	}
	return result
}
