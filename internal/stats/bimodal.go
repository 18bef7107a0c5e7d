package stats

// Range is the half-open value interval covered by a histogram bin.
type Range struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// BimodalResult describes the histogram used for bimodality detection.
type BimodalResult struct {
	IsBimodal bool    `json:"isBimodal"`
	PeakCount int     `json:"peakCount"`
	Histogram []int   `json:"histogram,omitempty"`
	Ranges    []Range `json:"ranges,omitempty"`
}

// Peak significance bounds used by IsBimodal.
const (
	// PeakMinFraction is the smallest height, relative to the tallest
	// peak, a peak must reach to count
	PeakMinFraction = 1.0 / 3
	// ValleyMaxFraction is the highest valley, relative to the smaller of
	// two neighboring peaks, that still separates them
	ValleyMaxFraction = 0.5
)

// IsBimodal builds an equal-width histogram of binCount bins over
// [min, max] and counts local maxima: bins, or runs of equal bins, strictly
// greater than both neighbors, where a missing neighbor at either edge
// counts as -1. Edge bins stay eligible because two tight clusters always
// land in the first and last bin.
//
// Sparse bins are noise, not regimes: a maximum below PeakMinFraction of
// the tallest one is ignored, and two neighboring maxima merge unless the
// lowest bin between them is at most ValleyMaxFraction of the smaller one.
// Two or more remaining peaks make the sample bimodal. Fewer than 3 samples
// or fewer than 3 bins are never bimodal.
func IsBimodal(data []float64, binCount int) BimodalResult {
	if len(data) < 3 || binCount < 3 {
		return BimodalResult{}
	}

	histogram, ranges := Histogram(data, binCount)
	peaks := len(significantPeaks(histogram))

	return BimodalResult{
		IsBimodal: peaks >= 2,
		PeakCount: peaks,
		Histogram: histogram,
		Ranges:    ranges,
	}
}

// plateau is a run of equal histogram bins [from, to].
type plateau struct {
	count    int
	from, to int
}

func significantPeaks(histogram []int) []plateau {
	var runs []plateau
	for i, c := range histogram {
		if n := len(runs); n > 0 && runs[n-1].count == c {
			runs[n-1].to = i
			continue
		}
		runs = append(runs, plateau{count: c, from: i, to: i})
	}

	var candidates []plateau
	tallest := 0
	for i, r := range runs {
		left, right := -1, -1
		if i > 0 {
			left = runs[i-1].count
		}
		if i < len(runs)-1 {
			right = runs[i+1].count
		}
		if r.count > 0 && r.count > left && r.count > right {
			candidates = append(candidates, r)
			tallest = max(tallest, r.count)
		}
	}

	var peaks []plateau
	for _, c := range candidates {
		if float64(c.count) < PeakMinFraction*float64(tallest) {
			continue
		}
		if n := len(peaks); n > 0 {
			prev := peaks[n-1]
			valley := prev.count
			for _, v := range histogram[prev.to : c.from+1] {
				valley = min(valley, v)
			}
			if float64(valley) > ValleyMaxFraction*float64(min(prev.count, c.count)) {
				if c.count > prev.count {
					peaks[n-1] = c
				}
				continue
			}
		}
		peaks = append(peaks, c)
	}
	return peaks
}

// Histogram counts data into binCount equal-width bins over [min, max].
// The maximum value falls into the last bin.
func Histogram(data []float64, binCount int) ([]int, []Range) {
	if binCount <= 0 || len(data) == 0 {
		return nil, nil
	}

	lo, hi := Min(data), Max(data)
	width := (hi - lo) / float64(binCount)

	histogram := make([]int, binCount)
	ranges := make([]Range, binCount)
	for i := range ranges {
		ranges[i] = Range{Start: lo + float64(i)*width, End: lo + float64(i+1)*width}
	}

	for _, v := range data {
		idx := 0
		if width > 0 {
			idx = int((v - lo) / width)
		}
		if idx >= binCount {
			idx = binCount - 1
		}
		if idx < 0 {
			idx = 0
		}
		histogram[idx]++
	}

	return histogram, ranges
}
