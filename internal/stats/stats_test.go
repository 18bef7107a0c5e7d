package stats

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptive(t *testing.T) {
	data := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	assert.Equal(t, 5.0, Mean(data))
	assert.Equal(t, 4.5, Median(data))
	assert.Equal(t, 2.0, StdDev(data))
	assert.InDelta(t, 2.0/math.Sqrt(8), StdErr(data), 1e-12)
	assert.Equal(t, 2.0, Min(data))
	assert.Equal(t, 9.0, Max(data))
}

func TestDescriptive_Empty(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 0.0, Median(nil))
	assert.Equal(t, 0.0, StdDev(nil))
	assert.Equal(t, 0.0, StdErr(nil))
	assert.Equal(t, 0.0, Percentile(nil, 95))
	assert.Equal(t, 0.0, Min(nil))
	assert.Equal(t, 0.0, Max(nil))
}

func TestStdDev_NoNaN(t *testing.T) {
	assert.Equal(t, 0.0, StdDev([]float64{3}))
	assert.Equal(t, 0.0, StdDev([]float64{5, 5, 5}))
	assert.Equal(t, 0.0, StdDev([]float64{math.Inf(1), 1}))
}

func TestPercentile_LinearInterpolation(t *testing.T) {
	data := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 10},
		{50, 55},
		{90, 91},
		{95, 95.5},
		{99, 99.1},
		{100, 100},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Percentile(data, tt.p), 1e-9, "p%v", tt.p)
	}
}

func TestPercentile_DoesNotMutateInput(t *testing.T) {
	data := []float64{3, 1, 2}
	_ = Percentile(data, 50)
	_ = Median(data)
	assert.Equal(t, []float64{3, 1, 2}, data)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{1, 2, 3, 4})
	assert.Equal(t, 4, s.Count)
	assert.Equal(t, 2.5, s.Mean)
	assert.Equal(t, 2.5, s.Median)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 4.0, s.Max)
	assert.InDelta(t, 3.97, s.P99, 1e-9)
}

func TestRemoveOutliers_ZeroStdDevUnchanged(t *testing.T) {
	data := []float64{7, 7, 7, 7}
	assert.Equal(t, data, RemoveOutliers(data, 0.1))
}

func TestRemoveOutliers_Subset(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	data := make([]float64, 200)
	for i := range data {
		data[i] = 1000 + rng.NormFloat64()*50
	}
	data[10] = 5000

	for _, threshold := range []float64{0.4, 1, 2, 3} {
		kept := RemoveOutliers(data, threshold)
		counts := map[float64]int{}
		for _, v := range data {
			counts[v]++
		}
		for _, v := range kept {
			counts[v]--
			assert.GreaterOrEqual(t, counts[v], 0, "value %v kept more often than present", v)
		}
		assert.NotContains(t, kept, 5000.0)
	}
}

func TestRemoveOutliers_IdempotentWithLargeThreshold(t *testing.T) {
	data := []float64{10, 11, 12, 13, 14, 15, 100}
	once := RemoveOutliers(data, 100)
	assert.Equal(t, data, once)
	assert.Equal(t, once, RemoveOutliers(once, 100))
}

func TestSplitOutliers(t *testing.T) {
	kept, outliers := SplitOutliers([]float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 50}, 2)
	assert.Equal(t, []float64{50}, outliers)
	assert.Len(t, kept, 9)
}

func TestIsBimodal_DegenerateInputs(t *testing.T) {
	assert.False(t, IsBimodal(nil, 10).IsBimodal)
	assert.False(t, IsBimodal([]float64{1, 100}, 10).IsBimodal)
	assert.False(t, IsBimodal([]float64{1, 100, 1, 100, 1, 100}, 2).IsBimodal)
}

func TestIsBimodal_TwoClusters(t *testing.T) {
	var data []float64
	for i := 0; i < 20; i++ {
		data = append(data, 100, 200)
	}
	res := IsBimodal(data, 10)
	assert.True(t, res.IsBimodal)
	assert.Equal(t, 2, res.PeakCount)
	require.Len(t, res.Histogram, 10)
	assert.Equal(t, 20, res.Histogram[0])
	assert.Equal(t, 20, res.Histogram[9])
	require.Len(t, res.Ranges, 10)
	assert.Equal(t, 100.0, res.Ranges[0].Start)
	assert.InDelta(t, 200.0, res.Ranges[9].End, 1e-9)
}

func TestIsBimodal_SingleGaussianCluster(t *testing.T) {
	res := IsBimodal(unimodalCluster(1000), 10)
	assert.False(t, res.IsBimodal)
	assert.Equal(t, 1, res.PeakCount)
}

func TestIsBimodal_SeededGaussianSamples(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		data := make([]float64, 1000)
		for i := range data {
			data[i] = 50 + rng.NormFloat64()*5
		}
		res := IsBimodal(data, 10)
		assert.False(t, res.IsBimodal, "seed %d: histogram %v", seed, res.Histogram)
	}
}

func TestIsBimodal_SeededGaussianPair(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var data []float64
	for i := 0; i < 500; i++ {
		data = append(data, 50+rng.NormFloat64()*5, 110+rng.NormFloat64()*5)
	}
	res := IsBimodal(data, 10)
	assert.True(t, res.IsBimodal, "histogram %v", res.Histogram)
	assert.Equal(t, 2, res.PeakCount)
}

func TestIsBimodal_SparseTailsAreNotPeaks(t *testing.T) {
	data := []float64{0, 10}
	for bin, c := range map[int]int{2: 3, 3: 8, 4: 12, 5: 8, 6: 3, 7: 1} {
		for i := 0; i < c; i++ {
			data = append(data, float64(bin)+0.5)
		}
	}

	res := IsBimodal(data, 10)
	assert.Equal(t, []int{1, 0, 3, 8, 12, 8, 3, 1, 0, 1}, res.Histogram)
	assert.False(t, res.IsBimodal)
	assert.Equal(t, 1, res.PeakCount)
}

func TestIsBimodal_PlateauPeaks(t *testing.T) {
	var data []float64
	for i := 0; i < 6; i++ {
		data = append(data, 1.5, 8.5)
	}
	for i := 0; i < 5; i++ {
		data = append(data, 0.5, 9.5)
	}
	data = append(data, 0, 10)

	res := IsBimodal(data, 10)
	assert.Equal(t, []int{6, 6, 0, 0, 0, 0, 0, 0, 6, 6}, res.Histogram)
	assert.True(t, res.IsBimodal)
	assert.Equal(t, 2, res.PeakCount)
}

func TestIsBimodal_IdenticalValues(t *testing.T) {
	res := IsBimodal([]float64{5, 5, 5, 5}, 10)
	assert.False(t, res.IsBimodal)
	assert.Equal(t, 4, res.Histogram[0])
}

func TestAdaptiveDurationFilter_InjectedOutliers(t *testing.T) {
	data := unimodalCluster(1000)
	for i := 0; i < 5; i++ {
		data = append(data, 10050)
	}
	require.Len(t, data, 100)

	res := AdaptiveDurationFilter(data, 10)

	assert.Less(t, res.OutlierFraction(), 0.2)
	assert.False(t, res.Bimodal.IsBimodal)
	assert.Len(t, res.Outliers, 5)
	assert.GreaterOrEqual(t, res.Threshold, DefaultStartThreshold)
	assert.LessOrEqual(t, res.Threshold, DefaultMaxDurationThreshold)
}

func TestAdaptiveDurationFilter_GracefulDegradation(t *testing.T) {
	var data []float64
	for i := 0; i < 30; i++ {
		data = append(data, 100, 200)
	}

	res := AdaptiveDurationFilter(data, 10)
	assert.Equal(t, DefaultMaxDurationThreshold, res.Threshold)
	assert.True(t, res.Bimodal.IsBimodal)
	assert.Len(t, res.Kept, 60)
}

func TestAdaptiveMetricFilter_Cap(t *testing.T) {
	data := []float64{1, 1, 1, 1, 9, 9, 9, 9}
	res := AdaptiveMetricFilter(data)
	assert.Empty(t, res.Outliers)
	assert.False(t, res.Bimodal.IsBimodal)
	assert.Equal(t, 1.0, res.Threshold)
}

func TestFilterOptions_WithDefaults(t *testing.T) {
	opts := FilterOptions{MaxDurationThreshold: 1.5}.WithDefaults()
	assert.Equal(t, 1.5, opts.MaxDurationThreshold)
	assert.Equal(t, DefaultStartThreshold, opts.StartThreshold)
	assert.Equal(t, DefaultBinCount, opts.BinCount)
}

func TestOverheadMatrix(t *testing.T) {
	m := OverheadMatrix([]float64{100, 125, 80})

	for i := range m {
		assert.Equal(t, 0.0, m[i][i])
	}
	assert.Equal(t, 25.0, m[0][1])
	assert.Equal(t, -20.0, m[0][2])
	assert.Equal(t, -20.0, m[1][0])
}

func TestOverheadMatrix_Antisymmetry(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for n := 0; n < 100; n++ {
		a := 100 + rng.Float64()*100
		b := 100 + rng.Float64()*100
		m := OverheadMatrix([]float64{a, b})

		// Both entries are rounded to 0.1; the first rounding error is
		// amplified by (a/b)^2 through the transform.
		tolerance := 0.05 + 0.05*(a/b)*(a/b) + 1e-9
		expected := -m[0][1] / (1 + m[0][1]/100)
		assert.InDelta(t, expected, m[1][0], tolerance, "a=%v b=%v", a, b)
	}
}

func TestNewDistribution(t *testing.T) {
	var values []float64
	for i := 1; i <= 100; i++ {
		values = append(values, float64(i)*1000)
	}

	d := NewDistribution(values, 10)
	assert.Equal(t, int64(100), d.Count)
	assert.InDelta(t, 1000, d.Min, 1)
	assert.InDelta(t, 100000, d.Max, 100)
	assert.InDelta(t, 50000, d.P50, 100)
	assert.InDelta(t, 99000, d.P99, 100)
	assert.LessOrEqual(t, len(d.Bars), 10)

	var total int64
	for _, b := range d.Bars {
		total += b.Count
	}
	assert.Equal(t, int64(100), total)
}

func TestNewDistribution_Empty(t *testing.T) {
	assert.Equal(t, Distribution{}, NewDistribution(nil, 10))
	assert.Equal(t, Distribution{}, NewDistribution([]float64{0, -1, math.NaN()}, 10))
}

// unimodalCluster returns 95 values spread over [base, base+10] whose
// 10-bin histogram rises to a single peak and falls again.
func unimodalCluster(base float64) []float64 {
	counts := []int{2, 4, 8, 12, 20, 18, 12, 9, 6, 4}
	var data []float64
	for bin, c := range counts {
		for i := 0; i < c; i++ {
			v := base + float64(bin) + 0.5
			switch {
			case bin == 0 && i == 0:
				v = base
			case bin == len(counts)-1 && i == 0:
				v = base + 10
			}
			data = append(data, v)
		}
	}
	return data
}
