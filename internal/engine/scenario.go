package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/wesleyorama2/timeit/internal/config"
	"github.com/wesleyorama2/timeit/internal/logger"
	"github.com/wesleyorama2/timeit/internal/metrics"
	"github.com/wesleyorama2/timeit/internal/result"
	"github.com/wesleyorama2/timeit/internal/stats"
)

// DistributionBars caps the bars of ScenarioResult.Distribution.
const DistributionBars = 20

// RunScenario runs every phase of a prepared scenario and summarizes the
// measured data points. It returns false when ctx is cancelled before the
// measured phase completes.
func (e *Engine) RunScenario(ctx context.Context, index int, sc *config.Scenario) (*result.ScenarioResult, bool) {
	res := &result.ScenarioResult{
		Index:    index,
		Name:     sc.Name,
		Scenario: sc,
		Tags:     sc.Tags,
		Start:    e.clock.Now(),
	}
	log := logger.With("scenario", sc.Name)

	for _, path := range sc.PathValidations {
		if _, err := os.Stat(path); err != nil {
			log.Error("Path validation failed", "path", path)
			res.Fail(fmt.Sprintf("Path not found: %s", path))
		}
	}
	if res.Status == result.Failed {
		res.End = e.clock.Now()
		e.bus.ScenarioFinish(res)
		return res, true
	}

	requests := e.bus.ScenarioStart(index, sc)

	log.Info("Running scenario", "warmUp", e.config.WarmUpCount, "count", e.config.Count, "coolDown", e.config.CoolDownCount)

	e.RunPhase(ctx, e.config.WarmUpCount, sc, result.WarmUp, false)
	if ctx.Err() != nil {
		return nil, false
	}

	measured := e.RunPhase(ctx, e.config.Count, sc, result.Run, true)
	if ctx.Err() != nil {
		return nil, false
	}

	e.RunPhase(ctx, e.config.CoolDownCount, sc, result.CoolDown, false)

	for _, req := range requests {
		if ctx.Err() != nil {
			break
		}
		extra := sc.Clone()
		extra.Owner = req.Owner
		extra.EnvironmentVariables = config.MergeMaps(sc.EnvironmentVariables, req.Env)

		log.Info("Running extra iterations", "owner", req.Owner, "count", req.Count)
		points := e.RunPhase(ctx, req.Count, extra, result.ExtraRun, false)
		if req.IncludeInResults {
			measured = append(measured, points...)
		}
	}

	e.summarize(res, measured)

	verdicts := make([]result.AssertResponse, 0, len(e.assertors))
	for _, a := range e.assertors {
		verdicts = append(verdicts, a.ScenarioAssertion(measured))
	}
	if v := result.Fold(verdicts...); v.Status == result.Failed {
		res.Fail(v.Message)
	}

	res.End = e.clock.Now()
	e.bus.ScenarioFinish(res)
	log.Info("Scenario finished", "status", res.Status, "mean", res.Mean, "executions", len(measured))
	return res, true
}

// RunPhase runs count iterations sequentially. With circuitBreak set the
// phase stops at the first data point that must not continue.
func (e *Engine) RunPhase(ctx context.Context, count int, sc *config.Scenario, phase result.Phase, circuitBreak bool) []result.DataPoint {
	points := make([]result.DataPoint, 0, max(count, 0))
	for i := 0; i < count; i++ {
		if ctx.Err() != nil {
			break
		}

		dp := e.RunIteration(ctx, sc, phase)
		points = append(points, dp)

		if i == 0 && phase == result.Run && e.config.ShowStdOutForFirstRun {
			logger.Info("First run output", "scenario", sc.Name, "stdout", dp.StandardOutput, "stderr", dp.StandardError)
		}
		if dp.Failed() {
			logger.Debug("Iteration failed", "scenario", sc.Name, "phase", phase, "message", dp.AssertResult.Message)
		}
		if circuitBreak && !dp.AssertResult.ShouldContinue {
			logger.Warn("Stopping phase", "scenario", sc.Name, "phase", phase, "executed", i+1, "reason", dp.AssertResult.Message)
			break
		}
	}
	return points
}

// summarize fills the statistics of res from the measured data points.
// Failed data points only count with ProcessFailedDataPoints.
func (e *Engine) summarize(res *result.ScenarioResult, points []result.DataPoint) {
	res.DataPoints = points

	var durations []float64
	var samples []map[string]float64
	for i := range points {
		dp := &points[i]
		if dp.Failed() && !e.config.ProcessFailedDataPoints {
			continue
		}
		durations = append(durations, float64(dp.Duration))
		if dp.Metrics != nil {
			samples = append(samples, dp.Metrics)
		}
	}

	if len(durations) == 0 {
		if len(points) > 0 {
			res.Fail("All executions failed.")
		}
		return
	}

	opts := e.config.Filter()
	filtered := opts.FilterDurations(durations)
	res.Durations = filtered.Kept
	res.Outliers = filtered.Outliers
	res.OutliersThreshold = filtered.Threshold

	s := stats.Summarize(filtered.Kept)
	res.Mean, res.Median = s.Mean, s.Median
	res.Min, res.Max = s.Min, s.Max
	res.StdDev, res.StdErr = s.StdDev, s.StdErr
	res.P99, res.P95, res.P90 = s.P99, s.P95, s.P90

	bimodal := stats.IsBimodal(filtered.Kept, opts.BinCount)
	res.IsBimodal = bimodal.IsBimodal
	res.PeakCount = bimodal.PeakCount
	res.Histogram = bimodal.Histogram
	res.HistogramLabels = make([]float64, len(bimodal.Ranges))
	for i, r := range bimodal.Ranges {
		res.HistogramLabels[i] = r.Start
	}
	res.Distribution = stats.NewDistribution(filtered.Kept, DistributionBars)

	res.MetricsStats = metrics.Aggregate(samples, opts)
	if len(res.MetricsStats) > 0 {
		res.Metrics = make(map[string]float64, len(res.MetricsStats))
		for name, ms := range res.MetricsStats {
			res.Metrics[name] = ms.Mean
		}
	}
}
