package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wesleyorama2/timeit/internal/config"
	"github.com/wesleyorama2/timeit/internal/logger"
	"github.com/wesleyorama2/timeit/internal/metrics"
	"github.com/wesleyorama2/timeit/internal/process"
	"github.com/wesleyorama2/timeit/internal/result"
	"github.com/wesleyorama2/timeit/internal/wire"
)

// RunIteration spawns the scenario process once and returns its data point.
// Spawn failures, timeouts and cancellation are reported in the data point,
// never as errors.
func (e *Engine) RunIteration(ctx context.Context, sc *config.Scenario, phase result.Phase) result.DataPoint {
	cmd := process.NewCommand(sc.ProcessName, process.SplitArgs(sc.ProcessArguments)...)
	cmd.Dir = sc.WorkingDirectory
	for k, v := range sc.EnvironmentVariables {
		cmd.SetEnv(k, v)
	}

	var metricsPath string
	if metricsEnabled(sc) {
		metricsPath = filepath.Join(e.tempDir, "timeit-"+uuid.NewString()+".bin")
		cmd.SetEnv(wire.EnvMetricsFile, metricsPath)
	}

	e.bus.ExecutionStart(sc, phase, cmd)

	dp := result.DataPoint{Phase: phase, Owner: sc.Owner, ExitCode: -1}
	res, timedOut, err := e.execute(ctx, sc, cmd)

	switch {
	case res == nil:
		now := e.clock.Now()
		dp.Start, dp.End = now, now
		if ctx.Err() != nil {
			dp.AssertResult = result.Fail(result.MessageCancelled, false)
		} else {
			logger.Error("Failed to run process", "scenario", sc.Name, "error", err)
			dp.AssertResult = e.assertFailure(sc, phase, &dp, fmt.Sprintf("Failed to start process: %v", err))
		}
	default:
		dp.Start, dp.End, dp.Duration = res.Start, res.End, res.Duration
		dp.PID = res.PID
		dp.ExitCode = res.ExitCode
		dp.StandardOutput = res.Stdout
		dp.StandardError = res.Stderr
	}

	if metricsPath != "" {
		m, err := metrics.ReadFile(metricsPath)
		if err != nil {
			logger.Debug("No metrics recorded", "scenario", sc.Name, "path", metricsPath, "error", err)
		} else if res != nil {
			metrics.Correlate(m, dp.Start, dp.Duration)
			dp.Metrics = m
		}
	}

	if res != nil {
		switch {
		case ctx.Err() != nil:
			dp.AssertResult = result.Fail(result.MessageCancelled, false)
		case timedOut:
			logger.Warn("Process timed out", "scenario", sc.Name, "pid", dp.PID, "maxDuration", sc.Timeout.MaxDuration)
			dp.AssertResult = e.assertFailure(sc, phase, &dp, result.MessageTimeout)
		case err != nil:
			logger.Error("Process failed", "scenario", sc.Name, "error", err)
			dp.AssertResult = e.assertFailure(sc, phase, &dp, err.Error())
		default:
			dp.AssertResult = e.assert(sc, phase, &dp, dp.ExitCode)
		}
	}

	e.bus.ExecutionEnd(sc, phase, &dp)
	return dp
}

func (e *Engine) assert(sc *config.Scenario, phase result.Phase, dp *result.DataPoint, exitCode int) result.AssertResponse {
	data := result.AssertionData{
		ExitCode: exitCode,
		StdOut:   tail(dp.StandardOutput, StdOutTail),
		StdErr:   tail(dp.StandardError, StdErrTail),
		Scenario: sc,
		Phase:    phase,
		Duration: dp.Duration,
		Metrics:  dp.Metrics,
	}

	verdicts := make([]result.AssertResponse, 0, len(e.assertors))
	for _, a := range e.assertors {
		verdicts = append(verdicts, a.ExecutionAssertion(data))
	}
	return result.Fold(verdicts...)
}

// assertFailure fails an iteration that did not exit on its own. The
// assertors still see it with a non-zero exit code so it counts toward the
// consecutive failure circuit breaker.
func (e *Engine) assertFailure(sc *config.Scenario, phase result.Phase, dp *result.DataPoint, msg string) result.AssertResponse {
	exitCode := dp.ExitCode
	if exitCode == 0 {
		exitCode = -1
	}
	return result.Fold(result.Fail(msg, true), e.assert(sc, phase, dp, exitCode))
}

// execute runs cmd racing it against the scenario timeout. timedOut is set
// when the watchdog fired before the process exited.
func (e *Engine) execute(ctx context.Context, sc *config.Scenario, cmd *process.Command) (res *process.Result, timedOut bool, err error) {
	if sc.Timeout == nil || sc.Timeout.MaxDuration <= 0 {
		res, err = e.runner.Run(ctx, cmd)
		return res, false, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var pid atomic.Int64
	started := make(chan struct{})
	onStart := cmd.OnStart
	cmd.OnStart = func(p int) {
		pid.Store(int64(p))
		close(started)
		if onStart != nil {
			onStart(p)
		}
	}

	var fired atomic.Bool
	var g errgroup.Group

	g.Go(func() error {
		res, err = e.runner.Run(runCtx, cmd)
		cancel()
		return nil
	})

	g.Go(func() error {
		timer := time.NewTimer(time.Duration(sc.Timeout.MaxDuration) * time.Second)
		defer timer.Stop()

		select {
		case <-runCtx.Done():
			return nil
		case <-timer.C:
		}
		if runCtx.Err() != nil {
			return nil
		}
		fired.Store(true)

		if sc.Timeout.ProcessName != "" {
			select {
			case <-started:
				args := process.SplitArgs(sc.Timeout.ProcessArguments)
				if _, err := process.Kill(ctx, e.runner, sc.Timeout.ProcessName, args, int(pid.Load())); err != nil {
					logger.Error("Timeout killer failed", "scenario", sc.Name, "error", err)
				}
			case <-runCtx.Done():
			}
		}
		cancel()
		return nil
	})

	_ = g.Wait()

	if fired.Load() && ctx.Err() == nil {
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		return res, true, err
	}
	return res, false, err
}

// tail returns the last n bytes of s without splitting a rune.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}
