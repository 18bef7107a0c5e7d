package engine

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/wesleyorama2/timeit/internal/config"
	"github.com/wesleyorama2/timeit/internal/logger"
	"github.com/wesleyorama2/timeit/internal/wire"
)

// Prepare returns the resolved copy of sc the engine executes. Unset fields
// are inherited from the run-wide defaults, templates are expanded, the
// dotenv file is merged and, when metrics are enabled, the sampler hook
// environment is injected. Problems are logged; Prepare never fails.
func (e *Engine) Prepare(sc *config.Scenario) *config.Scenario {
	cfg := e.config
	resolved := sc.Clone()

	if resolved.ProcessName == "" {
		resolved.ProcessName = cfg.ProcessName
	}
	if resolved.ProcessArguments == "" {
		resolved.ProcessArguments = cfg.ProcessArguments
	}
	if resolved.WorkingDirectory == "" {
		resolved.WorkingDirectory = cfg.WorkingDirectory
	}
	resolved.Timeout = mergeTimeout(cfg.Timeout, sc.Timeout)
	resolved.Tags = config.MergeMaps(cfg.Tags, sc.Tags)
	resolved.PathValidations = append(append([]string(nil), cfg.PathValidations...), sc.PathValidations...)
	resolved.EnvironmentVariables = nil

	vars := cfg.TemplateVars(resolved.Name)
	if err := config.ExpandScenario(resolved, vars); err != nil {
		logger.Warn("Unresolved template variables", "scenario", resolved.Name, "error", err)
	}

	defaults, err := config.ExpandMap(cfg.EnvironmentVariables, vars)
	if err != nil {
		logger.Warn("Unresolved template variables", "scenario", resolved.Name, "error", err)
	}
	own, err := config.ExpandMap(sc.EnvironmentVariables, vars)
	if err != nil {
		logger.Warn("Unresolved template variables", "scenario", resolved.Name, "error", err)
	}
	dotenv, err := config.LoadEnvFile(resolved.EnvironmentFile, cfg.Dir())
	if err != nil {
		logger.Warn("Ignoring environment file", "scenario", resolved.Name, "error", err)
	}
	resolved.EnvironmentVariables = config.MergeMaps(defaults, dotenv, own)

	if resolved.WorkingDirectory != "" && !filepath.IsAbs(resolved.WorkingDirectory) {
		resolved.WorkingDirectory = filepath.Join(cfg.Dir(), resolved.WorkingDirectory)
	}

	if cfg.EnableMetrics {
		e.injectHook(resolved, vars)
	}
	return resolved
}

// injectHook appends the sampler hook to TIMEIT_STARTUP_HOOKS. A hook that
// cannot be located disables metrics for the scenario.
func (e *Engine) injectHook(sc *config.Scenario, vars map[string]string) {
	hook, err := config.Expand(e.config.Metrics.HookPath, vars)
	if err != nil {
		logger.Warn("Unresolved template variables", "scenario", sc.Name, "error", err)
	}
	if hook == "" {
		logger.Warn("Metrics enabled without a hook path, running without metrics", "scenario", sc.Name)
		return
	}
	if !filepath.IsAbs(hook) {
		hook = filepath.Join(e.config.Dir(), hook)
	}
	if _, err := os.Stat(hook); err != nil {
		logger.Warn("Metrics hook not found, running without metrics", "scenario", sc.Name, "hook", hook)
		return
	}

	existing, ok := sc.EnvironmentVariables[wire.EnvStartupHooks]
	if !ok {
		existing = os.Getenv(wire.EnvStartupHooks)
	}
	sc.EnvironmentVariables[wire.EnvStartupHooks] = joinPathList(existing, hook)

	if name := e.config.Metrics.ProcessName; name != "" {
		sc.EnvironmentVariables[wire.EnvProcessName] = name
	}
}

// metricsEnabled reports whether sc carries the sampler hook.
func metricsEnabled(sc *config.Scenario) bool {
	_, ok := sc.EnvironmentVariables[wire.EnvStartupHooks]
	return ok
}

func mergeTimeout(defaults config.Timeout, own *config.Timeout) *config.Timeout {
	t := defaults
	if own == nil {
		return &t
	}
	t.MaxDuration = own.MaxDuration
	if own.ProcessName != "" {
		t.ProcessName = own.ProcessName
		t.ProcessArguments = own.ProcessArguments
	}
	return &t
}

func joinPathList(existing, entry string) string {
	if existing == "" {
		return entry
	}
	for _, p := range filepath.SplitList(existing) {
		if p == entry {
			return existing
		}
	}
	return strings.Join([]string{existing, entry}, string(os.PathListSeparator))
}
