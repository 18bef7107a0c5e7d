package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wesleyorama2/timeit/internal/assertion"
	"github.com/wesleyorama2/timeit/internal/config"
	"github.com/wesleyorama2/timeit/internal/engine"
	"github.com/wesleyorama2/timeit/internal/export"
	"github.com/wesleyorama2/timeit/internal/extension"
	"github.com/wesleyorama2/timeit/internal/logger"
	"github.com/wesleyorama2/timeit/internal/result"
	"github.com/wesleyorama2/timeit/internal/service"
)

// ErrRunFailed is returned when the run completed but a scenario failed or
// the run was cancelled.
var ErrRunFailed = errors.New("run failed")

func newRunCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <config>",
		Short: "Run the scenarios of a configuration file",
		Long: `Run every scenario of a configuration file and export the results.

Examples:
  timeit run timeit.yaml
  timeit run timeit.yaml --count 50 --warmup 5
  timeit run timeit.yaml --json results.json --html report.html
  TIMEIT_COUNT=100 timeit run timeit.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runConfig(ctx, v, args[0], cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.Int("count", 0, "Override the number of measured iterations")
	flags.Int("warmup", -1, "Override the number of warm-up iterations")
	flags.Int("cooldown", -1, "Override the number of cool-down iterations")
	flags.Bool("debug", false, "Disable the consecutive failure circuit breaker")
	flags.Bool("metrics", false, "Enable runtime metrics collection")
	flags.String("json", "", "Also write JSON results to this path")
	flags.String("html", "", "Also write an HTML report to this path")
	flags.Bool("no-color", false, "Disable colored console output")
	for _, name := range []string{"count", "warmup", "cooldown", "debug", "metrics", "json", "html", "no-color"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}
	return cmd
}

func runConfig(ctx context.Context, v *viper.Viper, path string, out io.Writer) error {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	applyOverrides(cfg, v)

	registry := newRegistry()
	assertors, err := registry.Assertors(cfg, out)
	if err != nil {
		return err
	}
	exporters, err := registry.Exporters(cfg, out)
	if err != nil {
		return err
	}
	services, err := registry.Services(cfg, out)
	if err != nil {
		return err
	}

	e, err := engine.New(cfg,
		engine.WithAssertors(assertors...),
		engine.WithExporters(exporters...),
	)
	if err != nil {
		return err
	}
	for _, svc := range services {
		svc.Register(e.Bus())
	}

	logger.Info("Starting run", "config", cfg.Path, "scenarios", len(cfg.Scenarios), "count", cfg.Count)
	run, err := e.Run(ctx)
	if err != nil {
		// exporter failures still leave a result behind
		if run == nil {
			return err
		}
		logger.Error("Run finished with errors", "error", err)
	}

	if run.Status == result.Failed {
		return ErrRunFailed
	}
	return err
}

// newRegistry registers every built-in extension.
func newRegistry() *extension.Registry {
	r := extension.NewRegistry()
	assertion.Register(r)
	export.Register(r)
	service.Register(r)
	return r
}

// applyOverrides layers flags and TIMEIT_* variables over the file.
func applyOverrides(cfg *config.Config, v *viper.Viper) {
	if n := v.GetInt("count"); n > 0 {
		cfg.Count = n
	}
	if n := v.GetInt("warmup"); n >= 0 && v.IsSet("warmup") {
		cfg.WarmUpCount = n
	}
	if n := v.GetInt("cooldown"); n >= 0 && v.IsSet("cooldown") {
		cfg.CoolDownCount = n
	}
	if v.GetBool("debug") {
		cfg.DebugMode = true
	}
	if v.GetBool("metrics") {
		cfg.EnableMetrics = true
	}
	if p := v.GetString("json"); p != "" {
		cfg.Exporters = append(cfg.Exporters, config.ExtensionConfig{
			Name:    export.NameJSON,
			Options: map[string]any{"path": p},
		})
	}
	if p := v.GetString("html"); p != "" {
		cfg.Exporters = append(cfg.Exporters, config.ExtensionConfig{
			Name:    export.NameHTML,
			Options: map[string]any{"path": p},
		})
	}
	if v.GetBool("no-color") {
		for i, ext := range cfg.Exporters {
			if ext.Name != export.NameConsole {
				continue
			}
			opts := make(map[string]any, len(ext.Options)+1)
			for k, val := range ext.Options {
				opts[k] = val
			}
			opts["noColor"] = true
			cfg.Exporters[i].Options = opts
		}
	}
}
