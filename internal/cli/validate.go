package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/timeit/internal/config"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config>",
		Short: "Check a configuration file without running it",
		Long: `Validate a configuration file against the schema and the semantic
rules, and check that every assertor, exporter and service it names is
known.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(args[0])
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := checkExtensions(cfg); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration is valid: %s\n", cfg.Path)
			for _, sc := range cfg.Scenarios {
				fmt.Fprintf(out, "  - %s\n", sc.Name)
			}
			return nil
		},
	}
}

// checkExtensions resolves the configured extension names against the
// built-in registry.
func checkExtensions(cfg *config.Config) error {
	assertors, exporters, services := newRegistry().Names()

	var unknown []string
	collect := func(kind string, exts []config.ExtensionConfig, known []string) {
		for _, ext := range exts {
			if !contains(known, ext.Name) {
				unknown = append(unknown, fmt.Sprintf("unknown %s: %s", kind, ext.Name))
			}
		}
	}
	collect("assertor", cfg.Assertors, assertors)
	collect("exporter", cfg.Exporters, exporters)
	collect("service", cfg.Services, services)

	if len(unknown) > 0 {
		return fmt.Errorf("%s", strings.Join(unknown, "; "))
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
