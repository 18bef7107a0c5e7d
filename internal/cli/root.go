package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wesleyorama2/timeit/internal/logger"
)

var version = "0.1.0"

// EnvPrefix is prepended to flag names to form environment overrides,
// e.g. TIMEIT_LOG_LEVEL or TIMEIT_COUNT.
const EnvPrefix = "TIMEIT"

// NewRootCmd builds the command tree. Every call gets its own viper
// instance so flags bound by one tree never leak into another.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:     "timeit",
		Short:   "Measure the startup and run time of a command line process",
		Version: version,
		Long: `timeit runs one or more scenarios of a command line process many times,
measures every iteration, optionally collects runtime metrics from inside
the child process, and reports robust statistics and the overhead of each
scenario against the first one.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Configure(v.GetString("log-level"), v.GetString("log-file"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-file", "", "Write logs to a file instead of stderr")
	_ = v.BindPFlag("log-level", root.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("log-file", root.PersistentFlags().Lookup("log-file"))

	root.AddCommand(newRunCmd(v))
	root.AddCommand(newValidateCmd())
	root.AddCommand(newSchemaCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the root command with the process arguments.
func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
