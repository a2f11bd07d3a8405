package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/typenv/cmd/typenv/commands"
	"github.com/systmms/typenv/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		noColor bool
		debug   bool
	)

	opts := &commands.Options{}

	rootCmd := &cobra.Command{
		Use:   "typenv",
		Short: "Typed environment resolution - validate env vars against a schema",
		Long: `typenv merges environment variables from ordered sources, validates
them against a typed schema, and reports every violation at once.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.Logger = logging.New(debug, noColor)
		},
	}

	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		commands.NewResolveCommand(opts),
		commands.NewCheckCommand(opts),
		commands.NewAuditCommand(opts),
	)

	return rootCmd.Execute()
}
