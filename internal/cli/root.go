package cli

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// ConfigPath names a YAML or CUE config file. Empty uses the defaults.
	ConfigPath string

	// Store overrides. Empty leaves the configured value.
	Store      string
	DSN        string
	Database   string
	Collection string

	// MetricsFile, when set, receives a Prometheus textfile after purge and
	// migrate runs.
	MetricsFile string

	// RunID overrides run ID generation (for testing). Nil uses dedup.NewRunID.
	RunID func() string

	// Now overrides the metrics clock (for testing). Nil uses time.Now.
	Now func() time.Time
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the orderdedup CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "orderdedup",
		Short: "Consolidate duplicate sales orders",
		Long: `orderdedup finds and removes logically duplicated sales order records
and migrates records between branch identities.

Every command that writes runs in simulate mode unless --apply is given
or the config file sets mode: apply.
Run one instance at a time against a store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file (.yaml, .yml or .cue)")
	pf.StringVar(&opts.Store, "store", "", "store driver (sqlite|mongo)")
	pf.StringVar(&opts.DSN, "dsn", "", "sqlite path or mongo connection URI")
	pf.StringVar(&opts.Database, "database", "", "mongo database")
	pf.StringVar(&opts.Collection, "collection", "", "mongo collection")
	pf.StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")

	// Add subcommands
	cmd.AddCommand(NewDiagnoseCommand(opts))
	cmd.AddCommand(NewPurgeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewPeriodCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
