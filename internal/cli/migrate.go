package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/orderdedup/internal/config"
	"github.com/roach88/orderdedup/internal/dedup"
	"github.com/roach88/orderdedup/internal/metrics"
)

// MigrateOptions holds flags for the migrate-branch command.
type MigrateOptions struct {
	*RootOptions
	From  []string
	To    string
	Name  string
	Apply bool
}

// NewMigrateCommand creates the migrate-branch command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate-branch",
		Short: "Re-key records from legacy branch codes onto a target branch",
		Long: `Move every record whose branch code is one of --from onto the --to
branch, rewriting its primary key to {order_number}_{to}.

When two records map to the same new key the one processed later replaces
the earlier; the report flags each replacement. A record already stored
under its new key has its branch code and name rewritten in place.

Without --apply (or mode: apply in the config file) the run is simulated
and the store is not modified.

Exit codes:
  0 - Run completed
  1 - One or more records failed, or the run was cancelled
  2 - Command error (bad config, store unreachable)

Examples:
  orderdedup migrate-branch
  orderdedup migrate-branch --from SS --from SZM --to JF --name "Juiz de Fora" --apply`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(opts, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.From, "from", nil, "legacy branch codes; default from config")
	cmd.Flags().StringVar(&opts.To, "to", "", "target branch code; default from config")
	cmd.Flags().StringVar(&opts.Name, "name", "", "target branch name; default from config")
	cmd.Flags().BoolVar(&opts.Apply, "apply", false, "perform the writes")
	return cmd
}

func (o *MigrateOptions) override(cfg *config.Config) {
	if len(o.From) > 0 {
		cfg.Migration.From = o.From
	}
	if o.To != "" {
		cfg.Migration.To = o.To
	}
	if o.Name != "" {
		cfg.Migration.Name = o.Name
	}
	if o.Apply {
		cfg.Mode = string(dedup.ModeApply)
	}
}

func runMigrate(opts *MigrateOptions, cmd *cobra.Command) error {
	s, err := openSession(cmd, opts.RootOptions, opts.override)
	if err != nil {
		return err
	}
	defer s.Close()

	mc, err := s.cfg.MigrationConfig()
	if err != nil {
		return runError("invalid config", err)
	}

	report, err := dedup.NewMigrator(s.store, s.executorOptions()).Run(s.ctx, mc)
	if report != nil {
		s.recordMetrics(func(r *metrics.Recorder) { r.ObserveMigration(report) })
	}
	if report == nil {
		return s.finish(nil, err, 0, false)
	}
	return s.finish(migrationView{report}, err, len(report.Failures), report.Aborted && isCancelled(err))
}
