package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/orderdedup/internal/config"
	"github.com/roach88/orderdedup/internal/dedup"
	"github.com/roach88/orderdedup/internal/metrics"
)

// PurgeOptions holds flags for the purge command.
type PurgeOptions struct {
	KeyOptions
	Apply bool
}

// NewPurgeCommand creates the purge command.
func NewPurgeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PurgeOptions{KeyOptions: KeyOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete redundant duplicates, keeping the newest record per group",
		Long: `Find duplicate groups under an identity key and delete every record
except the most recently loaded one in each group.

Without --apply (or mode: apply in the config file) the run is
simulated: the report lists what would be deleted and the store is not
modified.

Exit codes:
  0 - Run completed
  1 - One or more group deletes were rejected, or the run was cancelled
  2 - Command error (bad config, store unreachable)

Examples:
  orderdedup purge --key strict
  orderdedup purge --key normalized --apply
  orderdedup purge --key strict --branch SS --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPurge(opts, cmd)
		},
	}
	opts.bind(cmd)
	cmd.Flags().BoolVar(&opts.Apply, "apply", false, "perform the deletes")
	return cmd
}

func (o *PurgeOptions) override(cfg *config.Config) {
	o.KeyOptions.override(cfg)
	if o.Apply {
		cfg.Mode = string(dedup.ModeApply)
	}
}

func runPurge(opts *PurgeOptions, cmd *cobra.Command) error {
	s, err := openSession(cmd, opts.RootOptions, opts.override)
	if err != nil {
		return err
	}
	defer s.Close()

	cc, err := s.cfg.ConsolidateConfig()
	if err != nil {
		return runError("invalid config", err)
	}

	report, err := dedup.NewConsolidator(s.store, s.executorOptions()).Run(s.ctx, cc)
	if report != nil {
		s.recordMetrics(func(r *metrics.Recorder) { r.ObserveConsolidation(report) })
	}
	if report == nil {
		return s.finish(nil, err, 0, false)
	}
	return s.finish(consolidationView{report}, err, len(report.Failures), report.Aborted && isCancelled(err))
}
