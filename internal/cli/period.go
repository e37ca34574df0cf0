package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/orderdedup/internal/dedup"
)

// NewPeriodCommand creates the period command.
func NewPeriodCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "period",
		Short: "Show the issue-date range and records per year",
		Long: `Report how many records the store holds, the earliest and latest
issue dates, and the number of records issued in each year (UTC).`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, rootOpts, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			records, err := s.store.ListAll(s.ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read records", err)
			}
			return s.out.Success(periodView{dedup.AnalyzePeriod(records)})
		},
	}
}
