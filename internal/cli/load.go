package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/orderdedup/internal/order"
)

// LoadResult describes a completed load.
type LoadResult struct {
	Path     string `json:"path"`
	Records  int    `json:"records"`
	Inserted int    `json:"inserted"`
	Skipped  int    `json:"skipped"`
}

func (r LoadResult) String() string {
	return fmt.Sprintf("inserted %d of %d records from %s (%d already present)", r.Inserted, r.Records, r.Path, r.Skipped)
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load <dump.json>",
		Short: "Insert records from a dump, skipping keys already present",
		Long: `Insert the records of a canonical JSON dump. Records whose primary key
already exists in the store are left untouched, so loading the same file
twice is a no-op.

Example:
  orderdedup load before.json --dsn restored.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(rootOpts, args[0], cmd)
		},
	}
}

func runLoad(opts *RootOptions, path string, cmd *cobra.Command) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read dump", err)
	}
	records, err := order.UnmarshalSet(data)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid dump", err)
	}

	s, err := openSession(cmd, opts, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	n, err := s.store.InsertMany(s.ctx, records)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to insert records", err)
	}
	s.logger.Info("records loaded", "path", path, "inserted", n, "skipped", len(records)-n)
	return s.out.Success(LoadResult{Path: path, Records: len(records), Inserted: n, Skipped: len(records) - n})
}
