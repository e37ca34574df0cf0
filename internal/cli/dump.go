package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/orderdedup/internal/order"
)

// DumpOptions holds flags for the dump command.
type DumpOptions struct {
	*RootOptions
	Output string
}

// DumpResult describes a written dump.
type DumpResult struct {
	Path        string `json:"path"`
	Records     int    `json:"records"`
	Fingerprint string `json:"fingerprint"`
}

func (r DumpResult) String() string {
	return fmt.Sprintf("wrote %d records to %s\nfingerprint %s", r.Records, r.Path, r.Fingerprint)
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DumpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Export every record as canonical JSON",
		Long: `Export the store as a canonical JSON array sorted by primary key.

Two stores with the same records produce byte-identical dumps, so the
printed fingerprint can be compared before and after a run. Without --out
the dump is written to stdout.

Examples:
  orderdedup dump --out before.json
  orderdedup dump | sha256sum`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(opts, cmd)
		},
	}
	cmd.Flags().StringVarP(&opts.Output, "out", "o", "", "output file (default stdout)")
	return cmd
}

func runDump(opts *DumpOptions, cmd *cobra.Command) error {
	s, err := openSession(cmd, opts.RootOptions, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	records, err := s.store.ListAll(s.ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read records", err)
	}
	data, err := order.MarshalCanonicalSet(records)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to encode records", err)
	}

	if opts.Output == "" {
		_, err := cmd.OutOrStdout().Write(append(data, '\n'))
		return err
	}

	if err := os.WriteFile(opts.Output, data, 0o644); err != nil {
		return WrapExitError(ExitCommandError, "failed to write dump", err)
	}
	fp, err := order.Fingerprint(records)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to fingerprint records", err)
	}
	return s.out.Success(DumpResult{Path: opts.Output, Records: len(records), Fingerprint: fp})
}
