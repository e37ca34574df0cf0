package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/orderdedup/internal/config"
	"github.com/roach88/orderdedup/internal/dedup"
)

// KeyOptions holds the duplicate selection flags shared by diagnose and purge.
type KeyOptions struct {
	*RootOptions
	Key      string
	Branches []string
}

func (o *KeyOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Key, "key", "k", "", "identity key (strict|normalized); default from config")
	cmd.Flags().StringSliceVarP(&o.Branches, "branch", "b", nil, "only consider these exact branch codes")
}

func (o *KeyOptions) override(cfg *config.Config) {
	if o.Key != "" {
		cfg.Key = o.Key
	}
	if len(o.Branches) > 0 {
		cfg.Branches = o.Branches
	}
}

// NewDiagnoseCommand creates the diagnose command.
func NewDiagnoseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &KeyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "List duplicate groups without changing anything",
		Long: `List every duplicate group under an identity key, marking the record
a purge would keep (the most recently loaded one).

Examples:
  orderdedup diagnose --key strict
  orderdedup diagnose --key normalized --branch SS --branch Ss`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(opts, cmd)
		},
	}
	opts.bind(cmd)
	return cmd
}

func runDiagnose(opts *KeyOptions, cmd *cobra.Command) error {
	s, err := openSession(cmd, opts.RootOptions, opts.override)
	if err != nil {
		return err
	}
	defer s.Close()

	cc, err := s.cfg.ConsolidateConfig()
	if err != nil {
		return runError("invalid key", err)
	}
	groups, err := dedup.NewFinder(s.store, s.logger).Find(s.ctx, cc.Key, cc.Filter)
	if err != nil {
		_ = s.out.Error(errorCode(err), err.Error(), nil)
		return runError("diagnose failed", err)
	}

	d := Diagnosis{Key: cc.Key.Name(), GroupsFound: len(groups), Groups: make([]DiagnosisGroup, 0, len(groups))}
	for _, g := range groups {
		keep, remove := dedup.SelectCanonical(g)
		d.DuplicatesFound += len(remove)
		d.Groups = append(d.Groups, DiagnosisGroup{Key: g.Key.String(), Keep: keep.ID, Members: g.Members})
	}
	return s.out.Success(d)
}
