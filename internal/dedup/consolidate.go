package dedup

import (
	"context"
	"log/slog"

	"github.com/roach88/orderdedup/internal/pipeline"
)

// ConsolidateConfig configures one consolidation run.
type ConsolidateConfig struct {
	// Key is the identity key function used to find duplicates.
	Key KeyFunc

	// Filter restricts the candidate set. Nil considers every record.
	Filter pipeline.Predicate

	// Mode selects simulate or apply.
	Mode Mode
}

// Consolidator deletes redundant duplicates, keeping the canonical record of
// each group.
type Consolidator struct {
	store  Store
	finder *Finder
	opts   Options
}

// NewConsolidator creates a Consolidator over store.
func NewConsolidator(store Store, opts Options) *Consolidator {
	opts = opts.withDefaults()
	return &Consolidator{
		store:  store,
		finder: NewFinder(store, opts.Logger),
		opts:   opts,
	}
}

// Run finds duplicate groups under cfg.Key and removes every record but the
// canonical one from each.
//
// Groups are processed in discovery order with one DeleteMany call each. A
// rejected delete is recorded in the report's failures and the run moves on.
// Connectivity failures abort the run with a STORE_UNAVAILABLE error and no
// report. If ctx is cancelled between groups, the partial report is returned
// with Aborted set, together with ctx.Err().
func (c *Consolidator) Run(ctx context.Context, cfg ConsolidateConfig) (*ConsolidationReport, error) {
	if cfg.Key == nil {
		return nil, invalidConfig("no key function")
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeSimulate
	}
	if err := cfg.Mode.validate(); err != nil {
		return nil, err
	}

	if err := c.store.Ping(ctx); err != nil {
		return nil, unavailable("ping", err)
	}

	groups, err := c.finder.Find(ctx, cfg.Key, cfg.Filter)
	if err != nil {
		return nil, err
	}

	report := &ConsolidationReport{
		RunID:       c.opts.RunID(),
		Mode:        cfg.Mode,
		Key:         cfg.Key.Name(),
		GroupsFound: len(groups),
		Groups:      make([]GroupPlan, 0, len(groups)),
		Failures:    []GroupFailure{},
	}
	log := c.opts.Logger.With("run_id", report.RunID, "op", "purge", "mode", string(cfg.Mode))
	log.Info("consolidation started", "key", report.Key, "filter", pipeline.String(cfg.Filter), "groups", len(groups))

	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			report.Aborted = true
			log.Warn("consolidation aborted", "processed", len(report.Groups), "error", err)
			return report, err
		}

		keep, remove := SelectCanonical(g)
		plan := GroupPlan{Key: g.Key.String(), Keep: keep, Remove: remove}
		report.DuplicatesFound += len(remove)

		if cfg.Mode.Apply() && len(remove) > 0 {
			n, err := c.store.DeleteMany(ctx, plan.RemoveIDs())
			if err != nil {
				werr := writeFailed("delete_many", plan.Key, err)
				report.Failures = append(report.Failures, GroupFailure{GroupKey: plan.Key, Error: werr.Error()})
				log.Error("delete failed", "group", plan.Key, "error", err)
				report.Groups = append(report.Groups, plan)
				continue
			}
			plan.Deleted = n
			report.DeletedCount += n
		}

		log.Debug("group resolved",
			slog.String("group", plan.Key),
			slog.String("keep", keep.ID),
			slog.Int("remove", len(remove)),
			slog.Int64("deleted", plan.Deleted))
		report.Groups = append(report.Groups, plan)
	}

	log.Info("consolidation finished",
		"duplicates", report.DuplicatesFound,
		"deleted", report.DeletedCount,
		"failures", len(report.Failures))
	return report, nil
}
