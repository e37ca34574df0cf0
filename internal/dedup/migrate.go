package dedup

import (
	"context"
	"errors"
	"strings"

	"github.com/roach88/orderdedup/internal/order"
	"github.com/roach88/orderdedup/internal/pipeline"
)

// MigrationConfig configures one branch migration run.
type MigrationConfig struct {
	// LegacyCodes are the branch codes being retired (matched exactly).
	LegacyCodes []string

	// TargetCode and TargetName replace the branch fields of every migrated record.
	TargetCode string
	TargetName string

	Mode Mode
}

func (cfg MigrationConfig) validate() error {
	if len(cfg.LegacyCodes) == 0 {
		return invalidConfig("no legacy branch codes")
	}
	for _, c := range cfg.LegacyCodes {
		if strings.TrimSpace(c) == "" {
			return invalidConfig("empty legacy branch code")
		}
	}
	if strings.TrimSpace(cfg.TargetCode) == "" {
		return invalidConfig("empty target branch code")
	}
	if strings.TrimSpace(cfg.TargetName) == "" {
		return invalidConfig("empty target branch name")
	}
	return cfg.Mode.validate()
}

// Migrator re-keys records from legacy branch codes onto a target branch.
type Migrator struct {
	store Store
	opts  Options
}

// NewMigrator creates a Migrator over store.
func NewMigrator(store Store, opts Options) *Migrator {
	return &Migrator{store: store, opts: opts.withDefaults()}
}

// errMissingOrderNumber is wrapped in MISSING_FIELD failures.
var errMissingOrderNumber = errors.New("order_number is null")

// Run rewrites every record whose branch code is in cfg.LegacyCodes onto
// the target branch, under the primary key derived from its order number
// and the target code.
//
// Records are processed in store order. In apply mode each record is
// upserted under its new key with full replacement, then its old key is
// deleted. When two legacy records map to the same new key the later one
// wins and the migration is flagged OverwroteExisting. Stores implementing
// Mover perform both steps in one transaction; otherwise a failure between
// the steps leaves the record at both keys, and re-running repairs it.
//
// A record already stored under its target key is rewritten in place when
// its branch code or name differs from the target, and skipped otherwise.
//
// Simulate mode issues no writes. It reads the store to decide collisions and
// keeps an overlay of the keys the run would have written and deleted, so
// its report matches what apply would produce.
func (m *Migrator) Run(ctx context.Context, cfg MigrationConfig) (*MigrationReport, error) {
	if cfg.Mode == "" {
		cfg.Mode = ModeSimulate
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := m.store.Ping(ctx); err != nil {
		return nil, unavailable("ping", err)
	}

	filter := pipeline.In{Field: pipeline.FieldBranchCode, Values: cfg.LegacyCodes}
	records, err := m.store.Find(ctx, filter)
	if err != nil {
		return nil, unavailable("find", err)
	}

	report := &MigrationReport{
		RunID:       m.opts.RunID(),
		Mode:        cfg.Mode,
		LegacyCodes: append([]string(nil), cfg.LegacyCodes...),
		TargetCode:  cfg.TargetCode,
		TargetName:  cfg.TargetName,
		Matched:     len(records),
		Migrations:  []Migration{},
		Failures:    []RecordFailure{},
	}
	log := m.opts.Logger.With("run_id", report.RunID, "op", "migrate", "mode", string(cfg.Mode))
	log.Info("migration started",
		"from", strings.Join(cfg.LegacyCodes, ","),
		"to", cfg.TargetCode,
		"matched", len(records))

	ov := newOverlay(m.store)
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			report.Aborted = true
			log.Warn("migration aborted", "processed", report.Migrated+report.Skipped+report.Relabeled+len(report.Failures), "error", err)
			return report, err
		}

		if rec.OrderNumber == nil {
			ferr := &Error{Code: ErrCodeMissingField, Op: "primary_key", Key: rec.ID, Err: errMissingOrderNumber}
			report.Failures = append(report.Failures, RecordFailure{RecordID: rec.ID, Error: ferr.Error()})
			log.Warn("record skipped", "id", rec.ID, "error", ferr)
			continue
		}

		newID := order.PrimaryKey(*rec.OrderNumber, cfg.TargetCode)
		moved := rec.WithBranch(cfg.TargetCode, cfg.TargetName)
		moved.ID = newID

		if newID == rec.ID {
			if onTarget(rec, cfg) {
				report.Skipped++
				continue
			}
			if cfg.Mode.Apply() {
				if _, err := m.store.ReplaceUpsert(ctx, rec.ID, moved); err != nil {
					ferr := writeFailed("replace_upsert", rec.ID, err)
					report.Failures = append(report.Failures, RecordFailure{RecordID: rec.ID, Error: ferr.Error()})
					log.Error("relabel failed", "id", rec.ID, "error", ferr)
					continue
				}
			}
			report.Relabeled++
			log.Debug("branch fields rewritten in place", "id", rec.ID)
			continue
		}

		var existed bool
		if cfg.Mode.Apply() {
			existed, err = m.apply(ctx, rec.ID, moved)
		} else {
			existed, err = ov.exists(ctx, newID)
		}
		if err != nil {
			report.Failures = append(report.Failures, RecordFailure{RecordID: rec.ID, Error: err.Error()})
			log.Error("migration failed", "id", rec.ID, "new_id", newID, "error", err)
			continue
		}
		ov.move(rec.ID, newID)

		report.Migrated++
		report.Migrations = append(report.Migrations, Migration{OldID: rec.ID, NewID: newID, OverwroteExisting: existed})
		if existed {
			log.Warn("collision: existing record replaced", "id", rec.ID, "new_id", newID)
		} else {
			log.Debug("record migrated", "id", rec.ID, "new_id", newID)
		}
	}

	log.Info("migration finished",
		"migrated", report.Migrated,
		"skipped", report.Skipped,
		"collisions", report.Collisions(),
		"failures", len(report.Failures))
	return report, nil
}

// onTarget reports whether rec already carries the target branch fields.
func onTarget(rec order.Order, cfg MigrationConfig) bool {
	return rec.BranchCode != nil && *rec.BranchCode == cfg.TargetCode &&
		rec.BranchName != nil && *rec.BranchName == cfg.TargetName
}

func (m *Migrator) apply(ctx context.Context, oldID string, moved order.Order) (bool, error) {
	if mv, ok := m.store.(Mover); ok {
		existed, err := mv.Move(ctx, oldID, moved)
		if err != nil {
			return false, writeFailed("move", oldID, err)
		}
		return existed, nil
	}

	existed, err := m.store.ReplaceUpsert(ctx, moved.ID, moved)
	if err != nil {
		return false, writeFailed("replace_upsert", oldID, err)
	}
	found, err := m.store.DeleteOne(ctx, oldID)
	if err != nil {
		return false, writeFailed("delete_one", oldID, errors.Join(err, errors.New("record present at both keys; re-run to repair")))
	}
	if !found {
		m.opts.Logger.Warn("old key already gone", "id", oldID)
	}
	return existed, nil
}

// overlay tracks the keys a simulated run has written and deleted.
type overlay struct {
	store   Reader
	written map[string]bool
	deleted map[string]bool
}

func newOverlay(store Reader) *overlay {
	return &overlay{store: store, written: map[string]bool{}, deleted: map[string]bool{}}
}

func (o *overlay) move(oldID, newID string) {
	o.written[newID] = true
	delete(o.deleted, newID)
	o.deleted[oldID] = true
	delete(o.written, oldID)
}

func (o *overlay) exists(ctx context.Context, id string) (bool, error) {
	if o.written[id] {
		return true, nil
	}
	if o.deleted[id] {
		return false, nil
	}
	found, err := o.store.Find(ctx, pipeline.Equals{Field: pipeline.FieldID, Value: id})
	if err != nil {
		return false, unavailable("find", err)
	}
	return len(found) > 0, nil
}
