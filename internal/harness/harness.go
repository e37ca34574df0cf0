package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/orderdedup/internal/dedup"
	"github.com/roach88/orderdedup/internal/order"
	"github.com/roach88/orderdedup/internal/pipeline"
	"github.com/roach88/orderdedup/internal/store"
	"github.com/roach88/orderdedup/internal/testutil"
)

// Harness executes scenario steps against one store.
type Harness struct {
	store  dedup.Store
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh store for isolation:
// 1. Open the store and seed the records
// 2. Install write failure injections
// 3. Run each step with a fixed run ID
// 4. Evaluate assertions against the final store and the step reports
//
// An error is returned when the scenario cannot be executed at all, for
// example when a step fails fatally. Failed assertions are reported in the
// result instead.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, mem, err := openStore(scenario.Store)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	seed := make([]order.Order, 0, len(scenario.Records))
	for i, r := range scenario.Records {
		o, err := r.Order()
		if err != nil {
			return nil, fmt.Errorf("records[%d]: %w", i, err)
		}
		seed = append(seed, o)
	}
	if _, err := st.InsertMany(ctx, seed); err != nil {
		return nil, fmt.Errorf("seed store: %w", err)
	}
	if mem != nil && len(scenario.Inject) > 0 {
		mem.Hook = injectHook(scenario.Inject)
	}

	result := NewResult()
	if result.Seeded, err = st.ListAll(ctx); err != nil {
		return nil, fmt.Errorf("read seeded records: %w", err)
	}
	if result.FingerprintBefore, err = order.Fingerprint(result.Seeded); err != nil {
		return nil, err
	}

	for i, step := range scenario.Steps {
		sr, err := h.runStep(ctx, step, fmt.Sprintf("run-%d", i+1))
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
		result.Steps = append(result.Steps, sr)
	}

	if result.Final, err = st.ListAll(ctx); err != nil {
		return nil, fmt.Errorf("read final records: %w", err)
	}
	if result.FingerprintAfter, err = order.Fingerprint(result.Final); err != nil {
		return nil, err
	}

	for _, a := range scenario.Assertions {
		if err := evaluate(a, result); err != nil {
			result.AddError(err.Error())
		}
	}
	return result, nil
}

// openStore returns the store and, for the memory backend, the concrete
// MemStore so hooks can be installed.
func openStore(kind string) (dedup.Store, *testutil.MemStore, error) {
	if kind == StoreMemory {
		mem := testutil.NewMemStore()
		return mem, mem, nil
	}
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	return st, nil, nil
}

func injectHook(injections []Injection) testutil.WriteHook {
	return func(op, id string) error {
		for _, inj := range injections {
			if inj.Op == op && inj.ID == id {
				msg := inj.Error
				if msg == "" {
					msg = "injected failure"
				}
				return errors.New(msg)
			}
		}
		return nil
	}
}

func (h *Harness) runStep(ctx context.Context, step Step, runID string) (StepResult, error) {
	mode, err := dedup.ParseMode(step.Mode)
	if err != nil {
		return StepResult{}, err
	}
	opts := dedup.Options{Logger: h.logger, RunID: dedup.RunIDs(runID)}

	switch step.Op {
	case OpPurge:
		key, err := dedup.LookupKey(step.Key)
		if err != nil {
			return StepResult{}, err
		}
		cfg := dedup.ConsolidateConfig{Key: key, Mode: mode}
		if len(step.Branches) > 0 {
			cfg.Filter = pipeline.In{Field: pipeline.FieldBranchCode, Values: step.Branches}
		}
		rep, err := dedup.NewConsolidator(h.store, opts).Run(ctx, cfg)
		if err != nil {
			return StepResult{}, err
		}
		return StepResult{Op: step.Op, Consolidation: rep}, nil

	case OpMigrate:
		cfg := dedup.MigrationConfig{
			LegacyCodes: step.Migration.From,
			TargetCode:  step.Migration.To,
			TargetName:  step.Migration.Name,
			Mode:        mode,
		}
		rep, err := dedup.NewMigrator(h.store, opts).Run(ctx, cfg)
		if err != nil {
			return StepResult{}, err
		}
		return StepResult{Op: step.Op, Migration: rep}, nil

	default:
		return StepResult{}, fmt.Errorf("unknown op %q", step.Op)
	}
}
