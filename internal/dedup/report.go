package dedup

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/orderdedup/internal/pipeline"
)

// Options configures an executor.
type Options struct {
	// Logger receives progress and failure logs. Nil discards.
	Logger *slog.Logger

	// RunID returns the ID stamped on each report. Nil uses NewRunID.
	RunID func() string
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.RunID == nil {
		o.RunID = NewRunID
	}
	return o
}

// NewRunID returns a UUIDv7, so run IDs sort by start time in logs and
// textfile metrics.
func NewRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// RunIDs returns a run ID source that yields ids in order. Once they run
// out it keeps numbering after the last one ("run-1", "run-1.2", ...).
func RunIDs(ids ...string) func() string {
	if len(ids) == 0 {
		ids = []string{"run"}
	}
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		if n <= len(ids) {
			return ids[n-1]
		}
		return fmt.Sprintf("%s.%d", ids[len(ids)-1], n-len(ids)+1)
	}
}

// ConsolidationReport summarizes a consolidation run.
type ConsolidationReport struct {
	RunID string `json:"run_id"`
	Mode  Mode   `json:"mode"`
	Key   string `json:"key"`

	// GroupsFound is the number of duplicate groups detected.
	GroupsFound int `json:"groups_found"`

	// DuplicatesFound is the number of redundant records across all groups
	// (each group contributes its size minus one).
	DuplicatesFound int `json:"duplicates_found"`

	// DeletedCount is the sum of store-reported deletions. Always 0 in simulate.
	DeletedCount int64 `json:"deleted_count"`

	Groups   []GroupPlan    `json:"groups"`
	Failures []GroupFailure `json:"failures"`

	// Aborted is set when the run was cancelled before every group was processed.
	Aborted bool `json:"aborted"`
}

// GroupPlan is the decision taken for one group.
type GroupPlan struct {
	Key     string            `json:"key"`
	Keep    pipeline.Member   `json:"keep"`
	Remove  []pipeline.Member `json:"remove"`
	Deleted int64             `json:"deleted"`
}

// RemoveIDs lists the IDs of the records to delete.
func (p GroupPlan) RemoveIDs() []string {
	ids := make([]string, len(p.Remove))
	for i, m := range p.Remove {
		ids[i] = m.ID
	}
	return ids
}

// GroupFailure records a group whose delete was rejected.
type GroupFailure struct {
	GroupKey string `json:"group_key"`
	Error    string `json:"error"`
}

// MigrationReport summarizes a branch migration run.
type MigrationReport struct {
	RunID       string   `json:"run_id"`
	Mode        Mode     `json:"mode"`
	LegacyCodes []string `json:"legacy_codes"`
	TargetCode  string   `json:"target_code"`
	TargetName  string   `json:"target_name"`

	// Matched is the number of records carrying a legacy branch code.
	Matched int `json:"matched"`

	// Migrated counts records re-keyed (planned, in simulate).
	Migrated int `json:"migrated"`

	// Skipped counts records already stored under their target key with the
	// target branch code and name.
	Skipped int `json:"skipped"`

	// Relabeled counts records already stored under their target key whose
	// branch fields were rewritten in place (planned, in simulate).
	Relabeled int `json:"relabeled"`

	Migrations []Migration     `json:"migrations"`
	Failures   []RecordFailure `json:"failures"`
	Aborted    bool            `json:"aborted"`
}

// Collisions counts migrations that replaced an existing record.
func (r *MigrationReport) Collisions() int {
	n := 0
	for _, m := range r.Migrations {
		if m.OverwroteExisting {
			n++
		}
	}
	return n
}

// Migration records one re-keyed record.
type Migration struct {
	OldID string `json:"old_id"`
	NewID string `json:"new_id"`

	// OverwroteExisting is set when a record already existed under NewID and
	// was replaced (last writer wins).
	OverwroteExisting bool `json:"overwrote_existing"`
}

// RecordFailure records a record that could not be migrated.
type RecordFailure struct {
	RecordID string `json:"record_id"`
	Error    string `json:"error"`
}
