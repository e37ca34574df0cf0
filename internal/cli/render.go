package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/roach88/orderdedup/internal/dedup"
	"github.com/roach88/orderdedup/internal/order"
	"github.com/roach88/orderdedup/internal/pipeline"
)

// Text views wrap results for human-readable output. Each embeds its
// result so JSON output keeps the result's own shape.

type consolidationView struct {
	*dedup.ConsolidationReport
}

func (v consolidationView) renderText(w io.Writer) {
	r := v.ConsolidationReport
	fmt.Fprintf(w, "purge %s (run %s, key %s)\n", r.Mode, r.RunID, r.Key)
	fmt.Fprintf(w, "  groups found:     %d\n", r.GroupsFound)
	fmt.Fprintf(w, "  duplicates found: %d\n", r.DuplicatesFound)
	fmt.Fprintf(w, "  deleted:          %d\n", r.DeletedCount)
	for _, g := range r.Groups {
		fmt.Fprintf(w, "  %s\n    keep %s, remove %s\n", g.Key, g.Keep.ID, strings.Join(g.RemoveIDs(), ", "))
	}
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  FAILED %s: %s\n", f.GroupKey, f.Error)
	}
	if !r.Mode.Apply() && r.DuplicatesFound > 0 {
		fmt.Fprintln(w, "simulate mode: nothing was deleted; re-run with --apply to purge")
	}
}

type migrationView struct {
	*dedup.MigrationReport
}

func (v migrationView) renderText(w io.Writer) {
	r := v.MigrationReport
	fmt.Fprintf(w, "migrate-branch %s (run %s): %s -> %s (%s)\n",
		r.Mode, r.RunID, strings.Join(r.LegacyCodes, ","), r.TargetCode, r.TargetName)
	fmt.Fprintf(w, "  matched:    %d\n", r.Matched)
	fmt.Fprintf(w, "  migrated:   %d\n", r.Migrated)
	fmt.Fprintf(w, "  skipped:    %d\n", r.Skipped)
	if r.Relabeled > 0 {
		fmt.Fprintf(w, "  relabeled:  %d\n", r.Relabeled)
	}
	fmt.Fprintf(w, "  collisions: %d\n", r.Collisions())
	for _, m := range r.Migrations {
		if m.OverwroteExisting {
			fmt.Fprintf(w, "  %s -> %s (replaced existing record)\n", m.OldID, m.NewID)
		}
	}
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  FAILED %s: %s\n", f.RecordID, f.Error)
	}
	if !r.Mode.Apply() && r.Migrated+r.Relabeled > 0 {
		fmt.Fprintln(w, "simulate mode: nothing was written; re-run with --apply to migrate")
	}
}

// DiagnosisGroup is one duplicate group with its planned resolution.
type DiagnosisGroup struct {
	Key     string            `json:"key"`
	Keep    string            `json:"keep"`
	Members []pipeline.Member `json:"members"`
}

// Diagnosis is the read-only duplicate listing.
type Diagnosis struct {
	Key             string           `json:"key"`
	GroupsFound     int              `json:"groups_found"`
	DuplicatesFound int              `json:"duplicates_found"`
	Groups          []DiagnosisGroup `json:"groups"`
}

func (d Diagnosis) renderText(w io.Writer) {
	fmt.Fprintf(w, "key %s: %d group(s), %d redundant record(s)\n", d.Key, d.GroupsFound, d.DuplicatesFound)
	for _, g := range d.Groups {
		fmt.Fprintf(w, "\n%s\n", g.Key)
		for _, m := range g.Members {
			mark := "  "
			if m.ID == g.Keep {
				mark = "* "
			}
			fmt.Fprintf(w, "  %s%-20s branch=%-6s loaded=%s\n", mark, m.ID, deref(m.BranchCode), formatOptionalTime(m.LoadedAt))
		}
	}
}

type periodView struct {
	dedup.PeriodReport
}

func (v periodView) renderText(w io.Writer) {
	r := v.PeriodReport
	fmt.Fprintf(w, "records:         %d\n", r.Total)
	fmt.Fprintf(w, "with issue date: %d\n", r.WithIssueDate)
	if r.Earliest != nil {
		fmt.Fprintf(w, "earliest:        %s\n", r.Earliest.Format(time.DateOnly))
		fmt.Fprintf(w, "latest:          %s\n", r.Latest.Format(time.DateOnly))
	}
	for _, y := range r.ByYear {
		fmt.Fprintf(w, "  %d: %d\n", y.Year, y.Count)
	}
}

func deref(s *string) string {
	if s == nil {
		return "∅"
	}
	return *s
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "∅"
	}
	return order.FormatTime(*t)
}
