package harness

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/orderdedup/internal/order"
	"github.com/roach88/orderdedup/internal/pipeline"
)

// snapshotFields are rendered for every final record.
var snapshotFields = []pipeline.Field{
	pipeline.FieldOrderNumber,
	pipeline.FieldBranchCode,
	pipeline.FieldBranchName,
	pipeline.FieldPartner,
	pipeline.FieldLoadedAt,
}

// Snapshot renders a result as stable text: one block per step followed by
// the final records sorted by ID.
func Snapshot(name string, r *Result) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "scenario: %s\n", name)
	fmt.Fprintf(&b, "seeded: %d records\n", len(r.Seeded))

	for i, s := range r.Steps {
		b.WriteByte('\n')
		switch {
		case s.Consolidation != nil:
			rep := s.Consolidation
			fmt.Fprintf(&b, "step %d: purge %s %s key=%s\n", i+1, rep.Mode, rep.RunID, rep.Key)
			fmt.Fprintf(&b, "  groups=%d duplicates=%d deleted=%d failures=%d\n",
				rep.GroupsFound, rep.DuplicatesFound, rep.DeletedCount, len(rep.Failures))
			for _, g := range rep.Groups {
				fmt.Fprintf(&b, "  group %s\n    keep %s remove %s\n", g.Key, g.Keep.ID, strings.Join(g.RemoveIDs(), ","))
			}
			for _, f := range rep.Failures {
				fmt.Fprintf(&b, "  failed %s\n", f.GroupKey)
			}
		case s.Migration != nil:
			rep := s.Migration
			fmt.Fprintf(&b, "step %d: migrate %s %s %s -> %s\n",
				i+1, rep.Mode, rep.RunID, strings.Join(rep.LegacyCodes, ","), rep.TargetCode)
			fmt.Fprintf(&b, "  matched=%d migrated=%d relabeled=%d skipped=%d collisions=%d failures=%d\n",
				rep.Matched, rep.Migrated, rep.Relabeled, rep.Skipped, rep.Collisions(), len(rep.Failures))
			for _, m := range rep.Migrations {
				suffix := ""
				if m.OverwroteExisting {
					suffix = " (overwrote)"
				}
				fmt.Fprintf(&b, "  %s -> %s%s\n", m.OldID, m.NewID, suffix)
			}
			for _, f := range rep.Failures {
				fmt.Fprintf(&b, "  failed %s\n", f.RecordID)
			}
		}
	}

	final := slices.Clone(r.Final)
	slices.SortFunc(final, func(a, b order.Order) int { return strings.Compare(a.ID, b.ID) })
	fmt.Fprintf(&b, "\nfinal: %d records\n", len(final))
	for _, o := range final {
		b.WriteString("  " + o.ID)
		for _, f := range snapshotFields {
			v := "∅"
			if p := f.Value(o); p != nil {
				v = strconv.Quote(*p)
			}
			fmt.Fprintf(&b, " %s=%s", f, v)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "unchanged: %t\n", r.FingerprintBefore == r.FingerprintAfter)
	return b.Bytes()
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(t.Context(), scenario)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, Snapshot(scenario.Name, result))
	return result, nil
}
