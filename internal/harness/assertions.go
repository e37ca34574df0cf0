package harness

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/roach88/orderdedup/internal/order"
	"github.com/roach88/orderdedup/internal/pipeline"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s\n  expected: %s\n  actual: %s", e.Type, e.Expected, e.Actual)
}

func evaluate(a Assertion, r *Result) error {
	switch a.Type {
	case AssertFinalIDs:
		return assertFinalIDs(r.Final, a)
	case AssertRecord:
		return assertRecord(r.Final, a)
	case AssertAbsent:
		return assertAbsent(r.Final, a)
	case AssertReport:
		return assertReport(r.Steps, a)
	case AssertUnchanged:
		return assertUnchanged(r)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

func ids(records []order.Order) []string {
	out := make([]string, len(records))
	for i, o := range records {
		out[i] = o.ID
	}
	slices.Sort(out)
	return out
}

func assertFinalIDs(final []order.Order, a Assertion) error {
	want := slices.Clone(a.IDs)
	slices.Sort(want)
	got := ids(final)
	if slices.Equal(got, want) {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalIDs,
		Expected: "[" + strings.Join(want, " ") + "]",
		Actual:   "[" + strings.Join(got, " ") + "]",
	}
}

func find(final []order.Order, id string) (order.Order, bool) {
	for _, o := range final {
		if o.ID == id {
			return o, true
		}
	}
	return order.Order{}, false
}

// assertRecord compares the rendered value of each expected field. A null
// expectation matches a missing value.
func assertRecord(final []order.Order, a Assertion) error {
	o, ok := find(final, a.ID)
	if !ok {
		return &AssertionError{Type: AssertRecord, Expected: "record " + a.ID, Actual: "not found"}
	}
	for _, field := range sortedKeys(a.Expect) {
		want := a.Expect[field]
		got := pipeline.Field(field).Value(o)
		switch {
		case want == nil && got == nil:
			continue
		case want == nil:
			return mismatch(AssertRecord, a.ID+"."+field, "null", *got)
		case got == nil:
			return mismatch(AssertRecord, a.ID+"."+field, fmt.Sprint(want), "null")
		case *got != expectedValue(pipeline.Field(field), want):
			return mismatch(AssertRecord, a.ID+"."+field, fmt.Sprint(want), *got)
		}
	}
	return nil
}

// expectedValue renders an expectation as the field would render. Times are
// normalized so hand-written RFC 3339 values match. YAML decodes unquoted
// timestamps to time.Time.
func expectedValue(f pipeline.Field, want any) string {
	if t, ok := want.(time.Time); ok {
		return order.FormatTime(t)
	}
	s := fmt.Sprint(want)
	if f == pipeline.FieldIssuedAt || f == pipeline.FieldLoadedAt {
		if t, err := order.ParseTime(s); err == nil {
			return order.FormatTime(t)
		}
	}
	return s
}

func assertAbsent(final []order.Order, a Assertion) error {
	if _, ok := find(final, a.ID); ok {
		return &AssertionError{Type: AssertAbsent, Expected: "no record " + a.ID, Actual: "present"}
	}
	return nil
}

func assertReport(steps []StepResult, a Assertion) error {
	if a.Step < 1 || a.Step > len(steps) {
		return fmt.Errorf("report assertion: step %d out of range", a.Step)
	}
	fields, err := steps[a.Step-1].fields()
	if err != nil {
		return err
	}
	for _, name := range sortedKeys(a.Expect) {
		got, ok := fields[name]
		if !ok {
			return mismatch(AssertReport, fmt.Sprintf("step %d %s", a.Step, name), fmt.Sprint(a.Expect[name]), "missing")
		}
		if fmt.Sprint(got) != fmt.Sprint(a.Expect[name]) {
			return mismatch(AssertReport, fmt.Sprintf("step %d %s", a.Step, name), fmt.Sprint(a.Expect[name]), fmt.Sprint(got))
		}
	}
	return nil
}

func assertUnchanged(r *Result) error {
	if r.FingerprintBefore == r.FingerprintAfter {
		return nil
	}
	return &AssertionError{
		Type:     AssertUnchanged,
		Expected: "fingerprint " + r.FingerprintBefore,
		Actual:   "fingerprint " + r.FingerprintAfter,
	}
}

func mismatch(kind, what, want, got string) error {
	return &AssertionError{Type: kind, Expected: what + " = " + want, Actual: what + " = " + got}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
