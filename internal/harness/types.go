package harness

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/orderdedup/internal/dedup"
	"github.com/roach88/orderdedup/internal/order"
)

// StepResult holds the report of one step. Exactly one report is set.
type StepResult struct {
	Op            string                     `json:"op"`
	Consolidation *dedup.ConsolidationReport `json:"consolidation,omitempty"`
	Migration     *dedup.MigrationReport     `json:"migration,omitempty"`
}

// fields flattens the step's report into its JSON object form. Migration
// reports gain a derived "collisions" count.
func (s StepResult) fields() (map[string]any, error) {
	var report any = s.Consolidation
	if s.Migration != nil {
		report = s.Migration
	}
	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	if s.Migration != nil {
		out["collisions"] = s.Migration.Collisions()
	}
	return out, nil
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates every assertion held.
	Pass bool `json:"pass"`

	// Errors contains assertion failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	Steps []StepResult `json:"steps"`

	// Seeded and Final are the record sets before the first step and after
	// the last.
	Seeded []order.Order `json:"-"`
	Final  []order.Order `json:"-"`

	FingerprintBefore string `json:"fingerprint_before"`
	FingerprintAfter  string `json:"fingerprint_after"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
		Steps:  []StepResult{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
