package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/roach88/orderdedup/internal/dedup"
	"github.com/roach88/orderdedup/internal/order"
	"github.com/roach88/orderdedup/internal/pipeline"
)

// Scenario defines one end-to-end dedup scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Store selects the backend: "sqlite" (in-memory database, the default)
	// or "memory" (required for failure injection).
	Store string `yaml:"store,omitempty"`

	// Records seed the store in order.
	Records []Record `yaml:"records"`

	// Inject fails matching writes. Memory store only.
	Inject []Injection `yaml:"inject,omitempty"`

	// Steps run in order against the same store.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final store and reports.
	Assertions []Assertion `yaml:"assertions"`
}

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Record is a seed record. Times accept RFC 3339.
type Record struct {
	ID         string `yaml:"id,omitempty"`
	Number     *int64 `yaml:"number,omitempty"`
	Branch     string `yaml:"branch,omitempty"`
	BranchName string `yaml:"branch_name,omitempty"`
	Partner    string `yaml:"partner,omitempty"`
	IssuedAt   string `yaml:"issued_at,omitempty"`
	Total      string `yaml:"total,omitempty"`
	LoadedAt   string `yaml:"loaded_at,omitempty"`
	Items      []Item `yaml:"items,omitempty"`
}

// Item is a seed order line.
type Item struct {
	Product     string `yaml:"product"`
	Description string `yaml:"description,omitempty"`
	Quantity    string `yaml:"quantity"`
	UnitPrice   string `yaml:"unit_price"`
	LineTotal   string `yaml:"line_total"`
}

// Injection fails the write op targeting id.
type Injection struct {
	Op    string `yaml:"op"`
	ID    string `yaml:"id"`
	Error string `yaml:"error,omitempty"`
}

// Step is one executor run.
type Step struct {
	// Op is "purge" or "migrate".
	Op string `yaml:"op"`

	// Mode is "simulate" (default) or "apply".
	Mode string `yaml:"mode,omitempty"`

	// Key names the identity key for purge.
	Key string `yaml:"key,omitempty"`

	// Branches restricts purge candidates to these exact branch codes.
	Branches []string `yaml:"branches,omitempty"`

	Migration *MigrationStep `yaml:"migration,omitempty"`
}

// MigrationStep holds migrate parameters.
type MigrationStep struct {
	From []string `yaml:"from"`
	To   string   `yaml:"to"`
	Name string   `yaml:"name"`
}

// Step operations.
const (
	OpPurge   = "purge"
	OpMigrate = "migrate"
)

// Assertion validates final state or a step report.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// IDs is the expected set of stored IDs (final_ids).
	IDs []string `yaml:"ids,omitempty"`

	// ID names the record (record, absent).
	ID string `yaml:"id,omitempty"`

	// Step is the 1-based step whose report is checked (report).
	Step int `yaml:"step,omitempty"`

	// Expect holds expected record fields (record) or report fields (report).
	// Subset match.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalIDs  = "final_ids"
	AssertRecord    = "record"
	AssertAbsent    = "absent"
	AssertReport    = "report"
	AssertUnchanged = "unchanged"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios lists scenario files under dir, optionally filtered by a
// glob matched against the base name without extension. Results are sorted.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}

var knownOps = []string{OpPurge, OpMigrate}

var knownAssertions = []string{AssertFinalIDs, AssertRecord, AssertAbsent, AssertReport, AssertUnchanged}

var injectableOps = []string{"insert_many", "replace_upsert", "delete_one", "delete_many"}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	switch s.Store {
	case "", StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("store %q: must be %s or %s", s.Store, StoreSQLite, StoreMemory)
	}
	if len(s.Inject) > 0 && s.Store != StoreMemory {
		return fmt.Errorf("inject requires store: %s", StoreMemory)
	}
	for i, inj := range s.Inject {
		if !slices.Contains(injectableOps, inj.Op) {
			return fmt.Errorf("inject[%d]: unknown op %q", i, inj.Op)
		}
	}

	seen := map[string]bool{}
	for i, r := range s.Records {
		o, err := r.Order()
		if err != nil {
			return fmt.Errorf("records[%d]: %w", i, err)
		}
		if seen[o.ID] {
			return fmt.Errorf("records[%d]: duplicate id %q", i, o.ID)
		}
		seen[o.ID] = true
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}
	for i, st := range s.Steps {
		if !slices.Contains(knownOps, st.Op) {
			return fmt.Errorf("steps[%d]: unknown op %q", i, st.Op)
		}
		if _, err := dedup.ParseMode(st.Mode); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		if st.Op == OpPurge && st.Key == "" {
			return fmt.Errorf("steps[%d]: purge requires key", i)
		}
		if st.Op == OpMigrate && st.Migration == nil {
			return fmt.Errorf("steps[%d]: migrate requires migration", i)
		}
	}

	for i, a := range s.Assertions {
		if !slices.Contains(knownAssertions, a.Type) {
			return fmt.Errorf("assertions[%d]: unknown type %q", i, a.Type)
		}
		if a.Type == AssertReport && (a.Step < 1 || a.Step > len(s.Steps)) {
			return fmt.Errorf("assertions[%d]: step %d out of range", i, a.Step)
		}
		if (a.Type == AssertRecord || a.Type == AssertAbsent) && a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required", i)
		}
		if a.Type == AssertRecord {
			for field := range a.Expect {
				if !pipeline.Field(field).Valid() {
					return fmt.Errorf("assertions[%d]: unknown field %q", i, field)
				}
			}
		}
	}
	return nil
}

// Order converts the seed into a stored record.
func (r Record) Order() (order.Order, error) {
	o := order.Order{ID: r.ID, OrderNumber: r.Number}
	if r.Branch != "" {
		o.BranchCode = order.String(r.Branch)
	}
	if r.BranchName != "" {
		o.BranchName = order.String(r.BranchName)
	}
	if r.Partner != "" {
		o.Partner = order.String(r.Partner)
	}
	if o.ID == "" {
		if r.Number == nil || r.Branch == "" {
			return order.Order{}, fmt.Errorf("id is required when number or branch is missing")
		}
		o.ID = order.PrimaryKey(*r.Number, r.Branch)
	}

	var err error
	if o.IssuedAt, err = optionalTime(r.IssuedAt); err != nil {
		return order.Order{}, fmt.Errorf("issued_at: %w", err)
	}
	if o.LoadedAt, err = optionalTime(r.LoadedAt); err != nil {
		return order.Order{}, fmt.Errorf("loaded_at: %w", err)
	}
	if r.Total != "" {
		if o.Total, err = parseMoney(r.Total); err != nil {
			return order.Order{}, fmt.Errorf("total: %w", err)
		}
	}
	for i, it := range r.Items {
		item, err := it.item()
		if err != nil {
			return order.Order{}, fmt.Errorf("items[%d]: %w", i, err)
		}
		o.Items = append(o.Items, item)
	}
	return o, nil
}

func optionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := order.ParseTime(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseMoney(s string) (decimal.NullDecimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func (it Item) item() (order.Item, error) {
	out := order.Item{ProductCode: it.Product, Description: it.Description}
	var err error
	if out.Quantity, err = decimal.NewFromString(it.Quantity); err != nil {
		return order.Item{}, fmt.Errorf("quantity: %w", err)
	}
	if out.UnitPrice, err = decimal.NewFromString(it.UnitPrice); err != nil {
		return order.Item{}, fmt.Errorf("unit_price: %w", err)
	}
	if out.LineTotal, err = decimal.NewFromString(it.LineTotal); err != nil {
		return order.Item{}, fmt.Errorf("line_total: %w", err)
	}
	return out, nil
}
