package pipeline

import (
	"fmt"
	"strconv"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/orderdedup/internal/order"
)

// Field names a record attribute usable in predicates and group keys.
type Field string

const (
	FieldID          Field = "id"
	FieldOrderNumber Field = "order_number"
	FieldBranchCode  Field = "branch_code"
	FieldBranchName  Field = "branch_name"
	FieldPartner     Field = "partner"
	FieldIssuedAt    Field = "issued_at"
	FieldTotal       Field = "total"
	FieldLoadedAt    Field = "loaded_at"
)

// Fields lists every known field in declaration order.
var Fields = []Field{
	FieldID, FieldOrderNumber, FieldBranchCode, FieldBranchName,
	FieldPartner, FieldIssuedAt, FieldTotal, FieldLoadedAt,
}

// Valid reports whether f is a known field.
func (f Field) Valid() bool {
	for _, known := range Fields {
		if f == known {
			return true
		}
	}
	return false
}

// Value renders the record's value for f in canonical string form, or nil
// when the record has no value. Integers are base 10, decimals normalized,
// times in order.TimeLayout.
func (f Field) Value(o order.Order) *string {
	switch f {
	case FieldID:
		return &o.ID
	case FieldOrderNumber:
		if o.OrderNumber == nil {
			return nil
		}
		s := strconv.FormatInt(*o.OrderNumber, 10)
		return &s
	case FieldBranchCode:
		return o.BranchCode
	case FieldBranchName:
		return o.BranchName
	case FieldPartner:
		return o.Partner
	case FieldIssuedAt:
		return formatTime(o.IssuedAt)
	case FieldTotal:
		if !o.Total.Valid {
			return nil
		}
		s := o.Total.Decimal.String()
		return &s
	case FieldLoadedAt:
		return formatTime(o.LoadedAt)
	default:
		return nil
	}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := order.FormatTime(*t)
	return &s
}

// Transform is applied to a field value before grouping.
type Transform string

const (
	TransformNone Transform = ""
	TransformFold Transform = "fold"
)

// Fold lower-cases s with Unicode rules. Callers grouping case-insensitively
// must all use this function so in-memory and SQL grouping agree.
func Fold(s string) string {
	// cases.Caser is stateful; build one per call
	return cases.Lower(language.Und).String(s)
}

// KeyField is one component of a group key.
type KeyField struct {
	Name      string    // component name in results (e.g. "branch_normalized")
	Field     Field     // source field
	Transform Transform // applied before comparison
}

// Apply returns the transformed key component for o.
func (k KeyField) Apply(o order.Order) *string {
	v := k.Field.Value(o)
	if v == nil || k.Transform == TransformNone {
		return v
	}
	folded := Fold(*v)
	return &folded
}

// Predicate filters records. Sealed: only types in this package implement it.
//
// Predicate types:
//   - Equals: field = value
//   - In: field ∈ values
//   - And: all predicates hold (empty = always true)
type Predicate interface {
	predicateNode()
}

// Equals matches records whose field renders exactly to Value.
type Equals struct {
	Field Field
	Value string
}

func (Equals) predicateNode() {}

// In matches records whose field renders to one of Values. Comparison is
// exact (case-sensitive); a null field never matches.
type In struct {
	Field  Field
	Values []string
}

func (In) predicateNode() {}

// And is a conjunction.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Stage is one step of a Pipeline. Sealed: only types in this package implement it.
type Stage interface {
	stageNode()
}

// Match restricts the records entering the group stage.
type Match struct {
	Predicate Predicate
}

func (Match) stageNode() {}

// Group partitions records by the listed key fields.
type Group struct {
	Keys []KeyField
}

func (Group) stageNode() {}

// MinCount keeps buckets with at least N members.
type MinCount struct {
	N int
}

func (MinCount) stageNode() {}

// Pipeline is an ordered list of stages. See package doc for the valid shape.
type Pipeline struct {
	Stages []Stage
}

// DuplicateGroups builds [Match(filter)] → Group(keys) → MinCount{2}.
// A nil filter omits the match stage.
func DuplicateGroups(filter Predicate, keys ...KeyField) Pipeline {
	var stages []Stage
	if filter != nil {
		stages = append(stages, Match{Predicate: filter})
	}
	stages = append(stages, Group{Keys: keys}, MinCount{N: 2})
	return Pipeline{Stages: stages}
}

// Parts breaks a validated pipeline into its filter, key fields and minimum
// bucket size. Backends call this instead of walking stages themselves.
func (p Pipeline) Parts() (filter Predicate, keys []KeyField, minCount int, err error) {
	if err := p.Validate(); err != nil {
		return nil, nil, 0, err
	}
	minCount = 1
	for _, s := range p.Stages {
		switch st := s.(type) {
		case Match:
			filter = st.Predicate
		case Group:
			keys = st.Keys
		case MinCount:
			minCount = st.N
		}
	}
	return filter, keys, minCount, nil
}

// KeyPart is one component of a computed group key. Value nil means null.
type KeyPart struct {
	Name  string  `json:"name"`
	Value *string `json:"value"`
}

// Member describes one record of a bucket.
type Member struct {
	ID         string     `json:"id"`
	BranchCode *string    `json:"branch_code"`
	LoadedAt   *time.Time `json:"loaded_at"`
}

// MemberOf extracts bucket metadata from a record.
func MemberOf(o order.Order) Member {
	return Member{ID: o.ID, BranchCode: o.BranchCode, LoadedAt: o.LoadedAt}
}

// Bucket is one group computed by a backend.
type Bucket struct {
	Key     []KeyPart `json:"key"`
	Members []Member  `json:"members"`
}

// String renders a predicate for logs.
func String(p Predicate) string {
	switch pr := p.(type) {
	case nil:
		return "true"
	case Equals:
		return fmt.Sprintf("%s = %q", pr.Field, pr.Value)
	case In:
		return fmt.Sprintf("%s in %q", pr.Field, pr.Values)
	case And:
		if len(pr.Predicates) == 0 {
			return "true"
		}
		s := ""
		for i, sub := range pr.Predicates {
			if i > 0 {
				s += " and "
			}
			s += String(sub)
		}
		return s
	default:
		return fmt.Sprintf("%T", p)
	}
}
