package order

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TimeLayout is the storage and key rendering of every timestamp.
// Fixed width (always nine fractional digits) keeps lexical order chronological.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// Order is a stored sales order document, the unit of deduplication.
type Order struct {
	ID           string              `json:"id"`
	OrderNumber  *int64              `json:"order_number"`
	BranchCode   *string             `json:"branch_code"`
	BranchName   *string             `json:"branch_name"`
	Partner      *string             `json:"partner"`
	IssuedAt     *time.Time          `json:"issued_at"`
	Salesperson  *string             `json:"salesperson"`
	PaymentTerms *string             `json:"payment_terms"`
	Total        decimal.NullDecimal `json:"total"`
	LoadedAt     *time.Time          `json:"loaded_at"`
	Items        []Item              `json:"items"`
}

// Item is one order line. Deduplication never inspects items; they are
// carried through merges unchanged.
type Item struct {
	ProductCode string          `json:"product_code"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// PrimaryKey synthesizes the stored key "{order_number}_{branch_code}".
func PrimaryKey(orderNumber int64, branchCode string) string {
	return fmt.Sprintf("%d_%s", orderNumber, branchCode)
}

// Clone returns a deep copy. Executors work on clones so callers' records
// are never mutated.
func (o Order) Clone() Order {
	c := o
	c.OrderNumber = clonePtr(o.OrderNumber)
	c.BranchCode = clonePtr(o.BranchCode)
	c.BranchName = clonePtr(o.BranchName)
	c.Partner = clonePtr(o.Partner)
	c.IssuedAt = clonePtr(o.IssuedAt)
	c.Salesperson = clonePtr(o.Salesperson)
	c.PaymentTerms = clonePtr(o.PaymentTerms)
	c.LoadedAt = clonePtr(o.LoadedAt)
	if o.Items != nil {
		c.Items = make([]Item, len(o.Items))
		copy(c.Items, o.Items)
	}
	return c
}

// WithBranch returns a clone carrying the given branch identity.
// The ID is left untouched; callers re-key explicitly.
func (o Order) WithBranch(code, name string) Order {
	c := o.Clone()
	c.BranchCode = String(code)
	c.BranchName = String(name)
	return c
}

// String returns a pointer to s.
func String(s string) *string { return &s }

// Int returns a pointer to n.
func Int(n int64) *int64 { return &n }

// Time returns a pointer to t.
func Time(t time.Time) *time.Time { return &t }

// Money parses a decimal literal into a valid NullDecimal.
// Panics on malformed input; intended for fixtures and constants.
func Money(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a TimeLayout value. RFC 3339 input is accepted as well
// so hand-written fixtures and dumps from other tools load.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err == nil {
		return t, nil
	}
	t, err2 := time.Parse(time.RFC3339Nano, s)
	if err2 != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
