package order

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces the canonical JSON of a single record.
// CRITICAL: this is the only serialization used for fingerprints.
//
// Differences from json.Marshal:
//  1. Object keys sorted bytewise (all keys are ASCII)
//  2. No HTML escaping
//  3. Strings are NFC normalized
//  4. Times in TimeLayout, decimals in normalized form ("100" not "100.00")
//  5. Absent optional fields are explicit nulls
func MarshalCanonical(o Order) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeOrder(&buf, o); err != nil {
		return nil, fmt.Errorf("marshal order %q: %w", o.ID, err)
	}
	return buf.Bytes(), nil
}

// MarshalCanonicalSet encodes records as a canonical JSON array sorted by ID.
// The input slice is not reordered.
func MarshalCanonicalSet(orders []Order) ([]byte, error) {
	sorted := make([]Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, o := range sorted {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeOrder(&buf, o); err != nil {
			return nil, fmt.Errorf("marshal order %q: %w", o.ID, err)
		}
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// MarshalItems encodes line items canonically. Used as the stored form of
// the nested items collection.
func MarshalItems(items []Item) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeItems(&buf, items); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// field is one key/value pair of a canonical object. Keys must be written
// in sorted order by the caller.
type field struct {
	key   string
	write func(*bytes.Buffer) error
}

func writeObject(buf *bytes.Buffer, fields []field) error {
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(buf, f.key); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := f.write(buf); err != nil {
			return fmt.Errorf("field %q: %w", f.key, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeOrder(buf *bytes.Buffer, o Order) error {
	return writeObject(buf, []field{
		{"branch_code", strPtr(o.BranchCode)},
		{"branch_name", strPtr(o.BranchName)},
		{"id", str(o.ID)},
		{"issued_at", timePtr(o.IssuedAt)},
		{"items", func(b *bytes.Buffer) error { return writeItems(b, o.Items) }},
		{"loaded_at", timePtr(o.LoadedAt)},
		{"order_number", intPtr(o.OrderNumber)},
		{"partner", strPtr(o.Partner)},
		{"payment_terms", strPtr(o.PaymentTerms)},
		{"salesperson", strPtr(o.Salesperson)},
		{"total", nullDecimal(o.Total)},
	})
}

func writeItems(buf *bytes.Buffer, items []Item) error {
	buf.WriteByte('[')
	for i, it := range items {
		if i > 0 {
			buf.WriteByte(',')
		}
		err := writeObject(buf, []field{
			{"description", str(it.Description)},
			{"line_total", dec(it.LineTotal)},
			{"product_code", str(it.ProductCode)},
			{"quantity", dec(it.Quantity)},
			{"unit_price", dec(it.UnitPrice)},
		})
		if err != nil {
			return fmt.Errorf("items[%d]: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

func str(s string) func(*bytes.Buffer) error {
	return func(b *bytes.Buffer) error { return writeString(b, s) }
}

func strPtr(s *string) func(*bytes.Buffer) error {
	if s == nil {
		return writeNull
	}
	return str(*s)
}

func timePtr(t *time.Time) func(*bytes.Buffer) error {
	if t == nil {
		return writeNull
	}
	return str(FormatTime(*t))
}

func intPtr(n *int64) func(*bytes.Buffer) error {
	if n == nil {
		return writeNull
	}
	return func(b *bytes.Buffer) error {
		b.WriteString(strconv.FormatInt(*n, 10))
		return nil
	}
}

func dec(d decimal.Decimal) func(*bytes.Buffer) error {
	return str(d.String())
}

func nullDecimal(d decimal.NullDecimal) func(*bytes.Buffer) error {
	if !d.Valid {
		return writeNull
	}
	return dec(d.Decimal)
}

func writeNull(b *bytes.Buffer) error {
	b.WriteString("null")
	return nil
}

// writeString writes an NFC-normalized JSON string without HTML escaping.
func writeString(b *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	// json.Encoder adds a trailing newline
	b.Write(bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'}))
	return nil
}
