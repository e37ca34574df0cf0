package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/orderdedup/internal/order"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var loadBase = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

// createTestOrder creates a complete order whose load time is loadBase plus
// loadedHours (negative = no load time).
func createTestOrder(number int64, branch string, loadedHours int) order.Order {
	o := order.Order{
		ID:           order.PrimaryKey(number, branch),
		OrderNumber:  order.Int(number),
		BranchCode:   order.String(branch),
		BranchName:   order.String("Filial " + branch),
		Partner:      order.String("ACME LTDA"),
		IssuedAt:     order.Time(time.Date(2024, 11, 5, 10, 30, 0, 0, time.UTC)),
		Salesperson:  order.String("MARIA"),
		PaymentTerms: order.String("28 DDL"),
		Total:        order.Money("99.90"),
		Items: []order.Item{{
			ProductCode: "P-9",
			Description: "ARRUELA",
			Quantity:    order.Money("3").Decimal,
			UnitPrice:   order.Money("33.30").Decimal,
			LineTotal:   order.Money("99.90").Decimal,
		}},
	}
	if loadedHours >= 0 {
		o.LoadedAt = order.Time(loadBase.Add(time.Duration(loadedHours) * time.Hour))
	}
	return o
}

func mustInsert(t *testing.T, s *Store, orders ...order.Order) {
	t.Helper()
	if _, err := s.InsertMany(t.Context(), orders); err != nil {
		t.Fatalf("InsertMany() failed: %v", err)
	}
}

func ids(orders []order.Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}

func contextWithCancel(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithCancel(t.Context())
}
