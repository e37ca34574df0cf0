package dedup

import (
	"time"

	"github.com/roach88/orderdedup/internal/order"
	"github.com/roach88/orderdedup/internal/testutil"
)

var (
	t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
	t2 = t0.Add(2 * time.Hour)
)

var (
	_ Store = (*testutil.MemStore)(nil)
)

// newOrder builds a complete record loaded at loaded (nil = no timestamp).
func newOrder(number int64, branch string, loaded *time.Time) order.Order {
	return order.Order{
		ID:           order.PrimaryKey(number, branch),
		OrderNumber:  order.Int(number),
		BranchCode:   order.String(branch),
		BranchName:   order.String("Filial " + branch),
		Partner:      order.String("ACME LTDA"),
		IssuedAt:     order.Time(time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC)),
		Salesperson:  order.String("JOAO"),
		PaymentTerms: order.String("30/60"),
		Total:        order.Money("1500.75"),
		LoadedAt:     loaded,
		Items: []order.Item{
			{
				ProductCode: "P-1",
				Description: "PARAFUSO",
				Quantity:    order.Money("10").Decimal,
				UnitPrice:   order.Money("100.05").Decimal,
				LineTotal:   order.Money("1000.50").Decimal,
			},
			{
				ProductCode: "P-2",
				Description: "PORCA",
				Quantity:    order.Money("5").Decimal,
				UnitPrice:   order.Money("100.05").Decimal,
				LineTotal:   order.Money("500.25").Decimal,
			},
		},
	}
}

// withID returns o stored under id.
func withID(o order.Order, id string) order.Order {
	o.ID = id
	return o
}

func ptr(t time.Time) *time.Time { return &t }

func testOptions(ids ...string) Options {
	if len(ids) == 0 {
		ids = []string{"run-1", "run-2", "run-3"}
	}
	return Options{RunID: RunIDs(ids...)}
}
