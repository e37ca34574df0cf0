package order

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// wireOrder mirrors the canonical encoding for decoding.
type wireOrder struct {
	ID           string     `json:"id"`
	OrderNumber  *int64     `json:"order_number"`
	BranchCode   *string    `json:"branch_code"`
	BranchName   *string    `json:"branch_name"`
	Partner      *string    `json:"partner"`
	IssuedAt     *string    `json:"issued_at"`
	Salesperson  *string    `json:"salesperson"`
	PaymentTerms *string    `json:"payment_terms"`
	Total        *string    `json:"total"`
	LoadedAt     *string    `json:"loaded_at"`
	Items        []wireItem `json:"items"`
}

type wireItem struct {
	ProductCode string `json:"product_code"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	LineTotal   string `json:"line_total"`
}

// UnmarshalSet decodes a canonical record set produced by MarshalCanonicalSet.
func UnmarshalSet(data []byte) ([]Order, error) {
	var wire []wireOrder
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("unmarshal record set: %w", err)
	}
	orders := make([]Order, 0, len(wire))
	for i, w := range wire {
		o, err := w.toOrder()
		if err != nil {
			return nil, fmt.Errorf("record[%d]: %w", i, err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// UnmarshalItems decodes the stored form written by MarshalItems.
func UnmarshalItems(data []byte) ([]Item, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var wire []wireItem
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	return toItems(wire)
}

func (w wireOrder) toOrder() (Order, error) {
	o := Order{
		ID:           w.ID,
		OrderNumber:  w.OrderNumber,
		BranchCode:   w.BranchCode,
		BranchName:   w.BranchName,
		Partner:      w.Partner,
		Salesperson:  w.Salesperson,
		PaymentTerms: w.PaymentTerms,
	}
	if o.ID == "" {
		return Order{}, fmt.Errorf("missing id")
	}
	var err error
	if o.IssuedAt, err = parseTimePtr(w.IssuedAt); err != nil {
		return Order{}, fmt.Errorf("issued_at: %w", err)
	}
	if o.LoadedAt, err = parseTimePtr(w.LoadedAt); err != nil {
		return Order{}, fmt.Errorf("loaded_at: %w", err)
	}
	if w.Total != nil {
		d, err := decimal.NewFromString(*w.Total)
		if err != nil {
			return Order{}, fmt.Errorf("total: %w", err)
		}
		o.Total = decimal.NewNullDecimal(d)
	}
	if o.Items, err = toItems(w.Items); err != nil {
		return Order{}, err
	}
	return o, nil
}

// toItems returns nil for an empty collection so decoded records compare
// equal to fixtures built without items.
func toItems(wire []wireItem) ([]Item, error) {
	if len(wire) == 0 {
		return nil, nil
	}
	items := make([]Item, 0, len(wire))
	for i, w := range wire {
		var it Item
		it.ProductCode = w.ProductCode
		it.Description = w.Description
		var err error
		if it.Quantity, err = parseDecimal(w.Quantity); err != nil {
			return nil, fmt.Errorf("items[%d].quantity: %w", i, err)
		}
		if it.UnitPrice, err = parseDecimal(w.UnitPrice); err != nil {
			return nil, fmt.Errorf("items[%d].unit_price: %w", i, err)
		}
		if it.LineTotal, err = parseDecimal(w.LineTotal); err != nil {
			return nil, fmt.Errorf("items[%d].line_total: %w", i, err)
		}
		items = append(items, it)
	}
	return items, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func parseTimePtr(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := ParseTime(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
