package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/orderdedup/internal/order"
)

// orderColumns is the column list shared by every read and write, in scan order.
const orderColumns = "id, order_number, branch_code, branch_name, partner, issued_at, salesperson, payment_terms, total, loaded_at, items"

// orderArgs renders o as parameters for orderColumns, with id overridden.
// Decimals and times are stored in their canonical text form.
func orderArgs(id string, o order.Order) ([]any, error) {
	items, err := order.MarshalItems(o.Items)
	if err != nil {
		return nil, fmt.Errorf("marshal items: %w", err)
	}

	var total any
	if o.Total.Valid {
		total = o.Total.Decimal.String()
	}

	return []any{
		id,
		nullInt(o.OrderNumber),
		nullString(o.BranchCode),
		nullString(o.BranchName),
		nullString(o.Partner),
		nullTime(o.IssuedAt),
		nullString(o.Salesperson),
		nullString(o.PaymentTerms),
		total,
		nullTime(o.LoadedAt),
		string(items),
	}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanOrder reads one row selected with orderColumns.
func scanOrder(row scanner) (order.Order, error) {
	var (
		o                                 order.Order
		number                            sql.NullInt64
		code, name, partner, sales, terms sql.NullString
		issued, total, loaded             sql.NullString
		items                             string
	)
	if err := row.Scan(&o.ID, &number, &code, &name, &partner, &issued, &sales, &terms, &total, &loaded, &items); err != nil {
		return order.Order{}, fmt.Errorf("scan order: %w", err)
	}

	if number.Valid {
		o.OrderNumber = order.Int(number.Int64)
	}
	o.BranchCode = fromNull(code)
	o.BranchName = fromNull(name)
	o.Partner = fromNull(partner)
	o.Salesperson = fromNull(sales)
	o.PaymentTerms = fromNull(terms)

	var err error
	if o.IssuedAt, err = parseNullTime(issued); err != nil {
		return order.Order{}, fmt.Errorf("scan order %s: issued_at: %w", o.ID, err)
	}
	if o.LoadedAt, err = parseNullTime(loaded); err != nil {
		return order.Order{}, fmt.Errorf("scan order %s: loaded_at: %w", o.ID, err)
	}
	if total.Valid {
		d, err := decimal.NewFromString(total.String)
		if err != nil {
			return order.Order{}, fmt.Errorf("scan order %s: total: %w", o.ID, err)
		}
		o.Total = decimal.NewNullDecimal(d)
	}
	if o.Items, err = order.UnmarshalItems([]byte(items)); err != nil {
		return order.Order{}, fmt.Errorf("scan order %s: items: %w", o.ID, err)
	}

	return o, nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullInt(n *int64) any {
	if n == nil {
		return nil
	}
	return *n
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return order.FormatTime(*t)
}

func fromNull(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return order.String(s.String)
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := order.ParseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
