package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/orderdedup/internal/order"
	"github.com/roach88/orderdedup/internal/pipeline"
)

// ListAll returns every record in store order.
// Returns an empty slice (not nil) when the store is empty.
func (s *Store) ListAll(ctx context.Context) ([]order.Order, error) {
	return s.Find(ctx, nil)
}

// Find returns the records matching filter in store order
// (ORDER BY seq ASC, id COLLATE BINARY ASC).
func (s *Store) Find(ctx context.Context, filter pipeline.Predicate) ([]order.Order, error) {
	query, params, err := compileFind(filter)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []order.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	return orders, nil
}

// Get returns the record stored under id.
// Returns (record, false, nil) when no such record exists.
func (s *Store) Get(ctx context.Context, id string) (order.Order, bool, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = ?", id)
	o, err := scanOrder(row)
	if err != nil {
		if isNoRows(err) {
			return order.Order{}, false, nil
		}
		return order.Order{}, false, fmt.Errorf("get %s: %w", id, err)
	}
	return o, true, nil
}

// Aggregate computes the buckets of p in a single query.
// Buckets are ordered by their earliest member in store order; members
// keep store order.
func (s *Store) Aggregate(ctx context.Context, p pipeline.Pipeline) ([]pipeline.Bucket, error) {
	query, params, nkeys, err := compileAggregate(p)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	_, keys, _, _ := p.Parts()

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("aggregate: query: %w", err)
	}
	defer rows.Close()

	buckets := []pipeline.Bucket{}
	var current int64 = -1
	for rows.Next() {
		var (
			id       string
			branch   sql.NullString
			loaded   sql.NullString
			firstSeq int64
			parts    = make([]sql.NullString, nkeys)
		)
		dest := []any{&id, &branch, &loaded, &firstSeq}
		for i := range parts {
			dest = append(dest, &parts[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("aggregate: scan: %w", err)
		}

		loadedAt, err := parseNullTime(loaded)
		if err != nil {
			return nil, fmt.Errorf("aggregate: %s: loaded_at: %w", id, err)
		}

		if firstSeq != current {
			current = firstSeq
			key := make([]pipeline.KeyPart, nkeys)
			for i, v := range parts {
				key[i] = pipeline.KeyPart{Name: keys[i].Name, Value: fromNull(v)}
			}
			buckets = append(buckets, pipeline.Bucket{Key: key})
		}
		b := &buckets[len(buckets)-1]
		b.Members = append(b.Members, pipeline.Member{ID: id, BranchCode: fromNull(branch), LoadedAt: loadedAt})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("aggregate: iterate: %w", err)
	}

	return buckets, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
