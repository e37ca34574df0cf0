package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/orderdedup/internal/order"
)

// deleteBatch bounds the number of bound parameters per DELETE statement.
const deleteBatch = 500

// InsertMany inserts the records whose IDs are not yet stored, in one
// transaction. Uses ON CONFLICT(id) DO NOTHING, so existing records are
// left untouched. Returns the number of rows inserted.
func (s *Store) InsertMany(ctx context.Context, orders []order.Order) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("insert many: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("insert many: prepare: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, o := range orders {
		args, err := orderArgs(o.ID, o)
		if err != nil {
			return 0, fmt.Errorf("insert many: %s: %w", o.ID, err)
		}
		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return 0, fmt.Errorf("insert many: %s: %w", o.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("insert many: rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("insert many: commit: %w", err)
	}
	return inserted, nil
}

// ReplaceUpsert stores o under id, replacing every column of an existing
// row. The row keeps its seq, so store order is unchanged.
// existed reports whether a row was already stored under id.
func (s *Store) ReplaceUpsert(ctx context.Context, id string, o order.Order) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("replace upsert: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	existed, err := replaceUpsertTx(ctx, tx, id, o)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("replace upsert: commit: %w", err)
	}
	return existed, nil
}

// DeleteOne removes the record stored under id.
// Returns false when no such record existed.
func (s *Store) DeleteOne(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM orders WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete one: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete one: rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteMany removes the records stored under ids in one transaction and
// returns how many rows were actually deleted.
func (s *Store) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("delete many: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var deleted int64
	for start := 0; start < len(ids); start += deleteBatch {
		end := min(start+deleteBatch, len(ids))
		batch := ids[start:end]
		params := make([]any, len(batch))
		for i, id := range batch {
			params[i] = id
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM orders WHERE id IN ("+placeholders(len(batch))+")", params...)
		if err != nil {
			return 0, fmt.Errorf("delete many: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("delete many: rows affected: %w", err)
		}
		deleted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("delete many: commit: %w", err)
	}
	return deleted, nil
}

// Move re-keys a record atomically: o is upserted under o.ID and oldID is
// deleted in the same transaction. Either both happen or neither does.
// existed reports whether a record was already stored under o.ID.
func (s *Store) Move(ctx context.Context, oldID string, o order.Order) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("move: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	existed, err := replaceUpsertTx(ctx, tx, o.ID, o)
	if err != nil {
		return false, fmt.Errorf("move: %w", err)
	}

	if oldID != o.ID {
		if _, err := tx.ExecContext(ctx, "DELETE FROM orders WHERE id = ?", oldID); err != nil {
			return false, fmt.Errorf("move: delete %s: %w", oldID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("move: commit: %w", err)
	}
	return existed, nil
}

func replaceUpsertTx(ctx context.Context, tx *sql.Tx, id string, o order.Order) (bool, error) {
	var n int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders WHERE id = ?", id).Scan(&n); err != nil {
		return false, fmt.Errorf("replace upsert: check %s: %w", id, err)
	}

	args, err := orderArgs(id, o)
	if err != nil {
		return false, fmt.Errorf("replace upsert: %s: %w", id, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			order_number  = excluded.order_number,
			branch_code   = excluded.branch_code,
			branch_name   = excluded.branch_name,
			partner       = excluded.partner,
			issued_at     = excluded.issued_at,
			salesperson   = excluded.salesperson,
			payment_terms = excluded.payment_terms,
			total         = excluded.total,
			loaded_at     = excluded.loaded_at,
			items         = excluded.items
	`, args...)
	if err != nil {
		return false, fmt.Errorf("replace upsert: %s: %w", id, err)
	}

	return n > 0, nil
}
