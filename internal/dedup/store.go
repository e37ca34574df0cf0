package dedup

import (
	"context"

	"github.com/roach88/orderdedup/internal/order"
	"github.com/roach88/orderdedup/internal/pipeline"
)

// Reader is the read side of the record store.
// Implementations return records in a stable storage order.
type Reader interface {
	ListAll(ctx context.Context) ([]order.Order, error)
	Find(ctx context.Context, filter pipeline.Predicate) ([]order.Order, error)
}

// Writer is the write side of the record store.
type Writer interface {
	// InsertMany inserts records whose IDs are not yet present and returns
	// how many were inserted.
	InsertMany(ctx context.Context, orders []order.Order) (int, error)

	// ReplaceUpsert stores o under id, fully replacing any existing record.
	// existed reports whether a record was already stored under id.
	ReplaceUpsert(ctx context.Context, id string, o order.Order) (existed bool, err error)

	// DeleteOne removes the record stored under id.
	DeleteOne(ctx context.Context, id string) (bool, error)

	// DeleteMany removes the records stored under ids and returns the count
	// actually deleted.
	DeleteMany(ctx context.Context, ids []string) (int64, error)
}

// Store is the Record Store Adapter consumed by the engine.
type Store interface {
	Reader
	Writer
	Ping(ctx context.Context) error
	Close() error
}

// Aggregator is implemented by stores that can compute duplicate buckets
// server-side. Results must equal GroupDuplicates over the same records.
type Aggregator interface {
	Aggregate(ctx context.Context, p pipeline.Pipeline) ([]pipeline.Bucket, error)
}

// Mover is implemented by stores that can re-key a record atomically:
// upsert o under o.ID and delete oldID in one transaction.
type Mover interface {
	Move(ctx context.Context, oldID string, o order.Order) (existed bool, err error)
}
