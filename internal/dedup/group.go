package dedup

import (
	"context"
	"io"
	"log/slog"

	"github.com/roach88/orderdedup/internal/order"
	"github.com/roach88/orderdedup/internal/pipeline"
)

// Group is a set of two or more records sharing one identity key.
type Group struct {
	Key     Key               `json:"key"`
	Members []pipeline.Member `json:"members"`
}

// GroupDuplicates buckets records by key and returns the buckets with more
// than one member.
//
// Groups are ordered by the first appearance of their key in records;
// members keep input order. Records are not modified.
func GroupDuplicates(records []order.Order, key KeyFunc) []Group {
	index := make(map[string]int)
	var buckets []Group
	for _, rec := range records {
		k := key.Key(rec)
		s := k.String()
		i, ok := index[s]
		if !ok {
			i = len(buckets)
			index[s] = i
			buckets = append(buckets, Group{Key: k})
		}
		buckets[i].Members = append(buckets[i].Members, pipeline.MemberOf(rec))
	}

	groups := make([]Group, 0, len(buckets))
	for _, b := range buckets {
		if len(b.Members) > 1 {
			groups = append(groups, b)
		}
	}
	return groups
}

// Finder computes duplicate groups from a store.
type Finder struct {
	store  Reader
	logger *slog.Logger
}

// NewFinder creates a Finder over store. A nil logger discards output.
func NewFinder(store Reader, logger *slog.Logger) *Finder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Finder{store: store, logger: logger}
}

// Find returns the duplicate groups under key among records matching filter
// (nil = all records).
//
// When the store implements Aggregator and key is Declarative, grouping runs
// in the store; otherwise records are read and grouped in memory. Both paths
// yield the same groups in the same order. Read failures are returned as
// STORE_UNAVAILABLE errors.
func (f *Finder) Find(ctx context.Context, key KeyFunc, filter pipeline.Predicate) ([]Group, error) {
	if key == nil {
		return nil, invalidConfig("no key function")
	}
	if filter != nil {
		if err := pipeline.ValidatePredicate(filter); err != nil {
			return nil, &Error{Code: ErrCodeInvalidConfig, Op: "filter", Err: err}
		}
	}

	if agg, ok := f.store.(Aggregator); ok {
		if decl, ok := key.(Declarative); ok {
			return f.aggregate(ctx, agg, key, decl, filter)
		}
	}

	var (
		records []order.Order
		err     error
	)
	if filter == nil {
		records, err = f.store.ListAll(ctx)
	} else {
		records, err = f.store.Find(ctx, filter)
	}
	if err != nil {
		return nil, unavailable("read", err)
	}

	groups := GroupDuplicates(records, key)
	f.logger.Debug("grouped in memory",
		"key", key.Name(),
		"filter", pipeline.String(filter),
		"records", len(records),
		"groups", len(groups))
	return groups, nil
}

func (f *Finder) aggregate(ctx context.Context, agg Aggregator, key KeyFunc, decl Declarative, filter pipeline.Predicate) ([]Group, error) {
	p := pipeline.DuplicateGroups(filter, decl.KeyFields()...)
	if err := p.Validate(); err != nil {
		return nil, &Error{Code: ErrCodeInvalidConfig, Op: "pipeline", Err: err}
	}

	buckets, err := agg.Aggregate(ctx, p)
	if err != nil {
		return nil, unavailable("aggregate", err)
	}

	groups := make([]Group, 0, len(buckets))
	for _, b := range buckets {
		groups = append(groups, Group{Key: keyFromBucket(b.Key), Members: b.Members})
	}
	f.logger.Debug("grouped in store",
		"key", key.Name(),
		"filter", pipeline.String(filter),
		"groups", len(groups))
	return groups, nil
}
