package testutil

import (
	"context"
	"sync"

	"github.com/roach88/orderdedup/internal/order"
	"github.com/roach88/orderdedup/internal/pipeline"
)

// WriteHook is called before every write with the operation name and the
// record ID it targets. A non-nil return fails the write without applying it.
type WriteHook func(op, id string) error

// MemStore is an in-memory record store for tests.
//
// Records are kept in insertion order, which is the store order returned by
// reads. Replacing a record keeps its position. Every read returns copies.
type MemStore struct {
	mu      sync.Mutex
	records []order.Order

	// PingErr and ReadErr, when set, are returned by Ping and by every read.
	PingErr error
	ReadErr error

	// Hook intercepts writes. See WriteHook.
	Hook WriteHook

	writes map[string]int
}

// NewMemStore creates a store seeded with records.
func NewMemStore(records ...order.Order) *MemStore {
	s := &MemStore{writes: map[string]int{}}
	for _, r := range records {
		s.records = append(s.records, r.Clone())
	}
	return s
}

// Writes returns how many write calls reached the store for op
// ("insert_many", "replace_upsert", "delete_one", "delete_many"), or the
// total over all ops when op is empty. Failed calls are counted too.
func (s *MemStore) Writes(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if op != "" {
		return s.writes[op]
	}
	n := 0
	for _, c := range s.writes {
		n += c
	}
	return n
}

// Snapshot returns a copy of every stored record in store order.
func (s *MemStore) Snapshot() []order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked(nil)
}

// IDs returns the stored IDs in store order.
func (s *MemStore) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.records))
	for i, r := range s.records {
		ids[i] = r.ID
	}
	return ids
}

// Get returns the record stored under id.
func (s *MemStore) Get(id string) (order.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.records[i].Clone(), true
	}
	return order.Order{}, false
}

func (s *MemStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.PingErr
}

func (s *MemStore) ListAll(ctx context.Context) ([]order.Order, error) {
	return s.Find(ctx, nil)
}

func (s *MemStore) Find(ctx context.Context, filter pipeline.Predicate) ([]order.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ReadErr != nil {
		return nil, s.ReadErr
	}
	return s.copyLocked(filter), nil
}

func (s *MemStore) InsertMany(ctx context.Context, orders []order.Order) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.beginWriteLocked("insert_many", ""); err != nil {
		return 0, err
	}
	n := 0
	for _, o := range orders {
		if s.indexLocked(o.ID) >= 0 {
			continue
		}
		s.records = append(s.records, o.Clone())
		n++
	}
	return n, nil
}

func (s *MemStore) ReplaceUpsert(ctx context.Context, id string, o order.Order) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.beginWriteLocked("replace_upsert", id); err != nil {
		return false, err
	}
	rec := o.Clone()
	rec.ID = id
	if i := s.indexLocked(id); i >= 0 {
		s.records[i] = rec
		return true, nil
	}
	s.records = append(s.records, rec)
	return false, nil
}

func (s *MemStore) DeleteOne(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.beginWriteLocked("delete_one", id); err != nil {
		return false, err
	}
	i := s.indexLocked(id)
	if i < 0 {
		return false, nil
	}
	s.records = append(s.records[:i], s.records[i+1:]...)
	return true, nil
}

func (s *MemStore) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	first := ""
	if len(ids) > 0 {
		first = ids[0]
	}
	if err := s.beginWriteLocked("delete_many", first); err != nil {
		return 0, err
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := s.records[:0]
	var n int64
	for _, r := range s.records {
		if drop[r.ID] {
			n++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return n, nil
}

func (s *MemStore) Close() error { return nil }

func (s *MemStore) beginWriteLocked(op, id string) error {
	s.writes[op]++
	if s.Hook != nil {
		return s.Hook(op, id)
	}
	return nil
}

func (s *MemStore) indexLocked(id string) int {
	for i, r := range s.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (s *MemStore) copyLocked(filter pipeline.Predicate) []order.Order {
	out := make([]order.Order, 0, len(s.records))
	for _, r := range s.records {
		if pipeline.Matches(filter, r) {
			out = append(out, r.Clone())
		}
	}
	return out
}
