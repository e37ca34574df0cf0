package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/roach88/orderdedup/internal/order"
	"github.com/roach88/orderdedup/internal/pipeline"
)

// serverSelectionTimeout bounds how long Open waits for a reachable server.
const serverSelectionTimeout = 5 * time.Second

// Store is a record store over one MongoDB collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Open connects to uri and verifies the primary is reachable.
func Open(ctx context.Context, uri, database, collection string) (*Store, error) {
	if uri == "" || database == "" || collection == "" {
		return nil, errors.New("mongo: uri, database and collection are required")
	}

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(serverSelectionTimeout))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	return &Store{client: client, coll: client.Database(database).Collection(collection)}, nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

// Ping verifies the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo: ping: %w", err)
	}
	return nil
}

// ListAll returns every document in store order.
func (s *Store) ListAll(ctx context.Context) ([]order.Order, error) {
	return s.Find(ctx, nil)
}

// Find returns the documents matching filter in store order (_id ascending).
func (s *Store) Find(ctx context.Context, filter pipeline.Predicate) ([]order.Order, error) {
	if filter != nil {
		if err := pipeline.ValidatePredicate(filter); err != nil {
			return nil, fmt.Errorf("mongo: find: %w", err)
		}
	}
	q, err := compileFilter(filter)
	if err != nil {
		return nil, fmt.Errorf("mongo: find: %w", err)
	}

	cur, err := s.coll.Find(ctx, q, options.Find().SetSort(storeOrder))
	if err != nil {
		return nil, fmt.Errorf("mongo: find: %w", err)
	}
	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: find: decode: %w", err)
	}

	orders := make([]order.Order, 0, len(docs))
	for _, d := range docs {
		o, err := d.toOrder()
		if err != nil {
			return nil, fmt.Errorf("mongo: find: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// InsertMany inserts the records whose _id is not yet present. Existing
// documents are left untouched. Returns the number inserted.
func (s *Store) InsertMany(ctx context.Context, orders []order.Order) (int, error) {
	if len(orders) == 0 {
		return 0, nil
	}
	models := make([]mongo.WriteModel, 0, len(orders))
	for _, o := range orders {
		doc, err := toDocument(o)
		if err != nil {
			return 0, fmt.Errorf("mongo: insert many: %s: %w", o.ID, err)
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.D{{Key: "_id", Value: o.ID}}).
			SetUpdate(bson.D{{Key: "$setOnInsert", Value: doc}}).
			SetUpsert(true))
	}

	res, err := s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	if err != nil {
		return 0, fmt.Errorf("mongo: insert many: %w", err)
	}
	return int(res.UpsertedCount), nil
}

// ReplaceUpsert replaces the document stored under id with o, inserting it
// when absent. existed reports whether a document matched id.
func (s *Store) ReplaceUpsert(ctx context.Context, id string, o order.Order) (bool, error) {
	doc, err := toDocument(o)
	if err != nil {
		return false, fmt.Errorf("mongo: replace: %s: %w", id, err)
	}
	res, err := s.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: id}}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return false, fmt.Errorf("mongo: replace: %s: %w", id, err)
	}
	return res.MatchedCount > 0, nil
}

// DeleteOne removes the document stored under id.
func (s *Store) DeleteOne(ctx context.Context, id string) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return false, fmt.Errorf("mongo: delete one: %s: %w", id, err)
	}
	return res.DeletedCount > 0, nil
}

// DeleteMany removes the documents stored under ids and returns the count
// the server reports deleted.
func (s *Store) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.coll.DeleteMany(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}})
	if err != nil {
		return 0, fmt.Errorf("mongo: delete many: %w", err)
	}
	return res.DeletedCount, nil
}

// Aggregate runs the grouping pipeline on the server.
func (s *Store) Aggregate(ctx context.Context, p pipeline.Pipeline) ([]pipeline.Bucket, error) {
	stages, keys, err := compilePipeline(p)
	if err != nil {
		return nil, fmt.Errorf("mongo: aggregate: %w", err)
	}

	cur, err := s.coll.Aggregate(ctx, stages, options.Aggregate().SetAllowDiskUse(true))
	if err != nil {
		return nil, fmt.Errorf("mongo: aggregate: %w", err)
	}
	var docs []bucketDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: aggregate: decode: %w", err)
	}

	buckets := make([]pipeline.Bucket, 0, len(docs))
	for _, d := range docs {
		b, err := d.toBucket(keys)
		if err != nil {
			return nil, fmt.Errorf("mongo: aggregate: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, nil
}
