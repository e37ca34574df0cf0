package mongostore

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/roach88/orderdedup/internal/order"
	"github.com/roach88/orderdedup/internal/pipeline"
)

// storeOrder is the sort every read uses.
var storeOrder = bson.D{{Key: "_id", Value: 1}}

// matchNothing is a filter no document satisfies.
var matchNothing = bson.D{{Key: "$expr", Value: false}}

// queryValue converts a canonical field rendering to the stored BSON type.
// ok is false when no stored value can render to s.
func queryValue(f pipeline.Field, s string) (v any, ok bool) {
	switch f {
	case pipeline.FieldOrderNumber:
		n, err := strconv.ParseInt(s, 10, 64)
		return n, err == nil
	case pipeline.FieldIssuedAt, pipeline.FieldLoadedAt:
		t, err := order.ParseTime(s)
		return primitive.NewDateTimeFromTime(t), err == nil
	case pipeline.FieldTotal:
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, false
		}
		dec, err := toDecimal128(d)
		return dec, err == nil
	default:
		return s, true
	}
}

// compileFilter compiles a predicate to a query document.
func compileFilter(p pipeline.Predicate) (bson.D, error) {
	switch pred := p.(type) {
	case nil:
		return bson.D{}, nil
	case pipeline.Equals:
		name, err := fieldName(pred.Field)
		if err != nil {
			return nil, err
		}
		v, ok := queryValue(pred.Field, pred.Value)
		if !ok {
			return matchNothing, nil
		}
		return bson.D{{Key: name, Value: v}}, nil
	case pipeline.In:
		name, err := fieldName(pred.Field)
		if err != nil {
			return nil, err
		}
		values := bson.A{}
		for _, s := range pred.Values {
			if v, ok := queryValue(pred.Field, s); ok {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			return matchNothing, nil
		}
		return bson.D{{Key: name, Value: bson.D{{Key: "$in", Value: values}}}}, nil
	case pipeline.And:
		if len(pred.Predicates) == 0 {
			return bson.D{}, nil
		}
		clauses := bson.A{}
		for _, sub := range pred.Predicates {
			c, err := compileFilter(sub)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, c)
		}
		return bson.D{{Key: "$and", Value: clauses}}, nil
	default:
		return nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// keyExpr is the $group expression for one key component. Missing fields
// become null so they group with explicit nulls.
func keyExpr(k pipeline.KeyField) (any, error) {
	name, err := fieldName(k.Field)
	if err != nil {
		return nil, err
	}
	ref := "$" + name
	value := bson.D{{Key: "$ifNull", Value: bson.A{ref, nil}}}
	switch k.Transform {
	case pipeline.TransformNone:
		return value, nil
	case pipeline.TransformFold:
		return bson.D{{Key: "$cond", Value: bson.A{
			bson.D{{Key: "$eq", Value: bson.A{bson.D{{Key: "$type", Value: ref}}, "string"}}},
			bson.D{{Key: "$toLower", Value: ref}},
			value,
		}}}, nil
	default:
		return nil, fmt.Errorf("unknown transform %q", k.Transform)
	}
}

// compilePipeline compiles a duplicate-grouping pipeline to an aggregation:
//
//	$match → $sort{_id} → $group{_id: {k0..kN}, members: $push, count: $sum, anchor: $first}
//	       → $match{count ≥ N} → $sort{anchor}
//
// Members keep store order and buckets are ordered by their first member.
func compilePipeline(p pipeline.Pipeline) (mongo.Pipeline, []pipeline.KeyField, error) {
	filter, keys, minCount, err := p.Parts()
	if err != nil {
		return nil, nil, err
	}

	match, err := compileFilter(filter)
	if err != nil {
		return nil, nil, fmt.Errorf("compile filter: %w", err)
	}

	groupID := bson.D{}
	for i, k := range keys {
		expr, err := keyExpr(k)
		if err != nil {
			return nil, nil, fmt.Errorf("compile key %q: %w", k.Name, err)
		}
		groupID = append(groupID, bson.E{Key: "k" + strconv.Itoa(i), Value: expr})
	}

	member := bson.D{
		{Key: "id", Value: "$_id"},
		{Key: "branch", Value: "$filial_codigo"},
		{Key: "loaded", Value: "$data_carga"},
	}

	stages := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: storeOrder}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: groupID},
			{Key: "members", Value: bson.D{{Key: "$push", Value: member}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "anchor", Value: bson.D{{Key: "$first", Value: "$_id"}}},
		}}},
		{{Key: "$match", Value: bson.D{{Key: "count", Value: bson.D{{Key: "$gte", Value: minCount}}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "anchor", Value: 1}}}},
	}
	return stages, keys, nil
}

// bucketDoc is one aggregation result.
type bucketDoc struct {
	Key     bson.Raw    `bson:"_id"`
	Members []memberDoc `bson:"members"`
}

type memberDoc struct {
	ID     string        `bson:"id"`
	Branch bson.RawValue `bson:"branch"`
	Loaded bson.RawValue `bson:"loaded"`
}

func (b bucketDoc) toBucket(keys []pipeline.KeyField) (pipeline.Bucket, error) {
	out := pipeline.Bucket{Key: make([]pipeline.KeyPart, len(keys))}
	for i, k := range keys {
		raw := b.Key.Lookup("k" + strconv.Itoa(i))
		v, err := renderRaw(k.Field, raw)
		if err != nil {
			return pipeline.Bucket{}, fmt.Errorf("key %q: %w", k.Name, err)
		}
		out.Key[i] = pipeline.KeyPart{Name: k.Name, Value: v}
	}
	for _, m := range b.Members {
		branch, err := rawString(m.Branch)
		if err != nil {
			return pipeline.Bucket{}, fmt.Errorf("member %s: filial_codigo: %w", m.ID, err)
		}
		loaded, err := rawTime(m.Loaded)
		if err != nil {
			return pipeline.Bucket{}, fmt.Errorf("member %s: data_carga: %w", m.ID, err)
		}
		out.Members = append(out.Members, pipeline.Member{ID: m.ID, BranchCode: branch, LoadedAt: loaded})
	}
	return out, nil
}
