package store

import (
	"fmt"
	"strings"

	"github.com/roach88/orderdedup/internal/pipeline"
)

// stableOrder is the ORDER BY every read uses.
const stableOrder = "seq ASC, id COLLATE BINARY ASC"

// fieldExpr returns the SQL expression rendering f the way
// pipeline.Field.Value does.
func fieldExpr(f pipeline.Field) (string, error) {
	switch f {
	case pipeline.FieldOrderNumber:
		return "CAST(order_number AS TEXT)", nil
	case pipeline.FieldID, pipeline.FieldBranchCode, pipeline.FieldBranchName,
		pipeline.FieldPartner, pipeline.FieldIssuedAt, pipeline.FieldTotal, pipeline.FieldLoadedAt:
		return string(f), nil
	default:
		return "", fmt.Errorf("unknown field %q", f)
	}
}

// keyExpr returns the SQL expression for one group key component.
// fold() is only called on non-null values.
func keyExpr(k pipeline.KeyField) (string, error) {
	expr, err := fieldExpr(k.Field)
	if err != nil {
		return "", err
	}
	switch k.Transform {
	case pipeline.TransformNone:
		return expr, nil
	case pipeline.TransformFold:
		return fmt.Sprintf("CASE WHEN %[1]s IS NULL THEN NULL ELSE fold(%[1]s) END", expr), nil
	default:
		return "", fmt.Errorf("unknown transform %q", k.Transform)
	}
}

// compilePredicate compiles p to a WHERE fragment.
// Values are always bound as parameters, never interpolated.
func compilePredicate(p pipeline.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case pipeline.Equals:
		expr, err := fieldExpr(pred.Field)
		if err != nil {
			return "", nil, err
		}
		return expr + " = ?", []any{pred.Value}, nil
	case pipeline.In:
		expr, err := fieldExpr(pred.Field)
		if err != nil {
			return "", nil, err
		}
		if len(pred.Values) == 0 {
			return "1 = 0", nil, nil
		}
		params := make([]any, len(pred.Values))
		for i, v := range pred.Values {
			params[i] = v
		}
		return fmt.Sprintf("%s IN (%s)", expr, placeholders(len(pred.Values))), params, nil
	case pipeline.And:
		if len(pred.Predicates) == 0 {
			return "1 = 1", nil, nil
		}
		parts := make([]string, 0, len(pred.Predicates))
		var params []any
		for _, sub := range pred.Predicates {
			sql, subParams, err := compilePredicate(sub)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, "("+sql+")")
			params = append(params, subParams...)
		}
		return strings.Join(parts, " AND "), params, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileFind compiles a filtered read of whole records.
func compileFind(filter pipeline.Predicate) (string, []any, error) {
	if filter != nil {
		if err := pipeline.ValidatePredicate(filter); err != nil {
			return "", nil, err
		}
	}
	where, params, err := compilePredicate(filter)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	sql := fmt.Sprintf("SELECT %s FROM orders WHERE %s ORDER BY %s", orderColumns, where, stableOrder)
	return sql, params, nil
}

// compileAggregate compiles a duplicate-grouping pipeline to one query.
//
// Every matching row is returned with its key components (k0..kN), the size
// of its partition and the smallest seq in its partition. Rows are ordered by
// that first seq, then by seq, so each bucket is a run of consecutive rows
// and buckets appear in order of their first member.
func compileAggregate(p pipeline.Pipeline) (string, []any, int, error) {
	filter, keys, minCount, err := p.Parts()
	if err != nil {
		return "", nil, 0, err
	}

	where, params, err := compilePredicate(filter)
	if err != nil {
		return "", nil, 0, fmt.Errorf("compile filter: %w", err)
	}

	exprs := make([]string, len(keys))
	cols := make([]string, len(keys))
	for i, k := range keys {
		expr, err := keyExpr(k)
		if err != nil {
			return "", nil, 0, fmt.Errorf("compile key %q: %w", k.Name, err)
		}
		exprs[i] = expr
		cols[i] = fmt.Sprintf("%s AS k%d", expr, i)
	}
	partition := strings.Join(exprs, ", ")

	var outer []string
	for i := range keys {
		outer = append(outer, fmt.Sprintf("k%d", i))
	}

	sql := fmt.Sprintf(`SELECT id, branch_code, loaded_at, first_seq, %s FROM (
	SELECT seq, id, branch_code, loaded_at, %s,
		COUNT(*) OVER w AS n,
		MIN(seq) OVER w AS first_seq
	FROM orders
	WHERE %s
	WINDOW w AS (PARTITION BY %s)
) WHERE n >= ? ORDER BY first_seq ASC, seq ASC`,
		strings.Join(outer, ", "),
		strings.Join(cols, ", "),
		where,
		partition)

	params = append(params, minCount)
	return sql, params, len(keys), nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
