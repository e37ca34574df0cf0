package pipeline

import "github.com/roach88/orderdedup/internal/order"

// Matches evaluates p against a record in memory. A nil predicate matches
// every record. Unvalidated predicate types never match.
func Matches(p Predicate, o order.Order) bool {
	switch pr := p.(type) {
	case nil:
		return true
	case Equals:
		v := pr.Field.Value(o)
		return v != nil && *v == pr.Value
	case In:
		v := pr.Field.Value(o)
		if v == nil {
			return false
		}
		for _, want := range pr.Values {
			if *v == want {
				return true
			}
		}
		return false
	case And:
		for _, sub := range pr.Predicates {
			if !Matches(sub, o) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Filter returns the records matching p, preserving order.
func Filter(p Predicate, orders []order.Order) []order.Order {
	out := make([]order.Order, 0, len(orders))
	for _, o := range orders {
		if Matches(p, o) {
			out = append(out, o)
		}
	}
	return out
}
