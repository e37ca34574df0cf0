package dedup

import (
	"sort"

	"github.com/roach88/orderdedup/internal/pipeline"
)

// SelectCanonical splits a group into the record to keep and the records to
// remove.
//
// The canonical record is the one loaded most recently. Members without a
// load timestamp rank after every member that has one. Ties keep discovery
// order, so the choice is arbitrary but deterministic for a given store
// order. The group is not modified.
func SelectCanonical(g Group) (canonical pipeline.Member, redundant []pipeline.Member) {
	if len(g.Members) == 0 {
		return pipeline.Member{}, nil
	}

	ranked := make([]pipeline.Member, len(g.Members))
	copy(ranked, g.Members)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].LoadedAt, ranked[j].LoadedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})

	return ranked[0], ranked[1:]
}
