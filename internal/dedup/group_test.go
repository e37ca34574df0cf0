package dedup

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/orderdedup/internal/order"
	"github.com/roach88/orderdedup/internal/pipeline"
	"github.com/roach88/orderdedup/internal/testutil"
)

func TestGroupDuplicates_StrictGroupsIffTupleEqual(t *testing.T) {
	a := newOrder(100, "SS", ptr(t1))
	b := newOrder(100, "SZM", ptr(t2)) // same tuple, other branch
	c := newOrder(100, "JF", nil)
	c.Total = order.Money("1500.76") // differs in total
	d := newOrder(101, "SS", nil)    // differs in order number

	groups := GroupDuplicates([]order.Order{a, b, c, d}, Strict)

	require.Len(t, groups, 1)
	assert.Equal(t, []string{"100_SS", "100_SZM"}, memberIDs(groups[0]))
}

func TestGroupDuplicates_NormalizedGroupsCaseInsensitively(t *testing.T) {
	records := []order.Order{
		newOrder(100, "SS", nil),
		newOrder(100, "ss", nil),
		newOrder(100, "SZM", nil),
		newOrder(200, "Ss", nil),
	}

	groups := GroupDuplicates(records, Normalized)

	require.Len(t, groups, 1)
	assert.Equal(t, []string{"100_SS", "100_ss"}, memberIDs(groups[0]))
	assert.Equal(t, `order_number="100" branch_normalized="ss"`, groups[0].Key.String())
}

func TestGroupDuplicates_NoSingletonGroups(t *testing.T) {
	var records []order.Order
	for i := int64(0); i < 20; i++ {
		records = append(records, newOrder(i%7, fmt.Sprintf("B%d", i%3), nil))
	}

	for _, key := range []KeyFunc{Strict, Normalized} {
		for _, g := range GroupDuplicates(records, key) {
			assert.Greater(t, len(g.Members), 1, "key %s group %s", key.Name(), g.Key)
		}
	}
}

func TestGroupDuplicates_PartitionMatchesKeyEquality(t *testing.T) {
	var records []order.Order
	for i := int64(0); i < 30; i++ {
		o := newOrder(i%5, []string{"SS", "ss", "SZM"}[i%3], nil)
		o.ID = fmt.Sprintf("r%02d", i)
		if i%4 == 0 {
			o.Partner = nil
		}
		records = append(records, o)
	}

	for _, key := range []KeyFunc{Strict, Normalized} {
		groupOf := map[string]int{}
		for gi, g := range GroupDuplicates(records, key) {
			for _, m := range g.Members {
				groupOf[m.ID] = gi
			}
		}
		for _, a := range records {
			for _, b := range records {
				if a.ID == b.ID {
					continue
				}
				ga, inA := groupOf[a.ID]
				gb, inB := groupOf[b.ID]
				same := inA && inB && ga == gb
				assert.Equal(t, key.Key(a).String() == key.Key(b).String(), same,
					"%s: %s vs %s", key.Name(), a.ID, b.ID)
			}
		}
	}
}

func TestGroupDuplicates_OrderByFirstAppearance(t *testing.T) {
	records := []order.Order{
		withID(newOrder(2, "SS", nil), "a"),
		withID(newOrder(1, "SS", nil), "b"),
		withID(newOrder(2, "SS", nil), "c"),
		withID(newOrder(1, "SS", nil), "d"),
		withID(newOrder(2, "SS", nil), "e"),
	}

	groups := GroupDuplicates(records, Strict)

	require.Len(t, groups, 2)
	assert.Equal(t, []string{"a", "c", "e"}, memberIDs(groups[0]))
	assert.Equal(t, []string{"b", "d"}, memberIDs(groups[1]))
}

func TestGroupDuplicates_MemberCarriesBranchAndLoadTime(t *testing.T) {
	records := []order.Order{newOrder(1, "SS", ptr(t1)), newOrder(1, "SZM", nil)}

	g := GroupDuplicates(records, Strict)[0]

	assert.Equal(t, "SS", *g.Members[0].BranchCode)
	assert.Equal(t, t1, *g.Members[0].LoadedAt)
	assert.Nil(t, g.Members[1].LoadedAt)
}

func TestGroupDuplicates_Empty(t *testing.T) {
	assert.Empty(t, GroupDuplicates(nil, Strict))
}

func TestFinder_FiltersBeforeGrouping(t *testing.T) {
	s := testutil.NewMemStore(
		newOrder(1, "SS", nil),
		newOrder(1, "ss", nil),
		newOrder(2, "JF", nil),
		newOrder(2, "jf", nil),
	)
	f := NewFinder(s, nil)

	filter := pipeline.In{Field: pipeline.FieldBranchCode, Values: []string{"JF", "jf"}}
	groups, err := f.Find(context.Background(), Normalized, filter)

	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"2_JF", "2_jf"}, memberIDs(groups[0]))
}

func TestFinder_ReadFailureIsUnavailable(t *testing.T) {
	s := testutil.NewMemStore(newOrder(1, "SS", nil))
	s.ReadErr = errors.New("connection reset")

	_, err := NewFinder(s, nil).Find(context.Background(), Strict, nil)

	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
}

func TestFinder_RejectsInvalidFilter(t *testing.T) {
	s := testutil.NewMemStore()

	_, err := NewFinder(s, nil).Find(context.Background(), Strict, pipeline.Equals{Field: "color", Value: "red"})

	require.Error(t, err)
	assert.True(t, IsInvalidConfig(err))
}

// aggregatingStore serves Aggregate from canned buckets.
type aggregatingStore struct {
	*testutil.MemStore
	buckets []pipeline.Bucket
	got     *pipeline.Pipeline
}

func (s *aggregatingStore) Aggregate(_ context.Context, p pipeline.Pipeline) ([]pipeline.Bucket, error) {
	s.got = &p
	return s.buckets, nil
}

func TestFinder_PushesDeclarativeKeysToAggregator(t *testing.T) {
	part := pipeline.KeyPart{Name: "order_number", Value: order.String("1")}
	s := &aggregatingStore{
		MemStore: testutil.NewMemStore(),
		buckets: []pipeline.Bucket{{
			Key:     []pipeline.KeyPart{part},
			Members: []pipeline.Member{{ID: "x"}, {ID: "y"}},
		}},
	}

	groups, err := NewFinder(s, nil).Find(context.Background(), Normalized, nil)

	require.NoError(t, err)
	require.NotNil(t, s.got)
	_, keys, minCount, err := s.got.Parts()
	require.NoError(t, err)
	assert.Equal(t, Normalized.KeyFields(), keys)
	assert.Equal(t, 2, minCount)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"x", "y"}, memberIDs(groups[0]))
}

func TestFinder_NonDeclarativeKeyGroupsInMemory(t *testing.T) {
	s := &aggregatingStore{MemStore: testutil.NewMemStore(newOrder(1, "SS", nil), newOrder(2, "JF", nil))}

	groups, err := NewFinder(s, nil).Find(context.Background(), partnerOnly{}, nil)

	require.NoError(t, err)
	assert.Nil(t, s.got, "aggregate must not be called")
	require.Len(t, groups, 1)
}

func memberIDs(g Group) []string {
	ids := make([]string, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.ID
	}
	return ids
}
