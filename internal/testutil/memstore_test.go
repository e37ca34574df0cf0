package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/orderdedup/internal/order"
	"github.com/roach88/orderdedup/internal/pipeline"
)

func seed() []order.Order {
	return []order.Order{
		{ID: "100_SS", OrderNumber: order.Int(100), BranchCode: order.String("SS")},
		{ID: "101_SZM", OrderNumber: order.Int(101), BranchCode: order.String("SZM")},
		{ID: "102_JF", OrderNumber: order.Int(102), BranchCode: order.String("JF")},
	}
}

func TestMemStore_FindKeepsStoreOrder(t *testing.T) {
	s := NewMemStore(seed()...)
	ctx := context.Background()

	got, err := s.Find(ctx, pipeline.In{Field: pipeline.FieldBranchCode, Values: []string{"JF", "SS"}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "100_SS", got[0].ID)
	assert.Equal(t, "102_JF", got[1].ID)
}

func TestMemStore_ReadsReturnCopies(t *testing.T) {
	s := NewMemStore(seed()...)

	got, err := s.ListAll(context.Background())
	require.NoError(t, err)
	*got[0].BranchCode = "XX"

	rec, ok := s.Get("100_SS")
	require.True(t, ok)
	assert.Equal(t, "SS", *rec.BranchCode)
}

func TestMemStore_ReplaceUpsertKeepsPosition(t *testing.T) {
	s := NewMemStore(seed()...)
	ctx := context.Background()

	existed, err := s.ReplaceUpsert(ctx, "100_SS", order.Order{ID: "ignored", Partner: order.String("P")})
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, []string{"100_SS", "101_SZM", "102_JF"}, s.IDs())

	rec, _ := s.Get("100_SS")
	assert.Nil(t, rec.BranchCode, "replacement is full, not a merge")
	assert.Equal(t, "P", *rec.Partner)

	existed, err = s.ReplaceUpsert(ctx, "200_JF", order.Order{})
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Equal(t, "200_JF", s.IDs()[3])
}

func TestMemStore_InsertManySkipsExisting(t *testing.T) {
	s := NewMemStore(seed()...)

	n, err := s.InsertMany(context.Background(), []order.Order{{ID: "100_SS"}, {ID: "103_JF"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, s.IDs(), 4)
}

func TestMemStore_DeleteManyCountsOnlyPresent(t *testing.T) {
	s := NewMemStore(seed()...)

	n, err := s.DeleteMany(context.Background(), []string{"100_SS", "missing", "102_JF"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, []string{"101_SZM"}, s.IDs())
}

func TestMemStore_HookFailsWriteAndCounts(t *testing.T) {
	s := NewMemStore(seed()...)
	boom := errors.New("boom")
	s.Hook = func(op, id string) error {
		if op == "delete_one" && id == "101_SZM" {
			return boom
		}
		return nil
	}
	ctx := context.Background()

	_, err := s.DeleteOne(ctx, "101_SZM")
	assert.ErrorIs(t, err, boom)
	found, err := s.DeleteOne(ctx, "100_SS")
	require.NoError(t, err)
	assert.True(t, found)

	assert.Equal(t, 2, s.Writes("delete_one"))
	assert.Equal(t, 2, s.Writes(""))
	assert.Equal(t, []string{"101_SZM", "102_JF"}, s.IDs())
}

func TestMemStore_ReadErr(t *testing.T) {
	s := NewMemStore(seed()...)
	s.ReadErr = errors.New("connection refused")

	_, err := s.ListAll(context.Background())
	assert.Error(t, err)
}
