package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/orderdedup/internal/order"
)

func sample() order.Order {
	return order.Order{
		ID:          "100_SS",
		OrderNumber: order.Int(100),
		BranchCode:  order.String("SS"),
		Partner:     order.String("ACME"),
		IssuedAt:    order.Time(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)),
		Total:       order.Money("250.00"),
	}
}

func TestFieldValue_CanonicalRendering(t *testing.T) {
	o := sample()

	assert.Equal(t, "100_SS", *FieldID.Value(o))
	assert.Equal(t, "100", *FieldOrderNumber.Value(o))
	assert.Equal(t, "SS", *FieldBranchCode.Value(o))
	assert.Equal(t, "2025-03-01T12:00:00.000000000Z", *FieldIssuedAt.Value(o))
	assert.Equal(t, "250", *FieldTotal.Value(o))
	assert.Nil(t, FieldBranchName.Value(o))
	assert.Nil(t, FieldLoadedAt.Value(o))
	assert.Nil(t, Field("bogus").Value(o))
}

func TestFieldValue_EmptyStringIsNotNull(t *testing.T) {
	o := order.Order{ID: "x", Partner: order.String("")}
	v := FieldPartner.Value(o)
	require.NotNil(t, v)
	assert.Equal(t, "", *v)
}

func TestKeyFieldApply_Fold(t *testing.T) {
	k := KeyField{Name: "branch", Field: FieldBranchCode, Transform: TransformFold}

	o := sample()
	o.BranchCode = order.String("SzM")
	assert.Equal(t, "szm", *k.Apply(o))

	o.BranchCode = nil
	assert.Nil(t, k.Apply(o), "null stays null under fold")
}

func TestFold_Unicode(t *testing.T) {
	assert.Equal(t, "são joão", Fold("SÃO JOÃO"))
	assert.Equal(t, "rj", Fold("RJ"))
}

func TestMatches(t *testing.T) {
	o := sample()

	assert.True(t, Matches(nil, o))
	assert.True(t, Matches(Equals{Field: FieldPartner, Value: "ACME"}, o))
	assert.False(t, Matches(Equals{Field: FieldPartner, Value: "acme"}, o), "case-sensitive")
	assert.True(t, Matches(In{Field: FieldBranchCode, Values: []string{"SZM", "SS"}}, o))
	assert.False(t, Matches(In{Field: FieldBranchName, Values: []string{""}}, o), "null never matches")
	assert.True(t, Matches(And{}, o))
	assert.False(t, Matches(And{Predicates: []Predicate{
		Equals{Field: FieldPartner, Value: "ACME"},
		Equals{Field: FieldOrderNumber, Value: "101"},
	}}, o))
}

func TestFilter_PreservesOrder(t *testing.T) {
	a, b, c := sample(), sample(), sample()
	a.ID, b.ID, c.ID = "a", "b", "c"
	b.BranchCode = order.String("RJ")

	got := Filter(In{Field: FieldBranchCode, Values: []string{"SS"}}, []order.Order{a, b, c})
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
}

func TestString(t *testing.T) {
	assert.Equal(t, "true", String(nil))
	assert.Equal(t, `branch_code in ["SS" "SZM"]`, String(In{Field: FieldBranchCode, Values: []string{"SS", "SZM"}}))
	assert.Equal(t, `partner = "A" and id = "1"`, String(And{Predicates: []Predicate{
		Equals{Field: FieldPartner, Value: "A"},
		Equals{Field: FieldID, Value: "1"},
	}}))
}
