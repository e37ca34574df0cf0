package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var branchKey = KeyField{Name: "branch", Field: FieldBranchCode, Transform: TransformFold}

func TestValidate_StandardPipeline(t *testing.T) {
	p := DuplicateGroups(In{Field: FieldBranchCode, Values: []string{"SS"}}, branchKey)
	require.NoError(t, p.Validate())

	filter, keys, min, err := p.Parts()
	require.NoError(t, err)
	assert.Equal(t, In{Field: FieldBranchCode, Values: []string{"SS"}}, filter)
	assert.Equal(t, []KeyField{branchKey}, keys)
	assert.Equal(t, 2, min)
}

func TestValidate_NilFilterOmitsMatch(t *testing.T) {
	p := DuplicateGroups(nil, branchKey)
	require.Len(t, p.Stages, 2)

	filter, _, _, err := p.Parts()
	require.NoError(t, err)
	assert.Nil(t, filter)
}

func TestValidate_GroupOnlyDefaultsMinCountToOne(t *testing.T) {
	p := Pipeline{Stages: []Stage{Group{Keys: []KeyField{branchKey}}}}
	_, _, min, err := p.Parts()
	require.NoError(t, err)
	assert.Equal(t, 1, min)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		pipeline Pipeline
		contains string
	}{
		{"empty", Pipeline{}, "empty pipeline"},
		{"no group", Pipeline{Stages: []Stage{Match{}}}, "missing group"},
		{"match not first", Pipeline{Stages: []Stage{Group{Keys: []KeyField{branchKey}}, Match{}}}, "first stage"},
		{"two groups", Pipeline{Stages: []Stage{Group{Keys: []KeyField{branchKey}}, Group{Keys: []KeyField{branchKey}}}}, "only one group"},
		{"min count before group", Pipeline{Stages: []Stage{MinCount{N: 2}, Group{Keys: []KeyField{branchKey}}}}, "min count"},
		{"zero min count", Pipeline{Stages: []Stage{Group{Keys: []KeyField{branchKey}}, MinCount{N: 0}}}, ">= 1"},
		{"no keys", Pipeline{Stages: []Stage{Group{}}}, "at least one key"},
		{"unknown field", Pipeline{Stages: []Stage{Group{Keys: []KeyField{{Name: "x", Field: "color"}}}}}, "unknown field"},
		{"unnamed key", Pipeline{Stages: []Stage{Group{Keys: []KeyField{{Field: FieldPartner}}}}}, "no name"},
		{"duplicate key name", Pipeline{Stages: []Stage{Group{Keys: []KeyField{
			{Name: "k", Field: FieldPartner}, {Name: "k", Field: FieldTotal},
		}}}}, "duplicate key name"},
		{"unknown transform", Pipeline{Stages: []Stage{Group{Keys: []KeyField{{Name: "k", Field: FieldPartner, Transform: "upper"}}}}}, "unknown transform"},
		{"pointer predicate", Pipeline{Stages: []Stage{Match{Predicate: &Equals{Field: FieldID}}, Group{Keys: []KeyField{branchKey}}}}, "unsupported predicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pipeline.Validate()
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestValidatePredicate_Nested(t *testing.T) {
	ok := And{Predicates: []Predicate{
		Equals{Field: FieldPartner, Value: "ACME"},
		In{Field: FieldBranchCode, Values: []string{"SS", "SZM"}},
	}}
	assert.NoError(t, ValidatePredicate(ok))

	bad := And{Predicates: []Predicate{Equals{Field: "nope"}}}
	err := ValidatePredicate(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "and[0]")
}
