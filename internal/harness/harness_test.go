package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/orderdedup/internal/order"
)

func TestRun_AllScenariosPass(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios", "")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		t.Run(path, func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(t.Context(), s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_ReportsFailedAssertions(t *testing.T) {
	s := &Scenario{
		Name: "wrong_expectations",
		Records: []Record{
			{Number: order.Int(1), Branch: "SS", LoadedAt: "2024-03-01T08:00:00Z"},
			{Number: order.Int(1), Branch: "ss", LoadedAt: "2024-03-02T08:00:00Z"},
		},
		Steps: []Step{{Op: OpPurge, Mode: "apply", Key: "normalized"}},
		Assertions: []Assertion{
			{Type: AssertFinalIDs, IDs: []string{"1_SS"}},
			{Type: AssertUnchanged},
			{Type: AssertReport, Step: 1, Expect: map[string]any{"deleted_count": 2}},
			{Type: AssertAbsent, ID: "1_ss"},
		},
	}

	result, err := Run(t.Context(), s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "[1_SS]")
	assert.Contains(t, result.Errors[0], "[1_ss]")
}

func TestRun_FatalStepError(t *testing.T) {
	s := &Scenario{
		Name:    "unknown_key",
		Records: []Record{{Number: order.Int(1), Branch: "SS"}},
		Steps:   []Step{{Op: OpPurge, Key: "fuzzy"}},
	}

	_, err := Run(t.Context(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 1 (purge)")
}

func TestRun_IsolatedStores(t *testing.T) {
	s := &Scenario{
		Name:    "isolation",
		Records: []Record{{Number: order.Int(1), Branch: "SS"}},
		Steps:   []Step{{Op: OpPurge, Key: "strict"}},
	}

	first, err := Run(t.Context(), s)
	require.NoError(t, err)
	second, err := Run(t.Context(), s)
	require.NoError(t, err)

	assert.Len(t, second.Final, 1)
	assert.Equal(t, first.FingerprintAfter, second.FingerprintAfter)
}

func TestRun_MemoryAndSQLiteAgree(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/strict_purge.yaml")
	require.NoError(t, err)

	onSQLite, err := Run(t.Context(), s)
	require.NoError(t, err)

	s.Store = StoreMemory
	inMemory, err := Run(t.Context(), s)
	require.NoError(t, err)

	assert.Equal(t, onSQLite.FingerprintAfter, inMemory.FingerprintAfter)
	assert.Equal(t, Snapshot(s.Name, onSQLite), Snapshot(s.Name, inMemory))
}
