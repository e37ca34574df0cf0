package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/orderdedup/internal/order"
)

func purgeFixture(t *testing.T) string {
	return seedDB(t,
		seedOrder(10, "SS", "ACME", t1),
		seedOrder(10, "ss", "ACME", t2),
		seedOrder(11, "SS", "Beta", t1),
	)
}

func TestPurge_SimulateText(t *testing.T) {
	path := purgeFixture(t)
	before := readDB(t, path)

	out, _, err := execute(t, NewPurgeCommand(testRootOptions(path)), "--key", "normalized")
	require.NoError(t, err)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "purge_simulate", []byte(out))

	assert.Equal(t, order.MustFingerprint(before), order.MustFingerprint(readDB(t, path)))
}

func TestPurge_ApplyDeletesRedundant(t *testing.T) {
	path := purgeFixture(t)

	out, _, err := execute(t, NewPurgeCommand(testRootOptions(path)), "--key", "normalized", "--apply")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted:          1")

	assert.Equal(t, []string{"10_ss", "11_SS"}, recordIDs(readDB(t, path)))
}

func TestPurge_StrictIgnoresBranchCase(t *testing.T) {
	path := purgeFixture(t)

	_, _, err := execute(t, NewPurgeCommand(testRootOptions(path)), "--key", "strict", "--apply")
	require.NoError(t, err)

	// strict keys on number, partner, issue date and total; branch is not part of it
	assert.Equal(t, []string{"10_ss", "11_SS"}, recordIDs(readDB(t, path)))
}

func TestPurge_BranchFilter(t *testing.T) {
	path := purgeFixture(t)

	out, _, err := execute(t, NewPurgeCommand(testRootOptions(path)), "--key", "normalized", "--branch", "SS", "--apply")
	require.NoError(t, err)
	assert.Contains(t, out, "groups found:     0")
	assert.Len(t, readDB(t, path), 3)
}

func TestPurge_JSONReport(t *testing.T) {
	path := purgeFixture(t)
	opts := testRootOptions(path)
	opts.Format = "json"

	out, _, err := execute(t, NewPurgeCommand(opts), "--key", "normalized", "--apply")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			RunID        string `json:"run_id"`
			Mode         string `json:"mode"`
			GroupsFound  int    `json:"groups_found"`
			DeletedCount int    `json:"deleted_count"`
			Groups       []struct {
				Keep   struct{ ID string }   `json:"keep"`
				Remove []struct{ ID string } `json:"remove"`
			} `json:"groups"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-1", resp.Data.RunID)
	assert.Equal(t, "apply", resp.Data.Mode)
	assert.Equal(t, 1, resp.Data.DeletedCount)
	require.Len(t, resp.Data.Groups, 1)
	assert.Equal(t, "10_ss", resp.Data.Groups[0].Keep.ID)
	assert.Equal(t, "10_SS", resp.Data.Groups[0].Remove[0].ID)
}

func TestPurge_WritesMetrics(t *testing.T) {
	path := purgeFixture(t)
	opts := testRootOptions(path)
	opts.MetricsFile = filepath.Join(t.TempDir(), "orderdedup.prom")

	_, _, err := execute(t, NewPurgeCommand(opts), "--key", "normalized", "--apply")
	require.NoError(t, err)

	data, err := os.ReadFile(opts.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "orderdedup_records_deleted_total 1")
	assert.Contains(t, string(data), "orderdedup_groups_found_total 1")
}

func TestPurge_UnknownKey(t *testing.T) {
	path := purgeFixture(t)

	_, _, err := execute(t, NewPurgeCommand(testRootOptions(path)), "--key", "fuzzy")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "unknown key function")
}

func TestPurge_StoreUnavailable(t *testing.T) {
	_, _, err := execute(t, NewPurgeCommand(testRootOptions("/nonexistent/dir/orders.db")), "--key", "strict")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "store unavailable")
}

func TestPurge_ConfigFile(t *testing.T) {
	path := purgeFixture(t)
	cfgPath := filepath.Join(t.TempDir(), "orderdedup.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("mode: apply\nkey: normalized\nstore:\n  driver: sqlite\n  dsn: "+path+"\n"), 0o644))

	opts := testRootOptions("")
	opts.ConfigPath = cfgPath
	_, _, err := execute(t, NewPurgeCommand(opts))
	require.NoError(t, err)

	assert.Len(t, readDB(t, path), 2)
}

func TestPurge_ConfigModeApplyWithoutFlag(t *testing.T) {
	path := purgeFixture(t)
	cfgPath := filepath.Join(t.TempDir(), "orderdedup.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("mode: apply\nkey: normalized\n"), 0o644))
	opts := testRootOptions(path)
	opts.ConfigPath = cfgPath

	out, _, err := execute(t, NewPurgeCommand(opts))
	require.NoError(t, err)
	assert.Contains(t, out, "purge apply")
	assert.Equal(t, []string{"10_ss", "11_SS"}, recordIDs(readDB(t, path)))
}
