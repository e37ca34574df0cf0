package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/orderdedup/internal/order"
)

func TestPeriod_Text(t *testing.T) {
	older := seedOrder(1, "SS", "ACME", t1)
	older.IssuedAt = order.Time(time.Date(2023, 11, 5, 0, 0, 0, 0, time.UTC))
	undated := seedOrder(3, "SS", "Gamma", t1)
	undated.IssuedAt = nil
	path := seedDB(t, older, seedOrder(2, "SS", "Beta", t1), undated)

	out, _, err := execute(t, NewPeriodCommand(testRootOptions(path)))
	require.NoError(t, err)
	assert.Equal(t, `records:         3
with issue date: 2
earliest:        2023-11-05
latest:          2024-02-28
  2023: 1
  2024: 1
`, out)
}

func TestPeriod_EmptyStore(t *testing.T) {
	path := seedDB(t)

	out, _, err := execute(t, NewPeriodCommand(testRootOptions(path)))
	require.NoError(t, err)
	assert.Equal(t, "records:         0\nwith issue date: 0\n", out)
}

func TestDump_Stdout(t *testing.T) {
	records := []order.Order{seedOrder(2, "SS", "Beta", t1), seedOrder(1, "SS", "ACME", t2)}
	path := seedDB(t, records...)

	out, _, err := execute(t, NewDumpCommand(testRootOptions(path)))
	require.NoError(t, err)

	want, err := order.MarshalCanonicalSet(records)
	require.NoError(t, err)
	assert.Equal(t, string(want)+"\n", out)
}

func TestDumpLoad_RoundTrip(t *testing.T) {
	records := []order.Order{seedOrder(1, "SS", "ACME", t1), seedOrder(2, "SZM", "Beta", t2)}
	records[0].Items = []order.Item{{
		ProductCode: "P-1",
		Description: "Caixa",
		Quantity:    order.Money("2").Decimal,
		UnitPrice:   order.Money("50").Decimal,
		LineTotal:   order.Money("100").Decimal,
	}}
	src := seedDB(t, records...)
	dumpPath := filepath.Join(t.TempDir(), "dump.json")

	out, _, err := execute(t, NewDumpCommand(testRootOptions(src)), "--out", dumpPath)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 2 records to "+dumpPath)
	assert.Contains(t, out, "fingerprint "+order.MustFingerprint(records))

	dst := seedDB(t, records[1])
	out, _, err = execute(t, NewLoadCommand(testRootOptions(dst)), dumpPath)
	require.NoError(t, err)
	assert.Contains(t, out, "inserted 1 of 2 records")

	assert.Equal(t, order.MustFingerprint(records), order.MustFingerprint(readDB(t, dst)))
}

func TestLoad_JSONCounts(t *testing.T) {
	records := []order.Order{seedOrder(1, "SS", "ACME", t1)}
	data, err := order.MarshalCanonicalSet(records)
	require.NoError(t, err)
	dumpPath := filepath.Join(t.TempDir(), "dump.json")
	require.NoError(t, os.WriteFile(dumpPath, data, 0o644))

	opts := testRootOptions(seedDB(t, records...))
	opts.Format = "json"
	out, _, err := execute(t, NewLoadCommand(opts), dumpPath)
	require.NoError(t, err)

	var resp struct {
		Data LoadResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 1, resp.Data.Records)
	assert.Equal(t, 0, resp.Data.Inserted)
	assert.Equal(t, 1, resp.Data.Skipped)
}

func TestLoad_InvalidDump(t *testing.T) {
	dumpPath := filepath.Join(t.TempDir(), "dump.json")
	require.NoError(t, os.WriteFile(dumpPath, []byte(`{"not":"an array"}`), 0o644))

	_, _, err := execute(t, NewLoadCommand(testRootOptions(seedDB(t))), dumpPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid dump")
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := execute(t, NewLoadCommand(testRootOptions(seedDB(t))), filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
