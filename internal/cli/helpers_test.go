package cli

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/orderdedup/internal/dedup"
	"github.com/roach88/orderdedup/internal/order"
	"github.com/roach88/orderdedup/internal/store"
)

var (
	t1 = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	t2 = time.Date(2024, 3, 3, 8, 0, 0, 0, time.UTC)
)

func seedOrder(number int64, branch, partner string, loaded time.Time) order.Order {
	return order.Order{
		ID:          order.PrimaryKey(number, branch),
		OrderNumber: order.Int(number),
		BranchCode:  order.String(branch),
		Partner:     order.String(partner),
		IssuedAt:    order.Time(time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)),
		Total:       order.Money("100"),
		LoadedAt:    order.Time(loaded),
	}
}

// seedDB creates a SQLite database holding records and returns its path.
func seedDB(t *testing.T, records ...order.Order) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orders.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	_, err = st.InsertMany(t.Context(), records)
	require.NoError(t, err)
	require.NoError(t, st.Close())
	return path
}

func readDB(t *testing.T, path string) []order.Order {
	t.Helper()
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()
	records, err := st.ListAll(t.Context())
	require.NoError(t, err)
	return records
}

func recordIDs(records []order.Order) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}

func testRootOptions(dsn string) *RootOptions {
	return &RootOptions{
		Format: "text",
		DSN:    dsn,
		RunID:  dedup.RunIDs("run-1"),
		Now:    func() time.Time { return time.Unix(1740816000, 0) },
	}
}

// execute runs cmd with args, returning stdout, stderr and the error.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	cmd.SetContext(t.Context())
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
