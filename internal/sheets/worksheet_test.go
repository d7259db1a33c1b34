package sheets_test

import (
	"context"
	"testing"

	"order_sync/internal/sheets"
	"order_sync/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnLetter(t *testing.T) {
	cases := map[int]string{0: "A", 12: "M", 25: "Z", 26: "AA", 27: "AB", 51: "AZ", 52: "BA", 701: "ZZ", 702: "AAA"}
	for col, want := range cases {
		assert.Equal(t, want, sheets.ColumnLetter(col), "col %d", col)
	}
	assert.Equal(t, "M14", sheets.CellRef(14, 12))
}

func TestHeaderMatches(t *testing.T) {
	want := []string{"DATE", "", "SOURCE"}
	assert.True(t, sheets.HeaderMatches([]interface{}{"DATE", "", " SOURCE "}, want))
	assert.False(t, sheets.HeaderMatches([]interface{}{"DATE", "", "source"}, want))
	assert.False(t, sheets.HeaderMatches([]interface{}{"DATE"}, want))
}

func TestEnsureHeaderWritesWhenEmpty(t *testing.T) {
	ctx := context.Background()
	sheet := testutil.NewFakeSheet("master")

	wrote, err := sheets.EnsureHeader(ctx, sheet, []string{"A", "B"}, false)
	require.NoError(t, err)
	assert.True(t, wrote)
	assert.Equal(t, [][]string{{"A", "B"}}, sheet.Rows())

	wrote, err = sheets.EnsureHeader(ctx, sheet, []string{"A", "B"}, false)
	require.NoError(t, err)
	assert.False(t, wrote)
	assert.Equal(t, 1, sheet.Writes)
}

func TestEnsureHeaderOverwrite(t *testing.T) {
	ctx := context.Background()
	sheet := testutil.NewFakeSheet("agent", []string{"old"}, []string{"data"})

	wrote, err := sheets.EnsureHeader(ctx, sheet, []string{"A", "B"}, false)
	require.NoError(t, err)
	assert.False(t, wrote, "existing header kept without overwrite")

	wrote, err = sheets.EnsureHeader(ctx, sheet, []string{"A", "B"}, true)
	require.NoError(t, err)
	assert.True(t, wrote)
	assert.Equal(t, [][]string{{"A", "B"}, {"data"}}, sheet.Rows())
}

func TestEnsureHeaderReadFailure(t *testing.T) {
	sheet := testutil.NewFakeSheet("broken")
	sheet.FailReads = true

	_, err := sheets.EnsureHeader(context.Background(), sheet, []string{"A"}, true)
	assert.ErrorIs(t, err, testutil.ErrInjected)
}
