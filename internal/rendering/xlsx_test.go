package rendering

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteXLSX(t *testing.T) {
	report := &Report{
		Title:       "Certificate Audit",
		GeneratedAt: time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC),
		Summary:     []Field{{Label: "Total", Value: "2"}},
		Tables: []Table{
			{Title: "Certificates", Columns: []string{"ID", "Employee"}, Rows: [][]string{{"1", "Ana"}, {"2", "Ben"}}},
			{Title: "Distinct names: exact/raw", Columns: []string{"Name"}, Rows: [][]string{{"Ana"}}},
			{Title: "certificates", Columns: []string{"X"}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, DefaultTheme(), report))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"Summary", "Certificates", "Distinct names- exact-raw", "certificates (2)"}, f.GetSheetList())

	summary, err := f.GetRows("Summary")
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff([][]string{
		{"Title", "Certificate Audit"},
		{"Generated", "2024-01-02 03:04 UTC"},
		{"Total", "2"},
	}, summary))

	rows, err := f.GetRows("Certificates")
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff([][]string{{"ID", "Employee"}, {"1", "Ana"}, {"2", "Ben"}}, rows))

	styleID, err := f.GetCellStyle("Certificates", "B1")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)
}

func TestWriteXLSX_NilReport(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WriteXLSX(&buf, DefaultTheme(), nil))
	assert.Zero(t, buf.Len())
}

func TestUniqueSheetName(t *testing.T) {
	used := map[string]bool{"summary": true}

	assert.Equal(t, "Table 1", uniqueSheetName("  ", 1, used))
	assert.Equal(t, "Summary (2)", uniqueSheetName("Summary", 2, used))
	long := uniqueSheetName("A very long table title that overflows", 3, used)
	assert.Len(t, long, 31)
	again := uniqueSheetName("A very long table title that overflows", 4, used)
	assert.Len(t, again, 31)
	assert.NotEqual(t, long, again)
}
