package main

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jonathan/hr-portal/internal/backend/backendtest"
	"github.com/jonathan/hr-portal/internal/hiring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func seedApplications(fake *backendtest.Fake) {
	fake.Seed("applications",
		map[string]any{"id": 1, "status": "hired", "job_id": 42},
		map[string]any{"id": 2, "status": "applied", "job_id": 42},
		map[string]any{"id": 3, "status": "hired", "job_id": nil, "payload": map[string]any{"meta": map[string]any{"job_id": "42"}}},
		map[string]any{"id": 4, "status": "rejected", "job_id": nil, "payload": map[string]any{"jobId": 42}},
		map[string]any{"id": 5, "status": "hired", "job_id": nil, "payload": map[string]any{"job_id": "43"}},
		map[string]any{"id": 6, "status": "hired", "job_id": 43},
	)
}

func setHireCountFlags(t *testing.T, flags reportFlags) {
	t.Helper()
	previous := hireCountFlags
	hireCountFlags = flags
	t.Cleanup(func() { hireCountFlags = previous })
}

func TestHireCount_JSON(t *testing.T) {
	fake := backendtest.New(t)
	useFake(t, fake)
	seedApplications(fake)
	setHireCountFlags(t, reportFlags{format: formatJSON})

	out, err := execute(runHireCount, "42")
	require.NoError(t, err)

	var report hiring.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	want := hiring.Report{
		JobID:          "42",
		Hired:          2,
		HiredBreakdown: hiring.Breakdown{DirectJobID: 1, PayloadFallback: 1},
		Scanned:        hiring.Scanned{DirectRows: 2, LegacyRows: 3, LegacyMatchingJob: 2},
	}
	if diff := cmp.Diff(want, report); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}

	for _, r := range fake.Requests() {
		assert.Equal(t, backendtest.ServiceKey, r.APIKey)
		assert.Contains(t, r.Query, "limit=10000")
	}
}

func TestHireCount_TextAndWorkbook(t *testing.T) {
	fake := backendtest.New(t)
	useFake(t, fake)
	seedApplications(fake)
	xlsxPath := filepath.Join(t.TempDir(), "reports", "hires.xlsx")
	setHireCountFlags(t, reportFlags{format: formatText, xlsxPath: xlsxPath})

	out, err := execute(runHireCount, "42")
	require.NoError(t, err)
	assert.Contains(t, out, "HIRE COUNT")
	assert.Contains(t, out, "Hired:    2")

	f, err := excelize.OpenFile(xlsxPath)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.Equal(t, []string{"Summary", "Hired by source", "Rows scanned"}, f.GetSheetList())
}

func TestHireCount_Usage(t *testing.T) {
	out, err := execute(runHireCount)
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, out, "Usage:")
}

func TestHireCount_UnknownFormat(t *testing.T) {
	setHireCountFlags(t, reportFlags{format: "csv"})
	_, err := execute(runHireCount, "42")
	assert.ErrorContains(t, err, `unknown --format "csv"`)
}

func TestHireCount_BackendFailure(t *testing.T) {
	fake := backendtest.New(t)
	useFake(t, fake)
	fake.Fail("/rest/v1/applications", 500, "db down")
	setHireCountFlags(t, reportFlags{format: formatJSON})

	out, err := execute(runHireCount, "42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.Empty(t, out)
}
