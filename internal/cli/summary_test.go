package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evolab/pupilstat/internal/record"
	"github.com/evolab/pupilstat/internal/stats"
)

func TestSummaryCommand_Human(t *testing.T) {
	store := openTestStore(t)
	seedRecord(t, store, "00001", record.Left, 4.0, 3.6)
	seedRecord(t, store, "00001", record.Right, 5.0, 4.4)
	seedRecord(t, store, "00002", record.Left, 4.2, 3.8)

	cmd := &SummaryCommand{globals: &GlobalFlags{}, version: "test"}
	out := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(store))
	})

	assert.Contains(t, out, "Records:  3 (2 left, 1 right)")
	assert.Contains(t, out, "Subjects: 2")
	assert.Contains(t, out, "All records:")
	assert.Contains(t, out, "Per-subject average:")
	assert.Contains(t, out, "pupil before")
	assert.Contains(t, out, "after - before")
}

func TestSummaryCommand_JSONViews(t *testing.T) {
	store := openTestStore(t)
	seedRecord(t, store, "00001", record.Left, 4.0, 3.6)
	seedRecord(t, store, "00001", record.Right, 5.0, 4.4)
	seedRecord(t, store, "00002", record.Left, 4.2, 3.8)

	cmd := &SummaryCommand{globals: &GlobalFlags{JSON: true}, version: "test"}
	out := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(store))
	})

	var report summaryJSON
	require.NoError(t, json.Unmarshal([]byte(out), &report))

	assert.Equal(t, 3, report.Records)
	assert.Equal(t, 2, report.Subjects)

	// All-record view: every eye record is a data point.
	assert.Equal(t, 3, report.AllRecords.Before.N)
	assert.InDelta(t, (4.0+5.0+4.2)/3, report.AllRecords.Before.Mean, 1e-9)

	// Per-subject view: 00001 contributes (4.0+5.0)/2, 00002 contributes 4.2.
	assert.Equal(t, 2, report.PerSubject.Before.N)
	assert.InDelta(t, (4.5+4.2)/2, report.PerSubject.Before.Mean, 1e-9)

	// Diff is after-before per point.
	assert.InDelta(t, -0.4666666, report.AllRecords.Diff.Mean, 1e-4)
}

func TestSummaryCommand_EyeFilter(t *testing.T) {
	store := openTestStore(t)
	seedRecord(t, store, "00001", record.Left, 4.0, 3.6)
	seedRecord(t, store, "00001", record.Right, 5.0, 4.4)

	cmd := &SummaryCommand{Eye: "left", globals: &GlobalFlags{JSON: true}, version: "test"}
	out := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(store))
	})

	var report summaryJSON
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.Records)
	assert.Equal(t, 1, report.Left)
	assert.Equal(t, 0, report.Right)
	assert.InDelta(t, 4.0, report.AllRecords.Before.Mean, 1e-9)
}

func TestSummaryCommand_Empty(t *testing.T) {
	store := openTestStore(t)

	cmd := &SummaryCommand{globals: &GlobalFlags{JSON: true}, version: "test"}
	out := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(store))
	})

	var report summaryJSON
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 0, report.Records)
	assert.Equal(t, stats.Sentinel, report.AllRecords.Before.Mean)
}

func TestSummaryCommand_FromFile(t *testing.T) {
	dir := t.TempDir()
	recs := []record.SubjectRecord{
		{Index: "00001", LumBefore: 15, PupilBefore: 4.0, CountBefore: 10, StdBefore: 0.2,
			LumAfter: 14, PupilAfter: 3.6, CountAfter: 10, StdAfter: 0.2},
		{Index: "00002", LumBefore: 15, PupilBefore: 4.2, CountBefore: 10, StdBefore: 0.2,
			LumAfter: 14, PupilAfter: 3.8, CountAfter: 10, StdAfter: 0.2},
	}
	path := filepath.Join(dir, "leftpupil.txt")
	require.NoError(t, record.WriteFile(path, recs))

	// The database stays untouched; the file is the source.
	store := openTestStore(t)
	cmd := &SummaryCommand{FromFile: []string{path},
		globals: &GlobalFlags{JSON: true}, version: "test"}
	out := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(store))
	})

	var report summaryJSON
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 2, report.Records)
	assert.Equal(t, 2, report.Left)
	assert.InDelta(t, 4.1, report.AllRecords.Before.Mean, 1e-9)
}

func TestSummaryCommand_RejectsBadEyeFlag(t *testing.T) {
	store := openTestStore(t)
	cmd := &SummaryCommand{Eye: "middle", globals: &GlobalFlags{}, version: "test"}
	err := cmd.executeWithStore(store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--eye")
}

func TestSummaryCommand_FromFileUnknownEye(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pupils.txt")
	require.NoError(t, record.WriteFile(path, nil))

	store := openTestStore(t)
	cmd := &SummaryCommand{FromFile: []string{path}, globals: &GlobalFlags{}, version: "test"}
	err := cmd.executeWithStore(store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "infer eye")
}

func TestSummaryCommand_SentinelExcluded(t *testing.T) {
	store := openTestStore(t)
	seedRecord(t, store, "00001", record.Left, 4.0, 3.6)
	// Invalid before window: sentinel must not pollute the aggregates.
	seedRecord(t, store, "00002", record.Left, stats.Sentinel, 3.8)

	cmd := &SummaryCommand{globals: &GlobalFlags{JSON: true}, version: "test"}
	out := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(store))
	})

	var report summaryJSON
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.AllRecords.Before.N)
	assert.InDelta(t, 4.0, report.AllRecords.Before.Mean, 1e-9)
	assert.Equal(t, 2, report.AllRecords.After.N)
	// The diff only exists where both sides are real.
	assert.Equal(t, 1, report.AllRecords.Diff.N)
}
