package cli

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evolab/pupilstat/internal/config"
	"github.com/evolab/pupilstat/internal/record"
	"github.com/evolab/pupilstat/internal/storage"
)

func TestStatusCommand_Empty(t *testing.T) {
	store := openTestStore(t)

	cmd := &StatusCommand{globals: &GlobalFlags{}, version: "1.0.0"}
	out := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(config.DefaultConfig(), store))
	})

	assert.Contains(t, out, "Pupilstat Status")
	assert.Contains(t, out, "Version:   1.0.0")
	assert.Contains(t, out, "Records:   0 (0 left, 0 right)")
	assert.NotContains(t, out, "Last run:")
}

func TestStatusCommand_WithDataAndRun(t *testing.T) {
	store := openTestStore(t)
	seedRecord(t, store, "00001", record.Left, 4.0, 3.6)
	seedRecord(t, store, "00001", record.Right, 5.0, 4.4)
	seedRecord(t, store, "00002", record.Left, 4.2, 3.8)

	run := &storage.Run{
		Protocol:   storage.ProtocolSingle,
		StartedAt:  time.Now().Add(-time.Minute),
		FinishedAt: time.Now(),
		Tally: storage.Tally{
			TotalFiles: 3, ValidLeft: 2, ValidRight: 1, EventMissing: 1,
		},
		Issues: []storage.SubjectIssue{{Index: "00003", Cause: "event marker missing"}},
	}
	require.NoError(t, store.RecordRun(context.Background(), run))

	cmd := &StatusCommand{globals: &GlobalFlags{}, version: "test"}
	out := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(config.DefaultConfig(), store))
	})

	assert.Contains(t, out, "Records:   3 (2 left, 1 right)")
	assert.Contains(t, out, "Subjects:  2")
	assert.Contains(t, out, "Runs:      1")
	assert.Contains(t, out, "single protocol")
	assert.Contains(t, out, "Skipped subjects:    1")
}

func TestStatusCommand_JSON(t *testing.T) {
	store := openTestStore(t)
	seedRecord(t, store, "00001", record.Left, 4.0, 3.6)

	run := &storage.Run{
		Protocol:   storage.ProtocolDual,
		StartedAt:  time.Now().Add(-time.Minute),
		FinishedAt: time.Now(),
		Tally:      storage.Tally{TotalFiles: 1, ValidLeft: 1, ValidRight: 1},
	}
	require.NoError(t, store.RecordRun(context.Background(), run))

	cmd := &StatusCommand{globals: &GlobalFlags{JSON: true}, version: "2.0.0"}
	out := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(config.DefaultConfig(), store))
	})

	var report statusJSON
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "2.0.0", report.Version)
	assert.Equal(t, int64(1), report.TotalRecords)
	assert.Equal(t, int64(1), report.Subjects)
	require.NotNil(t, report.LastRun)
	assert.Equal(t, "dual", report.LastRun.Protocol)
	assert.NotEmpty(t, report.LastRunAt)
}
