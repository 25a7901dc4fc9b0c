package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evolab/pupilstat/internal/record"
)

func TestPurgeCommand_RequiresAllFlag(t *testing.T) {
	cmd := &PurgeCommand{globals: &GlobalFlags{}, version: "test"}
	err := cmd.Execute(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--all")
}

func TestPurgeCommand_DeletesEverything(t *testing.T) {
	store := openTestStore(t)
	seedRecord(t, store, "00001", record.Left, 4.0, 3.6)
	seedRecord(t, store, "00002", record.Right, 5.0, 4.4)

	cmd := &PurgeCommand{All: true, Force: true, globals: &GlobalFlags{}, version: "test"}
	out := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(store))
	})
	assert.Contains(t, out, "Purged all data")

	stats, err := store.GetStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalRecords)
	assert.Zero(t, stats.TotalRuns)
}
