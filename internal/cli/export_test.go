package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evolab/pupilstat/internal/record"
)

func TestExportCommand_WritesFlatFiles(t *testing.T) {
	store := openTestStore(t)
	seedRecord(t, store, "00001", record.Left, 4.0, 3.6)
	seedRecord(t, store, "00002", record.Left, 4.2, 3.8)
	seedRecord(t, store, "00001", record.Right, 5.0, 4.4)

	outDir := t.TempDir()
	cmd := &ExportCommand{Out: outDir, globals: &GlobalFlags{}, version: "test"}
	out := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(store))
	})

	assert.Contains(t, out, "Wrote 2 left records")
	assert.Contains(t, out, "Wrote 1 right records")

	lefts, err := record.ReadFile(filepath.Join(outDir, "leftpupil.txt"), record.Left)
	require.NoError(t, err)
	require.Len(t, lefts, 2)
	assert.Equal(t, "00001", lefts[0].Index)
	assert.InDelta(t, 3.6, lefts[0].PupilAfter, 1e-9)

	raw, err := os.ReadFile(filepath.Join(outDir, "leftpupil.txt"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "00001 15.000 4.000 10 0.200 14.000 3.600 10 0.200", lines[0])
}

func TestExportCommand_EmptyStore(t *testing.T) {
	store := openTestStore(t)

	outDir := t.TempDir()
	cmd := &ExportCommand{Out: outDir, globals: &GlobalFlags{JSON: true}, version: "test"}
	out := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(store))
	})

	var report exportJSON
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 0, report.LeftCount)
	assert.Equal(t, 0, report.RightCount)

	// Empty files still appear so downstream tooling has a stable contract.
	_, err := os.Stat(filepath.Join(outDir, "rightpupil.txt"))
	require.NoError(t, err)
}

func TestExportCommand_CreatesOutputDirectory(t *testing.T) {
	store := openTestStore(t)
	seedRecord(t, store, "00001", record.Left, 4.0, 3.6)

	outDir := filepath.Join(t.TempDir(), "nested", "out")
	cmd := &ExportCommand{Out: outDir, globals: &GlobalFlags{}, version: "test"}
	captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(store))
	})

	_, err := os.Stat(filepath.Join(outDir, "leftpupil.txt"))
	require.NoError(t, err)
}
