package cli

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/evolab/pupilstat/internal/record"
	"github.com/evolab/pupilstat/internal/storage"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// openTestStore creates a migrated in-memory Store for command tests.
func openTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, storage.NewMigrationRunner(db).Run())

	store, err := storage.NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// seedRecord inserts one subject record with sensible defaults.
func seedRecord(t *testing.T, store storage.Store, index string, eye record.Eye, pupilBefore, pupilAfter float64) {
	t.Helper()
	rec := record.SubjectRecord{
		Index:       index,
		Eye:         eye,
		LumBefore:   15.0,
		PupilBefore: pupilBefore,
		CountBefore: 10,
		StdBefore:   0.2,
		LumAfter:    14.0,
		PupilAfter:  pupilAfter,
		CountAfter:  10,
		StdAfter:    0.2,
	}
	require.NoError(t, store.UpsertRecord(context.Background(), rec, storage.ProtocolSingle))
}

// writeMapping writes a calibration mapping file for a subject: a header
// line plus one row per luminance.
func writeMapping(t *testing.T, dir, index string, lums []float64) {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("luminance avgLeft countLeft stdLeft avgRight countRight stdRight\n")
	for _, lum := range lums {
		fmt.Fprintf(&buf, "%.1f %.3f %d %.3f %.3f %d %.3f\n",
			lum, 4.0+lum/100, 12, 0.25, 5.0+lum/100, 12, 0.25)
	}
	path := filepath.Join(dir, index+"_luminance_mapping.txt")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}
