package storage

import "database/sql"

// migrateV001 creates the initial pupilstat schema. Every statement uses
// IF NOT EXISTS for idempotency.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		// ── Tables ──────────────────────────────────────────────

		`CREATE TABLE IF NOT EXISTS subject_records (
			idx          TEXT NOT NULL,
			eye          TEXT NOT NULL CHECK (eye IN ('left', 'right')),
			protocol     TEXT NOT NULL DEFAULT 'single',
			lum_before   REAL NOT NULL,
			pupil_before REAL NOT NULL,
			count_before INTEGER NOT NULL,
			std_before   REAL NOT NULL,
			lum_after    REAL NOT NULL,
			pupil_after  REAL NOT NULL,
			count_after  INTEGER NOT NULL,
			std_after    REAL NOT NULL,
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (idx, eye)
		)`,

		`CREATE TABLE IF NOT EXISTS runs (
			id                 INTEGER PRIMARY KEY AUTOINCREMENT,
			protocol           TEXT NOT NULL,
			started_at         DATETIME NOT NULL,
			finished_at        DATETIME NOT NULL,
			total_files        INTEGER NOT NULL DEFAULT 0,
			valid_left         INTEGER NOT NULL DEFAULT 0,
			valid_right        INTEGER NOT NULL DEFAULT 0,
			source_unavailable INTEGER NOT NULL DEFAULT 0,
			column_missing     INTEGER NOT NULL DEFAULT 0,
			event_missing      INTEGER NOT NULL DEFAULT 0,
			luminance_invalid  INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS run_issues (
			id     INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			idx    TEXT NOT NULL,
			cause  TEXT NOT NULL
		)`,

		// ── Indexes ────────────────────────────────────────────

		`CREATE INDEX IF NOT EXISTS idx_subject_records_eye ON subject_records(eye)`,
		`CREATE INDEX IF NOT EXISTS idx_run_issues_run      ON run_issues(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_run_issues_cause    ON run_issues(cause)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
