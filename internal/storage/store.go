package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/evolab/pupilstat/internal/record"
)

// Store defines the interface for pupilstat data operations.
type Store interface {
	UpsertRecord(ctx context.Context, rec record.SubjectRecord, protocol Protocol) error
	GetRecord(ctx context.Context, index string, eye record.Eye) (*record.SubjectRecord, error)
	Records(ctx context.Context, eye record.Eye) ([]record.SubjectRecord, error)
	Indices(ctx context.Context) ([]string, error)
	RecordRun(ctx context.Context, run *Run) error
	LastRun(ctx context.Context) (*Run, error)
	GetStats(ctx context.Context) (*Stats, error)
	PurgeAll(ctx context.Context) error
	Close() error
}

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	// Prepared statements
	upsertRecord *sql.Stmt
	getRecord    *sql.Stmt
	listRecords  *sql.Stmt
	listIndices  *sql.Stmt
}

// NewSQLiteStore creates a new SQLiteStore from an already-opened and
// migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.upsertRecord, err = s.db.Prepare(`
		INSERT INTO subject_records
			(idx, eye, protocol,
			 lum_before, pupil_before, count_before, std_before,
			 lum_after, pupil_after, count_after, std_after)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (idx, eye) DO UPDATE SET
			protocol     = excluded.protocol,
			lum_before   = excluded.lum_before,
			pupil_before = excluded.pupil_before,
			count_before = excluded.count_before,
			std_before   = excluded.std_before,
			lum_after    = excluded.lum_after,
			pupil_after  = excluded.pupil_after,
			count_after  = excluded.count_after,
			std_after    = excluded.std_after,
			updated_at   = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return err
	}

	s.getRecord, err = s.db.Prepare(`
		SELECT idx, eye,
		       lum_before, pupil_before, count_before, std_before,
		       lum_after, pupil_after, count_after, std_after
		FROM subject_records WHERE idx = ? AND eye = ?
	`)
	if err != nil {
		return err
	}

	s.listRecords, err = s.db.Prepare(`
		SELECT idx, eye,
		       lum_before, pupil_before, count_before, std_before,
		       lum_after, pupil_after, count_after, std_after
		FROM subject_records WHERE eye = ? ORDER BY idx
	`)
	if err != nil {
		return err
	}

	s.listIndices, err = s.db.Prepare(`
		SELECT DISTINCT idx FROM subject_records ORDER BY idx
	`)
	return err
}

// UpsertRecord inserts or replaces one subject's per-eye summary row.
// Subject indices are assumed unique across a batch; a re-run of the same
// recording replaces the earlier row.
func (s *SQLiteStore) UpsertRecord(ctx context.Context, rec record.SubjectRecord, protocol Protocol) error {
	_, err := s.upsertRecord.ExecContext(ctx,
		rec.Index, string(rec.Eye), string(protocol),
		rec.LumBefore, rec.PupilBefore, rec.CountBefore, rec.StdBefore,
		rec.LumAfter, rec.PupilAfter, rec.CountAfter, rec.StdAfter,
	)
	if err != nil {
		return fmt.Errorf("upsert record %s/%s: %w", rec.Index, rec.Eye, err)
	}
	return nil
}

// GetRecord retrieves one subject's summary row for one eye.
func (s *SQLiteStore) GetRecord(ctx context.Context, index string, eye record.Eye) (*record.SubjectRecord, error) {
	rec, err := scanRecord(s.getRecord.QueryRowContext(ctx, index, string(eye)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("record %s/%s not found", index, eye)
		}
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// Records lists all summary rows for one eye, ordered by subject index.
func (s *SQLiteStore) Records(ctx context.Context, eye record.Eye) ([]record.SubjectRecord, error) {
	rows, err := s.listRecords.QueryContext(ctx, string(eye))
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	recs := []record.SubjectRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// Indices lists every distinct subject index in the store.
func (s *SQLiteStore) Indices(ctx context.Context) ([]string, error) {
	rows, err := s.listIndices.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indices: %w", err)
	}
	defer rows.Close()

	indices := []string{}
	for rows.Next() {
		var idx string
		if err := rows.Scan(&idx); err != nil {
			return nil, err
		}
		indices = append(indices, idx)
	}
	return indices, rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows for scanRecord.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(sc scanner) (*record.SubjectRecord, error) {
	var rec record.SubjectRecord
	var eye string
	if err := sc.Scan(
		&rec.Index, &eye,
		&rec.LumBefore, &rec.PupilBefore, &rec.CountBefore, &rec.StdBefore,
		&rec.LumAfter, &rec.PupilAfter, &rec.CountAfter, &rec.StdAfter,
	); err != nil {
		return nil, err
	}
	rec.Eye = record.Eye(eye)
	return &rec, nil
}

// RecordRun persists a completed extraction run and its per-subject issues
// in one transaction. The run's ID is populated on success.
func (s *SQLiteStore) RecordRun(ctx context.Context, run *Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
			(protocol, started_at, finished_at, total_files,
			 valid_left, valid_right,
			 source_unavailable, column_missing, event_missing, luminance_invalid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(run.Protocol),
		run.StartedAt.UTC().Format(time.RFC3339),
		run.FinishedAt.UTC().Format(time.RFC3339),
		run.Tally.TotalFiles, run.Tally.ValidLeft, run.Tally.ValidRight,
		run.Tally.SourceUnavailable, run.Tally.ColumnMissing,
		run.Tally.EventMissing, run.Tally.LuminanceInvalid,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	run.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}

	for _, issue := range run.Issues {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO run_issues (run_id, idx, cause) VALUES (?, ?, ?)",
			run.ID, issue.Index, issue.Cause,
		); err != nil {
			return fmt.Errorf("insert run issue: %w", err)
		}
	}

	return tx.Commit()
}

// LastRun returns the most recent extraction run, or nil when none exist.
func (s *SQLiteStore) LastRun(ctx context.Context) (*Run, error) {
	var run Run
	var protocol, startedStr, finishedStr string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, protocol, started_at, finished_at, total_files,
		       valid_left, valid_right,
		       source_unavailable, column_missing, event_missing, luminance_invalid
		FROM runs ORDER BY id DESC LIMIT 1
	`).Scan(
		&run.ID, &protocol, &startedStr, &finishedStr, &run.Tally.TotalFiles,
		&run.Tally.ValidLeft, &run.Tally.ValidRight,
		&run.Tally.SourceUnavailable, &run.Tally.ColumnMissing,
		&run.Tally.EventMissing, &run.Tally.LuminanceInvalid,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("last run: %w", err)
	}

	run.Protocol = Protocol(protocol)
	run.StartedAt, _ = parseTimestamp(startedStr)
	run.FinishedAt, _ = parseTimestamp(finishedStr)

	rows, err := s.db.QueryContext(ctx,
		"SELECT idx, cause FROM run_issues WHERE run_id = ? ORDER BY id", run.ID)
	if err != nil {
		return nil, fmt.Errorf("run issues: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var issue SubjectIssue
		if err := rows.Scan(&issue.Index, &issue.Cause); err != nil {
			return nil, err
		}
		run.Issues = append(run.Issues, issue)
	}
	return &run, rows.Err()
}

// GetStats returns aggregate statistics about the database.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM subject_records").Scan(&stats.TotalRecords)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM subject_records WHERE eye = 'left'").Scan(&stats.LeftRecords)
	if err != nil {
		return nil, fmt.Errorf("count left records: %w", err)
	}
	stats.RightRecords = stats.TotalRecords - stats.LeftRecords

	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT idx) FROM subject_records").Scan(&stats.Subjects)
	if err != nil {
		return nil, fmt.Errorf("count subjects: %w", err)
	}

	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&stats.TotalRuns)
	if err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}

	// Size via pragmas so in-memory databases report sensibly too.
	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err == nil {
			stats.DatabaseBytes = pageCount * pageSize
		}
	}

	return stats, nil
}

// PurgeAll deletes all subject records and run history.
func (s *SQLiteStore) PurgeAll(ctx context.Context) error {
	stmts := []string{
		"DELETE FROM run_issues",
		"DELETE FROM runs",
		"DELETE FROM subject_records",
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("purge (%s): %w", stmt, err)
		}
	}
	return nil
}

// parseTimestamp tries the common SQLite timestamp formats.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp: %s", s)
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed — that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	stmts := []*sql.Stmt{
		s.upsertRecord, s.getRecord, s.listRecords, s.listIndices,
	}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}
