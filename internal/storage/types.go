package storage

import "time"

// Protocol labels which recording protocol produced a subject record.
type Protocol string

const (
	ProtocolSingle Protocol = "single"
	ProtocolDual   Protocol = "dual"
)

// Tally counts per-subject soft failures and successes across one
// extraction run. Every skipped subject lands in exactly one bucket so
// the final report can account for the whole batch.
type Tally struct {
	TotalFiles        int
	ValidLeft         int
	ValidRight        int
	SourceUnavailable int
	ColumnMissing     int
	EventMissing      int
	LuminanceInvalid  int
}

// SubjectIssue records why a specific subject was skipped during a run.
type SubjectIssue struct {
	Index string
	Cause string
}

// Run is one completed extraction batch with its tallies.
type Run struct {
	ID         int64
	Protocol   Protocol
	StartedAt  time.Time
	FinishedAt time.Time
	Tally      Tally
	Issues     []SubjectIssue
}

// Stats holds aggregate statistics about the analysis database.
type Stats struct {
	TotalRecords  int64
	LeftRecords   int64
	RightRecords  int64
	Subjects      int64
	TotalRuns     int64
	DatabaseBytes int64
}
