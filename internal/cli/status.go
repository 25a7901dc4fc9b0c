package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/evolab/pupilstat/internal/config"
	"github.com/evolab/pupilstat/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version       string   `json:"version"`
	DatabasePath  string   `json:"database_path"`
	DatabaseBytes int64    `json:"database_bytes"`
	TotalRecords  int64    `json:"total_records"`
	LeftRecords   int64    `json:"left_records"`
	RightRecords  int64    `json:"right_records"`
	Subjects      int64    `json:"subjects"`
	TotalRuns     int64    `json:"total_runs"`
	LastRun       *runJSON `json:"last_run,omitempty"`
	LastRunAt     string   `json:"last_run_at,omitempty"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	return c.executeWithStore(cfg, store)
}

// executeWithStore runs status against a provided store (used by tests).
func (c *StatusCommand) executeWithStore(cfg *config.Config, store storage.Store) error {
	ctx := context.Background()

	stats, err := store.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	lastRun, err := store.LastRun(ctx)
	if err != nil {
		return fmt.Errorf("last run: %w", err)
	}

	dbPath, err := cfg.SQLitePath()
	if err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return c.printStatusJSON(stats, lastRun, dbPath)
	}
	return c.printStatusHuman(stats, lastRun, dbPath)
}

func (c *StatusCommand) printStatusHuman(stats *storage.Stats, lastRun *storage.Run, dbPath string) error {
	fmt.Println("Pupilstat Status")
	fmt.Println("================")
	fmt.Printf("Version:   %s\n", c.version)
	fmt.Printf("Database:  %s (%s)\n", dbPath, formatBytes(stats.DatabaseBytes))
	fmt.Printf("Records:   %d (%d left, %d right)\n",
		stats.TotalRecords, stats.LeftRecords, stats.RightRecords)
	fmt.Printf("Subjects:  %d\n", stats.Subjects)
	fmt.Printf("Runs:      %d\n", stats.TotalRuns)

	if lastRun != nil {
		t := lastRun.Tally
		fmt.Println()
		fmt.Printf("Last run:  %s (%s protocol)\n",
			lastRun.FinishedAt.Local().Format("2006-01-02 15:04:05"), lastRun.Protocol)
		fmt.Printf("  Files:               %d\n", t.TotalFiles)
		fmt.Printf("  Valid left records:  %d (%.1f%%)\n", t.ValidLeft, percent(t.ValidLeft, t.TotalFiles))
		fmt.Printf("  Valid right records: %d (%.1f%%)\n", t.ValidRight, percent(t.ValidRight, t.TotalFiles))
		fmt.Printf("  Skipped subjects:    %d\n", len(lastRun.Issues))
	}
	return nil
}

func (c *StatusCommand) printStatusJSON(stats *storage.Stats, lastRun *storage.Run, dbPath string) error {
	out := statusJSON{
		Version:       c.version,
		DatabasePath:  dbPath,
		DatabaseBytes: stats.DatabaseBytes,
		TotalRecords:  stats.TotalRecords,
		LeftRecords:   stats.LeftRecords,
		RightRecords:  stats.RightRecords,
		Subjects:      stats.Subjects,
		TotalRuns:     stats.TotalRuns,
	}

	if lastRun != nil {
		t := lastRun.Tally
		out.LastRunAt = lastRun.FinishedAt.UTC().Format(time.RFC3339)
		out.LastRun = &runJSON{
			Protocol:          string(lastRun.Protocol),
			TotalFiles:        t.TotalFiles,
			ValidLeft:         t.ValidLeft,
			ValidLeftPct:      percent(t.ValidLeft, t.TotalFiles),
			ValidRight:        t.ValidRight,
			ValidRightPct:     percent(t.ValidRight, t.TotalFiles),
			SourceUnavailable: t.SourceUnavailable,
			ColumnMissing:     t.ColumnMissing,
			EventMissing:      t.EventMissing,
			LuminanceInvalid:  t.LuminanceInvalid,
			Issues:            []issueJSON{},
		}
		for _, issue := range lastRun.Issues {
			out.LastRun.Issues = append(out.LastRun.Issues, issueJSON{Index: issue.Index, Cause: issue.Cause})
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
