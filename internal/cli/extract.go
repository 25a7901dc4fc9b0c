package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/evolab/pupilstat/internal/config"
	"github.com/evolab/pupilstat/internal/pipeline"
	"github.com/evolab/pupilstat/internal/storage"
)

// runJSON is the JSON output structure for the extract command.
type runJSON struct {
	Protocol          string      `json:"protocol"`
	TotalFiles        int         `json:"total_files"`
	ValidLeft         int         `json:"valid_left"`
	ValidLeftPct      float64     `json:"valid_left_pct"`
	ValidRight        int         `json:"valid_right"`
	ValidRightPct     float64     `json:"valid_right_pct"`
	SourceUnavailable int         `json:"source_unavailable"`
	ColumnMissing     int         `json:"column_missing"`
	EventMissing      int         `json:"event_missing"`
	LuminanceInvalid  int         `json:"luminance_invalid"`
	Issues            []issueJSON `json:"issues"`
}

type issueJSON struct {
	Index string `json:"index"`
	Cause string `json:"cause"`
}

// Execute implements the go-flags Commander interface for ExtractCommand.
func (c *ExtractCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg, c.globals)
	if err != nil {
		return err
	}
	defer log.Sync()

	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	return c.executeWithStore(cfg, store, log)
}

// executeWithStore runs the extraction batch against a provided store (used by tests).
func (c *ExtractCommand) executeWithStore(cfg *config.Config, store storage.Store, log *zap.Logger) error {
	protocol := storage.ProtocolSingle
	dir := c.Dir
	if c.Dual {
		protocol = storage.ProtocolDual
		if dir == "" {
			dir = cfg.Paths.DualRecordingsDir
		}
	}
	if dir == "" {
		dir = cfg.Paths.RecordingsDir
	}

	dir, err := config.ExpandPath(dir)
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(cfg, log)
	run, err := runner.Run(context.Background(), dir, protocol, store)
	if err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return c.printRunJSON(run)
	}
	return c.printRunHuman(run)
}

func (c *ExtractCommand) printRunHuman(run *storage.Run) error {
	t := run.Tally
	fmt.Println("Extraction Report")
	fmt.Println("=================")
	fmt.Printf("Protocol:            %s\n", run.Protocol)
	fmt.Printf("Files:               %d\n", t.TotalFiles)
	fmt.Printf("Valid left records:  %d (%.1f%%)\n", t.ValidLeft, percent(t.ValidLeft, t.TotalFiles))
	fmt.Printf("Valid right records: %d (%.1f%%)\n", t.ValidRight, percent(t.ValidRight, t.TotalFiles))
	fmt.Printf("Source unavailable:  %d\n", t.SourceUnavailable)
	fmt.Printf("Column missing:      %d\n", t.ColumnMissing)
	fmt.Printf("Event missing:       %d\n", t.EventMissing)
	fmt.Printf("Luminance invalid:   %d\n", t.LuminanceInvalid)

	if len(run.Issues) > 0 {
		fmt.Println()
		fmt.Println("Skipped subjects:")
		for _, issue := range run.Issues {
			fmt.Printf("  %-10s %s\n", issue.Index, issue.Cause)
		}
	}
	return nil
}

func (c *ExtractCommand) printRunJSON(run *storage.Run) error {
	t := run.Tally
	out := runJSON{
		Protocol:          string(run.Protocol),
		TotalFiles:        t.TotalFiles,
		ValidLeft:         t.ValidLeft,
		ValidLeftPct:      percent(t.ValidLeft, t.TotalFiles),
		ValidRight:        t.ValidRight,
		ValidRightPct:     percent(t.ValidRight, t.TotalFiles),
		SourceUnavailable: t.SourceUnavailable,
		ColumnMissing:     t.ColumnMissing,
		EventMissing:      t.EventMissing,
		LuminanceInvalid:  t.LuminanceInvalid,
		Issues:            make([]issueJSON, len(run.Issues)),
	}
	for i, issue := range run.Issues {
		out.Issues[i] = issueJSON{Index: issue.Index, Cause: issue.Cause}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
