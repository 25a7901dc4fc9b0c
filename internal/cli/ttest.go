package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/evolab/pupilstat/internal/calibration"
	"github.com/evolab/pupilstat/internal/config"
	"github.com/evolab/pupilstat/internal/record"
	"github.com/evolab/pupilstat/internal/stats"
	"github.com/evolab/pupilstat/internal/storage"
)

// ttestRow is one subject-eye outcome of the significance test.
type ttestRow struct {
	Index   string  `json:"index"`
	Eye     string  `json:"eye"`
	T       float64 `json:"t"`
	DF      int     `json:"df"`
	P       float64 `json:"p"`
	Verdict string  `json:"verdict"`
}

// ttestJSON is the JSON output structure for the ttest command.
type ttestJSON struct {
	Alpha              float64    `json:"alpha"`
	Rows               []ttestRow `json:"rows"`
	Tests              int        `json:"tests"`
	Rejected           int        `json:"rejected"`
	RejectedPct        float64    `json:"rejected_pct"`
	FailedToReject     int        `json:"failed_to_reject"`
	NotApplicable      int        `json:"not_applicable"`
	CalibrationMissing []string   `json:"calibration_missing"`
}

// Execute implements the go-flags Commander interface for TTestCommand.
func (c *TTestCommand) Execute(args []string) error {
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return fmt.Errorf("--alpha must be strictly between 0 and 1, got %v", c.Alpha)
	}

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

// executeWithStore runs the significance tests against a provided store
// (used by tests).
func (c *TTestCommand) executeWithStore(cfg *config.Config, store storage.Store) error {
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return fmt.Errorf("--alpha must be strictly between 0 and 1, got %v", c.Alpha)
	}

	calDir := c.CalibrationDir
	if calDir == "" {
		calDir = cfg.Paths.CalibrationDir
	}
	calDir, err := config.ExpandPath(calDir)
	if err != nil {
		return err
	}

	recs, err := allRecords(store)
	if err != nil {
		return err
	}

	mappings := newMappingSet(calDir)
	var rows []ttestRow
	rejected, failed, na := 0, 0, 0

	for _, r := range recs {
		m, err := mappings.get(r.Index)
		if err != nil {
			return err
		}
		if m == nil {
			continue
		}

		res := testRecord(r, m)
		verdict := res.Verdict(c.Alpha)
		switch verdict {
		case stats.Reject:
			rejected++
		case stats.FailToReject:
			failed++
		default:
			na++
		}

		rows = append(rows, ttestRow{
			Index:   r.Index,
			Eye:     string(r.Eye),
			T:       res.T,
			DF:      res.DF,
			P:       res.P,
			Verdict: verdict.String(),
		})
	}

	missing := mappings.missingIndices()
	if c.globals != nil && c.globals.JSON {
		return c.printTTestJSON(rows, rejected, failed, na, missing)
	}
	c.printTTestHuman(rows, rejected, failed, na, missing)
	return nil
}

// testRecord compares one record's observed after-window distribution with
// the calibration-expected distribution at the record's after-window
// luminance. A sentinel luminance leaves the test undefined.
func testRecord(r record.SubjectRecord, m *calibration.Mapping) stats.Result {
	if r.LumAfter <= 0 {
		return stats.Result{T: stats.Sentinel, P: stats.Sentinel}
	}

	row := m.Nearest(r.LumAfter)
	expected := row.LeftSample()
	if r.Eye == record.Right {
		expected = row.RightSample()
	}
	return stats.TTest(r.Observed(), expected)
}

func (c *TTestCommand) printTTestHuman(rows []ttestRow, rejected, failed, na int, missing []string) {
	fmt.Println("Significance Report")
	fmt.Println("===================")
	fmt.Printf("Alpha: %g\n", c.Alpha)
	fmt.Println()
	fmt.Printf("%-10s %-6s %10s %6s %10s %-8s\n", "Index", "Eye", "T", "DF", "P", "Verdict")
	for _, row := range rows {
		if row.Verdict == stats.NotApplicable.String() {
			fmt.Printf("%-10s %-6s %10s %6s %10s %-8s\n",
				row.Index, row.Eye, "N/A", "N/A", "N/A", row.Verdict)
			continue
		}
		fmt.Printf("%-10s %-6s %10.3f %6d %10.4f %-8s\n",
			row.Index, row.Eye, row.T, row.DF, row.P, row.Verdict)
	}

	fmt.Println()
	fmt.Printf("Tests:               %d\n", len(rows))
	fmt.Printf("Rejected:            %d (%.1f%%)\n", rejected, percent(rejected, len(rows)))
	fmt.Printf("Failed to reject:    %d (%.1f%%)\n", failed, percent(failed, len(rows)))
	fmt.Printf("Not applicable:      %d\n", na)
	fmt.Printf("Calibration missing: %d\n", len(missing))
	for _, idx := range missing {
		fmt.Printf("  %s\n", idx)
	}
}

func (c *TTestCommand) printTTestJSON(rows []ttestRow, rejected, failed, na int, missing []string) error {
	out := ttestJSON{
		Alpha:              c.Alpha,
		Rows:               rows,
		Tests:              len(rows),
		Rejected:           rejected,
		RejectedPct:        percent(rejected, len(rows)),
		FailedToReject:     failed,
		NotApplicable:      na,
		CalibrationMissing: missing,
	}
	if out.Rows == nil {
		out.Rows = []ttestRow{}
	}
	if out.CalibrationMissing == nil {
		out.CalibrationMissing = []string{}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
