package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evolab/pupilstat/internal/record"
	"github.com/evolab/pupilstat/internal/stats"
	"github.com/evolab/pupilstat/internal/storage"
)

// aggView is one aggregation view over the record set: before-window pupil
// size, after-window pupil size, and the per-point after-before difference.
type aggView struct {
	Before *stats.Accumulator
	After  *stats.Accumulator
	Diff   *stats.Accumulator
}

func newAggView() aggView {
	return aggView{
		Before: stats.NewAccumulator(),
		After:  stats.NewAccumulator(),
		Diff:   stats.NewAccumulator(),
	}
}

// update folds one before/after point into the view. The difference is only
// defined when both sides carry a real value.
func (v aggView) update(before, after float64) {
	v.Before.Update(before)
	v.After.Update(after)
	if before != stats.Sentinel && after != stats.Sentinel {
		v.Diff.Update(after - before)
	}
}

type accJSON struct {
	N    int     `json:"n"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

type viewJSON struct {
	Before accJSON `json:"pupil_before"`
	After  accJSON `json:"pupil_after"`
	Diff   accJSON `json:"diff"`
}

// summaryJSON is the JSON output structure for the summary command.
type summaryJSON struct {
	Records    int      `json:"records"`
	Left       int      `json:"left_records"`
	Right      int      `json:"right_records"`
	Subjects   int      `json:"subjects"`
	AllRecords viewJSON `json:"all_records"`
	PerSubject viewJSON `json:"per_subject"`
}

// Execute implements the go-flags Commander interface for SummaryCommand.
func (c *SummaryCommand) Execute(args []string) error {
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

	return c.executeWithStore(store)
}

// executeWithStore runs the aggregation against a provided store (used by tests).
func (c *SummaryCommand) executeWithStore(store storage.Store) error {
	if c.Eye != "" && c.Eye != "left" && c.Eye != "right" {
		return fmt.Errorf("--eye must be left or right, got %q", c.Eye)
	}

	recs, err := c.loadRecords(store)
	if err != nil {
		return err
	}

	left, right := 0, 0
	for _, r := range recs {
		if r.Eye == record.Left {
			left++
		} else {
			right++
		}
	}

	points := make([]subjectPoint, len(recs))
	for i, r := range recs {
		points[i] = subjectPoint{Index: r.Index, Before: r.PupilBefore, After: r.PupilAfter}
	}

	all := newAggView()
	for _, p := range points {
		all.update(p.Before, p.After)
	}
	perSubject, subjects := perSubjectView(points)

	if c.globals != nil && c.globals.JSON {
		return printSummaryJSON(len(recs), left, right, subjects, all, perSubject)
	}
	printSummaryHuman(len(recs), left, right, subjects, all, perSubject)
	return nil
}

func (c *SummaryCommand) loadRecords(store storage.Store) ([]record.SubjectRecord, error) {
	if len(c.FromFile) > 0 {
		return c.loadRecordFiles()
	}

	ctx := context.Background()
	switch c.Eye {
	case "left":
		return store.Records(ctx, record.Left)
	case "right":
		return store.Records(ctx, record.Right)
	default:
		lefts, err := store.Records(ctx, record.Left)
		if err != nil {
			return nil, err
		}
		rights, err := store.Records(ctx, record.Right)
		if err != nil {
			return nil, err
		}
		return append(lefts, rights...), nil
	}
}

// loadRecordFiles reads flat record files produced by export (or by the
// upstream tooling), inferring each file's eye from its name.
func (c *SummaryCommand) loadRecordFiles() ([]record.SubjectRecord, error) {
	var recs []record.SubjectRecord
	for _, path := range c.FromFile {
		eye, err := eyeForFile(path)
		if err != nil {
			return nil, err
		}
		fileRecs, err := record.ReadFile(path, eye)
		if err != nil {
			return nil, err
		}
		recs = append(recs, fileRecs...)
	}

	if c.Eye != "" {
		keep := recs[:0]
		for _, r := range recs {
			if string(r.Eye) == c.Eye {
				keep = append(keep, r)
			}
		}
		recs = keep
	}
	return recs, nil
}

// eyeForFile infers the eye label from a flat file's name.
func eyeForFile(path string) (record.Eye, error) {
	base := strings.ToLower(filepath.Base(path))
	switch {
	case strings.Contains(base, "left"):
		return record.Left, nil
	case strings.Contains(base, "right"):
		return record.Right, nil
	}
	return "", fmt.Errorf("cannot infer eye from filename %q", filepath.Base(path))
}

// subjectPoint is one before/after data point attributed to a subject.
type subjectPoint struct {
	Index  string
	Before float64
	After  float64
}

// perSubjectView collapses each subject's points into a single averaged
// point before aggregating, so a subject with two valid eyes does not weigh
// twice what a one-eyed subject does.
func perSubjectView(points []subjectPoint) (aggView, int) {
	type pair struct {
		before *stats.Accumulator
		after  *stats.Accumulator
	}
	bySubject := make(map[string]pair)
	for _, pt := range points {
		p, ok := bySubject[pt.Index]
		if !ok {
			p = pair{before: stats.NewAccumulator(), after: stats.NewAccumulator()}
			bySubject[pt.Index] = p
		}
		p.before.Update(pt.Before)
		p.after.Update(pt.After)
	}

	indices := make([]string, 0, len(bySubject))
	for idx := range bySubject {
		indices = append(indices, idx)
	}
	sort.Strings(indices)

	view := newAggView()
	for _, idx := range indices {
		p := bySubject[idx]
		before, after := stats.Sentinel, stats.Sentinel
		if p.before.Count > 0 {
			before = p.before.Mean()
		}
		if p.after.Count > 0 {
			after = p.after.Mean()
		}
		view.update(before, after)
	}
	return view, len(bySubject)
}

func printSummaryHuman(records, left, right, subjects int, all, perSubject aggView) {
	fmt.Println("Pupil Summary")
	fmt.Println("=============")
	fmt.Printf("Records:  %d (%d left, %d right)\n", records, left, right)
	fmt.Printf("Subjects: %d\n", subjects)

	fmt.Println()
	fmt.Println("All records:")
	printViewHuman(all)

	fmt.Println()
	fmt.Println("Per-subject average:")
	printViewHuman(perSubject)
}

func printViewHuman(v aggView) {
	fmt.Printf("  %-16s %6s %10s %10s %10s %10s\n", "Quantity", "N", "Mean", "Std", "Min", "Max")
	printAccRow("pupil before", v.Before)
	printAccRow("pupil after", v.After)
	printAccRow("after - before", v.Diff)
}

func printAccRow(label string, a *stats.Accumulator) {
	if a.Count == 0 {
		fmt.Printf("  %-16s %6d %10s %10s %10s %10s\n", label, 0, "N/A", "N/A", "N/A", "N/A")
		return
	}
	fmt.Printf("  %-16s %6d %10.3f %10s %10.3f %10.3f\n",
		label, a.Count, a.Mean(), formatValue(a.StdDev()), a.Min, a.Max)
}

func printSummaryJSON(records, left, right, subjects int, all, perSubject aggView) error {
	out := summaryJSON{
		Records:    records,
		Left:       left,
		Right:      right,
		Subjects:   subjects,
		AllRecords: viewToJSON(all),
		PerSubject: viewToJSON(perSubject),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func viewToJSON(v aggView) viewJSON {
	return viewJSON{
		Before: accToJSON(v.Before),
		After:  accToJSON(v.After),
		Diff:   accToJSON(v.Diff),
	}
}

func accToJSON(a *stats.Accumulator) accJSON {
	if a.Count == 0 {
		return accJSON{Mean: stats.Sentinel, Std: stats.Sentinel,
			Min: stats.Sentinel, Max: stats.Sentinel}
	}
	return accJSON{
		N:    a.Count,
		Mean: a.Mean(),
		Std:  a.StdDev(),
		Min:  a.Min,
		Max:  a.Max,
	}
}
