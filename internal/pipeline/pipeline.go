// Package pipeline runs the per-subject load→locate→extract batch over a
// directory of recordings and persists the resulting subject records.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/evolab/pupilstat/internal/config"
	"github.com/evolab/pupilstat/internal/record"
	"github.com/evolab/pupilstat/internal/storage"
	tbl "github.com/evolab/pupilstat/internal/table"
	"github.com/evolab/pupilstat/internal/window"
)

// Skip causes, surfaced verbatim in run reports.
const (
	CauseSourceUnavailable = "source unavailable"
	CauseColumnMissing     = "measurement column missing"
	CauseEventMissing      = "event marker missing"
	CauseLuminanceInvalid  = "luminance invalid"
)

// SubjectResult is the outcome of processing one recording.
type SubjectResult struct {
	Index   string
	Skip    string // one of the Cause constants, empty when processed
	Left    *record.SubjectRecord
	Right   *record.SubjectRecord
	LeftOK  bool
	RightOK bool
}

// Runner executes extraction batches.
type Runner struct {
	cfg *config.Config
	log *zap.Logger
}

// NewRunner creates a Runner.
func NewRunner(cfg *config.Config, log *zap.Logger) *Runner {
	return &Runner{cfg: cfg, log: log}
}

// listRecordings returns the candidate recording files of dir, sorted.
// A missing directory is the one fatal condition of a run.
func (r *Runner) listRecordings(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("recordings directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.EqualFold(filepath.Ext(name), ".csv") {
			continue
		}
		// The subject index is the leading run of the stem.
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if len(stem) < r.cfg.Run.IndexLength {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}

// index derives the subject index from a recording filename.
func (r *Runner) index(path string) string {
	return filepath.Base(path)[:r.cfg.Run.IndexLength]
}

// Run processes every recording in dir with the given protocol, writing
// valid eye records to store and tallying every skipped subject. Subjects
// are processed concurrently; storage writes and tally updates happen on a
// single consumer goroutine so no shared sink sees interleaved appends.
func (r *Runner) Run(ctx context.Context, dir string, protocol storage.Protocol, store storage.Store) (*storage.Run, error) {
	files, err := r.listRecordings(dir)
	if err != nil {
		return nil, err
	}

	run := &storage.Run{
		Protocol:  protocol,
		StartedAt: time.Now(),
	}
	run.Tally.TotalFiles = len(files)

	jobs := make(chan string)
	results := make(chan SubjectResult)

	workers := r.cfg.Run.Workers
	if workers > len(files) && len(files) > 0 {
		workers = len(files)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				results <- r.ProcessSubject(path, protocol)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, f := range files {
			select {
			case jobs <- f:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		r.consume(ctx, store, run, res)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	run.FinishedAt = time.Now()
	if err := store.RecordRun(ctx, run); err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}
	return run, nil
}

// consume folds one subject result into tallies and storage.
func (r *Runner) consume(ctx context.Context, store storage.Store, run *storage.Run, res SubjectResult) {
	if res.Skip != "" {
		switch res.Skip {
		case CauseSourceUnavailable:
			run.Tally.SourceUnavailable++
		case CauseColumnMissing:
			run.Tally.ColumnMissing++
		case CauseEventMissing:
			run.Tally.EventMissing++
		case CauseLuminanceInvalid:
			run.Tally.LuminanceInvalid++
		}
		run.Issues = append(run.Issues, storage.SubjectIssue{Index: res.Index, Cause: res.Skip})
		r.log.Warn("subject skipped",
			zap.String("index", res.Index),
			zap.String("cause", res.Skip))
		return
	}

	if res.LeftOK {
		if err := store.UpsertRecord(ctx, *res.Left, run.Protocol); err != nil {
			r.log.Error("store left record", zap.String("index", res.Index), zap.Error(err))
		} else {
			run.Tally.ValidLeft++
		}
	}
	if res.RightOK {
		if err := store.UpsertRecord(ctx, *res.Right, run.Protocol); err != nil {
			r.log.Error("store right record", zap.String("index", res.Index), zap.Error(err))
		} else {
			run.Tally.ValidRight++
		}
	}
	r.log.Info("subject processed",
		zap.String("index", res.Index),
		zap.Bool("left", res.LeftOK),
		zap.Bool("right", res.RightOK))
}

// ProcessSubject runs load→locate→extract for a single recording file.
func (r *Runner) ProcessSubject(path string, protocol storage.Protocol) SubjectResult {
	res := SubjectResult{Index: r.index(path)}

	data, err := tbl.LoadFile(path, r.cfg.Schema.Delimiter)
	if err != nil || len(data) < 2 {
		res.Skip = CauseSourceUnavailable
		return res
	}

	cols, ok := r.resolveColumns(data[0])
	if !ok {
		res.Skip = CauseColumnMissing
		return res
	}

	anchor, skip := r.resolveAnchor(data, cols, protocol)
	if skip != "" {
		res.Skip = skip
		return res
	}

	ext := window.Extract(data, cols, anchor, window.Options{
		Length:      r.cfg.Window.LengthSeconds,
		MinCoverage: r.cfg.Window.MinCoverage,
	})

	// Without a usable luminance window on either side, the calibration
	// lookup downstream has nothing to key on.
	if !ext.Before.Luminance.Valid && !ext.After.Luminance.Valid {
		res.Skip = CauseLuminanceInvalid
		return res
	}

	res.Left, res.LeftOK = eyeRecord(res.Index, record.Left, ext.Before.Left, ext.After.Left, ext)
	res.Right, res.RightOK = eyeRecord(res.Index, record.Right, ext.Before.Right, ext.After.Right, ext)
	return res
}

// resolveColumns applies the configured column-resolution rules.
func (r *Runner) resolveColumns(header []string) (tbl.Columns, bool) {
	left, right := tbl.FindMeasurementColumns(header, r.cfg.Schema.LeftHeader, r.cfg.Schema.RightHeader)
	if left == tbl.NotFound || right == tbl.NotFound {
		return tbl.Columns{}, false
	}
	lum, err := tbl.LuminanceColumn(left, r.cfg.Schema.LuminanceOffset)
	if err != nil {
		return tbl.Columns{}, false
	}
	return tbl.Columns{
		Time:      r.cfg.Schema.TimeColumn,
		Left:      left,
		Right:     right,
		Luminance: lum,
	}, true
}

// resolveAnchor locates the event marker(s) and builds the protocol's
// anchor strategy. Returns a non-empty skip cause on failure.
func (r *Runner) resolveAnchor(data tbl.Table, cols tbl.Columns, protocol storage.Protocol) (window.AnchorStrategy, string) {
	switch protocol {
	case storage.ProtocolDual:
		eventCol := tbl.FindColumn(data[0], r.cfg.Schema.EventHeader)
		if eventCol == tbl.NotFound {
			return nil, CauseColumnMissing
		}
		primary, secondary := tbl.FindEventRows(data, eventCol,
			r.cfg.Window.PrimaryMarker, r.cfg.Window.SecondaryMarker)
		if primary == tbl.NotFound || secondary == tbl.NotFound {
			return nil, CauseEventMissing
		}
		tagTime, err := window.TimeAt(data, primary, cols.Time)
		if err != nil {
			return nil, CauseEventMissing
		}
		secTime, err := window.TimeAt(data, secondary, cols.Time)
		if err != nil {
			return nil, CauseEventMissing
		}
		return window.ExplicitAnchor{TagTime: tagTime, SecondaryTime: secTime}, ""

	default:
		row := tbl.FindEventRow(data, r.cfg.Window.PrimaryMarker)
		if row == tbl.NotFound {
			return nil, CauseEventMissing
		}
		tagTime, err := window.TimeAt(data, row, cols.Time)
		if err != nil {
			return nil, CauseEventMissing
		}
		return window.OffsetAnchor{TagTime: tagTime, Offset: r.cfg.Window.OnsetOffsetSeconds}, ""
	}
}

// eyeRecord builds the persistable record for one eye. The eye is usable
// only when both of its windows pass the coverage rule; the luminance
// fields carry the sentinel when their own windows are invalid.
func eyeRecord(index string, eye record.Eye, before, after window.Summary, ext window.Extraction) (*record.SubjectRecord, bool) {
	rec := &record.SubjectRecord{
		Index:       index,
		Eye:         eye,
		LumBefore:   ext.Before.Luminance.Value(),
		PupilBefore: before.Value(),
		CountBefore: before.N,
		StdBefore:   before.StdDev,
		LumAfter:    ext.After.Luminance.Value(),
		PupilAfter:  after.Value(),
		CountAfter:  after.N,
		StdAfter:    after.StdDev,
	}
	return rec, before.Valid && after.Valid
}
