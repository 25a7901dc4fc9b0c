// Package window extracts fixed-length before/after measurement windows
// around a stimulus event and summarizes each measured quantity.
package window

import (
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/evolab/pupilstat/internal/stats"
	tbl "github.com/evolab/pupilstat/internal/table"
)

// AnchorStrategy resolves the before- and after-window anchor times for
// one of the two recording protocols.
type AnchorStrategy interface {
	// BeforeAnchor is the right edge of the before window.
	BeforeAnchor() float64
	// AfterAnchor is the left edge of the after window.
	AfterAnchor() float64
}

// OffsetAnchor models the single-event protocol: the recording carries one
// tag row, and true stimulus onset is estimated by adding a fixed offset
// to the tag's time.
type OffsetAnchor struct {
	TagTime float64
	Offset  float64
}

func (a OffsetAnchor) BeforeAnchor() float64 { return a.TagTime }
func (a OffsetAnchor) AfterAnchor() float64  { return a.TagTime + a.Offset }

// ExplicitAnchor models the dual-event protocol: the secondary marker's own
// time is the after-window anchor, no offset applied.
type ExplicitAnchor struct {
	TagTime       float64
	SecondaryTime float64
}

func (a ExplicitAnchor) BeforeAnchor() float64 { return a.TagTime }
func (a ExplicitAnchor) AfterAnchor() float64  { return a.SecondaryTime }

// Options controls window geometry and the data-sufficiency rule.
type Options struct {
	// Length is the window duration in recording time units.
	Length float64
	// MinCoverage is the fraction of rows in a window's time range that
	// must carry a usable value for the window to be reported at all.
	MinCoverage float64
}

// Summary describes one measured quantity over one window.
type Summary struct {
	Mean   float64
	N      int
	StdDev float64
	Min    float64
	Max    float64
	Valid  bool
}

// Value renders the summary for sentinel-based consumers: the mean when
// valid, -1 otherwise.
func (s Summary) Value() float64 {
	if !s.Valid {
		return stats.Sentinel
	}
	return s.Mean
}

// Quantities groups the three per-window summaries.
type Quantities struct {
	Luminance Summary
	Left      Summary
	Right     Summary
}

// Extraction is the full before/after result for one subject.
type Extraction struct {
	Before Quantities
	After  Quantities
}

// TimeAt parses the time cell of a row.
func TimeAt(t tbl.Table, row, timeCol int) (float64, error) {
	if row < 0 || row >= len(t) || timeCol >= len(t[row]) {
		return 0, fmt.Errorf("no time cell at row %d col %d", row, timeCol)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(t[row][timeCol]), 64)
	if err != nil {
		return 0, fmt.Errorf("parse time at row %d: %w", row, err)
	}
	return v, nil
}

// sink collects the usable values of one quantity within one window.
type sink struct {
	values []float64
}

// add records v if it is a usable measurement. The -1 sentinel marks a
// sensor dropout; zero never occurs as a real diameter or luminance, so
// anything <= 0 is treated as missing, matching the upstream tooling.
func (s *sink) add(v float64) {
	if v > 0 {
		s.values = append(s.values, v)
	}
}

// summarize closes the sink over a window that saw total rows.
func (s *sink) summarize(total int, minCoverage float64) Summary {
	n := len(s.values)
	if n == 0 || float64(n) < minCoverage*float64(total) {
		return Summary{Mean: stats.Sentinel, StdDev: stats.Sentinel,
			Min: stats.Sentinel, Max: stats.Sentinel, N: n}
	}

	minV, maxV := s.values[0], s.values[0]
	for _, v := range s.values[1:] {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}

	sd := stats.Sentinel
	if n >= 2 {
		sd = stat.StdDev(s.values, nil)
	}

	return Summary{
		Mean:   stat.Mean(s.values, nil),
		N:      n,
		StdDev: sd,
		Min:    minV,
		Max:    maxV,
		Valid:  true,
	}
}

// Extract walks the data rows once and summarizes each quantity over the
// before window [beforeAnchor-L, beforeAnchor] and the after window
// [afterAnchor, afterAnchor+L]. Rows whose cells fail to parse are skipped
// locally; a row inside a window counts toward that window's denominator
// whether or not its measurements are usable.
func Extract(t tbl.Table, cols tbl.Columns, anchor AnchorStrategy, opts Options) Extraction {
	beforeEnd := anchor.BeforeAnchor()
	beforeStart := beforeEnd - opts.Length
	afterStart := anchor.AfterAnchor()
	afterEnd := afterStart + opts.Length

	maxCol := cols.Time
	if cols.Left > maxCol {
		maxCol = cols.Left
	}
	if cols.Right > maxCol {
		maxCol = cols.Right
	}
	if cols.Luminance > maxCol {
		maxCol = cols.Luminance
	}

	var beforeLum, beforeLeft, beforeRight sink
	var afterLum, afterLeft, afterRight sink
	beforeTotal, afterTotal := 0, 0

	for i := 1; i < len(t); i++ {
		row := t[i]
		if len(row) <= maxCol {
			continue
		}

		timeV, err := parseCell(row[cols.Time])
		if err != nil {
			continue
		}
		leftV, errL := parseCell(row[cols.Left])
		rightV, errR := parseCell(row[cols.Right])
		lumV, errLum := parseCell(row[cols.Luminance])
		if errL != nil || errR != nil || errLum != nil {
			continue
		}

		if timeV >= beforeStart && timeV <= beforeEnd {
			beforeTotal++
			beforeLum.add(lumV)
			beforeLeft.add(leftV)
			beforeRight.add(rightV)
		}
		if timeV >= afterStart && timeV <= afterEnd {
			afterTotal++
			afterLum.add(lumV)
			afterLeft.add(leftV)
			afterRight.add(rightV)
		}
	}

	return Extraction{
		Before: Quantities{
			Luminance: beforeLum.summarize(beforeTotal, opts.MinCoverage),
			Left:      beforeLeft.summarize(beforeTotal, opts.MinCoverage),
			Right:     beforeRight.summarize(beforeTotal, opts.MinCoverage),
		},
		After: Quantities{
			Luminance: afterLum.summarize(afterTotal, opts.MinCoverage),
			Left:      afterLeft.summarize(afterTotal, opts.MinCoverage),
			Right:     afterRight.summarize(afterTotal, opts.MinCoverage),
		},
	}
}

func parseCell(cell string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(cell), 64)
}
