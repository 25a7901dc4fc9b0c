// Package record defines the per-subject summary row persisted between the
// window-extraction stage and the calibration / significance stages, and its
// flat line format shared with the upstream tooling.
package record

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/evolab/pupilstat/internal/stats"
)

// Eye labels which measurement column a record summarizes.
type Eye string

const (
	Left  Eye = "left"
	Right Eye = "right"
)

// Filename returns the conventional flat-file name for an eye.
func (e Eye) Filename() string {
	return string(e) + "pupil.txt"
}

// SubjectRecord is one subject's before/after summary for one eye:
// window means with the -1 sentinel for invalid windows, plus the sample
// count and standard deviation backing the after-window significance test.
type SubjectRecord struct {
	Index       string
	Eye         Eye
	LumBefore   float64
	PupilBefore float64
	CountBefore int
	StdBefore   float64
	LumAfter    float64
	PupilAfter  float64
	CountAfter  int
	StdAfter    float64
}

// Observed returns the after-window distribution for significance testing.
func (r SubjectRecord) Observed() stats.Sample {
	return stats.Sample{Mean: r.PupilAfter, StdDev: r.StdAfter, N: r.CountAfter}
}

// Marshal renders the record as one whitespace-separated line (no newline):
//
//	index lumBefore pupilBefore countBefore stdBefore lumAfter pupilAfter countAfter stdAfter
func Marshal(r SubjectRecord) string {
	return fmt.Sprintf("%s %.3f %.3f %d %.3f %.3f %.3f %d %.3f",
		r.Index,
		r.LumBefore, r.PupilBefore, r.CountBefore, r.StdBefore,
		r.LumAfter, r.PupilAfter, r.CountAfter, r.StdAfter)
}

// Parse reads one flat line back into a SubjectRecord. The eye is not part
// of the line format; it is implied by the file and set by the caller.
func Parse(line string) (SubjectRecord, error) {
	var r SubjectRecord
	n, err := fmt.Sscan(line,
		&r.Index,
		&r.LumBefore, &r.PupilBefore, &r.CountBefore, &r.StdBefore,
		&r.LumAfter, &r.PupilAfter, &r.CountAfter, &r.StdAfter)
	if err != nil {
		return SubjectRecord{}, fmt.Errorf("parse record line %q: %w", line, err)
	}
	if n != 9 {
		return SubjectRecord{}, fmt.Errorf("parse record line %q: %d fields", line, n)
	}
	return r, nil
}

// WriteFile writes records to path in the flat format, one line per record.
func WriteFile(path string, recs []SubjectRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, r := range recs {
		fmt.Fprintln(w, Marshal(r))
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadFile parses a flat record file, labelling every record with eye.
// Malformed lines are skipped locally, matching the loader policy.
func ReadFile(path string, eye Eye) ([]SubjectRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var recs []SubjectRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		r, err := Parse(line)
		if err != nil {
			continue
		}
		r.Eye = eye
		recs = append(recs, r)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return recs, nil
}
