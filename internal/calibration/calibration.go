// Package calibration loads per-subject luminance-to-expected-pupil-size
// mapping tables and resolves arbitrary luminance values to the nearest
// calibration row.
package calibration

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evolab/pupilstat/internal/stats"
)

// MappingSuffix is appended to a subject index to form the mapping filename.
const MappingSuffix = "_luminance_mapping.txt"

// ErrMappingMissing marks a subject without a calibration file. Soft
// failure: the subject is excluded from significance testing and tallied.
var ErrMappingMissing = errors.New("calibration mapping missing")

// Row is one luminance bucket of a subject's calibration table.
type Row struct {
	Luminance  float64
	AvgLeft    float64
	CountLeft  int
	StdLeft    float64
	AvgRight   float64
	CountRight int
	StdRight   float64
}

// SentinelRow is the explicit "no data" row returned by lookups against an
// empty mapping.
var SentinelRow = Row{
	Luminance: stats.Sentinel,
	AvgLeft:   stats.Sentinel, CountLeft: -1, StdLeft: stats.Sentinel,
	AvgRight: stats.Sentinel, CountRight: -1, StdRight: stats.Sentinel,
}

// LeftSample returns the left-eye expected distribution of the row.
func (r Row) LeftSample() stats.Sample {
	return stats.Sample{Mean: r.AvgLeft, StdDev: r.StdLeft, N: r.CountLeft}
}

// RightSample returns the right-eye expected distribution of the row.
func (r Row) RightSample() stats.Sample {
	return stats.Sample{Mean: r.AvgRight, StdDev: r.StdRight, N: r.CountRight}
}

// Mapping is a per-subject calibration table keyed and ordered by luminance.
type Mapping struct {
	keys []float64
	rows map[float64]Row
}

// Len returns the number of distinct luminance buckets.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Rows returns the calibration rows in ascending luminance order.
func (m *Mapping) Rows() []Row {
	out := make([]Row, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, m.rows[k])
	}
	return out
}

// put inserts a row, last write winning on a duplicate luminance key.
// Upstream calibration data is assumed one row per distinct luminance;
// the policy only matters for malformed inputs and is kept explicit.
func (m *Mapping) put(r Row) {
	if _, dup := m.rows[r.Luminance]; !dup {
		m.keys = append(m.keys, r.Luminance)
	}
	m.rows[r.Luminance] = r
}

// Nearest returns the row whose luminance is closest to target by absolute
// difference. An exact hit returns that row; an equidistant tie resolves to
// the lower luminance. The sentinel row is returned for an empty mapping.
func (m *Mapping) Nearest(target float64) Row {
	if m.Len() == 0 {
		return SentinelRow
	}

	i := sort.SearchFloat64s(m.keys, target)
	if i == len(m.keys) {
		return m.rows[m.keys[len(m.keys)-1]]
	}
	if i == 0 {
		return m.rows[m.keys[0]]
	}

	lower, upper := m.keys[i-1], m.keys[i]
	if target-lower <= upper-target {
		return m.rows[lower]
	}
	return m.rows[upper]
}

// MappingPath builds the mapping-file path for a subject index.
func MappingPath(dir, index string) string {
	return filepath.Join(dir, index+MappingSuffix)
}

// LoadMapping reads a whitespace-separated calibration table. The first
// non-empty line is a header and is skipped; malformed data lines are
// skipped locally. A missing file yields ErrMappingMissing.
func LoadMapping(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrMappingMissing)
		}
		return nil, fmt.Errorf("open mapping %s: %w", path, err)
	}
	defer f.Close()

	m := &Mapping{rows: make(map[float64]Row)}
	sc := bufio.NewScanner(f)
	headerSkipped := false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !headerSkipped {
			headerSkipped = true
			continue
		}

		var r Row
		if _, err := fmt.Sscan(line,
			&r.Luminance,
			&r.AvgLeft, &r.CountLeft, &r.StdLeft,
			&r.AvgRight, &r.CountRight, &r.StdRight,
		); err != nil {
			continue
		}
		m.put(r)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read mapping %s: %w", path, err)
	}

	sort.Float64s(m.keys)
	return m, nil
}
