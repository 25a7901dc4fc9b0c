package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/evolab/pupilstat/internal/calibration"
	"github.com/evolab/pupilstat/internal/config"
	"github.com/evolab/pupilstat/internal/record"
	"github.com/evolab/pupilstat/internal/stats"
	"github.com/evolab/pupilstat/internal/storage"
)

// mappingSet lazily loads per-subject calibration mappings from a directory,
// remembering which subjects have no mapping file at all.
type mappingSet struct {
	dir     string
	cache   map[string]*calibration.Mapping
	missing map[string]bool
}

func newMappingSet(dir string) *mappingSet {
	return &mappingSet{
		dir:     dir,
		cache:   make(map[string]*calibration.Mapping),
		missing: make(map[string]bool),
	}
}

// get returns the subject's mapping, or nil when the mapping file is
// missing. A missing file is a soft failure recorded for the report; any
// other load error is returned.
func (s *mappingSet) get(index string) (*calibration.Mapping, error) {
	if s.missing[index] {
		return nil, nil
	}
	if m, ok := s.cache[index]; ok {
		return m, nil
	}

	m, err := calibration.LoadMapping(calibration.MappingPath(s.dir, index))
	if err != nil {
		if errors.Is(err, calibration.ErrMappingMissing) {
			s.missing[index] = true
			return nil, nil
		}
		return nil, err
	}
	s.cache[index] = m
	return m, nil
}

// missingIndices returns the subjects without a mapping file, sorted.
func (s *mappingSet) missingIndices() []string {
	out := make([]string, 0, len(s.missing))
	for idx := range s.missing {
		out = append(out, idx)
	}
	sort.Strings(out)
	return out
}

// expectedFor resolves a window luminance against the mapping for one eye.
// A sentinel luminance never reaches the nearest-row lookup.
func expectedFor(m *calibration.Mapping, eye record.Eye, lum float64) float64 {
	if lum <= 0 {
		return stats.Sentinel
	}
	row := m.Nearest(lum)
	if eye == record.Left {
		return row.AvgLeft
	}
	return row.AvgRight
}

// expectedRow is one subject-eye line of the expected-pupil report.
type expectedRow struct {
	Index          string  `json:"index"`
	Eye            string  `json:"eye"`
	LumBefore      float64 `json:"lum_before"`
	ExpectedBefore float64 `json:"expected_before"`
	LumAfter       float64 `json:"lum_after"`
	ExpectedAfter  float64 `json:"expected_after"`
	ObservedAfter  float64 `json:"observed_after"`
}

// expectedJSON is the JSON output structure for the expected command.
type expectedJSON struct {
	Rows               []expectedRow `json:"rows"`
	CalibrationMissing []string      `json:"calibration_missing"`
	AllRecords         viewJSON      `json:"all_records"`
	PerSubject         viewJSON      `json:"per_subject"`
}

// Execute implements the go-flags Commander interface for ExpectedCommand.
func (c *ExpectedCommand) Execute(args []string) error {
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

// executeWithStore runs the expected-pupil mapping against a provided store
// (used by tests).
func (c *ExpectedCommand) executeWithStore(cfg *config.Config, store storage.Store) error {
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
	var rows []expectedRow
	var points []subjectPoint
	all := newAggView()

	for _, r := range recs {
		m, err := mappings.get(r.Index)
		if err != nil {
			return err
		}
		if m == nil {
			continue
		}

		expBefore := expectedFor(m, r.Eye, r.LumBefore)
		expAfter := expectedFor(m, r.Eye, r.LumAfter)

		rows = append(rows, expectedRow{
			Index:          r.Index,
			Eye:            string(r.Eye),
			LumBefore:      r.LumBefore,
			ExpectedBefore: expBefore,
			LumAfter:       r.LumAfter,
			ExpectedAfter:  expAfter,
			ObservedAfter:  r.PupilAfter,
		})
		all.update(expBefore, expAfter)
		points = append(points, subjectPoint{Index: r.Index, Before: expBefore, After: expAfter})
	}

	perSubject, _ := perSubjectView(points)
	missing := mappings.missingIndices()

	if c.globals != nil && c.globals.JSON {
		return printExpectedJSON(rows, missing, all, perSubject)
	}
	printExpectedHuman(rows, missing, all, perSubject)
	return nil
}

// allRecords loads both eyes' records ordered by subject then eye.
func allRecords(store storage.Store) ([]record.SubjectRecord, error) {
	ctx := context.Background()
	lefts, err := store.Records(ctx, record.Left)
	if err != nil {
		return nil, err
	}
	rights, err := store.Records(ctx, record.Right)
	if err != nil {
		return nil, err
	}

	recs := append(lefts, rights...)
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Index != recs[j].Index {
			return recs[i].Index < recs[j].Index
		}
		return recs[i].Eye < recs[j].Eye
	})
	return recs, nil
}

func printExpectedHuman(rows []expectedRow, missing []string, all, perSubject aggView) {
	fmt.Println("Expected Pupil Size")
	fmt.Println("===================")
	fmt.Printf("%-10s %-6s %10s %10s %10s %10s %10s\n",
		"Index", "Eye", "LumBefore", "ExpBefore", "LumAfter", "ExpAfter", "Observed")
	for _, r := range rows {
		fmt.Printf("%-10s %-6s %10s %10s %10s %10s %10s\n",
			r.Index, r.Eye,
			formatValue(r.LumBefore), formatValue(r.ExpectedBefore),
			formatValue(r.LumAfter), formatValue(r.ExpectedAfter),
			formatValue(r.ObservedAfter))
	}

	fmt.Println()
	fmt.Println("Expected values, all records:")
	printViewHuman(all)
	fmt.Println()
	fmt.Println("Expected values, per-subject average:")
	printViewHuman(perSubject)

	if len(missing) > 0 {
		fmt.Println()
		fmt.Printf("Calibration missing: %d\n", len(missing))
		for _, idx := range missing {
			fmt.Printf("  %s\n", idx)
		}
	}
}

func printExpectedJSON(rows []expectedRow, missing []string, all, perSubject aggView) error {
	out := expectedJSON{
		Rows:               rows,
		CalibrationMissing: missing,
		AllRecords:         viewToJSON(all),
		PerSubject:         viewToJSON(perSubject),
	}
	if out.Rows == nil {
		out.Rows = []expectedRow{}
	}
	if out.CalibrationMissing == nil {
		out.CalibrationMissing = []string{}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
