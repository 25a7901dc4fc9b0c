package table

import (
	"fmt"
	"strings"
)

// NotFound marks a column or row that could not be located.
const NotFound = -1

// Columns holds the resolved indices of the measured quantities.
type Columns struct {
	Time      int
	Left      int
	Right     int
	Luminance int
}

// FindColumn returns the index of the first header cell containing sub
// (case-sensitive, cells trimmed), or NotFound.
func FindColumn(header []string, sub string) int {
	for i, cell := range header {
		if strings.Contains(strings.TrimSpace(cell), sub) {
			return i
		}
	}
	return NotFound
}

// FindMeasurementColumns scans the header for the left and right
// measurement columns. Either index may be NotFound; callers must treat
// that as "feature unavailable for this subject" and skip.
func FindMeasurementColumns(header []string, leftSub, rightSub string) (left, right int) {
	left, right = NotFound, NotFound
	for i, cell := range header {
		trimmed := strings.TrimSpace(cell)
		if strings.Contains(trimmed, leftSub) {
			left = i
		}
		if strings.Contains(trimmed, rightSub) {
			right = i
		}
	}
	return left, right
}

// LuminanceColumn resolves the ambient-luminance column by fixed offset
// from an already-resolved column. The recordings place luminance
// immediately left of the left-pupil column; the offset lives in config
// so a schema variant is a config change.
func LuminanceColumn(anchorCol, offset int) (int, error) {
	col := anchorCol + offset
	if col < 0 {
		return NotFound, fmt.Errorf("luminance column out of range: %d%+d", anchorCol, offset)
	}
	return col, nil
}

// FindEventRow returns the first data row (row >= 1) with any cell
// containing marker, or NotFound. Event text sits inside a free-text
// annotation cell among otherwise numeric rows, so substring search is
// the only robust way to spot it.
func FindEventRow(t Table, marker string) int {
	for i := 1; i < len(t); i++ {
		for _, cell := range t[i] {
			if strings.Contains(cell, marker) {
				return i
			}
		}
	}
	return NotFound
}

// FindEventRows scans rows >= 1 restricted to eventCol for the primary and
// secondary markers in a single pass, stopping once both are found.
// Either result may remain NotFound.
func FindEventRows(t Table, eventCol int, primary, secondary string) (primaryRow, secondaryRow int) {
	primaryRow, secondaryRow = NotFound, NotFound
	for i := 1; i < len(t); i++ {
		if len(t[i]) <= eventCol {
			continue
		}
		cell := t[i][eventCol]
		if primaryRow == NotFound && strings.Contains(cell, primary) {
			primaryRow = i
		}
		if secondaryRow == NotFound && strings.Contains(cell, secondary) {
			secondaryRow = i
		}
		if primaryRow != NotFound && secondaryRow != NotFound {
			break
		}
	}
	return primaryRow, secondaryRow
}
