// Package table loads semi-structured delimited recordings and locates
// measurement columns and event-marker rows inside them.
//
// The eye-tracker exports are CSV-shaped but not RFC 4180: free-text
// annotation cells carry unbalanced quotes that encoding/csv rejects
// wholesale. The loader therefore splits each line on the delimiter
// verbatim and leaves all interpretation to the callers.
package table

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Table is an ordered sequence of rows of string cells. Row 0 is the header.
type Table [][]string

// Load reads a delimited table from r. It never fails on malformed rows;
// every line becomes a row of cells.
func Load(r *bufio.Scanner, delim string) Table {
	var t Table
	// Annotation rows can run long; raise the scanner's line limit.
	r.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for r.Scan() {
		t = append(t, strings.Split(r.Text(), delim))
	}
	return t
}

// LoadFile loads a delimited table from path. An unopenable source is an
// error for the caller to tally; batch processing continues elsewhere.
func LoadFile(path, delim string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording %s: %w", path, err)
	}
	defer f.Close()

	return Load(bufio.NewScanner(f), delim), nil
}
