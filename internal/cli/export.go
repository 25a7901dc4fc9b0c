package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/evolab/pupilstat/internal/config"
	"github.com/evolab/pupilstat/internal/record"
	"github.com/evolab/pupilstat/internal/storage"
)

// exportJSON is the JSON output structure for the export command.
type exportJSON struct {
	LeftFile   string `json:"left_file"`
	LeftCount  int    `json:"left_count"`
	RightFile  string `json:"right_file"`
	RightCount int    `json:"right_count"`
}

// Execute implements the go-flags Commander interface for ExportCommand.
func (c *ExportCommand) Execute(args []string) error {
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

// executeWithStore writes the flat per-eye files from a provided store
// (used by tests).
func (c *ExportCommand) executeWithStore(store storage.Store) error {
	outDir, err := config.ExpandPath(c.Out)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	out := exportJSON{}
	for _, eye := range []record.Eye{record.Left, record.Right} {
		recs, err := store.Records(context.Background(), eye)
		if err != nil {
			return err
		}

		path := filepath.Join(outDir, eye.Filename())
		if err := record.WriteFile(path, recs); err != nil {
			return err
		}

		if eye == record.Left {
			out.LeftFile, out.LeftCount = path, len(recs)
		} else {
			out.RightFile, out.RightCount = path, len(recs)
		}
	}

	if c.globals != nil && c.globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("Wrote %d left records to %s\n", out.LeftCount, out.LeftFile)
	fmt.Printf("Wrote %d right records to %s\n", out.RightCount, out.RightFile)
	return nil
}
