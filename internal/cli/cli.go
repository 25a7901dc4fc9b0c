// Package cli implements the pupilstat command-line interface.
package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Extract  *ExtractCommand
	Summary  *SummaryCommand
	Expected *ExpectedCommand
	TTest    *TTestCommand
	Export   *ExportCommand
	Status   *StatusCommand
	Purge    *PurgeCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "pupilstat"
	parser.LongDescription = "Event-windowed pupillometry extraction, calibration mapping, and significance testing."

	cmds := &commands{
		Extract:  &ExtractCommand{globals: &globals, version: version},
		Summary:  &SummaryCommand{globals: &globals, version: version},
		Expected: &ExpectedCommand{globals: &globals, version: version},
		TTest:    &TTestCommand{globals: &globals, version: version},
		Export:   &ExportCommand{globals: &globals, version: version},
		Status:   &StatusCommand{globals: &globals, version: version},
		Purge:    &PurgeCommand{globals: &globals, version: version},
	}

	parser.AddCommand("extract", "Extract before/after windows from recordings", "Walk a recordings directory, extract the before/after event windows of every subject, and store the per-eye summaries.", cmds.Extract)
	parser.AddCommand("summary", "Aggregate stored pupil records", "Aggregate stored pupil records: all-record and per-subject-average views.", cmds.Summary)
	parser.AddCommand("expected", "Map luminance to expected pupil size", "Resolve each record's window luminance against the subject's calibration mapping.", cmds.Expected)
	parser.AddCommand("ttest", "Test observed against expected pupil size", "Run a two-sample t-test of each record's after-window pupil size against its calibration-expected distribution.", cmds.TTest)
	parser.AddCommand("export", "Write records to flat per-eye files", "Write stored records to leftpupil.txt and rightpupil.txt in the flat line format.", cmds.Export)
	parser.AddCommand("status", "Show database statistics and last run", "Show database statistics, configuration paths, and the last extraction run's report.", cmds.Status)
	parser.AddCommand("purge", "Delete ALL stored analysis data", "Delete ALL stored records and runs. Destructive operation with safety prompt.", cmds.Purge)

	return parser, &globals, cmds
}

// Run is the main entry point for the pupilstat CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("pupilstat %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
