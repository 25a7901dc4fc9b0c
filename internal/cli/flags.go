package cli

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// ExtractCommand — run the window-extraction batch over a recordings directory.
type ExtractCommand struct {
	Dir  string `long:"dir" description:"Override the recordings directory"`
	Dual bool   `long:"dual" description:"Use the dual-event protocol (explicit secondary marker)"`

	globals *GlobalFlags
	version string
}

// SummaryCommand — aggregate stored pupil records.
type SummaryCommand struct {
	Eye      string   `long:"eye" description:"Restrict to one eye: left | right"`
	FromFile []string `long:"from-file" description:"Read records from a flat file instead of the database (repeatable)"`

	globals *GlobalFlags
	version string
}

// ExpectedCommand — map window luminance to expected pupil size per subject.
type ExpectedCommand struct {
	CalibrationDir string `long:"calibration-dir" description:"Override the calibration mapping directory"`

	globals *GlobalFlags
	version string
}

// TTestCommand — test observed after-window pupil size against the
// calibration-expected distribution, per record.
type TTestCommand struct {
	Alpha          float64 `long:"alpha" description:"Significance level, strictly between 0 and 1" required:"true"`
	CalibrationDir string  `long:"calibration-dir" description:"Override the calibration mapping directory"`

	globals *GlobalFlags
	version string
}

// ExportCommand — write stored records to the flat per-eye files.
type ExportCommand struct {
	Out string `long:"out" description:"Output directory" default:"."`

	globals *GlobalFlags
	version string
}

// StatusCommand — show database statistics and the last run's report.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}

// PurgeCommand — delete all stored records and runs with safety confirmation.
type PurgeCommand struct {
	All   bool `long:"all" description:"Required flag to confirm purge intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
}
