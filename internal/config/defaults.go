package config

// DefaultConfig returns a Config populated with all default values.
// The schema and window defaults describe the lab's standard recording
// layout: time in column 0, luminance immediately left of the left-pupil
// column, a 5-second window, and the 0.229s tag-to-onset offset measured
// for the single-event protocol.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			RecordingsDir:     "./recordings",
			DualRecordingsDir: "./recordings/dual",
			CalibrationDir:    "./calibration",
			DataDir:           "~/.local/share/pupilstat",
			SQLiteFile:        "pupilstat.db",
		},
		Schema: SchemaConfig{
			TimeColumn:      0,
			Delimiter:       ",",
			LeftHeader:      "leftPupil",
			RightHeader:     "rightPupil",
			EventHeader:     "robotEvent",
			LuminanceOffset: -1,
		},
		Window: WindowConfig{
			LengthSeconds:      5.0,
			OnsetOffsetSeconds: 0.229,
			PrimaryMarker:      "0.2 seconds",
			SecondaryMarker:    "shook",
			MinCoverage:        0.5,
		},
		Run: RunConfig{
			Workers:     4,
			IndexLength: 5,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}
