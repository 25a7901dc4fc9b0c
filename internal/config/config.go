package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default config file path.
const DefaultConfigPath = "~/.config/pupilstat/config.yaml"

// Config holds all pupilstat configuration.
type Config struct {
	Paths   PathsConfig   `yaml:"paths"`
	Schema  SchemaConfig  `yaml:"schema"`
	Window  WindowConfig  `yaml:"window"`
	Run     RunConfig     `yaml:"run"`
	Logging LoggingConfig `yaml:"logging"`
}

// PathsConfig locates the input recordings, the per-subject calibration
// mapping files, and the analysis database.
type PathsConfig struct {
	RecordingsDir     string `yaml:"recordings_dir"`
	DualRecordingsDir string `yaml:"dual_recordings_dir"`
	CalibrationDir    string `yaml:"calibration_dir"`
	DataDir           string `yaml:"data_dir"`
	SQLiteFile        string `yaml:"sqlite_file"`
}

// SchemaConfig maps each measured quantity to a column-resolution rule:
// the pupil columns resolve by header substring, the luminance column by a
// fixed offset from the resolved left-pupil column, time by fixed index.
// Schema variants of the recordings are a config change, not a code change.
type SchemaConfig struct {
	TimeColumn      int    `yaml:"time_column"`
	Delimiter       string `yaml:"delimiter"`
	LeftHeader      string `yaml:"left_header"`
	RightHeader     string `yaml:"right_header"`
	EventHeader     string `yaml:"event_header"`
	LuminanceOffset int    `yaml:"luminance_offset"`
}

// WindowConfig controls event-window geometry and markers.
type WindowConfig struct {
	LengthSeconds      float64 `yaml:"length_seconds"`
	OnsetOffsetSeconds float64 `yaml:"onset_offset_seconds"`
	PrimaryMarker      string  `yaml:"primary_marker"`
	SecondaryMarker    string  `yaml:"secondary_marker"`
	MinCoverage        float64 `yaml:"min_coverage"`
}

// RunConfig controls batch execution.
type RunConfig struct {
	Workers     int `yaml:"workers"`
	IndexLength int `yaml:"index_length"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read or contains invalid YAML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate rejects settings the pipeline cannot run with.
func (c *Config) validate() error {
	if c.Window.LengthSeconds <= 0 {
		return fmt.Errorf("window.length_seconds must be positive, got %v", c.Window.LengthSeconds)
	}
	if c.Window.MinCoverage < 0 || c.Window.MinCoverage > 1 {
		return fmt.Errorf("window.min_coverage must be in [0,1], got %v", c.Window.MinCoverage)
	}
	if c.Run.Workers < 1 {
		return fmt.Errorf("run.workers must be at least 1, got %d", c.Run.Workers)
	}
	if c.Schema.Delimiter == "" {
		return fmt.Errorf("schema.delimiter must not be empty")
	}
	return nil
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// SQLitePath returns the expanded path of the analysis database.
func (c *Config) SQLitePath() (string, error) {
	dir, err := ExpandPath(c.Paths.DataDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Paths.SQLiteFile), nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := ExpandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}
