// Package config loads JSON run configuration for the kinematics tools.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/kinematics/internal/units"
)

// Mode values accepted in config files and on the command line.
const (
	ModeRest = "rest"
	ModeLab  = "lab"
	ModeBoth = "both"
)

// Error policies.
const (
	PolicyFailFast    = "fail_fast"
	PolicySkipInvalid = "skip_invalid"
)

// RunConfig configures one batch run. Every field is optional; the Get*
// methods supply defaults for anything left out of the JSON file.
type RunConfig struct {
	Mode          *string  `json:"mode,omitempty"`           // rest, lab or both
	Velocity      *float64 `json:"velocity,omitempty"`       // lab-frame velocity in VelocityUnits
	VelocityUnits *string  `json:"velocity_units,omitempty"` // mps, mph, kmph, kph or c
	Workers       *int     `json:"workers,omitempty"`
	ErrorPolicy   *string  `json:"error_policy,omitempty"` // fail_fast or skip_invalid
	NumEvents     *int     `json:"num_events,omitempty"`   // 0 means all

	CSVPath   *string `json:"csv_path,omitempty"`
	ArrowPath *string `json:"arrow_path,omitempty"`
	DBPath    *string `json:"db_path,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// DefaultRunConfig returns a RunConfig with every field set to its default.
func DefaultRunConfig() *RunConfig {
	return &RunConfig{
		Mode:          ptrString(ModeRest),
		Velocity:      ptrFloat64(0),
		VelocityUnits: ptrString(units.MPS),
		Workers:       ptrInt(1),
		ErrorPolicy:   ptrString(PolicyFailFast),
		NumEvents:     ptrInt(0),
		CSVPath:       ptrString("final_branches.csv"),
		ArrowPath:     ptrString(""),
		DBPath:        ptrString(""),
	}
}

// LoadRunConfig loads a RunConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadRunConfig(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &RunConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *RunConfig) Validate() error {
	if c.Mode != nil {
		switch *c.Mode {
		case ModeRest, ModeLab, ModeBoth:
		default:
			return fmt.Errorf("mode must be one of rest, lab, both; got %q", *c.Mode)
		}
	}

	if c.VelocityUnits != nil && !units.IsValid(*c.VelocityUnits) {
		return fmt.Errorf("velocity_units must be one of %s; got %q", units.GetValidUnitsString(), *c.VelocityUnits)
	}

	// |v| >= c is rejected here so a bad config fails before any data is read.
	if c.Velocity != nil {
		if beta := units.Beta(c.GetVelocityMPS()); !(beta > -1 && beta < 1) {
			return fmt.Errorf("velocity must be below the speed of light, got beta=%g", beta)
		}
	}

	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}

	if c.ErrorPolicy != nil {
		switch *c.ErrorPolicy {
		case PolicyFailFast, PolicySkipInvalid:
		default:
			return fmt.Errorf("error_policy must be fail_fast or skip_invalid; got %q", *c.ErrorPolicy)
		}
	}

	if c.NumEvents != nil && *c.NumEvents < 0 {
		return fmt.Errorf("num_events must be non-negative, got %d", *c.NumEvents)
	}

	return nil
}

// GetMode returns the mode or the default.
func (c *RunConfig) GetMode() string {
	if c.Mode == nil || *c.Mode == "" {
		return ModeRest
	}
	return *c.Mode
}

// GetVelocityUnits returns the velocity units or the default (m/s).
func (c *RunConfig) GetVelocityUnits() string {
	if c.VelocityUnits == nil || *c.VelocityUnits == "" {
		return units.MPS
	}
	return *c.VelocityUnits
}

// GetVelocityMPS returns the lab-frame velocity converted to m/s.
func (c *RunConfig) GetVelocityMPS() float64 {
	if c.Velocity == nil {
		return 0
	}
	return units.ConvertToMPS(*c.Velocity, c.GetVelocityUnits())
}

// GetWorkers returns the worker count or the default.
func (c *RunConfig) GetWorkers() int {
	if c.Workers == nil || *c.Workers < 1 {
		return 1
	}
	return *c.Workers
}

// GetSkipInvalid reports whether failed events are skipped rather than
// aborting the run.
func (c *RunConfig) GetSkipInvalid() bool {
	return c.ErrorPolicy != nil && *c.ErrorPolicy == PolicySkipInvalid
}

// GetNumEvents returns the event limit; 0 means all events.
func (c *RunConfig) GetNumEvents() int {
	if c.NumEvents == nil || *c.NumEvents < 0 {
		return 0
	}
	return *c.NumEvents
}

// GetCSVPath returns the CSV output path or the default.
func (c *RunConfig) GetCSVPath() string {
	if c.CSVPath == nil {
		return "final_branches.csv"
	}
	return *c.CSVPath
}

// GetArrowPath returns the Arrow IPC output path; empty disables it.
func (c *RunConfig) GetArrowPath() string {
	if c.ArrowPath == nil {
		return ""
	}
	return *c.ArrowPath
}

// GetDBPath returns the SQLite store path; empty disables it.
func (c *RunConfig) GetDBPath() string {
	if c.DBPath == nil {
		return ""
	}
	return *c.DBPath
}
