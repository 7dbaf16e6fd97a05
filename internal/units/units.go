// Package units provides shared constants and validation for velocity units.
// The kinematics engine works in m/s; everything else is converted at the edge.
package units

import "strings"

// SpeedOfLight is c in meters per second.
const SpeedOfLight = 299792458.0

// Unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
	C    = "c" // fraction of the speed of light
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{MPS, MPH, KMPH, KPH, C}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// ConvertToMPS converts a speed in the given units to meters per second.
// Unknown units are returned unchanged.
func ConvertToMPS(speed float64, fromUnits string) float64 {
	switch fromUnits {
	case MPS:
		return speed
	case MPH:
		return speed / 2.2369362920544
	case KMPH, KPH:
		return speed / 3.6
	case C:
		return speed * SpeedOfLight
	default:
		return speed
	}
}

// Beta returns the dimensionless velocity v/c for a speed in m/s.
func Beta(speedMPS float64) float64 {
	return speedMPS / SpeedOfLight
}
