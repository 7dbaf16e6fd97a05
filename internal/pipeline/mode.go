package pipeline

import "fmt"

// Mode selects which transform a run applies.
type Mode int

const (
	// RestFrame boosts (K, pi_minus_2) and (pi_minus_3, pi_plus_4) into
	// their pair rest frames.
	RestFrame Mode = iota + 1
	// LabFrame applies the collinear Lorentz transform to every particle.
	LabFrame
)

func (m Mode) String() string {
	switch m {
	case RestFrame:
		return "rest"
	case LabFrame:
		return "lab"
	default:
		return "unknown"
	}
}

// ParseMode accepts "rest" or "lab".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "rest":
		return RestFrame, nil
	case "lab":
		return LabFrame, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (want rest or lab)", s)
	}
}
