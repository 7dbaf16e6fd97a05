package pipeline

import (
	"github.com/banshee-data/kinematics/internal/event"
	"github.com/banshee-data/kinematics/internal/kinematics"
)

// restFramePairs are boosted into their own two-body rest frames.
var restFramePairs = [2][2]event.Particle{
	{event.K, event.PiMinus2},
	{event.PiMinus3, event.PiPlus4},
}

// transformEvent maps one event to one output row. Absent particles stay
// zero. In rest-frame mode a pair is boosted only when both members were read
// with all four components; otherwise the pair is not boosted and whatever
// was read passes through unchanged, so missing data never fails an event.
func transformEvent(e event.Event, mode Mode, velocityMPS float64) (event.Transformed, error) {
	var out event.Transformed

	switch mode {
	case RestFrame:
		for _, pair := range restFramePairs {
			a, b := e.Vector(pair[0]), e.Vector(pair[1])
			if !e.Complete(pair[0]) || !e.Complete(pair[1]) {
				out.Vectors[pair[0]], out.Vectors[pair[1]] = a, b
				continue
			}
			ra, rb, err := kinematics.BoostToRestFrame(a, b)
			if err != nil {
				return event.Transformed{}, err
			}
			out.Vectors[pair[0]], out.Vectors[pair[1]] = ra, rb
		}

	case LabFrame:
		for _, p := range event.Particles {
			v, ok := e.Get(p)
			if !ok {
				continue
			}
			tv, err := kinematics.Transform(v, velocityMPS)
			if err != nil {
				return event.Transformed{}, err
			}
			out.Vectors[p] = tv
		}

	default:
		return event.Transformed{}, errUnknownMode(mode)
	}

	return out, nil
}
