// Package event defines the four-body K→πππ event record and its column
// naming, and builds events from named numeric columns.
package event

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/kinematics/internal/kinematics"
)

// Particle identifies one of the four slots of an event.
type Particle int

const (
	K Particle = iota
	PiMinus2
	PiMinus3
	PiPlus4
)

// NumParticles is the fixed arity of an event.
const NumParticles = 4

// Particles lists every slot in output order.
var Particles = [NumParticles]Particle{K, PiMinus2, PiMinus3, PiPlus4}

var particleNames = [NumParticles]string{"K", "pi_minus_2", "pi_minus_3", "pi_plus_4"}

// Name returns the column prefix for p, e.g. "pi_minus_2".
func (p Particle) Name() string {
	if p < 0 || int(p) >= NumParticles {
		return "unknown"
	}
	return particleNames[p]
}

func (p Particle) String() string { return p.Name() }

// Components are the column suffixes of a four-vector, in [E, px, py, pz] order.
var Components = [4]string{"E", "px", "py", "pz"}

// NumColumns is the width of an output row.
const NumColumns = NumParticles * len(Components)

// ColumnName joins a particle and a component suffix: "K" + "px" -> "K_px".
func ColumnName(p Particle, component string) string {
	return p.Name() + "_" + component
}

// ColumnNames returns the 16 output column names in row order.
func ColumnNames() []string {
	names := make([]string, 0, NumColumns)
	for _, p := range Particles {
		for _, c := range Components {
			names = append(names, ColumnName(p, c))
		}
	}
	return names
}

// Event is an immutable K π π π record. A slot that was absent at ingestion
// reads as the zero four-vector and is reported by Missing. A present slot
// may still be incomplete when some of its component columns were missing;
// those components read as zero.
type Event struct {
	vectors  [NumParticles]kinematics.FourVector
	present  [NumParticles]bool
	complete [NumParticles]bool
}

// New returns an event with all four particles present.
func New(k, pi2, pi3, pi4 kinematics.FourVector) Event {
	return Event{
		vectors: [NumParticles]kinematics.FourVector{k, pi2, pi3, pi4},
		present:  [NumParticles]bool{true, true, true, true},
		complete: [NumParticles]bool{true, true, true, true},
	}
}

// Without returns a copy of e with p marked absent.
func (e Event) Without(p Particle) Event {
	e.vectors[p] = kinematics.FourVector{}
	e.present[p] = false
	e.complete[p] = false
	return e
}

// Complete reports whether p was read with all four components.
func (e Event) Complete(p Particle) bool {
	return e.complete[p]
}

// Get returns the four-vector for p and whether it was present.
func (e Event) Get(p Particle) (kinematics.FourVector, bool) {
	return e.vectors[p], e.present[p]
}

// Vector returns the four-vector for p, zero when absent.
func (e Event) Vector(p Particle) kinematics.FourVector {
	return e.vectors[p]
}

// Missing lists the particles absent from e, in slot order.
func (e Event) Missing() []Particle {
	var out []Particle
	for _, p := range Particles {
		if !e.present[p] {
			out = append(out, p)
		}
	}
	return out
}

// Transformed holds one output row: the four boosted or transformed vectors.
type Transformed struct {
	Vectors [NumParticles]kinematics.FourVector
}

// Values flattens t in ColumnNames order.
func (t Transformed) Values() [NumColumns]float64 {
	var out [NumColumns]float64
	for i, v := range t.Vectors {
		c := v.Components()
		copy(out[i*4:], c[:])
	}
	return out
}

// TransformedFromValues is the inverse of Values.
func TransformedFromValues(vals [NumColumns]float64) Transformed {
	var t Transformed
	for i := range t.Vectors {
		t.Vectors[i] = kinematics.New(vals[i*4], vals[i*4+1], vals[i*4+2], vals[i*4+3])
	}
	return t
}

// Directions returns the unit 3-momentum of each particle; a zero momentum
// stays zero. This is the input a decay-topology renderer draws from.
func (t Transformed) Directions() [NumParticles]r3.Vec {
	var out [NumParticles]r3.Vec
	for i, v := range t.Vectors {
		p := v.P3()
		if n := r3.Norm(p); n > 0 {
			out[i] = r3.Scale(1/n, p)
		}
	}
	return out
}
