package kinematics

import "gonum.org/v1/gonum/spatial/r3"

// FourVector is an energy-momentum four-vector (E, px, py, pz).
type FourVector struct {
	E  float64
	Px float64
	Py float64
	Pz float64
}

// New returns the four-vector (e, px, py, pz).
func New(e, px, py, pz float64) FourVector {
	return FourVector{E: e, Px: px, Py: py, Pz: pz}
}

// FromP3 builds a four-vector from an energy and a 3-momentum.
func FromP3(e float64, p r3.Vec) FourVector {
	return FourVector{E: e, Px: p.X, Py: p.Y, Pz: p.Z}
}

// P3 returns the spatial part of v.
func (v FourVector) P3() r3.Vec {
	return r3.Vec{X: v.Px, Y: v.Py, Z: v.Pz}
}

// Add returns the component-wise sum v + o.
func (v FourVector) Add(o FourVector) FourVector {
	return FourVector{E: v.E + o.E, Px: v.Px + o.Px, Py: v.Py + o.Py, Pz: v.Pz + o.Pz}
}

// Components returns [E, px, py, pz], the column-vector order used by the
// Lorentz matrix.
func (v FourVector) Components() [4]float64 {
	return [4]float64{v.E, v.Px, v.Py, v.Pz}
}

// IsZero reports whether all four components are zero.
func (v FourVector) IsZero() bool {
	return v == FourVector{}
}
