package kinematics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/kinematics/internal/units"
)

// SpeedOfLight is c in m/s.
const SpeedOfLight = units.SpeedOfLight

// Gamma returns the Lorentz factor 1/sqrt(1-β²).
func Gamma(beta float64) (float64, error) {
	if math.IsNaN(beta) || math.Abs(beta) >= 1 {
		return 0, &DomainError{Op: "gamma", Beta: beta, Reason: "|beta| must be below 1"}
	}
	return 1 / math.Sqrt(1-beta*beta), nil
}

// BoostMatrix returns the 4x4 boost along the first spatial axis, acting on
// the column [E, px, py, pz]:
//
//	[ γ,   -γβ, 0, 0 ]
//	[ -γβ,  γ,  0, 0 ]
//	[ 0,    0,  1, 0 ]
//	[ 0,    0,  0, 1 ]
func BoostMatrix(beta float64) (*mat.Dense, error) {
	gamma, err := Gamma(beta)
	if err != nil {
		return nil, err
	}
	gb := -gamma * beta
	return mat.NewDense(4, 4, []float64{
		gamma, gb, 0, 0,
		gb, gamma, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}), nil
}

// Transform returns v as seen from a frame moving at velocityMPS (m/s) along
// the x axis. Only E and px change.
func Transform(v FourVector, velocityMPS float64) (FourVector, error) {
	beta := velocityMPS / SpeedOfLight
	m, err := BoostMatrix(beta)
	if err != nil {
		return FourVector{}, &DomainError{Op: "transform", Beta: beta, Reason: "|beta| must be below 1"}
	}

	c := v.Components()
	var out mat.VecDense
	out.MulVec(m, mat.NewVecDense(4, c[:]))
	return New(out.AtVec(0), out.AtVec(1), out.AtVec(2), out.AtVec(3)), nil
}
