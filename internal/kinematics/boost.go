package kinematics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// BoostVector returns β = (a.p + b.p) / (a.E + b.E), the velocity of the
// pair's centre-of-momentum frame.
func BoostVector(a, b FourVector) (r3.Vec, error) {
	etot := a.E + b.E
	if etot == 0 {
		return r3.Vec{}, &DomainError{Op: "boost vector", Beta: math.NaN(), Reason: "combined energy is zero"}
	}
	beta := r3.Scale(1/etot, r3.Add(a.P3(), b.P3()))
	if b2 := r3.Norm2(beta); !(b2 < 1) {
		return r3.Vec{}, &DomainError{Op: "boost vector", Beta: math.Sqrt(b2), Reason: "pair is not timelike"}
	}
	return beta, nil
}

// Boost returns v boosted by the velocity beta. The momentum is split into
// the components parallel and perpendicular to beta; only the parallel part
// and the energy mix.
func Boost(v FourVector, beta r3.Vec) (FourVector, error) {
	b2 := r3.Norm2(beta)
	if !(b2 < 1) {
		return FourVector{}, &DomainError{Op: "boost", Beta: math.Sqrt(b2), Reason: "|beta| must be below 1"}
	}
	if b2 == 0 {
		return v, nil
	}

	gamma := 1 / math.Sqrt(1-b2)
	bp := r3.Dot(beta, v.P3())
	gamma2 := (gamma - 1) / b2

	p := r3.Add(v.P3(), r3.Scale(gamma2*bp+gamma*v.E, beta))
	return FromP3(gamma*(v.E+bp), p), nil
}

// BoostToRestFrame re-expresses a and b in the frame where a.p + b.p = 0.
func BoostToRestFrame(a, b FourVector) (FourVector, FourVector, error) {
	beta, err := BoostVector(a, b)
	if err != nil {
		return FourVector{}, FourVector{}, err
	}

	// The rest frame moves with the pair, so the daughters are boosted by -β.
	inv := r3.Scale(-1, beta)
	ra, err := Boost(a, inv)
	if err != nil {
		return FourVector{}, FourVector{}, err
	}
	rb, err := Boost(b, inv)
	if err != nil {
		return FourVector{}, FourVector{}, err
	}
	return ra, rb, nil
}
