// Package testutil provides shared test utilities and fixtures.
//
// This package centralises the physics fixtures (on-shell four-vectors,
// sample K π π π events) and assertion helpers used across test files.
package testutil

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/kinematics/internal/event"
	"github.com/banshee-data/kinematics/internal/kinematics"
)

// Particle masses in MeV.
const (
	KaonMass = 493.677
	PionMass = 139.57039
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertFourVectorNear fails the test unless every component of got is
// within tol (absolute or relative) of want.
func AssertFourVectorNear(t *testing.T, got, want kinematics.FourVector, tol float64) {
	t.Helper()
	g, w := got.Components(), want.Components()
	for i := range g {
		if !scalar.EqualWithinAbsOrRel(g[i], w[i], tol, tol) {
			t.Errorf("four-vector %v, want %v (component %d off by %g)", got, want, i, g[i]-w[i])
			return
		}
	}
}

// OnShell returns the four-vector of a particle with mass m and momentum p.
func OnShell(m float64, p r3.Vec) kinematics.FourVector {
	return kinematics.FromP3(math.Sqrt(m*m+r3.Norm2(p)), p)
}

// SampleEvent returns a fixed, fully populated event.
func SampleEvent() event.Event {
	return event.New(
		OnShell(KaonMass, r3.Vec{X: 120.5, Y: -340.25, Z: 1500}),
		OnShell(PionMass, r3.Vec{X: -80, Y: 60, Z: 900}),
		OnShell(PionMass, r3.Vec{X: 15, Y: 210, Z: 640}),
		OnShell(PionMass, r3.Vec{X: -55.5, Y: -70, Z: 410}),
	)
}

// RandomEvents returns n fully populated on-shell events drawn from rng.
func RandomEvents(rng *rand.Rand, n int) []event.Event {
	p := func(scale float64) r3.Vec {
		return r3.Vec{X: rng.NormFloat64() * scale, Y: rng.NormFloat64() * scale, Z: rng.NormFloat64() * scale}
	}
	events := make([]event.Event, n)
	for i := range events {
		events[i] = event.New(
			OnShell(KaonMass, p(1000)),
			OnShell(PionMass, p(500)),
			OnShell(PionMass, p(500)),
			OnShell(PionMass, p(500)),
		)
	}
	return events
}
