// Package kinematics implements the four-vector transforms used on decay
// samples: the two-body rest-frame boost and the collinear lab-frame Lorentz
// transformation.
//
// Every function here is pure. Nothing in this package logs, retains state
// or checks the mass shell of its inputs; callers own any policy about what
// to do with a DomainError.
package kinematics
