package kinematics

import (
	"errors"
	"fmt"
)

// ErrDomain matches any DomainError via errors.Is.
var ErrDomain = errors.New("kinematics: domain error")

// DomainError reports a boost that is undefined: |β| >= 1, a NaN velocity,
// or a pair with zero combined energy.
type DomainError struct {
	Op     string
	Beta   float64
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s (beta=%g)", e.Op, e.Reason, e.Beta)
}

// Is makes errors.Is(err, ErrDomain) true for every DomainError.
func (e *DomainError) Is(target error) bool {
	return target == ErrDomain
}
