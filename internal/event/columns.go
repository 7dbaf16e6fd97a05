package event

import (
	"fmt"

	"github.com/banshee-data/kinematics/internal/kinematics"
)

// Columns is any source of named numeric columns. ok is false when the
// source has no column of that name.
type Columns interface {
	Column(name string) (values []float64, ok bool)
}

// Lookup returns the named column, or nil when it is absent. Absence is not
// an error here: a missing branch yields zero-valued fields downstream
// instead of aborting the read. A present column is never nil.
func Lookup(cols Columns, name string) []float64 {
	values, ok := cols.Column(name)
	if !ok {
		return nil
	}
	if values == nil {
		return []float64{}
	}
	return values
}

// ShapeMismatchError reports columns of unequal length within one source.
type ShapeMismatchError struct {
	Column string
	Len    int
	Want   int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("column %s has %d values, want %d", e.Column, e.Len, e.Want)
}

// FromColumns builds events from the 16 canonical columns (see ColumnNames).
// A particle is present when at least one of its component columns exists
// and complete when all four do; absent components read as zero.
// limit > 0 caps the number of events. All present columns must have the
// same length.
func FromColumns(cols Columns, limit int) ([]Event, error) {
	var data [NumParticles][4][]float64
	var present, complete [NumParticles]bool

	n := -1
	var first string
	for _, p := range Particles {
		complete[p] = true
		for ci, c := range Components {
			name := ColumnName(p, c)
			values := Lookup(cols, name)
			if values == nil {
				complete[p] = false
				continue
			}
			present[p] = true
			data[p][ci] = values
			if n < 0 {
				n, first = len(values), name
				continue
			}
			if len(values) != n {
				return nil, fmt.Errorf("reading events (reference column %s): %w", first,
					&ShapeMismatchError{Column: name, Len: len(values), Want: n})
			}
		}
	}
	if n < 0 {
		return nil, nil
	}
	if limit > 0 && limit < n {
		n = limit
	}

	events := make([]Event, n)
	for i := range events {
		var e Event
		for _, p := range Particles {
			if !present[p] {
				continue
			}
			var c [4]float64
			for ci, values := range data[p] {
				if values != nil {
					c[ci] = values[i]
				}
			}
			e.vectors[p] = kinematics.New(c[0], c[1], c[2], c[3])
			e.present[p] = true
			e.complete[p] = complete[p]
		}
		events[i] = e
	}
	return events, nil
}
