// Package source reads named numeric columns from delimited text and Arrow
// IPC streams and maps them onto the canonical event column names.
package source

import (
	"fmt"
	"strings"

	"github.com/banshee-data/kinematics/internal/event"
)

var reserved = strings.NewReplacer("#", "plus", "~", "minus")

// NormalizeName replaces the reserved branch characters: '#' becomes "plus"
// and '~' becomes "minus".
func NormalizeName(name string) string {
	return reserved.Replace(name)
}

// ntupleBranches maps the decay ntuple's branch prefixes to particles.
var ntupleBranches = map[string]event.Particle{
	"_1_Kplus":   event.K,
	"_2_piminus": event.PiMinus2,
	"_3_piminus": event.PiMinus3,
	"_4_piplus":  event.PiPlus4,
}

var ntupleComponents = map[string]string{"E": "E", "Px": "px", "Py": "py", "Pz": "pz"}

// CanonicalName normalizes name and resolves ntuple branch names such as
// "_2_pi~_Px" to their canonical column ("pi_minus_2_px"). Any other name is
// returned normalized but otherwise unchanged.
func CanonicalName(name string) string {
	name = NormalizeName(strings.TrimSpace(name))
	i := strings.LastIndexByte(name, '_')
	if i <= 0 {
		return name
	}
	p, ok := ntupleBranches[name[:i]]
	if !ok {
		return name
	}
	c, ok := ntupleComponents[name[i+1:]]
	if !ok {
		return name
	}
	return event.ColumnName(p, c)
}

// ColumnSet is an in-memory set of named float64 columns. It satisfies
// event.Columns.
type ColumnSet struct {
	names []string
	cols  map[string][]float64
}

// NewColumnSet returns an empty ColumnSet.
func NewColumnSet() *ColumnSet {
	return &ColumnSet{cols: make(map[string][]float64)}
}

// Add stores values under the canonical form of name. Two source columns
// resolving to the same canonical name are an error.
func (c *ColumnSet) Add(name string, values []float64) error {
	canon := CanonicalName(name)
	if _, dup := c.cols[canon]; dup {
		return fmt.Errorf("duplicate column %q (from %q)", canon, name)
	}
	c.names = append(c.names, canon)
	c.cols[canon] = values
	return nil
}

// Column returns the named column and whether it exists.
func (c *ColumnSet) Column(name string) ([]float64, bool) {
	values, ok := c.cols[name]
	return values, ok
}

// Names returns the canonical column names in source order.
func (c *ColumnSet) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}
