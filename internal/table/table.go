// Package table holds transformed events in an append-only columnar table
// with the fixed 16-column schema from event.ColumnNames.
package table

import (
	"fmt"

	"github.com/banshee-data/kinematics/internal/event"
)

// Table is an append-only set of float64 columns, one row per event.
// It is not safe for concurrent appends.
type Table struct {
	names   []string
	index   map[string]int
	columns [event.NumColumns][]float64
	failed  []bool
}

// New returns an empty table with room for capacity rows.
func New(capacity int) *Table {
	names := event.ColumnNames()
	t := &Table{
		names:  names,
		index:  make(map[string]int, len(names)),
		failed: make([]bool, 0, capacity),
	}
	for i, name := range names {
		t.index[name] = i
		t.columns[i] = make([]float64, 0, capacity)
	}
	return t
}

// Append adds one row.
func (t *Table) Append(row event.Transformed) {
	t.appendValues(row.Values(), false)
}

// AppendFailed adds a zero row flagged as failed, keeping row i aligned with
// input event i when a transform is skipped.
func (t *Table) AppendFailed() {
	t.appendValues([event.NumColumns]float64{}, true)
}

func (t *Table) appendValues(vals [event.NumColumns]float64, failed bool) {
	for i, v := range vals {
		t.columns[i] = append(t.columns[i], v)
	}
	t.failed = append(t.failed, failed)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.failed)
}

// ColumnNames returns the schema in row order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Column returns the named column. The slice aliases table storage and must
// not be modified. Table satisfies event.Columns.
func (t *Table) Column(name string) ([]float64, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// Row returns row i. It panics if i is out of range.
func (t *Table) Row(i int) event.Transformed {
	if i < 0 || i >= t.Len() {
		panic(fmt.Sprintf("table: row %d out of range [0,%d)", i, t.Len()))
	}
	var vals [event.NumColumns]float64
	for c := range vals {
		vals[c] = t.columns[c][i]
	}
	return event.TransformedFromValues(vals)
}

// Values returns row i flattened in schema order.
func (t *Table) Values(i int) [event.NumColumns]float64 {
	return t.Row(i).Values()
}

// Failed reports whether row i stands in for a failed transform.
func (t *Table) Failed(i int) bool {
	return t.failed[i]
}

// FailedRows lists the indexes of failed rows.
func (t *Table) FailedRows() []int {
	var out []int
	for i, f := range t.failed {
		if f {
			out = append(out, i)
		}
	}
	return out
}
