// Package sink writes output tables as delimited text or Arrow IPC streams.
package sink

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/banshee-data/kinematics/internal/table"
)

// WriteCSV writes the column header followed by one line per row. Values
// use the shortest representation that round-trips to the same float64.
func WriteCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	names := t.ColumnNames()
	if err := cw.Write(names); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	record := make([]string, len(names))
	for i := 0; i < t.Len(); i++ {
		for c, v := range t.Values(i) {
			record[c] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
