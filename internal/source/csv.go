package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadCSV reads a header row followed by numeric rows. Every row must have
// as many fields as the header; an empty field reads as 0.
func ReadCSV(r io.Reader) (*ColumnSet, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read csv header: empty input")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	header = append([]string(nil), header...)

	data := make([][]float64, len(header))
	for row := 1; ; row++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", row, err)
		}
		for i, field := range record {
			field = strings.TrimSpace(field)
			if field == "" {
				data[i] = append(data[i], 0)
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("csv row %d column %q: %w", row, header[i], err)
			}
			data[i] = append(data[i], v)
		}
	}

	set := NewColumnSet()
	for i, name := range header {
		values := data[i]
		if values == nil {
			values = []float64{}
		}
		if err := set.Add(name, values); err != nil {
			return nil, err
		}
	}
	return set, nil
}
