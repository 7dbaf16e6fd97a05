package source

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ReadArrow reads every record batch of an Arrow IPC stream and collects its
// float64 fields into a ColumnSet. Fields of other types are ignored; nulls
// read as 0.
func ReadArrow(r io.Reader) (*ColumnSet, error) {
	reader, err := ipc.NewReader(r, ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}
	defer reader.Release()

	schema := reader.Schema()
	data := make(map[string][]float64)
	for _, f := range schema.Fields() {
		if f.Type.ID() == arrow.FLOAT64 {
			data[f.Name] = []float64{}
		}
	}

	for reader.Next() {
		record := reader.Record()
		for i, f := range record.Schema().Fields() {
			col, ok := record.Column(i).(*array.Float64)
			if !ok {
				continue
			}
			values := data[f.Name]
			for j := 0; j < col.Len(); j++ {
				if col.IsNull(j) {
					values = append(values, 0)
					continue
				}
				values = append(values, col.Value(j))
			}
			data[f.Name] = values
		}
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("failed to read arrow records: %w", err)
	}

	set := NewColumnSet()
	for _, f := range schema.Fields() {
		values, ok := data[f.Name]
		if !ok {
			continue
		}
		if err := set.Add(f.Name, values); err != nil {
			return nil, err
		}
	}
	return set, nil
}
