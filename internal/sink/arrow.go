package sink

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/banshee-data/kinematics/internal/event"
	"github.com/banshee-data/kinematics/internal/table"
)

// Schema returns the Arrow schema of an output table: 16 non-nullable
// float64 fields named as event.ColumnNames.
func Schema() *arrow.Schema {
	names := event.ColumnNames()
	fields := make([]arrow.Field, len(names))
	for i, name := range names {
		fields[i] = arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Float64}
	}
	return arrow.NewSchema(fields, nil)
}

// Record converts t into a single Arrow record. The caller must Release it.
func Record(t *table.Table, mem memory.Allocator) arrow.Record {
	schema := Schema()
	builder := array.NewRecordBuilder(mem, schema)
	defer builder.Release()

	for i, f := range schema.Fields() {
		col, _ := t.Column(f.Name)
		builder.Field(i).(*array.Float64Builder).AppendValues(col, nil)
	}
	return builder.NewRecord()
}

// WriteArrow writes t as an Arrow IPC stream holding one record batch.
func WriteArrow(w io.Writer, t *table.Table) error {
	record := Record(t, memory.DefaultAllocator)
	defer record.Release()

	writer := ipc.NewWriter(w, ipc.WithSchema(record.Schema()))
	if err := writer.Write(record); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}
	return nil
}
