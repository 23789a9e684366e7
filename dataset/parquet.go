package dataset

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/parquet-go/parquet-go"
)

// ErrNoColumns is returned when a dataset without columns is written as Parquet or as a table.
var ErrNoColumns = errors.New("dataset has no columns")

// ParquetSchemaName is the name of the root group of written Parquet files.
const ParquetSchemaName = "dataset"

// ParquetSchema builds a flat schema with one optional leaf per column, typed by the inferred column kind.
// Note that parquet-go orders the leaves of a group by name, so readers must address columns by name.
func ParquetSchema(ds *Dataset) (*parquet.Schema, []Kind) {
	group := make(parquet.Group, ds.Width())
	kinds := make([]Kind, ds.Width())
	for j, column := range ds.columns {
		kinds[j] = InferKind(column.Values)
		group[column.Name] = parquet.Optional(parquetNode(kinds[j]))
	}
	return parquet.NewSchema(ParquetSchemaName, group), kinds
}

func writeParquet(w io.Writer, ds *Dataset) error {
	if ds.Width() == 0 {
		return ErrNoColumns
	}
	for _, column := range ds.columns {
		for i, v := range column.Values {
			if !IsScalar(v) {
				return &UnsupportedValueError{Column: column.Name, Row: i, Value: v}
			}
		}
	}

	schema, kinds := ParquetSchema(ds)
	leafIndex := make(map[string]int, ds.Width())
	for index, path := range schema.Columns() {
		leafIndex[path[0]] = index
	}

	rows := make([]parquet.Row, ds.Len())
	for i := range rows {
		row := make(parquet.Row, ds.Width())
		for j, column := range ds.columns {
			index := leafIndex[column.Name]
			v := column.Values[i]
			if v == nil {
				row[index] = parquet.NullValue().Level(0, 0, index)
			} else {
				row[index] = parquetValue(kinds[j], v).Level(0, 1, index)
			}
		}
		rows[i] = row
	}

	writer := parquet.NewWriter(w, schema)
	if _, err := writer.WriteRows(rows); err != nil {
		return fmt.Errorf("error writing Parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("error closing Parquet writer: %w", err)
	}
	return nil
}

func parquetNode(kind Kind) parquet.Node {
	switch kind {
	case KindBool:
		return parquet.Leaf(parquet.BooleanType)
	case KindInt:
		return parquet.Int(64)
	case KindFloat:
		return parquet.Leaf(parquet.DoubleType)
	case KindTime:
		return parquet.Timestamp(parquet.Millisecond)
	}
	return parquet.String()
}

func parquetValue(kind Kind, v any) parquet.Value {
	switch kind {
	case KindBool:
		return parquet.BooleanValue(v.(bool))
	case KindInt:
		i, _ := toInt64(v)
		return parquet.Int64Value(i)
	case KindFloat:
		f, _ := ToFloat64(v)
		return parquet.DoubleValue(f)
	case KindTime:
		return parquet.Int64Value(v.(time.Time).UnixMilli())
	}
	return parquet.ByteArrayValue([]byte(FormatValue(v)))
}
