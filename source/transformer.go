package source

import (
	"fmt"
	"strings"
	"time"

	"datalanding/dataset"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"
)

// Transformer is an interface for transforming a parquet value into a different type or representation.
type Transformer interface {

	// Transform takes a parquet.Value and converts it into a different type or representation,
	// returning the transformed value or an error.
	Transform(x parquet.Value) (value any, err error)
}

// leafType is what the SchemaTransformer knows about one leaf column.
type leafType struct {
	name      string
	timestamp *format.TimestampType
	date      bool
}

// SchemaTransformer converts values to dataset scalars by the logical type of their leaf column:
// timestamps become time.Time, integers int64, floating point float64 and byte arrays strings.
type SchemaTransformer struct {
	leaves []leafType
}

// NewSchemaTransformer indexes the leaf columns of schema.
func NewSchemaTransformer(schema *parquet.Schema) *SchemaTransformer {
	paths := schema.Columns()
	t := &SchemaTransformer{leaves: make([]leafType, len(paths))}
	for _, path := range paths {
		leaf, ok := schema.Lookup(path...)
		if !ok {
			continue
		}
		info := leafType{name: strings.Join(path, ".")}
		if logical := leaf.Node.Type().LogicalType(); logical != nil {
			info.timestamp = logical.Timestamp
			info.date = logical.Date != nil
		}
		t.leaves[leaf.ColumnIndex] = info
	}
	return t
}

func (t *SchemaTransformer) Transform(x parquet.Value) (any, error) {
	if x.IsNull() {
		return nil, nil
	}
	index := x.Column()
	if index < 0 || index >= len(t.leaves) {
		return nil, fmt.Errorf("value of unknown column %d", index)
	}
	leaf := t.leaves[index]

	switch x.Kind() {
	case parquet.Boolean:
		return x.Boolean(), nil
	case parquet.Int32:
		if leaf.date {
			return time.Unix(int64(x.Int32())*24*60*60, 0).UTC(), nil
		}
		return int64(x.Int32()), nil
	case parquet.Int64:
		if leaf.timestamp != nil {
			return timestampValue(x.Int64(), leaf.timestamp.Unit), nil
		}
		return x.Int64(), nil
	case parquet.Float:
		return float64(x.Float()), nil
	case parquet.Double:
		return x.Double(), nil
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(x.ByteArray()), nil
	}
	// INT96 legacy timestamps and anything newer are kept in their textual form
	return x.String(), nil
}

func timestampValue(v int64, unit format.TimeUnit) time.Time {
	switch {
	case unit.Nanos != nil:
		return time.Unix(0, v).UTC()
	case unit.Micros != nil:
		return time.UnixMicro(v).UTC()
	}
	return time.UnixMilli(v).UTC()
}

// leafKind is the dataset kind of the values Transform returns for a leaf column.
func leafKind(node parquet.Node) dataset.Kind {
	typ := node.Type()
	logical := typ.LogicalType()
	switch typ.Kind() {
	case parquet.Boolean:
		return dataset.KindBool
	case parquet.Int32:
		if logical != nil && logical.Date != nil {
			return dataset.KindTime
		}
		return dataset.KindInt
	case parquet.Int64:
		if logical != nil && logical.Timestamp != nil {
			return dataset.KindTime
		}
		return dataset.KindInt
	case parquet.Float, parquet.Double:
		return dataset.KindFloat
	}
	return dataset.KindString
}
