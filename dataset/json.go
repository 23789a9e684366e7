package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/bcicen/jstream"
)

// maxExactFloat is the largest magnitude below which every integer is exactly representable as float64.
const maxExactFloat = 1 << 53

// writeJSON emits one object per row on its own line, keys in column order.
func writeJSON(w io.Writer, ds *Dataset) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)

	names := make([][]byte, ds.Width())
	for j, name := range ds.Names() {
		encoded, err := json.Marshal(name)
		if err != nil {
			return fmt.Errorf("error encoding column name %q: %w", name, err)
		}
		names[j] = encoded
	}

	for i := 0; i < ds.Len(); i++ {
		buf.WriteByte('{')
		for j, column := range ds.columns {
			if j > 0 {
				buf.WriteByte(',')
			}
			buf.Write(names[j])
			buf.WriteByte(':')
			// Encode appends a newline which has to be dropped inside the object
			if err := encoder.Encode(column.Values[i]); err != nil {
				return &UnsupportedValueError{Column: column.Name, Row: i, Value: column.Values[i], Reason: err.Error()}
			}
			buf.Truncate(buf.Len() - 1)
		}
		buf.WriteString("}\n")
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// ReadJSON parses newline-delimited JSON objects, or a single top-level array of objects.
// Column order follows the first appearance of each key; keys missing from a record become nil.
// Integral numbers are returned as int64, other numbers as float64.
func ReadJSON(r io.Reader) (*Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading JSON input: %w", err)
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return New()
	}
	emitDepth := 0
	if trimmed[0] == '[' {
		emitDepth = 1
	}

	var (
		names    []string
		seen     = make(map[string]struct{})
		records  []map[string]any
		firstErr error
	)

	// jstream keeps the key order; numbers are taken from a second exact decode of each record
	// because jstream parses every number as float64.
	decoder := jstream.NewDecoder(bytes.NewReader(data), emitDepth).ObjectAsKVS()
	for mv := range decoder.Stream() {
		// keep draining the stream after an error so the decoder goroutine can finish
		if firstErr != nil {
			continue
		}
		kvs, ok := mv.Value.(jstream.KVS)
		if !ok {
			firstErr = fmt.Errorf("expected a JSON object at offset %d, got %T", mv.Offset, mv.Value)
			continue
		}
		exact, err := decodeExact(data, mv.Offset)
		if err != nil {
			firstErr = err
			continue
		}
		record := make(map[string]any, len(kvs))
		for _, kv := range kvs {
			if _, exists := seen[kv.Key]; !exists {
				seen[kv.Key] = struct{}{}
				names = append(names, kv.Key)
			}
			record[kv.Key] = normalizeJSONValue(exact[kv.Key])
		}
		records = append(records, record)
	}
	if err := decoder.Err(); err != nil {
		return nil, fmt.Errorf("error decoding JSON input: %w", err)
	}
	if firstErr != nil {
		return nil, firstErr
	}

	columns := make([]Column, len(names))
	for j, name := range names {
		values := make([]any, len(records))
		for i, record := range records {
			values[i] = record[name]
		}
		columns[j] = Column{Name: name, Values: values}
	}
	return New(columns...)
}

// decodeExact decodes the object starting at offset with numbers kept as json.Number.
func decodeExact(data []byte, offset int) (map[string]any, error) {
	if offset < 0 || offset >= len(data) {
		return nil, fmt.Errorf("JSON object offset %d is out of range", offset)
	}
	start := bytes.IndexByte(data[offset:], '{')
	if start < 0 {
		return nil, fmt.Errorf("expected a JSON object at offset %d", offset)
	}
	decoder := json.NewDecoder(bytes.NewReader(data[offset+start:]))
	decoder.UseNumber()
	var object map[string]any
	if err := decoder.Decode(&object); err != nil {
		return nil, fmt.Errorf("error decoding JSON object at offset %d: %w", offset, err)
	}
	return object, nil
}

// normalizeJSONValue converts integral numbers to int64, other numbers to float64 and walks nested values.
func normalizeJSONValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, err := x.Float64()
		if err != nil {
			// out of float64 range, keep the literal
			return x.String()
		}
		if f == math.Trunc(f) && math.Abs(f) <= maxExactFloat {
			return int64(f)
		}
		return f
	case map[string]any:
		for key, value := range x {
			x[key] = normalizeJSONValue(value)
		}
		return x
	case []any:
		for i := range x {
			x[i] = normalizeJSONValue(x[i])
		}
		return x
	}
	return v
}
