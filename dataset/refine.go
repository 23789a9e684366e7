package dataset

import (
	"encoding/json"
	"fmt"
)

// MaskFunc replaces a non-null value with its masked representation.
type MaskFunc func(v any) any

// MaskPrefix2 keeps the first two characters of the rendered value and hides the rest.
func MaskPrefix2(v any) any {
	runes := []rune(FormatValue(v))
	if len(runes) > 2 {
		runes = runes[:2]
	}
	return string(runes) + "*****"
}

// Drop returns a dataset without the named columns.
func (d *Dataset) Drop(names ...string) (*Dataset, error) {
	drop := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := d.index[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
		}
		drop[name] = struct{}{}
	}
	kept := make([]Column, 0, len(d.columns))
	for _, column := range d.columns {
		if _, ok := drop[column.Name]; !ok {
			kept = append(kept, column)
		}
	}
	return New(kept...)
}

// Mask returns a dataset where every non-null value of the named column is replaced by mask(value).
func (d *Dataset) Mask(name string, mask MaskFunc) (*Dataset, error) {
	j, ok := d.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	columns := d.Columns()
	values := make([]any, len(columns[j].Values))
	for i, v := range columns[j].Values {
		if v != nil {
			v = mask(v)
		}
		values[i] = v
	}
	columns[j] = Column{Name: name, Values: values}
	return New(columns...)
}

// Flatten returns a dataset where every non-scalar value is replaced by its compact JSON text,
// so that it can be written as CSV or Parquet.
func (d *Dataset) Flatten() (*Dataset, error) {
	columns := d.Columns()
	for j, column := range columns {
		var values []any
		for i, v := range column.Values {
			if IsScalar(v) {
				continue
			}
			if values == nil {
				values = append([]any(nil), column.Values...)
			}
			encoded, err := json.Marshal(v)
			if err != nil {
				return nil, &UnsupportedValueError{Column: column.Name, Row: i, Value: v, Reason: err.Error()}
			}
			values[i] = string(encoded)
		}
		if values != nil {
			columns[j] = Column{Name: column.Name, Values: values}
		}
	}
	return New(columns...)
}
