// Package dataset holds the in-memory tabular model that is landed into buckets, directories and tables,
// together with its CSV, JSON-lines and Parquet encodings.
package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDataset is returned when columns violate the dataset invariants.
	ErrInvalidDataset = errors.New("invalid dataset")

	// ErrUnknownColumn is returned when a refinement names a column that does not exist.
	ErrUnknownColumn = errors.New("unknown column")
)

// Column is a named sequence of scalar values.
type Column struct {
	Name   string
	Values []any
}

// Dataset is an ordered sequence of named columns of equal length.
// A row is the tuple of values at the same index across all columns.
type Dataset struct {
	columns []Column
	index   map[string]int
}

// New builds a Dataset from columns, validating that names are unique and non-empty
// and that every column has the same length.
func New(columns ...Column) (*Dataset, error) {
	ds := &Dataset{
		columns: make([]Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, column := range columns {
		if column.Name == "" {
			return nil, fmt.Errorf("%w: column %d has an empty name", ErrInvalidDataset, i)
		}
		if _, exists := ds.index[column.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrInvalidDataset, column.Name)
		}
		if i > 0 && len(column.Values) != len(columns[0].Values) {
			return nil, fmt.Errorf("%w: column %q has %d values, expected %d", ErrInvalidDataset,
				column.Name, len(column.Values), len(columns[0].Values))
		}
		ds.index[column.Name] = i
		ds.columns = append(ds.columns, column)
	}
	return ds, nil
}

// FromRows builds a Dataset from column names and row tuples.
func FromRows(names []string, rows [][]any) (*Dataset, error) {
	columns := make([]Column, len(names))
	for j, name := range names {
		columns[j] = Column{Name: name, Values: make([]any, len(rows))}
	}
	for i, row := range rows {
		if len(row) != len(names) {
			return nil, fmt.Errorf("%w: row %d has %d values, expected %d", ErrInvalidDataset, i, len(row), len(names))
		}
		for j, v := range row {
			columns[j].Values[i] = v
		}
	}
	return New(columns...)
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil || len(d.columns) == 0 {
		return 0
	}
	return len(d.columns[0].Values)
}

// Width returns the number of columns.
func (d *Dataset) Width() int {
	if d == nil {
		return 0
	}
	return len(d.columns)
}

// Names returns the column names in order.
func (d *Dataset) Names() []string {
	names := make([]string, d.Width())
	for j := range names {
		names[j] = d.columns[j].Name
	}
	return names
}

// Columns returns the columns in order. The value slices are shared with the dataset.
func (d *Dataset) Columns() []Column {
	if d == nil {
		return nil
	}
	return append([]Column(nil), d.columns...)
}

// Column looks a column up by name.
func (d *Dataset) Column(name string) (Column, bool) {
	if d == nil {
		return Column{}, false
	}
	j, ok := d.index[name]
	if !ok {
		return Column{}, false
	}
	return d.columns[j], true
}

// Row returns a copy of the values at row i.
func (d *Dataset) Row(i int) []any {
	row := make([]any, len(d.columns))
	for j, column := range d.columns {
		row[j] = column.Values[i]
	}
	return row
}

// Rows returns copies of all rows.
func (d *Dataset) Rows() [][]any {
	rows := make([][]any, d.Len())
	for i := range rows {
		rows[i] = d.Row(i)
	}
	return rows
}
