package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"datalanding/dataset"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"
)

// ParquetReader reads the rows of a flat Parquet file, converting values with a Transformer.
// It implements the interface pgx.CopyFromSource, so a file can be copied into a table row by row.
type ParquetReader struct {
	// fileInfo contains metadata and details of the file to be processed, such as its path, size, etc.
	fileInfo FileInfo

	// mapper converts Parquet values; when nil a SchemaTransformer of the opened file is used.
	mapper Transformer

	// isOpen indicates whether the ParquetReader is currently open and ready for processing.
	isOpen bool

	// wasClosed indicates whether the ParquetReader was closed after being opened.
	wasClosed bool

	// lastError stores the most recent error encountered by the ParquetReader, or nil if no errors occurred.
	lastError error

	// file represents the underlying os.File, used to read the current Parquet file's data.
	file *os.File

	// parquetFile is a reference to the open Parquet file being processed by the ParquetReader.
	parquetFile *parquet.File

	// columns are the leaf column names in leaf order, kinds the matching value kinds.
	columns []string
	kinds   []dataset.Kind

	// rowCount represents the total number of rows in the Parquet file being processed.
	rowCount int64

	// rowGroup is the index of the next row group to read, and rows the reader of the current one.
	rowGroup int
	rows     parquet.Rows
	buffer   []parquet.Row

	// nextRow the data of the current row, represented as a slice of any to accommodate any type.
	nextRow []any

	// rowCounter keeps track of the number of rows processed by the ParquetReader during iteration.
	rowCounter int64
}

// NewParquetReader creates a new instance of ParquetReader using the supplied FileInfo and Transformer.
// A nil transformer selects conversion by the file's own schema.
func NewParquetReader(file FileInfo, transformer Transformer) *ParquetReader {
	return &ParquetReader{
		fileInfo: file,
		mapper:   transformer,
	}
}

// Open opens the Parquet file for reading. Calling it again is an error.
func (r *ParquetReader) Open() error {
	if r.isOpen || r.wasClosed {
		return fmt.Errorf("the input file ParquetReader had been already open")
	}

	fileName := r.fileInfo.LocalPath
	osFile, err := os.Open(fileName)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", fileName, err)
	}
	r.file = osFile
	r.isOpen = true

	fileStat, err := r.file.Stat()
	if err != nil {
		return fmt.Errorf("failed to get file info for %s: %w", fileName, err)
	}
	f, err := parquet.OpenFile(r.file, fileStat.Size())
	if err != nil {
		return fmt.Errorf("failed to open the Parquet file %s: %w", fileName, err)
	}
	r.parquetFile = f
	r.rowCount = f.NumRows()

	schema := f.Schema()
	for _, path := range schema.Columns() {
		leaf, _ := schema.Lookup(path...)
		if leaf.MaxRepetitionLevel > 0 {
			return fmt.Errorf("repeated column %s in %s is not supported", strings.Join(path, "."), fileName)
		}
		r.columns = append(r.columns, strings.Join(path, "."))
		r.kinds = append(r.kinds, leafKind(leaf.Node))
	}
	if r.mapper == nil {
		r.mapper = NewSchemaTransformer(schema)
	}
	r.buffer = make([]parquet.Row, 1)

	log.Debug("Opened Parquet file", zap.String("file", fileName), zap.Int64("rowCount", r.rowCount),
		zap.Strings("columns", r.columns))
	return nil
}

// Close releases the resources held by the ParquetReader and closes the associated file if it is currently open.
func (r *ParquetReader) Close() (err error) {
	if r.rows != nil {
		_ = r.rows.Close()
		r.rows = nil
	}
	if r.isOpen {
		r.isOpen = false
		r.wasClosed = true
		err = r.file.Close()
		r.file = nil
	}
	return
}

func (r *ParquetReader) openIfNotDoneYet() {
	if r.lastError == nil && !r.isOpen && !r.wasClosed {
		r.lastError = r.Open()
	}
}

// Next advances to the next row, returning false at the end of the file or on error.
// It implements the interface pgx.CopyFromSource
func (r *ParquetReader) Next() bool {
	r.openIfNotDoneYet()
	if r.lastError != nil || !r.isOpen {
		return false
	}
	for {
		if r.rows == nil {
			rowGroups := r.parquetFile.RowGroups()
			if r.rowGroup >= len(rowGroups) {
				if err := r.Close(); err != nil {
					r.lastError = err
				}
				return false
			}
			log.Trace("RowGroup", zap.Int("index", r.rowGroup), zap.Int64("rows", rowGroups[r.rowGroup].NumRows()))
			r.rows = rowGroups[r.rowGroup].Rows()
			r.rowGroup++
		}

		n, err := r.rows.ReadRows(r.buffer)
		if err != nil && !errors.Is(err, io.EOF) {
			r.lastError = fmt.Errorf("error reading row %d: %w", r.rowCounter, err)
			return false
		}
		if n == 1 {
			row, err := r.transform(r.buffer[0])
			if err != nil {
				r.lastError = err
				return false
			}
			r.nextRow = row
			r.rowCounter++
			return true
		}
		// the row group is exhausted
		_ = r.rows.Close()
		r.rows = nil
	}
}

func (r *ParquetReader) transform(row parquet.Row) ([]any, error) {
	values := make([]any, len(r.columns))
	for _, x := range row {
		index := x.Column()
		if index < 0 || index >= len(values) {
			return nil, fmt.Errorf("row %d has a value of unknown column %d", r.rowCounter, index)
		}
		value, err := r.mapper.Transform(x)
		if err != nil {
			log.Error("Error transforming value", zap.Int("index", index), zap.Any("value", x), zap.Error(err))
			return nil, fmt.Errorf("error transforming column %s of row %d: %w", r.columns[index], r.rowCounter, err)
		}
		values[index] = value
	}
	log.Trace("Row", zap.Any("row", values), zap.Int64("rowCounter", r.rowCounter))
	return values, nil
}

// Values returns all values from the current row or an error if one occurred during the read process.
// It implements the interface pgx.CopyFromSource
func (r *ParquetReader) Values() ([]any, error) {
	if r.lastError != nil {
		return nil, r.lastError
	}
	return r.nextRow, nil
}

// Err returns the last error encountered by the ParquetReader, or nil if no error has occurred.
// It implements the interface pgx.CopyFromSource
func (r *ParquetReader) Err() error {
	return r.lastError
}

// Columns returns the leaf column names, opening the file if needed.
func (r *ParquetReader) Columns() ([]string, error) {
	r.openIfNotDoneYet()
	return r.columns, r.lastError
}

// Kinds returns the kind of each column as typed by the file schema, opening the file if needed.
func (r *ParquetReader) Kinds() ([]dataset.Kind, error) {
	r.openIfNotDoneYet()
	return r.kinds, r.lastError
}

// RowCount returns the total number of rows in the Parquet file being processed by the ParquetReader.
func (r *ParquetReader) RowCount() int64 {
	return r.rowCount
}

// ReadDataset reads all remaining rows into a Dataset and closes the reader.
func (r *ParquetReader) ReadDataset() (*dataset.Dataset, error) {
	defer func() {
		if err := r.Close(); err != nil {
			log.Error("Failed to close Parquet file", zap.Error(err))
		}
	}()

	names, err := r.Columns()
	if err != nil {
		return nil, err
	}
	columns := make([]dataset.Column, len(names))
	for j, name := range names {
		columns[j] = dataset.Column{Name: name, Values: make([]any, 0, r.rowCount)}
	}
	for r.Next() {
		for j, v := range r.nextRow {
			columns[j].Values = append(columns[j].Values, v)
		}
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return dataset.New(columns...)
}
