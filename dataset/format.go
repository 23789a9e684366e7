package dataset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrUnsupportedFormat is returned for a serialization format other than csv, json or parquet.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Format is a serialization format of a dataset.
type Format string

const (
	CSV     Format = "csv"
	JSON    Format = "json"
	Parquet Format = "parquet"
)

// Formats lists the recognized formats in presentation order.
var Formats = []Format{CSV, JSON, Parquet}

// ParseFormat converts a user-supplied name into a Format.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
	return f, nil
}

// Valid reports whether f is one of the recognized formats.
func (f Format) Valid() bool {
	switch f {
	case CSV, JSON, Parquet:
		return true
	}
	return false
}

// ContentType is the fixed content type of a format, empty for an unrecognized one.
func (f Format) ContentType() string {
	switch f {
	case CSV:
		return "text/csv"
	case JSON:
		return "application/json"
	case Parquet:
		return "application/octet-stream"
	}
	return ""
}

// Extension returns the file extension including the leading dot.
func (f Format) Extension() string {
	if !f.Valid() {
		return ""
	}
	return "." + string(f)
}

// Serialize converts the dataset into the byte representation of the format.
func Serialize(ds *Dataset, format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, ds, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write serializes the dataset into w. Values are validated before the first byte is written.
func Write(w io.Writer, ds *Dataset, format Format) error {
	switch format {
	case CSV:
		return writeCSV(w, ds)
	case JSON:
		return writeJSON(w, ds)
	case Parquet:
		return writeParquet(w, ds)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(format))
}
