package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// neverHappeningCharacter is the DEL control character. It stands in for an empty string while
// "encoding/csv" writes a record, and is then replaced with a pair of quotes, so that an empty
// string ("") and a null (empty field) stay distinguishable in the output.
const neverHappeningCharacter = "\x7F"

func writeCSV(w io.Writer, ds *Dataset) error {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(ds.Names()); err != nil {
		return fmt.Errorf("error writing CSV header: %w", err)
	}

	record := make([]string, ds.Width())
	for i := 0; i < ds.Len(); i++ {
		for j, column := range ds.columns {
			v := column.Values[i]
			if !IsScalar(v) {
				return &UnsupportedValueError{Column: column.Name, Row: i, Value: v}
			}
			if v == nil {
				record[j] = ""
				continue
			}
			s := FormatValue(v)
			if strings.Contains(s, neverHappeningCharacter) {
				return &UnsupportedValueError{Column: column.Name, Row: i, Value: v,
					Reason: "contains the DEL control character"}
			}
			if s == "" {
				s = neverHappeningCharacter
			}
			record[j] = s
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("error writing CSV record %d: %w", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("error flushing CSV writer: %w", err)
	}

	_, err := io.WriteString(w, strings.ReplaceAll(buf.String(), neverHappeningCharacter, `""`))
	return err
}

// ReadCSV parses a CSV document with a header row.
// An unquoted empty field becomes nil and a quoted empty field the empty string, mirroring the writer.
// Integers, floats and the literals true/false are converted to typed values, so a string that looks
// like a number (such as "007") comes back as that number.
func ReadCSV(r io.Reader) (*Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading CSV input: %w", err)
	}
	lines := bytes.Split(data, []byte("\n"))
	reader := csv.NewReader(bytes.NewReader(data))

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return New()
	}
	if err != nil {
		return nil, fmt.Errorf("error reading CSV header: %w", err)
	}

	columns := make([]Column, len(header))
	for j, name := range header {
		columns[j] = Column{Name: name}
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV record: %w", err)
		}
		for j, field := range record {
			var value any
			if field == "" {
				if line, column := reader.FieldPos(j); quotedAt(lines, line, column) {
					value = ""
				}
			} else {
				value = parseCSVField(field)
			}
			columns[j].Values = append(columns[j].Values, value)
		}
	}

	return New(columns...)
}

// quotedAt reports whether the field starting at the 1-based line and byte column opens with a quote.
func quotedAt(lines [][]byte, line, column int) bool {
	if line < 1 || line > len(lines) || column < 1 || column > len(lines[line-1]) {
		return false
	}
	return lines[line-1][column-1] == '"'
}

func parseCSVField(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return s
}
