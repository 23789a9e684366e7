package dataset

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
)

func sampleDataset(t *testing.T) *Dataset {
	t.Helper()
	ds, err := FromRows([]string{"id", "name", "score", "active"}, [][]any{
		{int64(1), "alice", 9.5, true},
		{int64(2), "bob, jr", nil, false},
		{int64(3), "carol \"c\"", 7.25, nil},
	})
	if err != nil {
		t.Fatalf("FromRows() error = %v", err)
	}
	return ds
}

func TestSerializeJSONScenario(t *testing.T) {
	ds, err := FromRows([]string{"id", "name"}, [][]any{{1, "a"}, {2, "b"}})
	if err != nil {
		t.Fatalf("FromRows() error = %v", err)
	}
	output, err := Serialize(ds, JSON)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	expected := "{\"id\":1,\"name\":\"a\"}\n{\"id\":2,\"name\":\"b\"}\n"
	if string(output) != expected {
		t.Errorf("JSON output did not match expected result.\nExpected:\n%s\nGot:\n%s", expected, output)
	}
}

func TestSerializeJSONNullsAndHTML(t *testing.T) {
	ds, _ := FromRows([]string{"tag", "note"}, [][]any{{"<b>", nil}})
	output, err := Serialize(ds, JSON)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	if expected := "{\"tag\":\"<b>\",\"note\":null}\n"; string(output) != expected {
		t.Errorf("Serialize() = %q; want %q", output, expected)
	}
}

func TestSerializeCSV(t *testing.T) {
	ds, _ := FromRows([]string{"ID", "Name", "Description"}, [][]any{
		{1, "Alice", nil},
		{2, "Bob", ""},
		{3, nil, nil},
		{4, "", "Empty Description"},
		{5, nil, "one,two"},
	})

	output, err := Serialize(ds, CSV)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	expected := `ID,Name,Description
1,Alice,
2,Bob,""
3,,
4,"",Empty Description
5,,"one,two"
`
	if string(output) != expected {
		t.Errorf("CSV output did not match expected result.\nExpected:\n%s\nGot:\n%s", expected, output)
	}
}

func TestSerializeCSVRejectsNestedValues(t *testing.T) {
	ds, _ := FromRows([]string{"id", "links"}, [][]any{{1, []any{"a", "b"}}})

	_, err := Serialize(ds, CSV)
	var valueErr *UnsupportedValueError
	if !errors.As(err, &valueErr) {
		t.Fatalf("Serialize() error = %v; want UnsupportedValueError", err)
	}
	if valueErr.Column != "links" || valueErr.Row != 0 {
		t.Errorf("UnsupportedValueError = %+v; want column links, row 0", valueErr)
	}

	flat, err := ds.Flatten()
	if err != nil {
		t.Fatalf("Flatten() error = %v", err)
	}
	output, err := Serialize(flat, CSV)
	if err != nil {
		t.Fatalf("Serialize() after Flatten() error = %v", err)
	}
	if !strings.Contains(string(output), `"[""a"",""b""]"`) {
		t.Errorf("flattened CSV = %q", output)
	}
}

func TestSerializeUnsupportedFormat(t *testing.T) {
	_, err := Serialize(sampleDataset(t), Format("xml"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Serialize() error = %v; want ErrUnsupportedFormat", err)
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		format Format
		read   func(r *bytes.Reader) (*Dataset, error)
	}{
		{format: CSV, read: func(r *bytes.Reader) (*Dataset, error) { return ReadCSV(r) }},
		{format: JSON, read: func(r *bytes.Reader) (*Dataset, error) { return ReadJSON(r) }},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			original, err := FromRows([]string{"id", "name", "score", "active"}, append(sampleDataset(t).Rows(),
				[]any{int64(1<<53 + 1), "", nil, true},
				[]any{int64(-1 << 62), nil, 0.1, false},
			))
			if err != nil {
				t.Fatalf("FromRows() error = %v", err)
			}
			output, err := Serialize(original, tt.format)
			if err != nil {
				t.Fatalf("Serialize() error = %v", err)
			}
			parsed, err := tt.read(bytes.NewReader(output))
			if err != nil {
				t.Fatalf("read error = %v", err)
			}
			if !reflect.DeepEqual(parsed.Names(), original.Names()) {
				t.Errorf("Names() = %v; want %v", parsed.Names(), original.Names())
			}
			if !reflect.DeepEqual(parsed.Rows(), original.Rows()) {
				t.Errorf("Rows() = %v; want %v", parsed.Rows(), original.Rows())
			}
		})
	}
}

func TestReadJSONArrayAndMissingKeys(t *testing.T) {
	input := `[
		{"name": "alice", "age": 30, "address": {"city": "Paris"}},
		{"name": "bob", "email": "bob@example.com", "ratio": 0.5}
	]`
	ds, err := ReadJSON(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if expected := []string{"name", "age", "address", "email", "ratio"}; !reflect.DeepEqual(ds.Names(), expected) {
		t.Errorf("Names() = %v; want %v", ds.Names(), expected)
	}
	expected := [][]any{
		{"alice", int64(30), map[string]any{"city": "Paris"}, nil, nil},
		{"bob", nil, nil, "bob@example.com", 0.5},
	}
	if !reflect.DeepEqual(ds.Rows(), expected) {
		t.Errorf("Rows() = %v; want %v", ds.Rows(), expected)
	}
}

func TestReadJSONKeepsLargeIntegers(t *testing.T) {
	input := "{\"id\":9007199254740993,\"big\":12345678901234567890,\"nested\":{\"n\":9007199254740995}}\n"
	ds, err := ReadJSON(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	expected := []any{int64(9007199254740993), 12345678901234567890.0, map[string]any{"n": int64(9007199254740995)}}
	if !reflect.DeepEqual(ds.Row(0), expected) {
		t.Errorf("Row(0) = %v; want %v", ds.Row(0), expected)
	}
}

func TestReadCSVEmptyStringAndNull(t *testing.T) {
	input := "a,b,c\n\"\",,007\n,\"\",x\r\n"
	ds, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	expected := [][]any{
		{"", nil, int64(7)},
		{nil, "", "x"},
	}
	if !reflect.DeepEqual(ds.Rows(), expected) {
		t.Errorf("Rows() = %v; want %v", ds.Rows(), expected)
	}
}

func TestReadJSONRejectsScalars(t *testing.T) {
	if _, err := ReadJSON(strings.NewReader("1\n2\n")); err == nil {
		t.Errorf("ReadJSON() was supposed to return an error for non-object records")
	}
}

func TestReadEmptyInput(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader(""))
	if err != nil || ds.Len() != 0 || ds.Width() != 0 {
		t.Errorf("ReadCSV(empty) = %v, %v; want empty dataset", ds, err)
	}
	ds, err = ReadJSON(strings.NewReader("  \n"))
	if err != nil || ds.Len() != 0 || ds.Width() != 0 {
		t.Errorf("ReadJSON(blank) = %v, %v; want empty dataset", ds, err)
	}
}

func TestSerializeParquet(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ds, err := FromRows([]string{"id", "name", "score", "created"}, [][]any{
		{1, "alice", 9.5, created},
		{2, nil, 3, created.Add(time.Hour)},
	})
	if err != nil {
		t.Fatalf("FromRows() error = %v", err)
	}

	output, err := Serialize(ds, Parquet)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	file, err := parquet.OpenFile(bytes.NewReader(output), int64(len(output)))
	if err != nil {
		t.Fatalf("parquet.OpenFile() error = %v", err)
	}
	if file.NumRows() != 2 {
		t.Errorf("NumRows() = %d; want 2", file.NumRows())
	}
	for _, name := range ds.Names() {
		if _, ok := file.Schema().Lookup(name); !ok {
			t.Errorf("column %q not found in the Parquet schema", name)
		}
	}
	leaf, _ := file.Schema().Lookup("score")
	if kind := leaf.Node.Type().Kind(); kind != parquet.Double {
		t.Errorf("score column kind = %v; want DOUBLE", kind)
	}
}

func TestSerializeParquetErrors(t *testing.T) {
	empty, _ := New()
	if _, err := Serialize(empty, Parquet); !errors.Is(err, ErrNoColumns) {
		t.Errorf("Serialize(empty) error = %v; want ErrNoColumns", err)
	}

	nested, _ := FromRows([]string{"tags"}, [][]any{{map[string]any{"a": 1}}})
	var valueErr *UnsupportedValueError
	if _, err := Serialize(nested, Parquet); !errors.As(err, &valueErr) {
		t.Errorf("Serialize(nested) error = %v; want UnsupportedValueError", err)
	}
}
