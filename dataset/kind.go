package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind is the scalar type a column is stored as by typed encodings (Parquet, SQL tables).
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindTime
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindTime:
		return "time"
	}
	return "string"
}

// IsScalar reports whether v is a value every format can encode.
func IsScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool, time.Time, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

// KindOf returns the kind of a scalar value; non-scalars are reported as KindString.
func KindOf(v any) Kind {
	switch x := v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32:
		return KindInt
	case uint64:
		if x > math.MaxInt64 {
			return KindFloat
		}
		return KindInt
	case float32, float64:
		return KindFloat
	case json.Number:
		if _, err := x.Int64(); err == nil {
			return KindInt
		}
		return KindFloat
	case time.Time:
		return KindTime
	}
	return KindString
}

// InferKind returns the narrowest kind holding every non-null value of a column.
// Integers mixed with floats widen to KindFloat; any other mix falls back to KindString.
func InferKind(values []any) Kind {
	kind := KindNull
	for _, v := range values {
		k := KindOf(v)
		switch {
		case k == KindNull || k == kind:
		case kind == KindNull:
			kind = k
		case (kind == KindInt && k == KindFloat) || (kind == KindFloat && k == KindInt):
			kind = KindFloat
		default:
			return KindString
		}
	}
	return kind
}

// FormatValue renders a scalar with the default formatting used by text encodings.
// nil renders as an empty string.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		return x.String()
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case float32:
		return formatFloat(float64(x), 32)
	case float64:
		return formatFloat(x, 64)
	}
	if i, ok := toInt64(v); ok {
		return strconv.FormatInt(i, 10)
	}
	return fmt.Sprint(v)
}

// formatFloat uses plain notation except for very small or very large magnitudes, like encoding/json.
func formatFloat(f float64, bits int) string {
	format := byte('f')
	if abs := math.Abs(f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	return strconv.FormatFloat(f, format, -1, bits)
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), uint64(x) <= math.MaxInt64
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), x <= math.MaxInt64
	case json.Number:
		i, err := x.Int64()
		return i, err == nil
	}
	return 0, false
}

// ToInt64 converts an integer scalar to int64.
func ToInt64(v any) (int64, bool) {
	return toInt64(v)
}

// ToFloat64 converts a numeric scalar to float64.
func ToFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case uint64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}
