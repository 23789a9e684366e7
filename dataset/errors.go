package dataset

import "fmt"

// UnsupportedValueError reports a value the chosen format cannot encode,
// typically a nested collection that has not been flattened.
type UnsupportedValueError struct {
	Column string
	Row    int
	Value  any
	Reason string
}

func (e *UnsupportedValueError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "not a scalar"
	}
	return fmt.Sprintf("unsupported value of type %T in column %q at row %d: %s", e.Value, e.Column, e.Row, reason)
}
