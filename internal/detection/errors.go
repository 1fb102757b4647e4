package detection

import "fmt"

// MalformedContourError reports a contour whose point data is structurally
// invalid (a point that is not a (row, column) pair, or a non-finite value).
// The contour is skipped and the run continues.
type MalformedContourError struct {
	Index  int // 1-based position in the input list
	Point  int // 0-based offending point, -1 when not point-specific
	Reason string
}

func (e *MalformedContourError) Error() string {
	if e.Point >= 0 {
		return fmt.Sprintf("contour %d: malformed point %d: %s", e.Index, e.Point, e.Reason)
	}
	return fmt.Sprintf("contour %d: malformed: %s", e.Index, e.Reason)
}

// DegenerateShapeError reports an edge whose descriptors cannot be computed
// (zero area, zero perimeter, zero median radius or a non-finite result).
type DegenerateShapeError struct {
	Index  int // source index of the contour
	Reason string
}

func (e *DegenerateShapeError) Error() string {
	return fmt.Sprintf("contour %d: degenerate shape: %s", e.Index, e.Reason)
}

// FittingError reports a numerical failure of the line fit. It is handled
// exactly like DegenerateShapeError.
type FittingError struct {
	Index  int // source index of the contour
	Reason string
}

func (e *FittingError) Error() string {
	return fmt.Sprintf("contour %d: line fit failed: %s", e.Index, e.Reason)
}

// ConfigurationError reports an invalid option value. It is returned before
// any contour is processed.
type ConfigurationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s=%v: %s", e.Field, e.Value, e.Reason)
}
