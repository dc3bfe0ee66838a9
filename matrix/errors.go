package matrix

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch reports operand dimensions that are incompatible with
	// the requested operation.
	ErrShapeMismatch = errors.New("matrix: shape mismatch")
	// ErrSingular reports a 3x3 inverse of a matrix whose determinant
	// magnitude is below SingularThreshold.
	ErrSingular = errors.New("matrix: singular matrix")
	// ErrAlias reports a destination that shares storage with an operand
	// where the operation cannot run in place.
	ErrAlias = errors.New("matrix: destination aliases operand")
)

// Shape is a rows x cols pair.
type Shape struct {
	Rows, Cols int
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%d", s.Rows, s.Cols)
}

// ShapeError carries the shapes involved in a failed kernel operation.
type ShapeError struct {
	Op    string
	Left  Shape
	Right Shape
	Dst   Shape
}

func (e *ShapeError) Error() string {
	switch e.Op {
	case "multiply":
		return fmt.Sprintf("matrix: multiply shape mismatch (%s) * (%s) = (%s)", e.Left, e.Right, e.Dst)
	case "add", "subtract":
		return fmt.Sprintf("matrix: %s shape mismatch (%s), (%s) -> (%s)", e.Op, e.Left, e.Right, e.Dst)
	default:
		return fmt.Sprintf("matrix: %s shape mismatch (%s) -> (%s)", e.Op, e.Left, e.Dst)
	}
}

// Is makes errors.Is(err, ErrShapeMismatch) true for every ShapeError.
func (e *ShapeError) Is(target error) bool {
	return target == ErrShapeMismatch
}
