package lookup

import "errors"

var (
	// ErrUnknownMethod is returned for an invalid interpolation or
	// extrapolation identifier.
	ErrUnknownMethod = errors.New("lookup: unknown method")

	// ErrDimensionMismatch is returned when the coordinate arrays do not match
	// the grid dimensions or each other in length.
	ErrDimensionMismatch = errors.New("lookup: dimension mismatch")

	// ErrInvalidStep is returned for a zero, negative or non-finite
	// derivative step.
	ErrInvalidStep = errors.New("lookup: invalid derivative step")

	// ErrNilGrid is returned when no grid is supplied.
	ErrNilGrid = errors.New("lookup: nil grid")
)
