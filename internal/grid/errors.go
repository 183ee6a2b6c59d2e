package grid

import "errors"

var (
	// ErrRank is returned when a grid has no dimensions or more than MaxDims.
	ErrRank = errors.New("grid: ndim out of range")

	// ErrShapeMismatch is returned when the data buffer, the declared shape and
	// the breakpoint lengths disagree in count or per-axis length.
	ErrShapeMismatch = errors.New("grid: data shape does not match breakpoints")

	// ErrNonMonotonicBreakpoints is returned when an axis is not strictly
	// increasing (duplicates, decreasing values, NaN or infinities).
	ErrNonMonotonicBreakpoints = errors.New("grid: breakpoints are not strictly increasing")

	// ErrDuplicateName is returned when two axes share a dimension name.
	ErrDuplicateName = errors.New("grid: duplicate dimension name")

	// ErrIndexOutOfRange is returned by checked accessors.
	ErrIndexOutOfRange = errors.New("grid: index out of range")
)
