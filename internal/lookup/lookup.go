// Package lookup evaluates functions tabulated on a rectilinear grid at
// arbitrary points. Evaluation, derivatives and resampling are pure functions
// over an immutable grid.Grid and are safe for concurrent use.
package lookup

import (
	"fmt"

	"github.com/example/go-lerp/internal/grid"
)

func validateMethods(interp Interp, extrap Extrap) error {
	if !interp.Valid() {
		return fmt.Errorf("%w: interpolation %d", ErrUnknownMethod, uint8(interp))
	}

	if !extrap.Valid() {
		return fmt.Errorf("%w: extrapolation %d", ErrUnknownMethod, uint8(extrap))
	}

	return nil
}

// validate checks the call before any numeric work and returns the number of
// query points.
func validate(g *grid.Grid, coords [][]float64, interp Interp, extrap Extrap) (int, error) {
	if g == nil {
		return 0, ErrNilGrid
	}

	if err := validateMethods(interp, extrap); err != nil {
		return 0, err
	}

	return checkCoords(g, coords)
}

func checkCoords(g *grid.Grid, coords [][]float64) (int, error) {
	if len(coords) != g.NDim() {
		return 0, fmt.Errorf("%w: %d coordinate arrays for %d dimensions", ErrDimensionMismatch, len(coords), g.NDim())
	}

	n := len(coords[0])
	for d, c := range coords {
		if len(c) != n {
			return 0, fmt.Errorf("%w: coordinate array %d has length %d, want %d", ErrDimensionMismatch, d, len(c), n)
		}
	}

	return n, nil
}

// forEachPoint runs fn for every query point, split across workers. x is
// the point's coordinates and is only valid during the call.
func forEachPoint(g *grid.Grid, coords [][]float64, n int, interp Interp, extrap Extrap, o options, fn func(e *evaluator, x []float64, j int)) {
	parallelFor(n, o, func(lo, hi int) {
		e := newEvaluator(g, interp, extrap)
		x := make([]float64, len(coords))

		for j := lo; j < hi; j++ {
			for d := range coords {
				x[d] = coords[d][j]
			}

			fn(e, x, j)
		}
	})
}

// Evaluate interpolates g at N points given as one coordinate array per
// dimension, each of length N.
func Evaluate(g *grid.Grid, coords [][]float64, interp Interp, extrap Extrap, opts ...Option) ([]float64, error) {
	n, err := validate(g, coords, interp, extrap)
	if err != nil {
		return nil, err
	}

	out := make([]float64, n)
	forEachPoint(g, coords, n, interp, extrap, gatherOptions(opts), func(e *evaluator, x []float64, j int) {
		out[j] = e.eval(x)
	})

	return out, nil
}

// EvaluateInto is Evaluate writing into dst, which must have length N.
func EvaluateInto(dst []float64, g *grid.Grid, coords [][]float64, interp Interp, extrap Extrap, opts ...Option) error {
	n, err := validate(g, coords, interp, extrap)
	if err != nil {
		return err
	}

	if len(dst) != n {
		return fmt.Errorf("%w: output length %d, want %d", ErrDimensionMismatch, len(dst), n)
	}

	forEachPoint(g, coords, n, interp, extrap, gatherOptions(opts), func(e *evaluator, x []float64, j int) {
		dst[j] = e.eval(x)
	})

	return nil
}

// EvaluatePoint interpolates g at a single point.
func EvaluatePoint(g *grid.Grid, point []float64, interp Interp, extrap Extrap) (float64, error) {
	if g == nil {
		return 0, ErrNilGrid
	}

	if err := validateMethods(interp, extrap); err != nil {
		return 0, err
	}

	if len(point) != g.NDim() {
		return 0, fmt.Errorf("%w: point has %d coordinates for %d dimensions", ErrDimensionMismatch, len(point), g.NDim())
	}

	return newEvaluator(g, interp, extrap).eval(point), nil
}

// OutOfRange reports, per query point, whether any coordinate lies outside
// the grid's closed range. Extrapolated values are still returned by
// Evaluate; this is for callers that want to flag them.
func OutOfRange(g *grid.Grid, coords [][]float64) ([]bool, error) {
	if g == nil {
		return nil, ErrNilGrid
	}

	n, err := checkCoords(g, coords)
	if err != nil {
		return nil, err
	}

	out := make([]bool, n)
	x := make([]float64, len(coords))

	for j := range out {
		for d := range coords {
			x[d] = coords[d][j]
		}

		out[j] = outOfRange(g, x)
	}

	return out, nil
}
