package lookup

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/example/go-lerp/internal/grid"
)

// MeshPoints returns the ij-indexed cartesian product of coords as a matrix
// with one row per mesh point and one column per dimension. Rows are in
// row-major order of the mesh, matching grid.Grid data layout.
func MeshPoints(coords [][]float64) (*mat.Dense, error) {
	if len(coords) == 0 {
		return nil, fmt.Errorf("%w: no coordinate arrays", ErrDimensionMismatch)
	}

	shape := make([]int, len(coords))
	for d, c := range coords {
		shape[d] = len(c)
	}

	size, err := grid.SizeOf(shape)
	if err != nil {
		return nil, err
	}

	pts := mat.NewDense(size, len(coords), nil)
	sub := make([]int, len(coords))

	for i := range size {
		rem := i
		for d := len(shape) - 1; d >= 0; d-- {
			sub[d] = rem % shape[d]
			rem /= shape[d]
		}

		for d := range coords {
			pts.Set(i, d, coords[d][sub[d]])
		}
	}

	return pts, nil
}

// Meshgrid is MeshPoints flattened to aligned coordinate arrays, one per
// dimension, ready for Evaluate.
func Meshgrid(coords [][]float64) ([][]float64, error) {
	pts, err := MeshPoints(coords)
	if err != nil {
		return nil, err
	}

	out := make([][]float64, len(coords))
	for d := range out {
		out[d] = mat.Col(nil, d, pts)
	}

	return out, nil
}

// Resample evaluates g over the cartesian product of newCoords and returns
// the result as a new grid. A nil entry keeps that dimension's breakpoints.
// Names, axis metadata and the grid label and unit carry over.
func Resample(g *grid.Grid, newCoords [][]float64, interp Interp, extrap Extrap, opts ...Option) (*grid.Grid, error) {
	if g == nil {
		return nil, ErrNilGrid
	}

	if err := validateMethods(interp, extrap); err != nil {
		return nil, err
	}

	if len(newCoords) != g.NDim() {
		return nil, fmt.Errorf("%w: %d coordinate arrays for %d dimensions", ErrDimensionMismatch, len(newCoords), g.NDim())
	}

	axes := g.Axes()
	bps := make([][]float64, len(axes))

	for d, c := range newCoords {
		if c != nil {
			if err := grid.ValidateBreakpoints(c); err != nil {
				return nil, fmt.Errorf("axis %q: %w", axes[d].Name, err)
			}

			axes[d].Breakpoints = c
		}

		bps[d] = axes[d].Breakpoints
	}

	coords, err := Meshgrid(bps)
	if err != nil {
		return nil, err
	}

	values, err := Evaluate(g, coords, interp, extrap, opts...)
	if err != nil {
		return nil, err
	}

	return grid.New(axes, values, nil, grid.WithLabel(g.Label()), grid.WithUnit(g.Unit()))
}
