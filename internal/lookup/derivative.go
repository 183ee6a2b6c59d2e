package lookup

import (
	"fmt"
	"math"

	"github.com/example/go-lerp/internal/grid"
)

func checkSteps(steps [][]float64, ndim, n int) error {
	if steps == nil {
		return nil
	}

	if len(steps) != ndim {
		return fmt.Errorf("%w: %d step arrays for %d dimensions", ErrDimensionMismatch, len(steps), ndim)
	}

	for d, s := range steps {
		if len(s) != n {
			return fmt.Errorf("%w: step array %d has length %d, want %d", ErrDimensionMismatch, d, len(s), n)
		}

		for j, h := range s {
			if !(h > 0) || math.IsInf(h, 0) {
				return fmt.Errorf("%w: step %v for dimension %d at point %d", ErrInvalidStep, h, d, j)
			}
		}
	}

	return nil
}

// partials writes the partial derivatives at x into out[d][j]. Linear
// interpolation is differentiated analytically; the other methods use a
// forward difference with the step for each dimension.
func (e *evaluator) partials(x []float64, steps [][]float64, j int, out [][]float64, xh []float64) {
	if e.interp == Linear {
		for d := range x {
			out[d][j] = e.partial(x, d)
		}

		return
	}

	f0 := e.eval(x)

	for d := range x {
		lo, hi := e.g.Bounds(d)
		if e.extrap == ExtrapHold && (x[d] < lo || x[d] > hi) {
			out[d][j] = 0
			continue
		}

		h := 1.0
		if steps != nil {
			h = steps[d][j]
		}

		copy(xh, x)
		xh[d] += h
		out[d][j] = (e.eval(xh) - f0) / h
	}
}

// Gradient returns the partial derivatives of g at N points as [ndim][N].
// steps has the same layout as coords; nil means unit steps. Steps only
// affect the forward-difference methods but are validated for all.
func Gradient(g *grid.Grid, coords, steps [][]float64, interp Interp, extrap Extrap, opts ...Option) ([][]float64, error) {
	n, err := validate(g, coords, interp, extrap)
	if err != nil {
		return nil, err
	}

	if err := checkSteps(steps, g.NDim(), n); err != nil {
		return nil, err
	}

	out := make([][]float64, g.NDim())
	for d := range out {
		out[d] = make([]float64, n)
	}

	parallelFor(n, gatherOptions(opts), func(lo, hi int) {
		e := newEvaluator(g, interp, extrap)
		x := make([]float64, len(coords))
		xh := make([]float64, len(coords))

		for j := lo; j < hi; j++ {
			for d := range coords {
				x[d] = coords[d][j]
			}

			e.partials(x, steps, j, out, xh)
		}
	})

	return out, nil
}

// Derivative returns, per point, the sum of the partial derivatives over all
// dimensions: the derivative along the unit diagonal.
func Derivative(g *grid.Grid, coords, steps [][]float64, interp Interp, extrap Extrap, opts ...Option) ([]float64, error) {
	parts, err := Gradient(g, coords, steps, interp, extrap, opts...)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(parts[0]))
	for _, p := range parts {
		for j, v := range p {
			out[j] += v
		}
	}

	return out, nil
}
