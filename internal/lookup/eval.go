package lookup

import (
	"math"

	"github.com/example/go-lerp/internal/grid"
)

// evaluator reduces the grid one dimension at a time, first dimension
// outermost, so the last axis is interpolated first. It owns scratch space
// and must not be shared between goroutines.
type evaluator struct {
	g      *grid.Grid
	interp Interp
	extrap Extrap
	br     []bracket
	win    []window
	// diff is the dimension whose analytic linear partial is taken instead
	// of the value, or -1.
	diff int
}

func newEvaluator(g *grid.Grid, interp Interp, extrap Extrap) *evaluator {
	e := &evaluator{
		g:      g,
		interp: interp,
		extrap: extrap,
		br:     make([]bracket, g.NDim()),
		diff:   -1,
	}

	if interp.Cubic() {
		e.win = make([]window, g.NDim())
	}

	return e
}

// eval returns the interpolated value at point x (len == NDim).
func (e *evaluator) eval(x []float64) float64 {
	for d, xd := range x {
		if math.IsNaN(xd) {
			return math.NaN()
		}

		b := locate(e.g, d, xd)
		if b.out != 0 && e.extrap == ExtrapHold {
			b = b.clamp()
		}

		e.br[d] = b
	}

	return e.reduce(0, 0)
}

// partial returns the analytic linear partial derivative along dimension d.
func (e *evaluator) partial(x []float64, d int) float64 {
	e.diff = d
	defer func() { e.diff = -1 }()

	return e.eval(x)
}

func (e *evaluator) sample(d, base, k int) float64 {
	return e.reduce(d+1, base+k*e.g.Stride(d))
}

func (e *evaluator) reduce(d, base int) float64 {
	if d == len(e.br) {
		return e.g.Value(base)
	}

	b := e.br[d]

	if e.g.Len(d) == 1 {
		if d == e.diff {
			return 0
		}

		return e.sample(d, base, 0)
	}

	if d == e.diff {
		if b.out != 0 && e.extrap == ExtrapHold {
			return 0
		}

		v0, v1 := e.sample(d, base, b.i), e.sample(d, base, b.i+1)

		return (v1 - v0) / (e.g.Knot(d, b.i+1) - e.g.Knot(d, b.i))
	}

	switch e.interp {
	case Hold:
		k := b.i
		if b.t >= 1 {
			k++
		}

		return e.sample(d, base, k)
	case Nearest:
		k := b.i
		if b.t > 0.5 {
			k++
		}

		return e.sample(d, base, k)
	case Linear:
		return e.lerp(d, base, b)
	default:
		// Cubic segments are never extended past the grid; outside the range
		// the boundary interval's secant continues linearly.
		if b.t < 0 || b.t > 1 {
			return e.lerp(d, base, b)
		}

		return e.cubic(d, base, b)
	}
}

func (e *evaluator) lerp(d, base int, b bracket) float64 {
	v0 := e.sample(d, base, b.i)
	if b.t == 0 {
		return v0
	}

	v1 := e.sample(d, base, b.i+1)

	switch {
	case b.t == 1:
		return v1
	case b.t > 0 && b.t < 1:
		return (1-b.t)*v0 + b.t*v1
	default:
		// Extrapolation keeps the slope form so x = ±Inf stays infinite.
		return v0 + b.t*(v1-v0)
	}
}

func (e *evaluator) cubic(d, base int, b bracket) float64 {
	n := e.g.Len(d)

	lo, hi := b.i-1, b.i+2
	if e.interp == Akima {
		lo, hi = b.i-2, b.i+3
	}

	lo, hi = max(lo, 0), min(hi, n-1)

	w := &e.win[d]
	m := hi - lo + 1

	for k := range m {
		w.x[k] = e.g.Knot(d, lo+k)
		w.y[k] = e.sample(d, base, lo+k)
	}

	p := b.i - lo
	d0, d1 := knotSlopes(e.interp, w.x[:m], w.y[:m], p)

	return hermite(w.y[p], w.y[p+1], d0, d1, w.x[p+1]-w.x[p], b.t)
}

// outOfRange reports whether x lies outside the closed range of any dimension.
func outOfRange(g *grid.Grid, x []float64) bool {
	for d, xd := range x {
		lo, hi := g.Bounds(d)
		if xd < lo || xd > hi {
			return true
		}
	}

	return false
}
