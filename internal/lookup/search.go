package lookup

import (
	"math"
	"sort"

	"github.com/example/go-lerp/internal/grid"
)

// bracket is the resolved position of one coordinate along one dimension.
type bracket struct {
	i   int     // lower knot of the bracketing interval
	t   float64 // fractional position in [knot(i), knot(i+1)]; unclamped
	out int8    // -1 below the first knot, +1 above the last, 0 inside
}

// locate finds i with knot(i) <= x < knot(i+1). Points at or beyond the last
// knot use the last interval, points below the first use the first, so t
// falls outside [0, 1] exactly when the point is out of range.
func locate(g *grid.Grid, d int, x float64) bracket {
	n := g.Len(d)
	lo, hi := g.Bounds(d)

	var out int8

	switch {
	case x < lo:
		out = -1
	case x > hi:
		out = 1
	}

	if n == 1 {
		return bracket{out: out}
	}

	var i int

	switch {
	case math.IsNaN(x), x < lo:
		i = 0
	case x >= hi:
		i = n - 2
	default:
		i = sort.Search(n, func(k int) bool { return g.Knot(d, k) > x }) - 1
	}

	x0, x1 := g.Knot(d, i), g.Knot(d, i+1)

	return bracket{i: i, t: (x - x0) / (x1 - x0), out: out}
}

// clamp pins an out-of-range position to the boundary interval end.
func (b bracket) clamp() bracket {
	switch {
	case b.t < 0:
		b.t = 0
	case b.t > 1:
		b.t = 1
	}

	return b
}
