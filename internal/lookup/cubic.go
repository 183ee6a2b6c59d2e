package lookup

import "math"

// window holds the knots and (partially reduced) samples around one bracket.
// Akima needs six points, the other cubic methods four.
type window struct {
	x [6]float64
	y [6]float64
}

func secant(x, y []float64, j int) float64 {
	return (y[j+1] - y[j]) / (x[j+1] - x[j])
}

// hermite evaluates the cubic Hermite segment between (x0, y0) and (x0+h, y1)
// with end slopes d0 and d1 at fractional position t.
func hermite(y0, y1, d0, d1, h, t float64) float64 {
	if t == 0 {
		return y0
	}

	if t == 1 {
		return y1
	}

	t2 := t * t
	t3 := t2 * t

	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + t
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2

	return h00*y0 + h10*h*d0 + h01*y1 + h11*h*d1
}

// knotSlopes returns the slope estimates at window knots p and p+1, the ends
// of the bracketing interval. x and y cover the knots available around the
// interval; they are only cut short by the ends of the grid.
func knotSlopes(m Interp, x, y []float64, p int) (float64, float64) {
	switch m {
	case Akima:
		return akimaSlopes(x, y, p)
	case FritschButland:
		return fbSlope(x, y, p), fbSlope(x, y, p+1)
	default:
		return steffenSlope(x, y, p), steffenSlope(x, y, p+1)
	}
}

// akimaSlopes uses the five secants p-2..p+2. The end knots of the grid take
// the one-sided secant; for knots next to them the missing secants are
// extended linearly: m[-1] = 2 m[0] - m[1].
func akimaSlopes(x, y []float64, p int) (float64, float64) {
	var s [5]float64

	last := len(x) - 2 // index of the last secant in the window
	kLo := max(0, 2-p)
	kHi := min(4, last-p+2)

	for k := kLo; k <= kHi; k++ {
		s[k] = secant(x, y, p-2+k)
	}

	if kLo == kHi {
		for k := range s {
			s[k] = s[kLo]
		}
	} else {
		for k := kLo - 1; k >= 0; k-- {
			s[k] = 2*s[k+1] - s[k+2]
		}

		for k := kHi + 1; k < len(s); k++ {
			s[k] = 2*s[k-1] - s[k-2]
		}
	}

	d0, d1 := akimaSlope(s[0], s[1], s[2], s[3]), akimaSlope(s[1], s[2], s[3], s[4])

	// The window is only cut short by the grid, so p == 0 is the first grid
	// knot and p+1 == len(x)-1 the last.
	if p == 0 {
		d0 = s[2]
	}

	if p+1 == len(x)-1 {
		d1 = s[2]
	}

	return d0, d1
}

func akimaSlope(m1, m2, m3, m4 float64) float64 {
	w1 := math.Abs(m4 - m3)
	w2 := math.Abs(m2 - m1)

	if w1+w2 == 0 {
		return 0.5 * (m2 + m3)
	}

	return (w1*m2 + w2*m3) / (w1 + w2)
}

// fbSlope is the Fritsch-Butland weighted harmonic mean of the neighbouring
// secants, zero at a local extremum. End knots take the one-sided secant.
func fbSlope(x, y []float64, k int) float64 {
	if k == 0 {
		return secant(x, y, 0)
	}

	if k == len(x)-1 {
		return secant(x, y, k-1)
	}

	ml, mr := secant(x, y, k-1), secant(x, y, k)
	if ml*mr <= 0 {
		return 0
	}

	hl, hr := x[k]-x[k-1], x[k+1]-x[k]

	return 3 * (hl + hr) / ((2*hr+hl)/ml + (hr+2*hl)/mr)
}

// steffenSlope is the smaller-magnitude neighbouring secant when both share a
// sign, zero otherwise. End knots take the one-sided secant.
func steffenSlope(x, y []float64, k int) float64 {
	if k == 0 {
		return secant(x, y, 0)
	}

	if k == len(x)-1 {
		return secant(x, y, k-1)
	}

	ml, mr := secant(x, y, k-1), secant(x, y, k)
	if ml*mr <= 0 {
		return 0
	}

	return sign(ml) * min(math.Abs(ml), math.Abs(mr))
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
