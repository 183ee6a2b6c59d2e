// Package grid holds the rectilinear lookup-table data model: per-dimension
// breakpoints and a flat row-major sample buffer.
package grid

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxDims is the largest supported number of grid dimensions.
const MaxDims = 32

var defaultNames = []string{"x", "y", "z", "v", "w"}

// DefaultName returns the name given to dimension d when the caller leaves
// Axis.Name empty.
func DefaultName(d int) string {
	if d >= 0 && d < len(defaultNames) {
		return defaultNames[d]
	}

	return "d" + strconv.Itoa(d)
}

// Axis describes one grid dimension.
type Axis struct {
	Name        string
	Breakpoints []float64
	Label       string
	Unit        string
}

// Grid is an immutable N-dimensional lookup table. All accessors are safe for
// concurrent use.
type Grid struct {
	axes    []Axis
	index   map[string]int
	shape   []int
	strides []int
	data    []float64
	label   string
	unit    string
}

// Option configures optional grid metadata.
type Option func(*Grid)

// WithLabel sets the descriptive label of the tabulated quantity.
func WithLabel(label string) Option {
	return func(g *Grid) { g.label = label }
}

// WithUnit sets the unit of the tabulated quantity.
func WithUnit(unit string) Option {
	return func(g *Grid) { g.unit = unit }
}

// New builds a grid from axes and a row-major data buffer. A nil shape means
// the data is shaped like the axes; otherwise shape must match the breakpoint
// lengths in count and per-axis length. Axes and data are copied.
func New(axes []Axis, data []float64, shape []int, opts ...Option) (*Grid, error) {
	ndim := len(axes)
	if ndim < 1 || ndim > MaxDims {
		return nil, fmt.Errorf("%w: got %d, want 1..%d", ErrRank, ndim, MaxDims)
	}

	if shape != nil && len(shape) != ndim {
		return nil, fmt.Errorf("%w: shape %v has %d dimensions, breakpoints have %d", ErrShapeMismatch, shape, len(shape), ndim)
	}

	g := &Grid{
		axes:  make([]Axis, ndim),
		index: make(map[string]int, ndim),
		shape: make([]int, ndim),
	}

	for d, ax := range axes {
		name := strings.TrimSpace(ax.Name)
		if name == "" {
			name = DefaultName(d)
		}

		if _, dup := g.index[name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
		}

		n := len(ax.Breakpoints)
		if n == 0 {
			return nil, fmt.Errorf("%w: axis %q has no breakpoints", ErrShapeMismatch, name)
		}

		if shape != nil && shape[d] != n {
			return nil, fmt.Errorf("%w: axis %q has %d breakpoints, data shape %v has %d", ErrShapeMismatch, name, n, shape, shape[d])
		}

		if err := ValidateBreakpoints(ax.Breakpoints); err != nil {
			return nil, fmt.Errorf("axis %q: %w", name, err)
		}

		g.index[name] = d
		g.shape[d] = n
		g.axes[d] = Axis{
			Name:        name,
			Breakpoints: append([]float64(nil), ax.Breakpoints...),
			Label:       ax.Label,
			Unit:        ax.Unit,
		}
	}

	size, err := elemCount(g.shape)
	if err != nil {
		return nil, err
	}

	if len(data) != size {
		return nil, fmt.Errorf("%w: data length %d, shape %v needs %d", ErrShapeMismatch, len(data), g.shape, size)
	}

	g.strides = computeStrides(g.shape)
	g.data = append([]float64(nil), data...)

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

// ValidateBreakpoints checks that bp holds at least one finite value and is
// strictly increasing.
func ValidateBreakpoints(bp []float64) error {
	if len(bp) == 0 {
		return fmt.Errorf("%w: no breakpoints", ErrShapeMismatch)
	}

	for i, v := range bp {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value %v at index %d", ErrNonMonotonicBreakpoints, v, i)
		}

		if i > 0 && !(v > bp[i-1]) {
			return fmt.Errorf("%w: %v at index %d follows %v", ErrNonMonotonicBreakpoints, v, i, bp[i-1])
		}
	}

	return nil
}

// SizeOf returns the number of samples of a grid with the given shape.
func SizeOf(shape []int) (int, error) { return elemCount(shape) }

// NDim returns the number of dimensions.
func (g *Grid) NDim() int { return len(g.shape) }

// Size returns the number of samples.
func (g *Grid) Size() int { return len(g.data) }

// Label returns the descriptive label of the tabulated quantity.
func (g *Grid) Label() string { return g.label }

// Unit returns the unit of the tabulated quantity.
func (g *Grid) Unit() string { return g.unit }

// Names returns the dimension names in axis order.
func (g *Grid) Names() []string {
	out := make([]string, len(g.axes))
	for d, ax := range g.axes {
		out[d] = ax.Name
	}

	return out
}

// DimIndex returns the position of the named dimension.
func (g *Grid) DimIndex(name string) (int, bool) {
	d, ok := g.index[name]
	return d, ok
}

func (g *Grid) Shape() []int { return append([]int(nil), g.shape...) }

// Strides returns the element strides of the data buffer (row-major).
func (g *Grid) Strides() []int { return append([]int(nil), g.strides...) }

// Len returns the number of breakpoints along dimension d.
func (g *Grid) Len(d int) int { return g.shape[d] }

// Stride returns the element stride of dimension d.
func (g *Grid) Stride(d int) int { return g.strides[d] }

// Knot returns breakpoint i of dimension d.
func (g *Grid) Knot(d, i int) float64 { return g.axes[d].Breakpoints[i] }

// Breakpoints returns a copy of the breakpoints of dimension d.
func (g *Grid) Breakpoints(d int) []float64 {
	return append([]float64(nil), g.axes[d].Breakpoints...)
}

// Axis returns a copy of the axis description of dimension d.
func (g *Grid) Axis(d int) Axis {
	ax := g.axes[d]
	ax.Breakpoints = append([]float64(nil), ax.Breakpoints...)

	return ax
}

// Axes returns copies of all axis descriptions.
func (g *Grid) Axes() []Axis {
	out := make([]Axis, len(g.axes))
	for d := range g.axes {
		out[d] = g.Axis(d)
	}

	return out
}

// Bounds returns the first and last breakpoint of dimension d.
func (g *Grid) Bounds(d int) (lo, hi float64) {
	bp := g.axes[d].Breakpoints
	return bp[0], bp[len(bp)-1]
}

// Contains reports whether point lies inside the closed grid range in every
// dimension. It returns false when len(point) != NDim().
func (g *Grid) Contains(point []float64) bool {
	if len(point) != len(g.shape) {
		return false
	}

	for d, x := range point {
		lo, hi := g.Bounds(d)
		if !(x >= lo && x <= hi) {
			return false
		}
	}

	return true
}

// Value returns the sample at flat offset i.
func (g *Grid) Value(i int) float64 { return g.data[i] }

// Data returns a copy of the sample buffer.
func (g *Grid) Data() []float64 { return append([]float64(nil), g.data...) }

// Offset converts a multi-index to a flat buffer offset.
func (g *Grid) Offset(subs []int) (int, error) {
	if len(subs) != len(g.shape) {
		return 0, fmt.Errorf("%w: %d subscripts for %d dimensions", ErrIndexOutOfRange, len(subs), len(g.shape))
	}

	off := 0
	for d, s := range subs {
		if s < 0 || s >= g.shape[d] {
			return 0, fmt.Errorf("%w: subscript %d is %d, dimension %q has %d breakpoints", ErrIndexOutOfRange, d, s, g.axes[d].Name, g.shape[d])
		}

		off += s * g.strides[d]
	}

	return off, nil
}

// At returns the sample at the given multi-index.
func (g *Grid) At(subs ...int) (float64, error) {
	off, err := g.Offset(subs)
	if err != nil {
		return 0, err
	}

	return g.data[off], nil
}

// Subscripts converts a flat offset back to a multi-index.
func (g *Grid) Subscripts(i int) ([]int, error) {
	if i < 0 || i >= len(g.data) {
		return nil, fmt.Errorf("%w: offset %d, size %d", ErrIndexOutOfRange, i, len(g.data))
	}

	out := make([]int, len(g.shape))
	linearToCoord(i, g.shape, g.strides, out)

	return out, nil
}

func (g *Grid) String() string {
	var sb strings.Builder

	sb.WriteString("Grid(")

	for d, ax := range g.axes {
		if d > 0 {
			sb.WriteString(", ")
		}

		fmt.Fprintf(&sb, "%s[%d]", ax.Name, g.shape[d])
	}

	sb.WriteString(")")

	if g.label != "" {
		sb.WriteString(" " + g.label)
	}

	if g.unit != "" {
		sb.WriteString(" [" + g.unit + "]")
	}

	return sb.String()
}
