package grid

import "fmt"

// Layout is the exchanged form of a grid: the binary contract shared with
// serializers and external computation routines. Strides are element strides.
type Layout struct {
	NDim        int
	Shape       []int
	Strides     []int
	Data        []float64
	Breakpoints [][]float64
	Names       []string
	AxisLabels  []string
	AxisUnits   []string
	Label       string
	Unit        string
}

// Layout returns a deep copy of the grid in exchange form.
func (g *Grid) Layout() Layout {
	l := Layout{
		NDim:        len(g.shape),
		Shape:       g.Shape(),
		Strides:     g.Strides(),
		Data:        g.Data(),
		Breakpoints: make([][]float64, len(g.axes)),
		Names:       g.Names(),
		AxisLabels:  make([]string, len(g.axes)),
		AxisUnits:   make([]string, len(g.axes)),
		Label:       g.label,
		Unit:        g.unit,
	}

	for d, ax := range g.axes {
		l.Breakpoints[d] = append([]float64(nil), ax.Breakpoints...)
		l.AxisLabels[d] = ax.Label
		l.AxisUnits[d] = ax.Unit
	}

	return l
}

// FromLayout validates an exchanged layout and rebuilds the grid. Only
// row-major strides are accepted.
func FromLayout(l Layout) (*Grid, error) {
	if l.NDim != len(l.Breakpoints) {
		return nil, fmt.Errorf("%w: ndim %d, %d breakpoint arrays", ErrShapeMismatch, l.NDim, len(l.Breakpoints))
	}

	if l.Strides != nil && !equalInts(l.Strides, computeStrides(l.Shape)) {
		return nil, fmt.Errorf("%w: strides %v are not row-major for shape %v", ErrShapeMismatch, l.Strides, l.Shape)
	}

	axes := make([]Axis, l.NDim)
	for d := range axes {
		axes[d].Breakpoints = l.Breakpoints[d]
		if d < len(l.Names) {
			axes[d].Name = l.Names[d]
		}

		if d < len(l.AxisLabels) {
			axes[d].Label = l.AxisLabels[d]
		}

		if d < len(l.AxisUnits) {
			axes[d].Unit = l.AxisUnits[d]
		}
	}

	shape := l.Shape
	if shape == nil {
		shape = []int{}
	}

	return New(axes, l.Data, shape, WithLabel(l.Label), WithUnit(l.Unit))
}
