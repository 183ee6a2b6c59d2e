package grid_test

import (
	"math"
	"testing"

	"github.com/example/go-lerp/internal/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGrid2D(t *testing.T) *grid.Grid {
	t.Helper()

	g, err := grid.New([]grid.Axis{
		{Breakpoints: []float64{1, 2, 3, 6}},
		{Breakpoints: []float64{13, 454, 645}},
	}, []float64{
		0, 1, 2,
		3, 4, 5,
		6, 7, 8,
		9, 10, 11,
	}, []int{4, 3}, grid.WithLabel("torque"), grid.WithUnit("N.m"))
	require.NoError(t, err)

	return g
}

func TestNew_DefaultNamesAndStrides(t *testing.T) {
	g := newGrid2D(t)

	assert.Equal(t, 2, g.NDim())
	assert.Equal(t, []string{"x", "y"}, g.Names())
	assert.Equal(t, []int{4, 3}, g.Shape())
	assert.Equal(t, []int{3, 1}, g.Strides())
	assert.Equal(t, 12, g.Size())
	assert.Equal(t, "torque", g.Label())
	assert.Equal(t, "N.m", g.Unit())
	assert.Equal(t, "Grid(x[4], y[3]) torque [N.m]", g.String())
}

func TestNew_NilShapeInfersFromAxes(t *testing.T) {
	g, err := grid.New([]grid.Axis{{Name: "speed", Breakpoints: []float64{0, 1}}}, []float64{5, 6}, nil)
	require.NoError(t, err)

	d, ok := g.DimIndex("speed")
	assert.True(t, ok)
	assert.Equal(t, 0, d)
}

func TestNew_CopiesInputs(t *testing.T) {
	bp := []float64{0, 1, 2}
	data := []float64{10, 20, 30}

	g, err := grid.New([]grid.Axis{{Breakpoints: bp}}, data, nil)
	require.NoError(t, err)

	bp[0] = -100
	data[0] = -100

	assert.Equal(t, 0.0, g.Knot(0, 0))
	assert.Equal(t, 10.0, g.Value(0))

	out := g.Breakpoints(0)
	out[1] = 99
	assert.Equal(t, 1.0, g.Knot(0, 1))
}

func TestNew_ShapeMismatch(t *testing.T) {
	axes := []grid.Axis{
		{Breakpoints: []float64{0, 1}},
		{Breakpoints: []float64{0, 1, 2}},
	}

	cases := map[string]struct {
		data  []float64
		shape []int
	}{
		"wrong count":         {data: make([]float64, 6), shape: []int{6}},
		"wrong axis length":   {data: make([]float64, 6), shape: []int{3, 2}},
		"wrong data size":     {data: make([]float64, 5), shape: []int{2, 3}},
		"wrong size no shape": {data: make([]float64, 7)},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := grid.New(axes, tc.data, tc.shape)
			assert.ErrorIs(t, err, grid.ErrShapeMismatch)
		})
	}
}

func TestNew_EmptyAxis(t *testing.T) {
	_, err := grid.New([]grid.Axis{{Breakpoints: nil}}, nil, nil)
	assert.ErrorIs(t, err, grid.ErrShapeMismatch)
}

func TestNew_NonMonotonic(t *testing.T) {
	for name, bp := range map[string][]float64{
		"duplicate":  {0, 1, 1, 2},
		"decreasing": {3, 2, 1},
		"nan":        {0, math.NaN(), 2},
		"inf":        {0, 1, math.Inf(1)},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := grid.New([]grid.Axis{{Breakpoints: bp}}, make([]float64, len(bp)), nil)
			assert.ErrorIs(t, err, grid.ErrNonMonotonicBreakpoints)
		})
	}
}

func TestNew_Rank(t *testing.T) {
	_, err := grid.New(nil, nil, nil)
	assert.ErrorIs(t, err, grid.ErrRank)

	axes := make([]grid.Axis, grid.MaxDims+1)
	for i := range axes {
		axes[i].Breakpoints = []float64{0}
	}

	_, err = grid.New(axes, []float64{1}, nil)
	assert.ErrorIs(t, err, grid.ErrRank)
}

func TestNew_DuplicateName(t *testing.T) {
	_, err := grid.New([]grid.Axis{
		{Name: "a", Breakpoints: []float64{0}},
		{Name: "a", Breakpoints: []float64{0}},
	}, []float64{1}, nil)
	assert.ErrorIs(t, err, grid.ErrDuplicateName)
}

func TestOffsetAndAt(t *testing.T) {
	g := newGrid2D(t)

	off, err := g.Offset([]int{2, 1})
	require.NoError(t, err)
	assert.Equal(t, 7, off)

	v, err := g.At(3, 2)
	require.NoError(t, err)
	assert.Equal(t, 11.0, v)

	_, err = g.At(4, 0)
	assert.ErrorIs(t, err, grid.ErrIndexOutOfRange)

	_, err = g.At(0)
	assert.ErrorIs(t, err, grid.ErrIndexOutOfRange)

	subs, err := g.Subscripts(7)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, subs)
}

func TestBoundsAndContains(t *testing.T) {
	g := newGrid2D(t)

	lo, hi := g.Bounds(1)
	assert.Equal(t, 13.0, lo)
	assert.Equal(t, 645.0, hi)

	assert.True(t, g.Contains([]float64{1, 13}))
	assert.True(t, g.Contains([]float64{6, 645}))
	assert.False(t, g.Contains([]float64{0.5, 100}))
	assert.False(t, g.Contains([]float64{2}))
}

func TestDefaultName(t *testing.T) {
	assert.Equal(t, "x", grid.DefaultName(0))
	assert.Equal(t, "w", grid.DefaultName(4))
	assert.Equal(t, "d5", grid.DefaultName(5))
}

func TestLayoutRoundTrip(t *testing.T) {
	g := newGrid2D(t)

	l := g.Layout()
	assert.Equal(t, 2, l.NDim)
	assert.Equal(t, []int{3, 1}, l.Strides)

	back, err := grid.FromLayout(l)
	require.NoError(t, err)
	assert.Equal(t, g.Data(), back.Data())
	assert.Equal(t, g.Names(), back.Names())
	assert.Equal(t, g.Label(), back.Label())
	assert.Equal(t, g.Breakpoints(1), back.Breakpoints(1))
}

func TestFromLayout_RejectsForeignStrides(t *testing.T) {
	l := newGrid2D(t).Layout()
	l.Strides = []int{1, 4}

	_, err := grid.FromLayout(l)
	assert.ErrorIs(t, err, grid.ErrShapeMismatch)
}
