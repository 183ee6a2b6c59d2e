package server

import (
	"encoding/json"
	"math"

	"github.com/example/go-lerp/internal/grid"
	"github.com/example/go-lerp/internal/query"
)

// Floats encodes non-finite values as null, which plain JSON numbers cannot
// represent.
type Floats []float64

func (f Floats) MarshalJSON() ([]byte, error) {
	out := make([]*float64, len(f))
	for i := range f {
		if math.IsNaN(f[i]) || math.IsInf(f[i], 0) {
			continue
		}

		out[i] = &f[i]
	}

	return json.Marshal(out)
}

// DimInfo describes one grid dimension.
type DimInfo struct {
	Name  string  `json:"name"`
	Len   int     `json:"len"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Label string  `json:"label,omitempty"`
	Unit  string  `json:"unit,omitempty"`
}

// GridInfo is the /grids listing entry.
type GridInfo struct {
	Name  string    `json:"name"`
	Dims  []DimInfo `json:"dims"`
	Shape []int     `json:"shape"`
	Label string    `json:"label,omitempty"`
	Unit  string    `json:"unit,omitempty"`
}

func describe(name string, g *grid.Grid) GridInfo {
	info := GridInfo{
		Name:  name,
		Dims:  make([]DimInfo, g.NDim()),
		Shape: g.Shape(),
		Label: g.Label(),
		Unit:  g.Unit(),
	}

	for d, ax := range g.Axes() {
		lo, hi := g.Bounds(d)
		info.Dims[d] = DimInfo{
			Name:  ax.Name,
			Len:   g.Len(d),
			Min:   lo,
			Max:   hi,
			Label: ax.Label,
			Unit:  ax.Unit,
		}
	}

	return info
}

// EvalRequest is the body of POST /eval. Points binds each dimension name to
// a number or an array of numbers; arrays are broadcast together.
type EvalRequest struct {
	Grid   string               `json:"grid"`
	Points map[string]query.Arg `json:"points"`
	Interp string               `json:"interp,omitempty"`
	Extrap string               `json:"extrap,omitempty"`
}

type EvalResponse struct {
	Grid       string `json:"grid"`
	Interp     string `json:"interp"`
	Extrap     string `json:"extrap"`
	Values     Floats `json:"values"`
	OutOfRange []bool `json:"out_of_range"`
}

// DerivativeRequest is the body of POST /derivative. Missing steps default
// to one.
type DerivativeRequest struct {
	Grid   string               `json:"grid"`
	Points map[string]query.Arg `json:"points"`
	Steps  map[string]query.Arg `json:"steps"`
	Interp string               `json:"interp,omitempty"`
	Extrap string               `json:"extrap,omitempty"`
}

type DerivativeResponse struct {
	Grid     string            `json:"grid"`
	Values   Floats            `json:"values"`
	Gradient map[string]Floats `json:"gradient"`
}

// ResampleRequest is the body of POST /resample. Dimensions missing from Axes
// keep their breakpoints.
type ResampleRequest struct {
	Grid   string               `json:"grid"`
	Axes   map[string][]float64 `json:"axes"`
	Interp string               `json:"interp,omitempty"`
	Extrap string               `json:"extrap,omitempty"`
}

// AxisJSON is one dimension of a grid in JSON form.
type AxisJSON struct {
	Name        string    `json:"name"`
	Breakpoints []float64 `json:"breakpoints"`
	Label       string    `json:"label,omitempty"`
	Unit        string    `json:"unit,omitempty"`
}

// GridJSON is a complete grid in JSON form; Data is row-major.
type GridJSON struct {
	Axes  []AxisJSON `json:"axes"`
	Shape []int      `json:"shape"`
	Data  Floats     `json:"data"`
	Label string     `json:"label,omitempty"`
	Unit  string     `json:"unit,omitempty"`
}

func gridJSON(g *grid.Grid) GridJSON {
	out := GridJSON{
		Axes:  make([]AxisJSON, g.NDim()),
		Shape: g.Shape(),
		Data:  g.Data(),
		Label: g.Label(),
		Unit:  g.Unit(),
	}

	for d, ax := range g.Axes() {
		out.Axes[d] = AxisJSON(ax)
	}

	return out
}
