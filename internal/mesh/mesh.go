// Package mesh is the caller-level view of a lookup table: named dimensions,
// default interpolation policies and persistence on top of the pure engine in
// package lookup.
package mesh

import (
	"errors"
	"fmt"

	"github.com/example/go-lerp/internal/grid"
	"github.com/example/go-lerp/internal/gridio"
	"github.com/example/go-lerp/internal/lookup"
	"github.com/example/go-lerp/internal/query"
)

// Options are the per-mesh defaults applied by Interpolate.
type Options struct {
	// Extrapolate selects linear extrapolation when the caller does not
	// name a policy.
	Extrapolate bool
	// Step forces hold interpolation and hold extrapolation.
	Step bool
}

// DefaultOptions returns Extrapolate on, Step off.
func DefaultOptions() Options {
	return Options{Extrapolate: true}
}

// Mesh wraps an immutable grid.
type Mesh struct {
	g    *grid.Grid
	opts Options
	run  []lookup.Option
}

// New wraps g. run options tune parallel evaluation for every call.
func New(g *grid.Grid, opts Options, run ...lookup.Option) (*Mesh, error) {
	if g == nil {
		return nil, errors.New("mesh: nil grid")
	}

	return &Mesh{g: g, opts: opts, run: run}, nil
}

// Build constructs the grid and wraps it.
func Build(axes []grid.Axis, data []float64, opts Options, gridOpts ...grid.Option) (*Mesh, error) {
	g, err := grid.New(axes, data, nil, gridOpts...)
	if err != nil {
		return nil, err
	}

	return New(g, opts)
}

// Load reads a mesh saved with Save.
func Load(path string, opts Options, run ...lookup.Option) (*Mesh, error) {
	g, err := gridio.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return New(g, opts, run...)
}

// Save writes the underlying grid to path.
func (m *Mesh) Save(path string) error {
	return gridio.WriteFile(path, m.g)
}

func (m *Mesh) Grid() *grid.Grid { return m.g }

func (m *Mesh) Options() Options { return m.opts }

// Names returns the dimension names in axis order.
func (m *Mesh) Names() []string { return m.g.Names() }

func (m *Mesh) String() string { return m.g.String() }

// WithOptions returns a copy of the mesh with different defaults. The grid
// is shared.
func (m *Mesh) WithOptions(o Options) *Mesh {
	c := *m
	c.opts = o

	return &c
}

// Query starts a builder over the mesh's dimension names.
func (m *Mesh) Query() *query.Builder {
	return query.NewBuilder(m.g.Names())
}

type call struct {
	interp *lookup.Interp
	extrap *lookup.Extrap
	steps  [][]float64
}

// CallOption overrides the defaults for a single call.
type CallOption func(*call)

// WithInterp selects the interpolation method.
func WithInterp(i lookup.Interp) CallOption {
	return func(c *call) { c.interp = &i }
}

// WithExtrap selects the extrapolation policy explicitly.
func WithExtrap(e lookup.Extrap) CallOption {
	return func(c *call) { c.extrap = &e }
}

// WithSteps sets per-dimension derivative steps, aligned with the query.
func WithSteps(steps [][]float64) CallOption {
	return func(c *call) { c.steps = steps }
}

func gather(opts []CallOption) call {
	var c call
	for _, opt := range opts {
		opt(&c)
	}

	return c
}

// methods resolves the policies of an Interpolate call. An explicit
// extrapolation wins over the Extrapolate default; Step overrides both.
func (m *Mesh) methods(c call) (lookup.Interp, lookup.Extrap) {
	if m.opts.Step {
		return lookup.Hold, lookup.ExtrapHold
	}

	interp := lookup.Linear
	if c.interp != nil {
		interp = *c.interp
	}

	extrap := lookup.ExtrapHold
	switch {
	case c.extrap != nil:
		extrap = *c.extrap
	case m.opts.Extrapolate:
		extrap = lookup.ExtrapLinear
	}

	return interp, extrap
}

// Methods reports the policies Interpolate applies for opts.
func (m *Mesh) Methods(opts ...CallOption) (lookup.Interp, lookup.Extrap) {
	return m.methods(gather(opts))
}

// explicit resolves the policies of Derivative and Resample, which default
// to linear interpolation with hold extrapolation.
func explicit(c call) (lookup.Interp, lookup.Extrap) {
	interp, extrap := lookup.Linear, lookup.ExtrapHold
	if c.interp != nil {
		interp = *c.interp
	}

	if c.extrap != nil {
		extrap = *c.extrap
	}

	return interp, extrap
}

// Result is the outcome of evaluating a query.
type Result struct {
	Values []float64
	// OutOfRange flags the points that were extrapolated.
	OutOfRange []bool
}

// Scalar returns the only value when the query had a single point.
func (r Result) Scalar() (float64, bool) {
	if len(r.Values) != 1 {
		return 0, false
	}

	return r.Values[0], true
}

// Extrapolated reports whether any point was outside the grid.
func (r Result) Extrapolated() bool {
	for _, o := range r.OutOfRange {
		if o {
			return true
		}
	}

	return false
}

func (m *Mesh) checkQuery(q query.Query) error {
	names := m.g.Names()
	if len(q.Names) == 0 {
		return nil
	}

	if len(q.Names) != len(names) {
		return fmt.Errorf("%w: query over %v, mesh has %v", query.ErrArityMismatch, q.Names, names)
	}

	for d, name := range names {
		if q.Names[d] != name {
			return fmt.Errorf("%w: query dimension %d is %q, mesh has %q", query.ErrArityMismatch, d, q.Names[d], name)
		}
	}

	return nil
}

// Interpolate evaluates the mesh at q.
func (m *Mesh) Interpolate(q query.Query, opts ...CallOption) (Result, error) {
	if err := m.checkQuery(q); err != nil {
		return Result{}, err
	}

	interp, extrap := m.methods(gather(opts))

	values, err := lookup.Evaluate(m.g, q.Coords, interp, extrap, m.run...)
	if err != nil {
		return Result{}, err
	}

	oor, err := lookup.OutOfRange(m.g, q.Coords)
	if err != nil {
		return Result{}, err
	}

	return Result{Values: values, OutOfRange: oor}, nil
}

// At binds args positionally and interpolates.
func (m *Mesh) At(args ...query.Arg) (Result, error) {
	q, err := m.Query().Arg(args...).Build()
	if err != nil {
		return Result{}, err
	}

	return m.Interpolate(q)
}

// Derivative returns the sum of partial derivatives at q. Steps default to
// one in every dimension.
func (m *Mesh) Derivative(q query.Query, opts ...CallOption) (Result, error) {
	if err := m.checkQuery(q); err != nil {
		return Result{}, err
	}

	c := gather(opts)
	interp, extrap := explicit(c)

	values, err := lookup.Derivative(m.g, q.Coords, c.steps, interp, extrap, m.run...)
	if err != nil {
		return Result{}, err
	}

	oor, err := lookup.OutOfRange(m.g, q.Coords)
	if err != nil {
		return Result{}, err
	}

	return Result{Values: values, OutOfRange: oor}, nil
}

// Gradient returns the partial derivatives at q keyed by dimension name.
func (m *Mesh) Gradient(q query.Query, opts ...CallOption) (map[string][]float64, error) {
	if err := m.checkQuery(q); err != nil {
		return nil, err
	}

	c := gather(opts)
	interp, extrap := explicit(c)

	parts, err := lookup.Gradient(m.g, q.Coords, c.steps, interp, extrap, m.run...)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]float64, len(parts))
	for d, name := range m.g.Names() {
		out[name] = parts[d]
	}

	return out, nil
}

// Resample evaluates the mesh on new breakpoints given by dimension name.
// Dimensions not listed keep their breakpoints.
func (m *Mesh) Resample(coords map[string][]float64, opts ...CallOption) (*Mesh, error) {
	newCoords := make([][]float64, m.g.NDim())

	for name, c := range coords {
		d, ok := m.g.DimIndex(name)
		if !ok {
			return nil, fmt.Errorf("%w: %w %q (dimensions: %v)", query.ErrArityMismatch, query.ErrUnknownDimension, name, m.g.Names())
		}

		newCoords[d] = c
	}

	interp, extrap := explicit(gather(opts))

	g, err := lookup.Resample(m.g, newCoords, interp, extrap, m.run...)
	if err != nil {
		return nil, err
	}

	return &Mesh{g: g, opts: m.opts, run: m.run}, nil
}
