package query

import "fmt"

// Query holds aligned coordinate arrays, one per grid dimension, in
// dimension order.
type Query struct {
	Names  []string
	Coords [][]float64
	N      int
}

// Point returns the coordinates of query point i.
func (q Query) Point(i int) []float64 {
	p := make([]float64, len(q.Coords))
	for d := range q.Coords {
		p[d] = q.Coords[d][i]
	}

	return p
}

// Builder binds arguments to the dimensions of a grid. Named arguments are
// assigned to their dimension; positional arguments fill the remaining
// dimensions in order. Build validates full coverage before broadcasting.
type Builder struct {
	names      []string
	index      map[string]int
	positional []Arg
	named      map[int]Arg
	err        error
}

// NewBuilder returns a builder over the given dimension names.
func NewBuilder(names []string) *Builder {
	b := &Builder{
		names: append([]string(nil), names...),
		index: make(map[string]int, len(names)),
		named: make(map[int]Arg),
	}

	for d, name := range names {
		b.index[name] = d
	}

	return b
}

// Arg appends positional arguments.
func (b *Builder) Arg(args ...Arg) *Builder {
	b.positional = append(b.positional, args...)
	return b
}

// Set binds an argument to the named dimension.
func (b *Builder) Set(name string, a Arg) *Builder {
	if b.err != nil {
		return b
	}

	d, ok := b.index[name]
	if !ok {
		b.err = fmt.Errorf("%w: %w %q (dimensions: %v)", ErrArityMismatch, ErrUnknownDimension, name, b.names)
		return b
	}

	if _, dup := b.named[d]; dup {
		b.err = fmt.Errorf("%w: dimension %q bound twice", ErrArityMismatch, name)
		return b
	}

	b.named[d] = a

	return b
}

// Build resolves the bound arguments into a Query.
func (b *Builder) Build() (Query, error) {
	if b.err != nil {
		return Query{}, b.err
	}

	if got := len(b.positional) + len(b.named); got != len(b.names) {
		return Query{}, fmt.Errorf("%w: got %d arguments for %d dimensions %v", ErrArityMismatch, got, len(b.names), b.names)
	}

	args := make([]Arg, len(b.names))
	next := 0

	for d := range b.names {
		if a, ok := b.named[d]; ok {
			args[d] = a
			continue
		}

		args[d] = b.positional[next]
		next++
	}

	coords, n, err := Broadcast(args...)
	if err != nil {
		return Query{}, err
	}

	return Query{
		Names:  append([]string(nil), b.names...),
		Coords: coords,
		N:      n,
	}, nil
}
