// Package query turns caller-supplied coordinates (scalars or 1-D arrays, bound
// by position or by dimension name) into aligned coordinate arrays of a single
// common length.
package query

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrArityMismatch is returned when the number of supplied arguments does
	// not equal the number of grid dimensions.
	ErrArityMismatch = errors.New("query: wrong number of arguments")

	// ErrBroadcastMismatch is returned when an argument length is neither 1
	// nor the longest argument length.
	ErrBroadcastMismatch = errors.New("query: argument lengths cannot be broadcast")

	// ErrUnknownDimension is returned when a named argument does not match a
	// grid dimension. It is always reported together with ErrArityMismatch.
	ErrUnknownDimension = errors.New("query: unknown dimension")
)

// Arg is one query argument: a scalar or a 1-D array.
type Arg struct {
	values []float64
	scalar bool
}

// Scalar returns a scalar argument.
func Scalar(v float64) Arg {
	return Arg{values: []float64{v}, scalar: true}
}

// Vector returns an array argument. The slice is not retained past Broadcast.
func Vector(v []float64) Arg {
	return Arg{values: v}
}

// Len returns the broadcast length of the argument; scalars have length 1.
func (a Arg) Len() int {
	if a.scalar {
		return 1
	}

	return len(a.values)
}

func (a Arg) IsScalar() bool { return a.scalar }

// Values returns a copy of the argument values.
func (a Arg) Values() []float64 {
	return append([]float64(nil), a.values...)
}

// UnmarshalJSON accepts a JSON number (scalar) or an array of numbers.
func (a *Arg) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var v []float64
		if err := json.Unmarshal(b, &v); err != nil {
			return fmt.Errorf("query: decode array argument: %w", err)
		}

		*a = Vector(v)

		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("query: decode scalar argument: %w", err)
	}

	*a = Scalar(f)

	return nil
}

func (a Arg) MarshalJSON() ([]byte, error) {
	if a.scalar {
		return json.Marshal(a.values[0])
	}

	return json.Marshal(a.values)
}

// ParseArg parses "v" as a scalar and "v1,v2,..." as an array.
func ParseArg(s string) (Arg, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Arg{}, errors.New("query: empty argument")
	}

	parts := strings.Split(s, ",")
	values := make([]float64, 0, len(parts))

	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Arg{}, fmt.Errorf("query: parse %q: %w", p, err)
		}

		values = append(values, v)
	}

	if len(values) == 1 && !strings.Contains(s, ",") {
		return Scalar(values[0]), nil
	}

	return Vector(values), nil
}

// Broadcast replicates scalar and length-1 arguments to the longest argument
// length N. Every other length must equal N. The returned arrays never alias
// the inputs.
func Broadcast(args ...Arg) ([][]float64, int, error) {
	n := 0
	for _, a := range args {
		n = max(n, a.Len())
	}

	out := make([][]float64, len(args))

	for i, a := range args {
		switch a.Len() {
		case n:
			out[i] = append(make([]float64, 0, n), a.values[:n]...)
		case 1:
			col := make([]float64, n)
			for j := range col {
				col[j] = a.values[0]
			}

			out[i] = col
		default:
			return nil, 0, fmt.Errorf("%w: argument %d has length %d, want 1 or %d", ErrBroadcastMismatch, i, a.Len(), n)
		}
	}

	return out, n, nil
}
