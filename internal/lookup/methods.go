package lookup

import (
	"fmt"
	"strings"
)

// Interp selects the interpolation method. The numeric values are stable and
// part of the exchanged contract.
type Interp uint8

const (
	Hold Interp = iota + 1
	Nearest
	Linear
	Akima
	FritschButland
	Steffen
)

var interpNames = [...]string{
	Hold:           "hold",
	Nearest:        "nearest",
	Linear:         "linear",
	Akima:          "akima",
	FritschButland: "fritsch_butland",
	Steffen:        "steffen",
}

// Valid reports whether m names a known interpolation method.
func (m Interp) Valid() bool { return m >= Hold && m <= Steffen }

// Cubic reports whether m is one of the monotonicity-aware cubic methods.
func (m Interp) Cubic() bool { return m == Akima || m == FritschButland || m == Steffen }

func (m Interp) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Interp(%d)", uint8(m))
	}

	return interpNames[m]
}

// ParseInterp parses a case-insensitive method name.
func ParseInterp(s string) (Interp, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for m := Hold; m <= Steffen; m++ {
		if interpNames[m] == name {
			return m, nil
		}
	}

	return 0, fmt.Errorf("%w: interpolation %q (want hold|nearest|linear|akima|fritsch_butland|steffen)", ErrUnknownMethod, s)
}

func (m Interp) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: interpolation %d", ErrUnknownMethod, uint8(m))
	}

	return []byte(m.String()), nil
}

func (m *Interp) UnmarshalText(b []byte) error {
	v, err := ParseInterp(string(b))
	if err != nil {
		return err
	}

	*m = v

	return nil
}

// Extrap selects the policy applied outside the breakpoint range.
type Extrap uint8

const (
	ExtrapHold Extrap = iota + 1
	ExtrapLinear
)

// Valid reports whether e names a known extrapolation policy.
func (e Extrap) Valid() bool { return e == ExtrapHold || e == ExtrapLinear }

func (e Extrap) String() string {
	switch e {
	case ExtrapHold:
		return "hold"
	case ExtrapLinear:
		return "linear"
	default:
		return fmt.Sprintf("Extrap(%d)", uint8(e))
	}
}

// ParseExtrap parses a case-insensitive policy name.
func ParseExtrap(s string) (Extrap, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hold":
		return ExtrapHold, nil
	case "linear":
		return ExtrapLinear, nil
	default:
		return 0, fmt.Errorf("%w: extrapolation %q (want hold|linear)", ErrUnknownMethod, s)
	}
}

func (e Extrap) MarshalText() ([]byte, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("%w: extrapolation %d", ErrUnknownMethod, uint8(e))
	}

	return []byte(e.String()), nil
}

func (e *Extrap) UnmarshalText(b []byte) error {
	v, err := ParseExtrap(string(b))
	if err != nil {
		return err
	}

	*e = v

	return nil
}
