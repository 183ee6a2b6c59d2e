package gridio

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/example/go-lerp/internal/grid"
)

// FileExt is the conventional extension of grid files.
const FileExt = ".lerp"

const (
	formatName    = "lerp-grid"
	formatVersion = "1"
	dataTensor    = "data"
)

func breakpointTensor(d int) string { return "breakpoints." + strconv.Itoa(d) }

// EncodeOptions controls how a grid is written.
type EncodeOptions struct {
	// DataDType is the stored type of the sample buffer. Breakpoints are
	// always F64 so their ordering survives the round trip.
	DataDType string
}

// EncodeGrid serializes g. The payload carries the data buffer, one
// breakpoint tensor per dimension and the layout plus labels as metadata.
func EncodeGrid(g *grid.Grid, opts EncodeOptions) ([]byte, error) {
	l := g.Layout()

	meta := map[string]string{
		"format":  formatName,
		"version": formatVersion,
		"ndim":    strconv.Itoa(l.NDim),
		"dims":    strings.Join(l.Names, ","),
		"strides": joinInts(l.Strides),
		"label":   l.Label,
		"unit":    l.Unit,
	}

	tensors := []Tensor{{
		Name:  dataTensor,
		DType: opts.DataDType,
		Shape: toInt64(l.Shape),
		Data:  l.Data,
	}}

	for d, bp := range l.Breakpoints {
		tensors = append(tensors, Tensor{
			Name:  breakpointTensor(d),
			DType: DTypeF64,
			Shape: []int64{int64(len(bp))},
			Data:  bp,
		})

		meta[fmt.Sprintf("axis.%d.label", d)] = l.AxisLabels[d]
		meta[fmt.Sprintf("axis.%d.unit", d)] = l.AxisUnits[d]
	}

	return Encode(tensors, meta)
}

// DecodeGrid rebuilds a grid from an EncodeGrid payload. The stored strides
// must be row-major for the stored shape.
func DecodeGrid(data []byte) (*grid.Grid, error) {
	c, err := Decode(data)
	if err != nil {
		return nil, err
	}

	meta := c.Metadata
	if f := meta["format"]; f != formatName {
		return nil, fmt.Errorf("%w: format %q, want %q", ErrFormat, f, formatName)
	}

	if v := meta["version"]; v != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrFormat, v)
	}

	ndim, err := strconv.Atoi(meta["ndim"])
	if err != nil {
		return nil, fmt.Errorf("%w: ndim %q: %w", ErrFormat, meta["ndim"], err)
	}

	if ndim < 1 || ndim > grid.MaxDims {
		return nil, fmt.Errorf("%w: ndim %d out of range", ErrFormat, ndim)
	}

	values, err := c.Tensor(dataTensor)
	if err != nil {
		return nil, err
	}

	strides, err := parseInts(meta["strides"])
	if err != nil {
		return nil, fmt.Errorf("%w: strides %q: %w", ErrFormat, meta["strides"], err)
	}

	var names []string
	if dims := meta["dims"]; dims != "" {
		names = strings.Split(dims, ",")
	}

	l := grid.Layout{
		NDim:       ndim,
		Shape:      toInts(values.Shape),
		Strides:    strides,
		Data:       values.Data,
		Names:      names,
		AxisLabels: make([]string, ndim),
		AxisUnits:  make([]string, ndim),
		Label:      meta["label"],
		Unit:       meta["unit"],
	}

	for d := range ndim {
		bp, err := c.Tensor(breakpointTensor(d))
		if err != nil {
			return nil, err
		}

		l.Breakpoints = append(l.Breakpoints, bp.Data)
		l.AxisLabels[d] = meta[fmt.Sprintf("axis.%d.label", d)]
		l.AxisUnits[d] = meta[fmt.Sprintf("axis.%d.unit", d)]
	}

	g, err := grid.FromLayout(l)
	if err != nil {
		return nil, fmt.Errorf("gridio: %w", err)
	}

	return g, nil
}

// Write encodes g as F64 to w.
func Write(w io.Writer, g *grid.Grid) error {
	data, err := EncodeGrid(g, EncodeOptions{})
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("gridio: write: %w", err)
	}

	return nil
}

// Read decodes a grid from r.
func Read(r io.Reader) (*grid.Grid, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gridio: read: %w", err)
	}

	return DecodeGrid(data)
}

// WriteFile writes g to path as F64.
func WriteFile(path string, g *grid.Grid) error {
	data, err := EncodeGrid(g, EncodeOptions{})
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("gridio: write %s: %w", path, err)
	}

	return nil
}

// ReadFile loads a grid from path.
func ReadFile(path string) (*grid.Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gridio: read %s: %w", path, err)
	}

	g, err := DecodeGrid(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return g, nil
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.Itoa(x)
	}

	return strings.Join(parts, ",")
}

func parseInts(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	out := make([]int, len(parts))

	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}

		out[i] = v
	}

	return out, nil
}

func toInt64(v []int) []int64 {
	out := make([]int64, len(v))
	for i, x := range v {
		out[i] = int64(x)
	}

	return out
}

func toInts(v []int64) []int {
	out := make([]int, len(v))
	for i, x := range v {
		out[i] = int(x)
	}

	return out
}
