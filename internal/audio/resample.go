package audio

import (
	"fmt"
	"math"

	"github.com/example/go-lerp/internal/grid"
	"github.com/example/go-lerp/internal/lookup"
)

// ToGrid lays out c as a (time, channel) grid. Time breakpoints are in
// seconds; interleaved samples are already row-major for that shape.
func ToGrid(c *Clip) (*grid.Grid, error) {
	frames := c.Frames()
	if frames == 0 {
		return nil, fmt.Errorf("%w: empty clip", ErrFormatMismatch)
	}

	times := make([]float64, frames)
	for i := range times {
		times[i] = float64(i) / float64(c.SampleRate)
	}

	channels := make([]float64, c.Channels)
	for i := range channels {
		channels[i] = float64(i)
	}

	data := make([]float64, frames*c.Channels)
	for i, s := range c.Samples[:len(data)] {
		data[i] = float64(s)
	}

	return grid.New([]grid.Axis{
		{Name: "time", Breakpoints: times, Unit: "s"},
		{Name: "channel", Breakpoints: channels},
	}, data, nil, grid.WithLabel("amplitude"))
}

// FromGrid converts a (time, channel) grid back to a clip, clamping samples
// to [-1, 1].
func FromGrid(g *grid.Grid, sampleRate, bitDepth int) (*Clip, error) {
	if g.NDim() != 2 {
		return nil, fmt.Errorf("%w: grid has %d dimensions, want (time, channel)", ErrFormatMismatch, g.NDim())
	}

	data := g.Data()
	samples := make([]float32, len(data))

	for i, v := range data {
		samples[i] = float32(math.Max(-1, math.Min(1, v)))
	}

	return &Clip{
		SampleRate: sampleRate,
		Channels:   g.Len(1),
		BitDepth:   bitDepth,
		Samples:    samples,
	}, nil
}

// Resample converts c to rate by interpolating along time. The channel axis
// keeps its breakpoints, so channels never mix. Times past the last input
// frame hold its value.
func Resample(c *Clip, rate int, interp lookup.Interp, opts ...lookup.Option) (*Clip, error) {
	if rate < 1 {
		return nil, fmt.Errorf("%w: target sample rate %d", ErrFormatMismatch, rate)
	}

	g, err := ToGrid(c)
	if err != nil {
		return nil, err
	}

	frames := max(1, int(math.Round(float64(c.Frames())*float64(rate)/float64(c.SampleRate))))

	times := make([]float64, frames)
	for i := range times {
		times[i] = float64(i) / float64(rate)
	}

	out, err := lookup.Resample(g, [][]float64{times, nil}, interp, lookup.ExtrapHold, opts...)
	if err != nil {
		return nil, err
	}

	return FromGrid(out, rate, c.BitDepth)
}
