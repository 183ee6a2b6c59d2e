// Package audio resamples PCM audio by treating a clip as a 2-D lookup
// table over (time, channel).
package audio

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cwbudde/wav"
)

// ErrFormatMismatch is returned for WAV data the codec cannot handle.
var ErrFormatMismatch = errors.New("WAV format mismatch")

// Clip is decoded PCM audio with interleaved samples in [-1, 1].
type Clip struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Samples    []float32
}

// Frames returns the number of sample frames.
func (c *Clip) Frames() int {
	if c.Channels == 0 {
		return 0
	}

	return len(c.Samples) / c.Channels
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c.SampleRate == 0 {
		return 0
	}

	return float64(c.Frames()) / float64(c.SampleRate)
}

// DecodeWAV decodes PCM WAV bytes of any rate, channel count and bit depth.
func DecodeWAV(data []byte) (*Clip, error) {
	if len(data) == 0 {
		return nil, errors.New("empty WAV input")
	}

	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}

	if dec.NumChans == 0 {
		return nil, fmt.Errorf("%w: no channels", ErrFormatMismatch)
	}

	if dec.SampleRate == 0 {
		return nil, fmt.Errorf("%w: zero sample rate", ErrFormatMismatch)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading PCM data: %w", err)
	}

	return &Clip{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		Samples:    buf.Data,
	}, nil
}
