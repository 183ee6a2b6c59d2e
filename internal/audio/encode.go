package audio

import (
	"bytes"
	"fmt"

	"github.com/cwbudde/wav"
	goaudio "github.com/go-audio/audio"
)

// DefaultBitDepth is used when a clip does not carry one.
const DefaultBitDepth = 16

// EncodeWAV encodes c as PCM WAV.
func EncodeWAV(c *Clip) ([]byte, error) {
	if c.SampleRate < 1 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrFormatMismatch, c.SampleRate)
	}

	if c.Channels < 1 || len(c.Samples)%c.Channels != 0 {
		return nil, fmt.Errorf("%w: %d samples for %d channels", ErrFormatMismatch, len(c.Samples), c.Channels)
	}

	depth := c.BitDepth
	if depth == 0 {
		depth = DefaultBitDepth
	}

	var buf bytes.Buffer

	// wav.NewEncoder requires an io.WriteSeeker; bytes.Buffer is not one.
	sw := &seekBuffer{buf: &buf}

	enc := wav.NewEncoder(sw, c.SampleRate, depth, c.Channels, 1) // 1 = PCM

	pcmBuf := &goaudio.Float32Buffer{
		Data:           c.Samples,
		Format:         &goaudio.Format{SampleRate: c.SampleRate, NumChannels: c.Channels},
		SourceBitDepth: depth,
	}

	if err := enc.Write(pcmBuf); err != nil {
		return nil, fmt.Errorf("writing PCM: %w", err)
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("closing encoder: %w", err)
	}

	return buf.Bytes(), nil
}

// seekBuffer wraps a bytes.Buffer to satisfy io.WriteSeeker.
type seekBuffer struct {
	buf *bytes.Buffer
	pos int
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	if s.pos == s.buf.Len() {
		n, err := s.buf.Write(p)
		s.pos += n

		return n, err
	}

	// Writing in the middle: overwrite existing bytes, then extend.
	data := s.buf.Bytes()

	n := copy(data[s.pos:], p)
	if n < len(p) {
		s.buf.Write(p[n:])
		n = len(p)
	}

	s.pos += n

	return n, nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var newPos int

	switch whence {
	case 0: // io.SeekStart
		newPos = int(offset)
	case 1: // io.SeekCurrent
		newPos = s.pos + int(offset)
	case 2: // io.SeekEnd
		newPos = s.buf.Len() + int(offset)
	}

	if newPos < 0 || newPos > s.buf.Len() {
		return 0, fmt.Errorf("seek to %d outside buffer of %d bytes", newPos, s.buf.Len())
	}

	s.pos = newPos

	return int64(newPos), nil
}
