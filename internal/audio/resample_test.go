package audio

import (
	"math"
	"testing"

	"github.com/example/go-lerp/internal/lookup"
)

func stereoRamp(frames, rate int) *Clip {
	samples := make([]float32, 0, frames*2)
	for i := range frames {
		samples = append(samples, float32(i)/float32(frames), -float32(i)/float32(frames))
	}

	return &Clip{SampleRate: rate, Channels: 2, BitDepth: 16, Samples: samples}
}

func TestToGridLayout(t *testing.T) {
	clip := stereoRamp(4, 8000)

	g, err := ToGrid(clip)
	if err != nil {
		t.Fatalf("ToGrid: %v", err)
	}

	if g.Len(0) != 4 || g.Len(1) != 2 {
		t.Fatalf("shape = %v, want [4 2]", g.Shape())
	}

	if got := g.Knot(0, 2); got != 2.0/8000 {
		t.Fatalf("time knot = %v, want %v", got, 2.0/8000)
	}

	v, err := g.At(3, 1)
	if err != nil || v != float64(clip.Samples[7]) {
		t.Fatalf("At(3, 1) = %v, %v, want %v", v, err, clip.Samples[7])
	}

	if _, err := ToGrid(&Clip{SampleRate: 8000, Channels: 1}); err == nil {
		t.Fatal("empty clip should fail")
	}
}

func TestResample_Upsample(t *testing.T) {
	clip := stereoRamp(100, 8000)

	out, err := Resample(clip, 16000, lookup.Linear)
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}

	if out.SampleRate != 16000 || out.Channels != 2 {
		t.Fatalf("format = %d Hz, %d ch", out.SampleRate, out.Channels)
	}

	if out.Frames() != 200 {
		t.Fatalf("frames = %d, want 200", out.Frames())
	}

	// even output frames fall on input frames
	for i := range 100 {
		for ch := range 2 {
			got, want := out.Samples[(2*i)*2+ch], clip.Samples[i*2+ch]
			if got != want {
				t.Fatalf("frame %d ch %d = %v, want %v", 2*i, ch, got, want)
			}
		}
	}

	// odd frames are midpoints; channels stay separate
	mid := out.Samples[3*2]
	want := (clip.Samples[1*2] + clip.Samples[2*2]) / 2
	if math.Abs(float64(mid-want)) > 1e-6 {
		t.Fatalf("midpoint = %v, want %v", mid, want)
	}

	// past the last input frame the value is held
	last := out.Samples[199*2+1]
	if last != clip.Samples[99*2+1] {
		t.Fatalf("tail = %v, want %v", last, clip.Samples[99*2+1])
	}
}

func TestResample_ClampsOvershoot(t *testing.T) {
	clip := &Clip{SampleRate: 4, Channels: 1, Samples: []float32{0, 1, 1, -1, -1, 0, 1}}

	out, err := Resample(clip, 64, lookup.Akima, lookup.WithWorkers(1))
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}

	for i, s := range out.Samples {
		if s < -1 || s > 1 {
			t.Fatalf("sample %d = %v outside [-1, 1]", i, s)
		}
	}
}

func TestResample_InvalidRate(t *testing.T) {
	if _, err := Resample(stereoRamp(4, 8000), 0, lookup.Linear); err == nil {
		t.Fatal("zero rate should fail")
	}
}

func TestResample_ThroughWAV(t *testing.T) {
	encoded, err := EncodeWAV(stereoRamp(50, 22050))
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}

	clip, err := DecodeWAV(encoded)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}

	out, err := Resample(clip, 44100, lookup.Steffen)
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}

	if _, err := EncodeWAV(out); err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
}
