// SPDX-License-Identifier: EPL-2.0

package pcm

import (
	"errors"
	"io"
	"math"
	"testing"

	"github.com/ik5/rtproc/internal/pcm/pcmtest"
)

func readAll(t *testing.T, src Source, chunk int) []float32 {
	t.Helper()

	buf := make([]float32, chunk)
	var out []float32
	for range 1 << 20 {
		n, err := src.ReadSamples(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("ReadSamples() error = %v", err)
		}
	}
	t.Fatal("source never reached EOF")
	return nil
}

func TestNewResampler_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := NewResampler(pcmtest.Silence(8000, 1, 10), 0); !errors.Is(err, ErrInvalidRate) {
		t.Errorf("dstRate 0: error = %v, want ErrInvalidRate", err)
	}
	if _, err := NewResampler(pcmtest.Silence(8000, 0, 10), 8000); !errors.Is(err, ErrInvalidChannels) {
		t.Errorf("0 channels: error = %v, want ErrInvalidChannels", err)
	}
}

func TestResampler_Metadata(t *testing.T) {
	t.Parallel()

	r, err := NewResampler(pcmtest.Silence(44100, 2, 100), 8000)
	if err != nil {
		t.Fatal(err)
	}
	if r.SampleRate() != 8000 {
		t.Errorf("SampleRate() = %d, want 8000", r.SampleRate())
	}
	if r.Channels() != 2 {
		t.Errorf("Channels() = %d, want 2", r.Channels())
	}
}

func TestResampler_SameRateIsIdentity(t *testing.T) {
	t.Parallel()

	r, err := NewResampler(pcmtest.Ramp(8000, 2, 50), 8000)
	if err != nil {
		t.Fatal(err)
	}
	got := readAll(t, r, 14)
	if len(got) != 100 {
		t.Fatalf("got %d samples, want 100", len(got))
	}
	for i, v := range got {
		if want := float32(i / 2); math.Abs(float64(v-want)) > 1e-4 {
			t.Fatalf("sample %d = %v, want %v", i, v, want)
		}
	}
}

func TestResampler_Length(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		srcRate int
		dstRate int
		frames  int
		want    int
	}{
		{name: "downsample", srcRate: 44100, dstRate: 8000, frames: 44100, want: 8000},
		{name: "upsample", srcRate: 8000, dstRate: 48000, frames: 8000, want: 48000},
		{name: "up 2x", srcRate: 24000, dstRate: 48000, frames: 1000, want: 2000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, err := NewResampler(pcmtest.Sine(tt.srcRate, 1, tt.frames, 440), tt.dstRate)
			if err != nil {
				t.Fatal(err)
			}
			got := len(readAll(t, r, 1024))
			if got < tt.want-2 || got > tt.want+2 {
				t.Errorf("got %d frames, want about %d", got, tt.want)
			}
		})
	}
}

func TestResampler_ConstantStaysConstant(t *testing.T) {
	t.Parallel()

	r, err := NewResampler(pcmtest.Constant(44100, 1, 4410, 0.25), 16000)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range readAll(t, r, 256) {
		if math.Abs(float64(v-0.25)) > 1e-4 {
			t.Fatalf("sample %d = %v, want 0.25", i, v)
		}
	}
}

func TestResampler_InvalidDst(t *testing.T) {
	t.Parallel()

	r, err := NewResampler(pcmtest.Silence(8000, 2, 10), 8000)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.ReadSamples(make([]float32, 3)); !errors.Is(err, ErrInvalidDstSize) {
		t.Errorf("ReadSamples(3) error = %v, want ErrInvalidDstSize", err)
	}
}

func TestResampler_EmptySource(t *testing.T) {
	t.Parallel()

	r, err := NewResampler(pcmtest.Silence(8000, 1, 0), 16000)
	if err != nil {
		t.Fatal(err)
	}
	n, err := r.ReadSamples(make([]float32, 8))
	if n != 0 || !errors.Is(err, io.EOF) {
		t.Errorf("ReadSamples() = %d, %v; want 0, EOF", n, err)
	}
}

func TestResampler_CloseClosesSource(t *testing.T) {
	t.Parallel()

	src := pcmtest.Silence(8000, 1, 10)
	r, err := NewResampler(src, 8000)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if !src.Closed() {
		t.Error("source not closed")
	}
}
