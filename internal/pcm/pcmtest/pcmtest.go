// SPDX-License-Identifier: EPL-2.0

// Package pcmtest provides generated sample sources and an in-memory
// io.WriteSeeker for tests.
package pcmtest

import (
	"io"
	"math"
)

// Source generates frames from a waveform function. It satisfies pcm.Source.
type Source struct {
	sampleRate int
	channels   int
	frames     int
	generated  int
	waveform   func(frame, channel int) float32
	closed     bool
}

// NewSource produces frames frames per channel, each sample computed by fn.
func NewSource(sampleRate, channels, frames int, fn func(frame, channel int) float32) *Source {
	return &Source{
		sampleRate: sampleRate,
		channels:   channels,
		frames:     frames,
		waveform:   fn,
	}
}

func Silence(sampleRate, channels, frames int) *Source {
	return Constant(sampleRate, channels, frames, 0)
}

func Constant(sampleRate, channels, frames int, v float32) *Source {
	return NewSource(sampleRate, channels, frames, func(int, int) float32 { return v })
}

func Sine(sampleRate, channels, frames int, freq float64) *Source {
	return NewSource(sampleRate, channels, frames, func(frame, _ int) float32 {
		t := float64(frame) / float64(sampleRate)
		return float32(math.Sin(2 * math.Pi * freq * t))
	})
}

// Ramp counts frames: sample i of every channel is i.
func Ramp(sampleRate, channels, frames int) *Source {
	return NewSource(sampleRate, channels, frames, func(frame, _ int) float32 { return float32(frame) })
}

func (s *Source) SampleRate() int { return s.sampleRate }
func (s *Source) Channels() int   { return s.channels }
func (s *Source) Closed() bool    { return s.closed }

func (s *Source) Close() error {
	s.closed = true
	return nil
}

func (s *Source) ReadSamples(dst []float32) (int, error) {
	if s.generated >= s.frames {
		return 0, io.EOF
	}
	n := min(len(dst)/s.channels, s.frames-s.generated)
	for f := range n {
		for c := range s.channels {
			dst[f*s.channels+c] = s.waveform(s.generated+f, c)
		}
	}
	s.generated += n
	if s.generated >= s.frames {
		return n * s.channels, io.EOF
	}
	return n * s.channels, nil
}

// Buffer is an in-memory io.WriteSeeker that can also be read back.
type Buffer struct {
	data []byte
	pos  int64
}

func (b *Buffer) Write(p []byte) (int, error) {
	end := b.pos + int64(len(p))
	if end > int64(len(b.data)) {
		b.data = append(b.data, make([]byte, end-int64(len(b.data)))...)
	}
	copy(b.data[b.pos:], p)
	b.pos = end
	return len(p), nil
}

func (b *Buffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = b.pos + offset
	case io.SeekEnd:
		abs = int64(len(b.data)) + offset
	default:
		return 0, errInvalidWhence
	}
	if abs < 0 {
		return 0, errNegativeOffset
	}
	b.pos = abs
	return abs, nil
}

// Bytes returns everything written so far.
func (b *Buffer) Bytes() []byte { return b.data }
