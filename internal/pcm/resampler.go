// SPDX-License-Identifier: EPL-2.0

package pcm

import (
	"fmt"
	"io"
)

const resampleChunkFrames = 1024

// Resampler converts a Source to another sample rate with Catmull-Rom
// interpolation. It keeps the channel count. When downsampling, a one-pole
// low-pass runs over the input first.
type Resampler struct {
	src      Source
	dstRate  int
	ratio    float64 // source frames per output frame
	channels int

	// window[1] and window[2] bracket the output position
	window [4][]float32
	real   [4]bool
	pos    float64
	primed bool

	in     []float32
	inPos  int
	inLen  int
	srcEOF bool

	lowpass bool
	alpha   float32
	state   []float32
}

func NewResampler(src Source, dstRate int) (*Resampler, error) {
	if dstRate <= 0 || src.SampleRate() <= 0 {
		return nil, ErrInvalidRate
	}
	ch := src.Channels()
	if ch <= 0 {
		return nil, ErrInvalidChannels
	}

	r := &Resampler{
		src:      src,
		dstRate:  dstRate,
		ratio:    float64(src.SampleRate()) / float64(dstRate),
		channels: ch,
		in:       make([]float32, resampleChunkFrames*ch),
		state:    make([]float32, ch),
	}
	if r.ratio > 1 {
		r.lowpass = true
		r.alpha = 0.5
	}
	for i := range r.window {
		r.window[i] = make([]float32, ch)
	}
	return r, nil
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }

func (r *Resampler) Close() error {
	if err := r.src.Close(); err != nil {
		return fmt.Errorf("pcm: close resampler source: %w", err)
	}
	return nil
}

// nextFrame copies the next source frame into dst. It reports false once the
// source is exhausted.
func (r *Resampler) nextFrame(dst []float32) (bool, error) {
	for r.inPos >= r.inLen {
		if r.srcEOF {
			return false, nil
		}
		n, err := r.src.ReadSamples(r.in)
		r.inPos = 0
		r.inLen = n - n%r.channels
		if err == io.EOF {
			r.srcEOF = true
		} else if err != nil {
			return false, fmt.Errorf("pcm: resample: %w", err)
		}
	}

	copy(dst, r.in[r.inPos:r.inPos+r.channels])
	r.inPos += r.channels

	if r.lowpass {
		for c := range dst {
			dst[c] = r.alpha*dst[c] + (1-r.alpha)*r.state[c]
			r.state[c] = dst[c]
		}
	}
	return true, nil
}

// load fills window slot i from the source, repeating slot i-1 past the end.
func (r *Resampler) load(i int) error {
	ok, err := r.nextFrame(r.window[i])
	if err != nil {
		return err
	}
	r.real[i] = ok
	if !ok {
		copy(r.window[i], r.window[i-1])
	}
	return nil
}

func (r *Resampler) prime() error {
	r.primed = true

	// seed the filter with the first frame so it starts settled
	lowpass := r.lowpass
	r.lowpass = false
	ok, err := r.nextFrame(r.window[1])
	r.lowpass = lowpass
	if err != nil || !ok {
		return err
	}
	copy(r.state, r.window[1])
	copy(r.window[0], r.window[1])
	r.real[0], r.real[1] = true, true

	if err := r.load(2); err != nil {
		return err
	}
	return r.load(3)
}

func (r *Resampler) advance() error {
	first := r.window[0]
	copy(r.window[:], r.window[1:])
	r.window[3] = first
	copy(r.real[:], r.real[1:])
	return r.load(3)
}

// ReadSamples writes resampled interleaved samples; len(dst) must be a
// multiple of Channels.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}
	if !r.primed {
		if err := r.prime(); err != nil {
			return 0, err
		}
	}

	frames := len(dst) / r.channels
	written := 0
	for written < frames {
		for r.pos >= 1 {
			r.pos--
			if err := r.advance(); err != nil {
				return written * r.channels, err
			}
		}
		if !r.real[1] {
			break
		}

		x := float32(r.pos)
		out := dst[written*r.channels : (written+1)*r.channels]
		for c := range out {
			out[c] = CubicInterpolate(r.window[0][c], r.window[1][c], r.window[2][c], r.window[3][c], x)
		}
		written++
		r.pos += r.ratio
	}

	if written < frames {
		if written == 0 {
			return 0, io.EOF
		}
		return written * r.channels, io.EOF
	}
	return written * r.channels, nil
}
