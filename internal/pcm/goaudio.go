// SPDX-License-Identifier: EPL-2.0

package pcm

import (
	"fmt"
	"io"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// intReader is the part of the go-audio wav and aiff decoders we use; tests
// substitute it.
type intReader interface {
	Format() *goaudio.Format
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// intSource adapts an integer PCM decoder to Source.
type intSource struct {
	dec        intReader
	sampleRate int
	channels   int
	scale      float32
	buf        *goaudio.IntBuffer
}

func newIntSource(dec intReader, sampleRate, channels, bitDepth int) (*intSource, error) {
	if sampleRate <= 0 {
		return nil, ErrInvalidRate
	}
	if channels <= 0 {
		return nil, ErrInvalidChannels
	}
	scale, err := fullScale(bitDepth)
	if err != nil {
		return nil, err
	}
	return &intSource{
		dec:        dec,
		sampleRate: sampleRate,
		channels:   channels,
		scale:      scale,
	}, nil
}

func (s *intSource) SampleRate() int { return s.sampleRate }
func (s *intSource) Channels() int   { return s.channels }
func (s *intSource) Close() error    { return nil }

func (s *intSource) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if s.buf == nil || cap(s.buf.Data) < len(dst) {
		s.buf = &goaudio.IntBuffer{
			Data:   make([]int, len(dst)),
			Format: s.dec.Format(),
		}
	}
	s.buf.Data = s.buf.Data[:len(dst)]

	n, err := s.dec.PCMBuffer(s.buf)
	if n == 0 {
		if err != nil && err != io.EOF {
			return 0, fmt.Errorf("pcm: read: %w", err)
		}
		return 0, io.EOF
	}
	for i, v := range s.buf.Data[:n] {
		dst[i] = float32(v) / s.scale
	}
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("pcm: read: %w", err)
	}
	return n, nil
}

// WAVDecoder decodes integer PCM WAV files through go-audio/wav.
type WAVDecoder struct{}

func (WAVDecoder) Decode(r io.Reader) (Source, error) {
	rs, err := seekable(r)
	if err != nil {
		return nil, err
	}

	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotWAV
	}
	if dec.WavAudioFormat != 1 {
		return nil, fmt.Errorf("%w: wav format %d", ErrUnsupportedEncoding, dec.WavAudioFormat)
	}
	if dec.BitDepth == 8 {
		// go-audio hands 8 bit WAV back unsigned
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, dec.BitDepth)
	}
	return newIntSource(dec, int(dec.SampleRate), int(dec.NumChans), int(dec.BitDepth))
}

// AIFFDecoder decodes AIFF files through go-audio/aiff.
type AIFFDecoder struct{}

func (AIFFDecoder) Decode(r io.Reader) (Source, error) {
	rs, err := seekable(r)
	if err != nil {
		return nil, err
	}

	dec := aiff.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotAIFF
	}
	dec.ReadInfo()

	format := dec.Format()
	if format == nil {
		return nil, ErrNotAIFF
	}
	return newIntSource(dec, format.SampleRate, format.NumChannels, int(dec.BitDepth))
}

// Writer encodes interleaved float samples as integer PCM WAV through
// go-audio/wav.
type Writer struct {
	enc      *wav.Encoder
	buf      goaudio.IntBuffer
	bitDepth int
	frames   int
}

// NewWriter starts a WAV stream on w. w must be seekable so the header can be
// finalised by Close. Depths of 16, 24 and 32 bits are supported.
func NewWriter(w io.WriteSeeker, sampleRate, channels, bitDepth int) (*Writer, error) {
	if sampleRate <= 0 {
		return nil, ErrInvalidRate
	}
	if channels <= 0 {
		return nil, ErrInvalidChannels
	}
	if _, err := fullScale(bitDepth); err != nil {
		return nil, err
	}
	if bitDepth == 8 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
	}
	return &Writer{
		enc: wav.NewEncoder(w, sampleRate, bitDepth, channels, 1),
		buf: goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
			SourceBitDepth: bitDepth,
		},
		bitDepth: bitDepth,
	}, nil
}

// Write appends interleaved samples; len(samples) must be a multiple of the
// channel count.
func (w *Writer) Write(samples []float32) error {
	ch := w.buf.Format.NumChannels
	if len(samples)%ch != 0 {
		return ErrInvalidDstSize
	}
	if cap(w.buf.Data) < len(samples) {
		w.buf.Data = make([]int, len(samples))
	}
	w.buf.Data = w.buf.Data[:len(samples)]
	for i, x := range samples {
		w.buf.Data[i] = FloatToInt(x, w.bitDepth)
	}
	if err := w.enc.Write(&w.buf); err != nil {
		return fmt.Errorf("pcm: write wav: %w", err)
	}
	w.frames += len(samples) / ch
	return nil
}

// Frames is the number of frames written so far.
func (w *Writer) Frames() int { return w.frames }

// Close writes the final header. It does not close the underlying writer.
func (w *Writer) Close() error {
	if err := w.enc.Close(); err != nil {
		return fmt.Errorf("pcm: close wav: %w", err)
	}
	return nil
}
