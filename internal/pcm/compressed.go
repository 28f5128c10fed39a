// SPDX-License-Identifier: EPL-2.0

package pcm

import (
	"encoding/binary"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// mp3Reader is the part of the go-mp3 decoder we use.
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

type mp3Source struct {
	dec        mp3Reader
	sampleRate int
	buf        []byte
}

func (s *mp3Source) SampleRate() int { return s.sampleRate }

// Channels is always 2: go-mp3 decodes to interleaved stereo.
func (s *mp3Source) Channels() int { return 2 }
func (s *mp3Source) Close() error  { return nil }

func (s *mp3Source) ReadSamples(dst []float32) (int, error) {
	need := len(dst) * 2
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	s.buf = s.buf[:need]

	n, err := s.dec.Read(s.buf)
	samples := n / 2
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(s.buf[2*i:]))
		dst[i] = float32(v) / 32768
	}
	if samples == 0 && err == nil {
		return 0, nil
	}
	if err != nil && err != io.EOF {
		return samples, fmt.Errorf("pcm: mp3: %w", err)
	}
	if samples == 0 {
		return 0, io.EOF
	}
	return samples, nil
}

// MP3Decoder decodes MPEG-1/2 layer III through go-mp3.
type MP3Decoder struct{}

func (MP3Decoder) Decode(r io.Reader) (Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("pcm: mp3: %w", err)
	}
	return &mp3Source{dec: dec, sampleRate: dec.SampleRate()}, nil
}

// vorbisReader is the part of the oggvorbis reader we use.
type vorbisReader interface {
	SampleRate() int
	Channels() int
	Read([]float32) (int, error)
}

type vorbisSource struct {
	dec vorbisReader
}

func (s *vorbisSource) SampleRate() int { return s.dec.SampleRate() }
func (s *vorbisSource) Channels() int   { return s.dec.Channels() }
func (s *vorbisSource) Close() error    { return nil }

// ReadSamples reads whole frames; oggvorbis returns interleaved values.
func (s *vorbisSource) ReadSamples(dst []float32) (int, error) {
	ch := s.dec.Channels()
	if len(dst)%ch != 0 {
		return 0, ErrInvalidDstSize
	}
	if len(dst) == 0 {
		return 0, nil
	}
	n, err := s.dec.Read(dst)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("pcm: vorbis: %w", err)
	}
	if n == 0 && err == io.EOF {
		return 0, io.EOF
	}
	return n, nil
}

// VorbisDecoder decodes Ogg Vorbis through jfreymuth/oggvorbis.
type VorbisDecoder struct{}

func (VorbisDecoder) Decode(r io.Reader) (Source, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("pcm: vorbis: %w", err)
	}
	return &vorbisSource{dec: dec}, nil
}
