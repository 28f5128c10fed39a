// SPDX-License-Identifier: EPL-2.0

package pcm

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Source is a stream of interleaved float32 samples in [-1, 1].
type Source interface {
	// SampleRate of the stream in Hz.
	SampleRate() int
	// Channels count (1 = mono, 2 = stereo).
	Channels() int
	// ReadSamples fills dst with interleaved samples and returns the number
	// of values written, not frames. n == 0 with io.EOF ends the stream.
	ReadSamples(dst []float32) (n int, err error)
	Close() error
}

// Decoder builds a Source from encoded data.
type Decoder interface {
	Decode(r io.Reader) (Source, error)
}

// Registry maps file extensions (without the dot, lower case) to decoders.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Decoder
}

func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Decoder)}
}

func (r *Registry) Register(ext string, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[strings.ToLower(ext)] = d
}

func (r *Registry) Get(ext string) (Decoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.codecs[strings.ToLower(ext)]
	return d, ok
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry knows wav, aiff/aif, mp3 and ogg.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		r := NewRegistry()
		r.Register("wav", WAVDecoder{})
		r.Register("aiff", AIFFDecoder{})
		r.Register("aif", AIFFDecoder{})
		r.Register("mp3", MP3Decoder{})
		r.Register("ogg", VorbisDecoder{})
		defaultRegistry = r
	})
	return defaultRegistry
}

// Open decodes the file at path with the decoder registered for its
// extension. Closing the returned Source closes the file.
func Open(path string, reg *Registry) (Source, error) {
	if reg == nil {
		reg = DefaultRegistry()
	}
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	dec, ok := reg.Get(ext)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pcm: %w", err)
	}
	src, err := dec.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("pcm: decode %q: %w", path, err)
	}
	return &fileSource{Source: src, f: f}, nil
}

type fileSource struct {
	Source
	f *os.File
}

func (s *fileSource) Close() error {
	err := s.Source.Close()
	if ferr := s.f.Close(); err == nil {
		err = ferr
	}
	return err
}

// seekable returns r as an io.ReadSeeker, buffering it in memory when it is
// not one already. go-audio decoders need to seek.
func seekable(r io.Reader) (io.ReadSeeker, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		return rs, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("pcm: buffer input: %w", err)
	}
	return bytes.NewReader(data), nil
}
