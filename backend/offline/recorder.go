// SPDX-License-Identifier: EPL-2.0

package offline

import (
	"errors"
	"fmt"
	"os"

	"github.com/ik5/rtproc/client"
	"github.com/ik5/rtproc/internal/engine"
	"github.com/ik5/rtproc/internal/pcm"
)

// recorder interleaves the playback ports into a WAV file.
type recorder struct {
	f        *os.File
	w        *pcm.Writer
	channels int
	buf      []float32
}

func newRecorder(path string, rate, channels, bitDepth int, maxFrames client.Frames) (*recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("offline: output: %w", err)
	}
	w, err := pcm.NewWriter(f, rate, channels, bitDepth)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("offline: output: %w", err)
	}
	return &recorder{
		f:        f,
		w:        w,
		channels: channels,
		buf:      make([]float32, int(maxFrames)*channels),
	}, nil
}

// record writes the first frames frames of the last block.
func (r *recorder) record(e *engine.Engine, frames int) error {
	if frames <= 0 {
		return nil
	}
	buf := r.buf[:frames*r.channels]
	for ch := range r.channels {
		src := e.PlaybackAudio(ch + 1)
		for i := range frames {
			buf[i*r.channels+ch] = src[i]
		}
	}
	if err := r.w.Write(buf); err != nil {
		return fmt.Errorf("offline: %w", err)
	}
	return nil
}

func (r *recorder) Close() error {
	werr := r.w.Close()
	ferr := r.f.Close()
	if ferr != nil {
		ferr = fmt.Errorf("offline: close output: %w", ferr)
	}
	return errors.Join(werr, ferr)
}
