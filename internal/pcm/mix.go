// SPDX-License-Identifier: EPL-2.0

package pcm

import (
	"fmt"
	"io"
)

// MonoMixer averages all channels of a Source into one.
type MonoMixer struct {
	src Source
	tmp []float32
}

func NewMonoMixer(src Source) *MonoMixer {
	return &MonoMixer{src: src}
}

func (m *MonoMixer) SampleRate() int { return m.src.SampleRate() }
func (m *MonoMixer) Channels() int   { return 1 }

func (m *MonoMixer) Close() error {
	if err := m.src.Close(); err != nil {
		return fmt.Errorf("pcm: close mixer source: %w", err)
	}
	return nil
}

func (m *MonoMixer) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	ch := m.src.Channels()
	if ch == 1 {
		return m.src.ReadSamples(dst)
	}

	need := len(dst) * ch
	if cap(m.tmp) < need {
		m.tmp = make([]float32, need)
	}
	m.tmp = m.tmp[:need]

	n, err := m.src.ReadSamples(m.tmp)
	frames := n / ch
	inv := 1 / float32(ch)
	for f := range frames {
		var sum float32
		for _, v := range m.tmp[f*ch : (f+1)*ch] {
			sum += v
		}
		dst[f] = sum * inv
	}
	return frames, err
}

// BlockReader hands out fixed-size mono blocks from a Source, zero padding
// the block in which the source ends.
type BlockReader struct {
	src  Source
	done bool
}

// NewBlockReader wraps src, downmixing it when it has more than one channel.
func NewBlockReader(src Source) *BlockReader {
	if src.Channels() != 1 {
		src = NewMonoMixer(src)
	}
	return &BlockReader{src: src}
}

// Fill overwrites all of dst. It returns io.EOF once no source data remained
// for any of dst; dst is then silence.
func (b *BlockReader) Fill(dst []float32) error {
	filled := 0
	for filled < len(dst) && !b.done {
		n, err := b.src.ReadSamples(dst[filled:])
		filled += n
		if err == io.EOF {
			b.done = true
			break
		}
		if err != nil {
			clear(dst[filled:])
			return fmt.Errorf("pcm: fill block: %w", err)
		}
		if n == 0 {
			break
		}
	}
	clear(dst[filled:])
	if filled == 0 && b.done {
		return io.EOF
	}
	return nil
}

func (b *BlockReader) Close() error { return b.src.Close() }
