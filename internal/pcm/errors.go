// SPDX-License-Identifier: EPL-2.0

package pcm

import "errors"

var (
	ErrInvalidDstSize      = errors.New("pcm: dst size must be multiple of channels")
	ErrUnsupportedFormat   = errors.New("pcm: unsupported format")
	ErrNotWAV              = errors.New("pcm: not a WAV file")
	ErrNotAIFF             = errors.New("pcm: not an AIFF file")
	ErrUnsupportedEncoding = errors.New("pcm: only integer PCM is supported")
	ErrUnsupportedBitDepth = errors.New("pcm: unsupported bit depth")
	ErrInvalidRate         = errors.New("pcm: sample rate must be positive")
	ErrInvalidChannels     = errors.New("pcm: channel count must be positive")
)
