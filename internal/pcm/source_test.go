// SPDX-License-Identifier: EPL-2.0

package pcm

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register("WAV", WAVDecoder{})

	if _, ok := r.Get("wav"); !ok {
		t.Error("Get(wav) not found after Register(WAV)")
	}
	if _, ok := r.Get("flac"); ok {
		t.Error("Get(flac) found, want missing")
	}
}

func TestDefaultRegistry(t *testing.T) {
	t.Parallel()

	for _, ext := range []string{"wav", "aiff", "aif", "mp3", "ogg"} {
		if _, ok := DefaultRegistry().Get(ext); !ok {
			t.Errorf("DefaultRegistry().Get(%q) not found", ext)
		}
	}
}

func TestOpen_UnsupportedExtension(t *testing.T) {
	t.Parallel()

	_, err := Open("track.flac", nil)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Open() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestOpen_Missing(t *testing.T) {
	t.Parallel()

	_, err := Open(filepath.Join(t.TempDir(), "missing.wav"), nil)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open() error = %v, want ErrNotExist", err)
	}
}

func TestOpen_NotWAV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bogus.wav")
	if err := os.WriteFile(path, []byte(strings.Repeat("x", 64)), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path, nil); !errors.Is(err, ErrNotWAV) {
		t.Errorf("Open() error = %v, want ErrNotWAV", err)
	}
}
