// SPDX-License-Identifier: EPL-2.0

package midi

import (
	"math"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// NoteFrequency returns the equal tempered frequency of key, A4 (69) = 440 Hz.
func NoteFrequency(key uint8) float64 {
	return 440 * math.Pow(2, (float64(key)-69)/12)
}

// NoteOn builds a Note On message. It allocates; build messages before
// activation and write the same bytes every block.
func NoteOn(channel, key, velocity uint8) []byte {
	return []byte(gomidi.NoteOn(channel, key, velocity))
}

// NoteOff builds a Note Off message with a release velocity.
func NoteOff(channel, key, velocity uint8) []byte {
	return []byte(gomidi.NoteOffVelocity(channel, key, velocity))
}

// NoteStart reports whether the copy is a Note On with a non-zero velocity.
func (c Copy) NoteStart() (channel, key, velocity uint8, ok bool) {
	if c.len != 3 {
		return 0, 0, 0, false
	}
	ok = gomidi.Message(c.data[:c.len]).GetNoteStart(&channel, &key, &velocity)
	return channel, key, velocity, ok
}

// NoteEnd reports whether the copy is a Note Off, or a Note On with zero
// velocity.
func (c Copy) NoteEnd() (channel, key uint8, ok bool) {
	if c.len != 3 {
		return 0, 0, false
	}
	ok = gomidi.Message(c.data[:c.len]).GetNoteEnd(&channel, &key)
	return channel, key, ok
}
