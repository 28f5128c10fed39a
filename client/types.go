// SPDX-License-Identifier: EPL-2.0

package client

import "fmt"

// Frames counts sample frames. Inside a process callback a Frames value used
// as a time is an offset from the start of the current block unless it was
// explicitly converted with [ProcessScope.FrameTime].
type Frames uint32

// Control is the directive a callback returns to the audio server.
type Control int

const (
	// Continue keeps the client activated.
	Continue Control = iota
	// Quit asks the server to stop invoking the client. It is terminal.
	Quit
)

func (c Control) String() string {
	switch c {
	case Continue:
		return "continue"
	case Quit:
		return "quit"
	}
	return fmt.Sprintf("Control(%d)", int(c))
}

// PortID identifies a port inside a single backend.
type PortID uint32

// PortKind is the data type and direction of a port, seen from the client.
type PortKind uint8

const (
	AudioInput PortKind = iota
	AudioOutput
	MidiInput
	MidiOutput
)

// IsInput reports whether the port receives data.
func (k PortKind) IsInput() bool { return k == AudioInput || k == MidiInput }

// IsMidi reports whether the port carries MIDI events.
func (k PortKind) IsMidi() bool { return k == MidiInput || k == MidiOutput }

func (k PortKind) String() string {
	switch k {
	case AudioInput:
		return "audio-in"
	case AudioOutput:
		return "audio-out"
	case MidiInput:
		return "midi-in"
	case MidiOutput:
		return "midi-out"
	}
	return fmt.Sprintf("PortKind(%d)", uint8(k))
}

// RawMidi is a MIDI event borrowed from the server for one process call.
// Bytes points into server owned memory and must not be retained after the
// call returns; copy it (see package midi) to keep it.
type RawMidi struct {
	Time  Frames
	Bytes []byte
}
