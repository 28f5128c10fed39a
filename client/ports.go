// SPDX-License-Identifier: EPL-2.0

package client

// Port is a registered port. The typed wrappers below are what handlers hold.
type Port struct {
	id   PortID
	kind PortKind
	name string
}

func (p Port) ID() PortID     { return p.id }
func (p Port) Kind() PortKind { return p.kind }
func (p Port) Name() string   { return p.name }
func (p Port) String() string { return p.name }

// AudioIn is an audio input port.
type AudioIn struct{ Port }

// Buffer returns the input samples of this block. Read only.
func (p AudioIn) Buffer(ps *ProcessScope) []float32 {
	return ps.buffers.Audio(p.id)
}

// AudioOut is an audio output port.
type AudioOut struct{ Port }

// Buffer returns the output samples of this block. The content on entry is
// unspecified; the handler is expected to overwrite all of it.
func (p AudioOut) Buffer(ps *ProcessScope) []float32 {
	return ps.buffers.Audio(p.id)
}

// MidiIn is a MIDI input port.
type MidiIn struct{ Port }

// Events returns this block's events, borrowed for the call.
func (p MidiIn) Events(ps *ProcessScope) []RawMidi {
	return ps.buffers.MidiEvents(p.id)
}

// Len is the number of events received this block.
func (p MidiIn) Len(ps *ProcessScope) int {
	return len(ps.buffers.MidiEvents(p.id))
}

// At returns the i-th event of this block.
func (p MidiIn) At(ps *ProcessScope, i int) RawMidi {
	return ps.buffers.MidiEvents(p.id)[i]
}

// MidiOut is a MIDI output port.
type MidiOut struct{ Port }

// Writer returns a writer for this block.
func (p MidiOut) Writer(ps *ProcessScope) MidiWriter {
	return MidiWriter{ps: ps, id: p.id}
}

// MidiWriter writes timestamped events into a MIDI output port for one block.
type MidiWriter struct {
	ps    *ProcessScope
	id    PortID
	last  Frames
	wrote bool
}

// Write queues ev. Its time must be inside the block and not earlier than the
// previously written event. The bytes are copied by the server.
func (w *MidiWriter) Write(ev RawMidi) error {
	if ev.Time >= w.ps.nFrames {
		return ErrFrameOutOfRange
	}
	if w.wrote && ev.Time < w.last {
		return ErrTimeOrder
	}
	if err := w.ps.buffers.WriteMidi(w.id, ev); err != nil {
		return err
	}
	w.last = ev.Time
	w.wrote = true
	return nil
}
