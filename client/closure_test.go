// SPDX-License-Identifier: EPL-2.0

package client

import (
	"errors"
	"testing"
)

// fakeBuffers serves one audio buffer per port and records MIDI writes.
type fakeBuffers struct {
	audio  map[PortID][]float32
	events map[PortID][]RawMidi
	room   int
}

func (f *fakeBuffers) Audio(id PortID) []float32      { return f.audio[id] }
func (f *fakeBuffers) MidiEvents(id PortID) []RawMidi { return f.events[id] }

func (f *fakeBuffers) WriteMidi(id PortID, ev RawMidi) error {
	if f.room == 0 {
		return ErrNotEnoughSpace
	}
	f.room--
	if f.events == nil {
		f.events = make(map[PortID][]RawMidi)
	}
	f.events[id] = append(f.events[id], ev)
	return nil
}

func TestClosureProcessHandler_Defaults(t *testing.T) {
	t.Parallel()

	h := NewClosureProcessHandler(struct{}{})
	ps := NewProcessScope(16, 0, &fakeBuffers{})
	if got := h.Process(nil, &ps); got != Continue {
		t.Errorf("Process() = %v, want continue", got)
	}
	if got := h.BufferSize(nil, 32); got != Continue {
		t.Errorf("BufferSize() = %v, want continue", got)
	}
}

func TestClosureProcessHandler_Builder(t *testing.T) {
	t.Parallel()

	type state struct {
		blocks int
		size   Frames
	}
	process := func(s *state, _ *Client, _ *ProcessScope) Control {
		s.blocks++
		return Continue
	}
	buffer := func(s *state, _ *Client, size Frames) Control {
		s.size = size
		return Quit
	}

	tests := []struct {
		name  string
		build func() *ClosureProcessHandler[state]
	}{
		{"process then buffer", func() *ClosureProcessHandler[state] {
			return NewClosureProcessHandler(state{}).WithProcessFn(process).WithBufferFn(buffer)
		}},
		{"buffer then process", func() *ClosureProcessHandler[state] {
			return NewClosureProcessHandler(state{}).WithBufferFn(buffer).WithProcessFn(process)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := tt.build()
			ps := NewProcessScope(8, 0, &fakeBuffers{})
			h.Process(nil, &ps)
			h.Process(nil, &ps)
			if got := h.BufferSize(nil, 128); got != Quit {
				t.Errorf("BufferSize() = %v, want quit", got)
			}
			if h.inner.blocks != 2 || h.inner.size != 128 {
				t.Errorf("state = %+v, want {blocks:2 size:128}", h.inner)
			}
		})
	}
}

func TestClosureProcessHandler_MovesState(t *testing.T) {
	t.Parallel()

	first := NewClosureProcessHandler(7)
	next := first.WithProcessFn(func(n *int, _ *Client, _ *ProcessScope) Control {
		*n++
		return Continue
	})
	if first.inner != 0 || first.processFn != nil {
		t.Error("receiver still holds state after WithProcessFn")
	}
	if next.inner != 7 {
		t.Errorf("moved state = %d, want 7", next.inner)
	}

	reset := next.WithProcessFn(nil)
	ps := NewProcessScope(4, 0, &fakeBuffers{})
	reset.Process(nil, &ps)
	if reset.inner != 7 {
		t.Errorf("default process fn changed state to %d", reset.inner)
	}
}

type closer struct{ closed *bool }

func (c closer) Close() error {
	*c.closed = true
	return nil
}

type ptrCloser struct{ closed bool }

func (c *ptrCloser) Close() error {
	c.closed = true
	return errors.New("closed")
}

func TestClosureProcessHandler_Close(t *testing.T) {
	t.Parallel()

	var closed bool
	if err := NewClosureProcessHandler(closer{&closed}).Close(); err != nil || !closed {
		t.Errorf("value closer: closed = %v, err = %v", closed, err)
	}

	h := NewClosureProcessHandler(ptrCloser{})
	if err := h.Close(); err == nil || !h.inner.closed {
		t.Errorf("pointer closer: closed = %v, err = %v", h.inner.closed, err)
	}

	if err := NewClosureProcessHandler(3).Close(); err != nil {
		t.Errorf("plain state: err = %v", err)
	}
}

func TestMidiWriter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		room   int
		events []RawMidi
		want   []error
	}{
		{
			name:   "in order",
			room:   4,
			events: []RawMidi{{Time: 0}, {Time: 3}, {Time: 3}, {Time: 7}},
			want:   []error{nil, nil, nil, nil},
		},
		{
			name:   "out of range",
			room:   4,
			events: []RawMidi{{Time: 8}, {Time: 100}},
			want:   []error{ErrFrameOutOfRange, ErrFrameOutOfRange},
		},
		{
			name:   "time order",
			room:   4,
			events: []RawMidi{{Time: 5}, {Time: 4}, {Time: 6}},
			want:   []error{nil, ErrTimeOrder, nil},
		},
		{
			name:   "buffer full",
			room:   1,
			events: []RawMidi{{Time: 1}, {Time: 2}},
			want:   []error{nil, ErrNotEnoughSpace},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			bufs := &fakeBuffers{room: tt.room}
			ps := NewProcessScope(8, 0, bufs)
			out := MidiOut{Port{id: 1, kind: MidiOutput, name: "c:out"}}
			w := out.Writer(&ps)
			for i, ev := range tt.events {
				if err := w.Write(ev); !errors.Is(err, tt.want[i]) {
					t.Errorf("Write(#%d at %d) = %v, want %v", i, ev.Time, err, tt.want[i])
				}
			}
		})
	}
}

func TestPorts_Buffers(t *testing.T) {
	t.Parallel()

	bufs := &fakeBuffers{
		audio:  map[PortID][]float32{1: {0.5, 0.25}},
		events: map[PortID][]RawMidi{2: {{Time: 1, Bytes: []byte{0x90, 60, 1}}}},
	}
	ps := NewProcessScope(2, 1000, bufs)

	in := AudioIn{Port{id: 1, kind: AudioInput}}
	if got := in.Buffer(&ps); len(got) != 2 || got[0] != 0.5 {
		t.Errorf("AudioIn.Buffer = %v", got)
	}
	midiIn := MidiIn{Port{id: 2, kind: MidiInput}}
	if midiIn.Len(&ps) != 1 || midiIn.At(&ps, 0).Time != 1 || len(midiIn.Events(&ps)) != 1 {
		t.Errorf("MidiIn events = %v", midiIn.Events(&ps))
	}
	if got := ps.FrameTime(1); got != 1001 {
		t.Errorf("FrameTime(1) = %d, want 1001", got)
	}
}

func TestProcessScope_FrameTimeWraps(t *testing.T) {
	t.Parallel()

	ps := NewProcessScope(16, ^Frames(0)-1, &fakeBuffers{})
	if got := ps.FrameTime(3); got != 1 {
		t.Errorf("FrameTime(3) = %d, want 1", got)
	}
}

func TestStrings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		got, want string
	}{
		{Continue.String(), "continue"},
		{Quit.String(), "quit"},
		{Control(9).String(), "Control(9)"},
		{AudioInput.String(), "audio-in"},
		{MidiOutput.String(), "midi-out"},
		{PortKind(9).String(), "PortKind(9)"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}
