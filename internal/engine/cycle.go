// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"github.com/ik5/rtproc/client"
)

// Begin opens a block on the process goroutine. It applies a pending buffer
// size change (calling d.BufferSizeChanged), clears the system capture ports
// and delivers queued injections. The backend then fills the capture ports
// and calls Process. A Quit result ends processing; Process must not follow.
func (e *Engine) Begin(d client.Dispatcher) (client.Frames, client.Control) {
	g := e.graph.Load()
	e.cur = g

	ctl := client.Continue
	if n := client.Frames(e.pending.Load()); n != e.size {
		e.size = n
		e.bufferSize.Store(uint32(n))
		ctl = d.BufferSizeChanged(n)
	}

	for _, list := range [...][]*port{g.systemSources, g.systemSinks, g.clientSources, g.clientSinks} {
		for _, p := range list {
			p.resize(e.size)
		}
	}
	for _, p := range g.systemSources {
		p.reset()
	}
	e.injected.Drain(e.deliverFn)
	return e.size, ctl
}

func (e *Engine) deliver(in Injection) {
	if in.Port < 1 || in.Port > len(e.sysMidiCap) {
		e.midiDropped.Add(1)
		return
	}
	ev := client.RawMidi{Time: min(in.Time, e.size-1), Bytes: in.Bytes}
	if e.sysMidiCap[in.Port-1].appendEvent(ev) != nil {
		e.midiDropped.Add(1)
	}
}

// Process routes inputs, runs d.Process for the block opened by Begin and
// mixes the playback ports. Connections between two client ports deliver the
// previous block's data.
func (e *Engine) Process(d client.Dispatcher) client.Control {
	g := e.cur
	dropped := 0

	for _, p := range g.systemSources {
		p.sortEvents()
	}
	for _, p := range g.clientSinks {
		dropped += p.mixFrom(g.feeds[p.id])
	}
	for _, p := range g.clientSources {
		p.reset()
	}

	e.scope = client.NewProcessScope(e.size, e.frameTime, &e.buffers)
	ctl := d.Process(&e.scope)
	e.cycles.Add(1)

	for _, p := range g.systemSinks {
		dropped += p.mixFrom(g.feeds[p.id])
	}
	if dropped > 0 {
		e.midiDropped.Add(uint64(dropped))
	}
	e.frameTime += e.size
	return ctl
}

// FrameTime is the server clock at the start of the next block.
func (e *Engine) FrameTime() client.Frames { return e.frameTime }

func systemPort(ports []*port, i int) *port {
	if i < 1 || i > len(ports) {
		return nil
	}
	return ports[i-1]
}

// CaptureAudio returns the buffer of system:capture_i for the open block, or
// nil when there is no such port.
func (e *Engine) CaptureAudio(i int) []float32 {
	if p := systemPort(e.sysCap, i); p != nil {
		return p.audio
	}
	return nil
}

// CaptureMidi adds an event to system:midi_capture_i for the open block.
func (e *Engine) CaptureMidi(i int, ev client.RawMidi) error {
	p := systemPort(e.sysMidiCap, i)
	if p == nil {
		return ErrNoSuchPort
	}
	if ev.Time >= e.size {
		return client.ErrFrameOutOfRange
	}
	return p.appendEvent(ev)
}

// PlaybackAudio returns what reached system:playback_i in the last block.
func (e *Engine) PlaybackAudio(i int) []float32 {
	if p := systemPort(e.sysPlay, i); p != nil {
		return p.audio
	}
	return nil
}

// PlaybackMidi returns the events that reached system:midi_playback_i in the
// last block. They are valid until the next block.
func (e *Engine) PlaybackMidi(i int) []client.RawMidi {
	if p := systemPort(e.sysMidiPlay, i); p != nil {
		return p.events
	}
	return nil
}

// buffers is the engine's client.Buffers for the open block.
type buffers struct {
	e *Engine
}

func (b *buffers) Audio(id client.PortID) []float32 {
	p := b.e.cur.ports[id]
	if p == nil {
		return nil
	}
	return p.audio
}

func (b *buffers) MidiEvents(id client.PortID) []client.RawMidi {
	p := b.e.cur.ports[id]
	if p == nil {
		return nil
	}
	return p.events
}

func (b *buffers) WriteMidi(id client.PortID, ev client.RawMidi) error {
	p := b.e.cur.ports[id]
	if p == nil || p.kind != client.MidiOutput {
		return client.ErrPortMismatch
	}
	return p.appendEvent(ev)
}
