// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"github.com/ik5/rtproc/client"
)

// port owns the memory of one graph port. Its buffers are sized once at
// registration and only resliced afterwards.
type port struct {
	id     client.PortID
	name   string
	kind   client.PortKind
	system bool

	audio  []float32
	events []client.RawMidi
	arena  []byte
}

func newPort(id client.PortID, name string, kind client.PortKind, system bool, cfg *Config) *port {
	p := &port{id: id, name: name, kind: kind, system: system}
	if kind.IsMidi() {
		p.events = make([]client.RawMidi, 0, cfg.MidiEvents)
		p.arena = make([]byte, 0, cfg.MidiBytes)
	} else {
		p.audio = make([]float32, cfg.BufferSize, cfg.MaxBufferSize)
	}
	return p
}

// isSource reports whether data flows out of the port into the graph.
func (p *port) isSource() bool { return !p.kind.IsInput() }

func (p *port) resize(n client.Frames) {
	if p.audio != nil {
		p.audio = p.audio[:n]
	}
}

func (p *port) reset() {
	if p.audio != nil {
		clear(p.audio)
	}
	p.events = p.events[:0]
	p.arena = p.arena[:0]
}

// appendEvent copies ev into the port's arena.
func (p *port) appendEvent(ev client.RawMidi) error {
	if len(p.events) == cap(p.events) || len(p.arena)+len(ev.Bytes) > cap(p.arena) {
		return client.ErrNotEnoughSpace
	}
	start := len(p.arena)
	p.arena = append(p.arena, ev.Bytes...)
	p.events = append(p.events, client.RawMidi{
		Time:  ev.Time,
		Bytes: p.arena[start:len(p.arena):len(p.arena)],
	})
	return nil
}

// sortEvents orders events by time, keeping arrival order for ties.
func (p *port) sortEvents() {
	ev := p.events
	for i := 1; i < len(ev); i++ {
		for j := i; j > 0 && ev[j].Time < ev[j-1].Time; j-- {
			ev[j], ev[j-1] = ev[j-1], ev[j]
		}
	}
}

// mixFrom overwrites p with the sum of srcs. MIDI events that do not fit are
// dropped and counted in the return value.
func (p *port) mixFrom(srcs []*port) (dropped int) {
	p.reset()
	if p.audio != nil {
		for _, s := range srcs {
			for i, v := range s.audio[:len(p.audio)] {
				p.audio[i] += v
			}
		}
		return 0
	}

	for _, s := range srcs {
		for _, ev := range s.events {
			if p.appendEvent(ev) != nil {
				dropped++
			}
		}
	}
	if len(srcs) > 1 {
		p.sortEvents()
	}
	return dropped
}
