// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/ik5/rtproc/client"
	"github.com/ik5/rtproc/midi"
	"github.com/ik5/rtproc/rtchan"
)

const (
	noteKey      = 64
	noteVelocity = 127
)

// synth plays a sine whose pitch follows the MIDI input, echoes every input
// event to a consumer and sends a Note On/Off pair on its MIDI output every
// block.
type synth struct {
	midiIn   client.MidiIn
	midiOut  client.MidiOut
	audioOut client.AudioOut

	copies    *rtchan.Sender[midi.Copy]
	frequency *rtchan.Inbox[float64]

	noteOn  []byte
	noteOff []byte

	freq   float64
	amp    float64
	level  float64
	time   float64
	frameT float64
}

// synthControl is what the rest of the program keeps after the synth moved
// into the process handler.
type synthControl struct {
	copies    *rtchan.Receiver[midi.Copy]
	frequency *rtchan.Publisher[float64]
	stats     map[string]rtchan.StatsReader
}

type synthConfig struct {
	frequency    float64
	amplitude    float64
	relayCap     int
	frequencyCap int
}

// newSynth registers midi_input, midi_output and audio_output on c.
func newSynth(c *client.Client, cfg synthConfig) (*synth, *synthControl, error) {
	midiIn, err := c.RegisterMidiIn("midi_input")
	if err != nil {
		return nil, nil, err
	}
	midiOut, err := c.RegisterMidiOut("midi_output")
	if err != nil {
		return nil, nil, err
	}
	audioOut, err := c.RegisterAudioOut("audio_output")
	if err != nil {
		return nil, nil, err
	}

	tx, rx, err := rtchan.NewRelay[midi.Copy](cfg.relayCap)
	if err != nil {
		return nil, nil, fmt.Errorf("midi relay: %w", err)
	}
	pub, inbox, err := rtchan.NewInbox[float64](cfg.frequencyCap, rtchan.DropOldest)
	if err != nil {
		return nil, nil, fmt.Errorf("frequency inbox: %w", err)
	}

	s := &synth{
		midiIn:    midiIn,
		midiOut:   midiOut,
		audioOut:  audioOut,
		copies:    tx,
		frequency: inbox,
		noteOn:    midi.NoteOn(0, noteKey, noteVelocity),
		noteOff:   midi.NoteOff(0, noteKey, noteVelocity),
		freq:      cfg.frequency,
		level:     cfg.amplitude,
		frameT:    1 / float64(c.SampleRate()),
	}
	ctl := &synthControl{
		copies:    rx,
		frequency: pub,
		stats: map[string]rtchan.StatsReader{
			"midi_copies": tx,
			"frequency":   pub,
		},
	}
	return s, ctl, nil
}

func (s *synth) process(_ *client.Client, ps *client.ProcessScope) client.Control {
	for i := range s.midiIn.Len(ps) {
		c := midi.NewCopy(s.midiIn.At(ps, i))
		s.copies.TrySend(c)

		if _, key, _, ok := c.NoteStart(); ok {
			s.amp = s.level
			s.freq = midi.NoteFrequency(key)
		} else if _, _, ok := c.NoteEnd(); ok {
			s.amp = 0
		}
	}

	w := s.midiOut.Writer(ps)
	_ = w.Write(client.RawMidi{Time: 0, Bytes: s.noteOn})
	_ = w.Write(client.RawMidi{Time: ps.NFrames() / 2, Bytes: s.noteOff})

	s.frequency.Drain(func(f float64) {
		s.time = 0
		s.freq = f
	})

	out := s.audioOut.Buffer(ps)
	for i := range out {
		x := s.freq * s.time * 2 * math.Pi
		out[i] = float32(s.amp * math.Sin(x))
		s.time += s.frameT
	}
	return client.Continue
}

// Close ends the consumer once the client is deactivated.
func (s *synth) Close() error { return s.copies.Close() }

// handler moves s into a process handler. s must not be used afterwards.
func (s *synth) handler() client.ProcessHandler {
	return client.NewClosureProcessHandler(*s).WithProcessFn((*synth).process)
}

// logCopies logs every event copied out of the process callback until the
// relay closes.
func logCopies(ctx context.Context, rx *rtchan.Receiver[midi.Copy], log *slog.Logger) error {
	for c := range rx.All() {
		log.LogAttrs(ctx, slog.LevelInfo, "midi event",
			slog.Uint64("time", uint64(c.Time())),
			slog.String("copy", c.String()),
			slog.String("message", c.Message().String()),
		)
	}
	return nil
}
