// SPDX-License-Identifier: EPL-2.0

// Package offline is a backend that renders faster than real time. It can
// feed system:capture_1 from an audio file, play scheduled MIDI events into
// system:midi_capture_N and record the playback ports to a WAV file. When
// the input or the configured duration ends it shuts the client down.
package offline

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/ik5/rtproc/client"
	"github.com/ik5/rtproc/internal/engine"
	"github.com/ik5/rtproc/internal/pcm"
)

var (
	ErrNoLength     = errors.New("offline: either an input file or a duration is required")
	ErrInvalidEvent = errors.New("offline: invalid event")
)

// Event is a MIDI message played at an absolute frame.
type Event struct {
	Frame uint64
	// Port is the 1 based index of the system MIDI capture port.
	Port  int
	Bytes []byte
}

type Config struct {
	SampleRate int
	BufferSize client.Frames

	// Input is decoded, resampled to SampleRate and mixed down onto
	// system:capture_1.
	Input string
	// Output receives system:playback_1..Channels as a WAV file.
	Output   string
	Channels int
	BitDepth int

	// Duration bounds the render. Zero renders until the input ends.
	Duration time.Duration
	Events   []Event

	Logger *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.SampleRate == 0 {
		c.SampleRate = engine.DefaultSampleRate
	}
	if c.BufferSize == 0 {
		c.BufferSize = engine.DefaultBufferSize
	}
	if c.Channels == 0 {
		c.Channels = 2
	}
	if c.BitDepth == 0 {
		c.BitDepth = 16
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

func (c *Config) validate() error {
	var errs []error
	if c.Input == "" && c.Duration <= 0 {
		errs = append(errs, ErrNoLength)
	}
	if c.Channels < 0 {
		errs = append(errs, fmt.Errorf("offline: channels %d", c.Channels))
	}
	for i, ev := range c.Events {
		if ev.Port < 1 || len(ev.Bytes) == 0 {
			errs = append(errs, fmt.Errorf("%w: #%d port %d, %d bytes", ErrInvalidEvent, i, ev.Port, len(ev.Bytes)))
		}
	}
	return errors.Join(errs...)
}

// frames is the render length, or 0 when it is bounded by the input.
func (c *Config) frames() uint64 {
	if c.Duration <= 0 {
		return 0
	}
	return uint64(c.Duration) * uint64(c.SampleRate) / uint64(time.Second)
}

// Backend implements client.Backend.
type Backend struct {
	*engine.Engine

	cfg    Config
	log    *slog.Logger
	events []Event

	mu       sync.Mutex
	stop     chan struct{}
	done     chan struct{}
	rendered uint64
}

var _ client.Backend = (*Backend)(nil)

func New(cfg Config) (*Backend, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	midiPorts := 1
	for _, ev := range cfg.Events {
		midiPorts = max(midiPorts, ev.Port)
	}

	e, err := engine.New(engine.Config{
		SampleRate:        cfg.SampleRate,
		BufferSize:        cfg.BufferSize,
		MaxBufferSize:     cfg.BufferSize,
		CapturePorts:      1,
		PlaybackPorts:     cfg.Channels,
		MidiCapturePorts:  midiPorts,
		MidiPlaybackPorts: 1,
		Logger:            cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("offline: %w", err)
	}

	events := slices.Clone(cfg.Events)
	slices.SortStableFunc(events, func(a, b Event) int { return cmp.Compare(a.Frame, b.Frame) })

	return &Backend{
		Engine: e,
		cfg:    cfg,
		log:    cfg.Logger,
		events: events,
	}, nil
}

// Rendered is the number of frames processed so far.
func (b *Backend) Rendered() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rendered
}

// Activate opens the input and output files and starts rendering.
func (b *Backend) Activate(d client.Dispatcher) error {
	var (
		in  *pcm.BlockReader
		out *recorder
		err error
	)
	if b.cfg.Input != "" {
		if in, err = openInput(b.cfg.Input, b.cfg.SampleRate); err != nil {
			return err
		}
	}
	if b.cfg.Output != "" {
		if out, err = newRecorder(b.cfg.Output, b.cfg.SampleRate, b.cfg.Channels, b.cfg.BitDepth, b.MaxBufferSize()); err != nil {
			if in != nil {
				in.Close()
			}
			return err
		}
	}

	if err := b.Attach(d); err != nil {
		if in != nil {
			in.Close()
		}
		if out != nil {
			out.Close()
		}
		return fmt.Errorf("offline: %w", err)
	}

	b.mu.Lock()
	b.rendered = 0
	b.mu.Unlock()

	b.stop = make(chan struct{})
	b.done = make(chan struct{})
	b.Notify(client.ThreadInitEvent{})
	b.Notify(client.FreewheelEvent{Enabled: true})
	go b.render(d, in, out, b.stop, b.done)
	return nil
}

// Deactivate stops a render still in progress and waits for it.
func (b *Backend) Deactivate() error {
	if b.stop != nil {
		close(b.stop)
		<-b.done
		b.stop, b.done = nil, nil
	}
	if err := b.Detach(); err != nil {
		return fmt.Errorf("offline: %w", err)
	}
	return nil
}

func openInput(path string, rate int) (*pcm.BlockReader, error) {
	src, err := pcm.Open(path, nil)
	if err != nil {
		return nil, fmt.Errorf("offline: input: %w", err)
	}
	if src.SampleRate() != rate {
		rs, err := pcm.NewResampler(src, rate)
		if err != nil {
			src.Close()
			return nil, fmt.Errorf("offline: input: %w", err)
		}
		src = rs
	}
	return pcm.NewBlockReader(src), nil
}

func (b *Backend) render(d client.Dispatcher, in *pcm.BlockReader, out *recorder, stop, done chan struct{}) {
	defer close(done)

	var (
		limit    = b.cfg.frames()
		base     uint64
		next     = 0
		reason   = "render finished"
		err      error
		canceled bool
		start    = time.Now()
	)

loop:
	for {
		select {
		case <-stop:
			canceled = true
			break loop
		default:
		}

		n, ctl := b.Begin(d)
		if ctl != client.Continue {
			reason = "client quit"
			break
		}

		if in != nil {
			ferr := in.Fill(b.CaptureAudio(1)[:n])
			if errors.Is(ferr, io.EOF) && limit == 0 {
				reason = "input finished"
				break
			}
			if ferr != nil && !errors.Is(ferr, io.EOF) {
				err = ferr
				reason = "input failed"
				break
			}
		}

		for next < len(b.events) && b.events[next].Frame < base+uint64(n) {
			ev := b.events[next]
			next++
			if ev.Frame < base {
				continue
			}
			raw := client.RawMidi{Time: client.Frames(ev.Frame - base), Bytes: ev.Bytes}
			if cerr := b.CaptureMidi(ev.Port, raw); cerr != nil {
				b.log.Warn("scheduled midi event dropped", "frame", ev.Frame, "port", ev.Port, "error", cerr)
			}
		}

		ctl = b.Process(d)

		keep := uint64(n)
		if limit > 0 {
			keep = min(keep, limit-base)
		}
		if out != nil {
			if werr := out.record(b.Engine, int(keep)); werr != nil {
				err = werr
				reason = "output failed"
				break
			}
		}

		base += uint64(n)
		b.mu.Lock()
		b.rendered += keep
		rendered := b.rendered
		b.mu.Unlock()

		if ctl != client.Continue {
			reason = "client quit"
			break
		}
		if limit > 0 && rendered >= limit {
			break
		}
	}

	if in != nil {
		if cerr := in.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("offline: close input: %w", cerr))
		}
	}
	if out != nil {
		if cerr := out.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}

	b.log.Info("offline render stopped",
		"reason", reason,
		"frames", b.Rendered(),
		"elapsed", time.Since(start),
		"output", b.cfg.Output,
	)
	if canceled {
		return
	}
	b.Notify(client.FreewheelEvent{Enabled: false})
	b.Notify(client.ShutdownEvent{Reason: reason})
	b.Stop(err)
}
