// SPDX-License-Identifier: EPL-2.0

// Package dummy is a backend without audio hardware. It either runs blocks
// on demand through Step, which makes it the backend of choice for tests, or
// free-runs on a wall clock paced like a real device.
package dummy

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/ik5/rtproc/client"
	"github.com/ik5/rtproc/internal/engine"
)

var ErrClocked = errors.New("dummy: backend is free running")

// CaptureFunc fills system:capture_1 for one block.
type CaptureFunc func(buf []float32)

// Option configures a Backend.
type Option func(*options)

type options struct {
	cfg     engine.Config
	capture CaptureFunc
	clocked bool
}

func WithSampleRate(rate int) Option {
	return func(o *options) { o.cfg.SampleRate = rate }
}

func WithBufferSize(n client.Frames) Option {
	return func(o *options) { o.cfg.BufferSize = n }
}

// WithMaxBufferSize bounds later SetBufferSize calls.
func WithMaxBufferSize(n client.Frames) Option {
	return func(o *options) { o.cfg.MaxBufferSize = n }
}

// WithPorts sets how many system ports of each kind exist.
func WithPorts(capture, playback, midiCapture, midiPlayback int) Option {
	return func(o *options) {
		o.cfg.CapturePorts = capture
		o.cfg.PlaybackPorts = playback
		o.cfg.MidiCapturePorts = midiCapture
		o.cfg.MidiPlaybackPorts = midiPlayback
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.cfg.Logger = l }
}

// WithCapture generates the capture signal. It runs on the process
// goroutine.
func WithCapture(fn CaptureFunc) Option {
	return func(o *options) { o.capture = fn }
}

// WithClock makes the backend run blocks on its own at the pace of the
// sample rate once activated.
func WithClock() Option {
	return func(o *options) { o.clocked = true }
}

// Backend implements client.Backend.
type Backend struct {
	*engine.Engine

	log     *slog.Logger
	capture CaptureFunc
	clocked bool

	// mu serialises blocks with the inspection methods.
	mu      sync.Mutex
	d       client.Dispatcher
	stopped bool
	stop    chan struct{}
	done    chan struct{}
}

var _ client.Backend = (*Backend)(nil)

// New builds a backend with two audio and one MIDI system port in each
// direction unless WithPorts says otherwise.
func New(opts ...Option) (*Backend, error) {
	o := options{cfg: engine.Config{
		CapturePorts:      2,
		PlaybackPorts:     2,
		MidiCapturePorts:  1,
		MidiPlaybackPorts: 1,
	}}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.cfg.Logger == nil {
		o.cfg.Logger = slog.Default()
	}

	e, err := engine.New(o.cfg)
	if err != nil {
		return nil, fmt.Errorf("dummy: %w", err)
	}
	return &Backend{
		Engine:  e,
		log:     o.cfg.Logger,
		capture: o.capture,
		clocked: o.clocked,
	}, nil
}

func (b *Backend) Activate(d client.Dispatcher) error {
	if err := b.Attach(d); err != nil {
		return fmt.Errorf("dummy: %w", err)
	}

	b.mu.Lock()
	b.d = d
	b.stopped = false
	b.mu.Unlock()

	b.Notify(client.ThreadInitEvent{})
	if b.clocked {
		b.stop = make(chan struct{})
		b.done = make(chan struct{})
		go b.run(b.stop, b.done)
	}
	b.log.Debug("dummy backend activated", "clocked", b.clocked, "sample_rate", b.SampleRate(), "buffer_size", b.BufferSize())
	return nil
}

func (b *Backend) Deactivate() error {
	if b.stop != nil {
		close(b.stop)
		<-b.done
		b.stop, b.done = nil, nil
	}

	b.mu.Lock()
	b.d = nil
	b.stopped = true
	b.mu.Unlock()

	if err := b.Detach(); err != nil {
		return fmt.Errorf("dummy: %w", err)
	}
	return nil
}

// cycleLocked runs one block. b.mu must be held.
func (b *Backend) cycleLocked() client.Control {
	n, ctl := b.Begin(b.d)
	if ctl != client.Continue {
		return ctl
	}
	if b.capture != nil {
		if buf := b.CaptureAudio(1); buf != nil {
			b.capture(buf[:n])
		}
	}
	return b.Process(b.d)
}

// Step runs a single block and returns the client's directive. After a Quit
// the backend stops and further calls return Quit without running a block.
func (b *Backend) Step() (client.Control, error) {
	if b.clocked {
		return client.Quit, ErrClocked
	}

	b.mu.Lock()
	if b.d == nil {
		b.mu.Unlock()
		return client.Quit, client.ErrNotActive
	}
	if b.stopped {
		b.mu.Unlock()
		return client.Quit, nil
	}
	ctl := b.cycleLocked()
	if ctl != client.Continue {
		b.stopped = true
	}
	b.mu.Unlock()

	if ctl != client.Continue {
		b.Stop(nil)
	}
	return ctl, nil
}

// StepN runs up to n blocks and stops early on Quit.
func (b *Backend) StepN(n int) (int, error) {
	for i := range n {
		ctl, err := b.Step()
		if err != nil {
			return i, err
		}
		if ctl != client.Continue {
			return i + 1, nil
		}
	}
	return n, nil
}

func (b *Backend) period() time.Duration {
	return time.Duration(b.BufferSize()) * time.Second / time.Duration(b.SampleRate())
}

func (b *Backend) run(stop, done chan struct{}) {
	defer close(done)

	next := time.Now()
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C:
		}

		period := b.period()
		start := time.Now()
		b.mu.Lock()
		ctl := b.cycleLocked()
		if ctl != client.Continue {
			b.stopped = true
		}
		b.mu.Unlock()

		if ctl != client.Continue {
			b.Stop(nil)
			return
		}
		if time.Since(start) > period {
			b.CountXRun()
		}

		next = next.Add(period)
		if wait := time.Until(next); wait > 0 {
			timer.Reset(wait)
		} else {
			// fell behind; resynchronise instead of bursting
			next = time.Now()
			timer.Reset(0)
		}
	}
}

// Playback copies what reached system:playback_i in the last block.
func (b *Backend) Playback(i int) []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.PlaybackAudio(i))
}

// PlaybackEvents copies the events that reached system:midi_playback_i in
// the last block.
func (b *Backend) PlaybackEvents(i int) []client.RawMidi {
	b.mu.Lock()
	defer b.mu.Unlock()

	src := b.PlaybackMidi(i)
	out := make([]client.RawMidi, len(src))
	for j, ev := range src {
		out[j] = client.RawMidi{Time: ev.Time, Bytes: slices.Clone(ev.Bytes)}
	}
	return out
}

// QueueMidi delivers data on system:midi_capture_i at offset t of the next
// block. It reports false when the queue is full.
func (b *Backend) QueueMidi(i int, t client.Frames, data []byte) bool {
	return b.Inject(engine.Injection{Port: i, Time: t, Bytes: slices.Clone(data)})
}
