// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ik5/rtproc/client"
	"github.com/ik5/rtproc/rtchan"
)

const (
	DefaultSampleRate    = 48000
	DefaultBufferSize    = 256
	DefaultMaxBufferSize = 8192
	DefaultMidiEvents    = 256
	DefaultMidiBytes     = 4096
	DefaultNotifyQueue   = 64
	DefaultInjectQueue   = 256

	SystemClient = "system"
)

// Config sizes an engine. Zero fields take the defaults above.
type Config struct {
	SampleRate    int
	BufferSize    client.Frames
	MaxBufferSize client.Frames

	// System ports created by New, named system:capture_N and so on.
	CapturePorts      int
	PlaybackPorts     int
	MidiCapturePorts  int
	MidiPlaybackPorts int

	// Per MIDI port limits for one block.
	MidiEvents int
	MidiBytes  int

	NotifyQueue int
	InjectQueue int

	Logger *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.BufferSize == 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.MaxBufferSize == 0 {
		c.MaxBufferSize = max(DefaultMaxBufferSize, c.BufferSize)
	}
	if c.MidiEvents == 0 {
		c.MidiEvents = DefaultMidiEvents
	}
	if c.MidiBytes == 0 {
		c.MidiBytes = DefaultMidiBytes
	}
	if c.NotifyQueue == 0 {
		c.NotifyQueue = DefaultNotifyQueue
	}
	if c.InjectQueue == 0 {
		c.InjectQueue = DefaultInjectQueue
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

func (c *Config) validate() error {
	var errs []error
	if c.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("sample rate %d", c.SampleRate))
	}
	if c.BufferSize > c.MaxBufferSize {
		errs = append(errs, fmt.Errorf("buffer size %d above maximum %d", c.BufferSize, c.MaxBufferSize))
	}
	for name, v := range map[string]int{
		"capture ports":       c.CapturePorts,
		"playback ports":      c.PlaybackPorts,
		"midi capture ports":  c.MidiCapturePorts,
		"midi playback ports": c.MidiPlaybackPorts,
		"midi events":         c.MidiEvents,
		"midi bytes":          c.MidiBytes,
		"notify queue":        c.NotifyQueue,
		"inject queue":        c.InjectQueue,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s %d", name, v))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Injection is a MIDI event queued from an ordinary goroutine for a system
// MIDI capture port. It is delivered at the start of the next block, at
// offset Time clamped into the block.
type Injection struct {
	Port  int
	Time  client.Frames
	Bytes []byte
}

// Stats are the engine's running counters.
type Stats struct {
	Cycles      uint64
	XRuns       uint64
	MidiDropped uint64
}

// Engine is an in-process audio graph: ports, connections and the block
// cycle. Backends embed it, drive Cycle from their process goroutine and
// implement Activate and Deactivate around Attach and Detach.
//
// The setup methods may be called from any goroutine. Cycle and the
// Capture/Playback accessors belong to the process goroutine.
type Engine struct {
	cfg Config
	log *slog.Logger

	mu         sync.Mutex
	clientName string
	nextID     client.PortID
	dispatcher client.Dispatcher
	notify     *rtchan.Sender[client.Notification]
	notifyDone chan struct{}
	stopOnce   *sync.Once

	graph      atomic.Pointer[graph]
	bufferSize atomic.Uint32
	pending    atomic.Uint32

	inject   *rtchan.Publisher[Injection]
	injected *rtchan.Inbox[Injection]

	// process goroutine only
	cur       *graph
	size      client.Frames
	frameTime client.Frames
	scope     client.ProcessScope
	buffers   buffers
	deliverFn func(Injection)

	sysCap      []*port
	sysPlay     []*port
	sysMidiCap  []*port
	sysMidiPlay []*port

	cycles      atomic.Uint64
	xruns       atomic.Uint64
	midiDropped atomic.Uint64
}

// New builds an engine with its system ports registered.
func New(cfg Config) (*Engine, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	pub, inbox, err := rtchan.NewInbox[Injection](cfg.InjectQueue, rtchan.DropNewest)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	e := &Engine{
		cfg:      cfg,
		log:      cfg.Logger,
		inject:   pub,
		injected: inbox,
		size:     cfg.BufferSize,
	}
	e.bufferSize.Store(uint32(cfg.BufferSize))
	e.pending.Store(uint32(cfg.BufferSize))

	g := emptyGraph()
	system := []struct {
		prefix string
		kind   client.PortKind
		count  int
		dst    *[]*port
	}{
		{"capture_", client.AudioOutput, cfg.CapturePorts, &e.sysCap},
		{"playback_", client.AudioInput, cfg.PlaybackPorts, &e.sysPlay},
		{"midi_capture_", client.MidiOutput, cfg.MidiCapturePorts, &e.sysMidiCap},
		{"midi_playback_", client.MidiInput, cfg.MidiPlaybackPorts, &e.sysMidiPlay},
	}
	for _, s := range system {
		for i := 1; i <= s.count; i++ {
			e.nextID++
			name := SystemClient + ":" + s.prefix + strconv.Itoa(i)
			p := newPort(e.nextID, name, s.kind, true, &e.cfg)
			*s.dst = append(*s.dst, p)
			g.ports[p.id] = p
			g.byName[p.name] = p
		}
	}
	e.graph.Store(g.index())
	e.cur = e.graph.Load()
	e.buffers.e = e
	e.deliverFn = e.deliver
	return e, nil
}

// Open attaches the single client this engine serves.
func (e *Engine) Open(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.clientName != "" {
		return fmt.Errorf("%w: %q", ErrAlreadyOpen, e.clientName)
	}
	if name == SystemClient {
		return fmt.Errorf("%w: %q is reserved", client.ErrInvalidName, name)
	}
	e.clientName = name
	return nil
}

func (e *Engine) SampleRate() int { return e.cfg.SampleRate }

// BufferSize is the size of the current (or, before the first block, the
// next) block.
func (e *Engine) BufferSize() client.Frames { return client.Frames(e.bufferSize.Load()) }

// MaxBufferSize bounds SetBufferSize.
func (e *Engine) MaxBufferSize() client.Frames { return e.cfg.MaxBufferSize }

// SetBufferSize schedules a new block size. It takes effect at the start of
// the next block, after the dispatcher's BufferSizeChanged.
func (e *Engine) SetBufferSize(n client.Frames) error {
	if n == 0 || n > e.cfg.MaxBufferSize {
		return fmt.Errorf("%w: %d (max %d)", ErrBufferSize, n, e.cfg.MaxBufferSize)
	}
	e.pending.Store(uint32(n))
	return nil
}

func (e *Engine) RegisterPort(name string, kind client.PortKind) (client.PortID, string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.clientName == "" {
		return 0, "", ErrNotOpen
	}
	full := e.clientName + ":" + name
	g := e.graph.Load()
	if _, ok := g.byName[full]; ok {
		return 0, "", fmt.Errorf("%w: %s", client.ErrPortExists, full)
	}

	e.nextID++
	p := newPort(e.nextID, full, kind, false, &e.cfg)
	e.graph.Store(g.add(p))
	e.notifyLocked(client.PortRegistrationEvent{Port: full, Registered: true})
	return p.id, full, nil
}

func (e *Engine) UnregisterPort(id client.PortID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.graph.Load()
	p, ok := g.ports[id]
	if !ok || p.system {
		return fmt.Errorf("%w: id %d", client.ErrPortNotFound, id)
	}
	e.graph.Store(g.remove(p))
	e.notifyLocked(client.PortRegistrationEvent{Port: p.name, Registered: false})
	return nil
}

func (e *Engine) lookupPair(g *graph, src, dst string) (*port, *port, error) {
	s, ok := g.byName[src]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", client.ErrPortNotFound, src)
	}
	d, ok := g.byName[dst]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", client.ErrPortNotFound, dst)
	}
	if !s.isSource() || d.isSource() || s.kind.IsMidi() != d.kind.IsMidi() {
		return nil, nil, fmt.Errorf("%w: %s (%s) -> %s (%s)", client.ErrPortMismatch, src, s.kind, dst, d.kind)
	}
	return s, d, nil
}

// Connect routes the output port src into the input port dst.
func (e *Engine) Connect(src, dst string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.graph.Load()
	s, d, err := e.lookupPair(g, src, dst)
	if err != nil {
		return err
	}
	if g.connected(s, d) {
		return fmt.Errorf("%w: %s -> %s", ErrAlreadyConnected, src, dst)
	}
	e.graph.Store(g.connect(s, d))
	e.notifyLocked(client.PortsConnectedEvent{A: src, B: dst, Connected: true})
	e.notifyLocked(client.GraphReorderEvent{})
	return nil
}

func (e *Engine) Disconnect(src, dst string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.graph.Load()
	s, d, err := e.lookupPair(g, src, dst)
	if err != nil {
		return err
	}
	if !g.connected(s, d) {
		return fmt.Errorf("%w: %s -> %s", ErrNotConnected, src, dst)
	}
	e.graph.Store(g.disconnect(s, d))
	e.notifyLocked(client.PortsConnectedEvent{A: src, B: dst, Connected: false})
	e.notifyLocked(client.GraphReorderEvent{})
	return nil
}

// Ports lists every port name matching the prefix, sorted.
func (e *Engine) Ports(prefix string) []string {
	g := e.graph.Load()
	var out []string
	for name := range g.byName {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// Connections lists the ports connected to name.
func (e *Engine) Connections(name string) ([]string, error) {
	g := e.graph.Load()
	p, ok := g.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", client.ErrPortNotFound, name)
	}
	return g.connections(p), nil
}

// Attach starts delivering notifications to d. Backends call it from
// Activate before their process goroutine starts.
func (e *Engine) Attach(d client.Dispatcher) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.clientName == "" {
		return ErrNotOpen
	}
	if e.dispatcher != nil {
		return ErrAttached
	}
	tx, rx, err := rtchan.NewRelay[client.Notification](e.cfg.NotifyQueue)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	e.dispatcher = d
	e.notify = tx
	e.notifyDone = make(chan struct{})
	e.stopOnce = new(sync.Once)
	go func(done chan struct{}) {
		defer close(done)
		for ev := range rx.All() {
			d.Notify(ev)
		}
	}(e.notifyDone)
	return nil
}

// Detach stops notification delivery and waits until queued notifications
// have been handed to the dispatcher. The process goroutine must have
// stopped calling Begin and Process.
func (e *Engine) Detach() error {
	e.mu.Lock()
	if e.dispatcher == nil {
		e.mu.Unlock()
		return ErrNotAttached
	}
	tx, done := e.notify, e.notifyDone
	e.dispatcher = nil
	e.notify = nil
	e.mu.Unlock()

	tx.Close()
	<-done
	if s := tx.Stats(); s.Dropped > 0 {
		e.log.Warn("notifications dropped", "client", e.clientName, "dropped", s.Dropped)
	}
	return nil
}

// Notify queues ev for the attached dispatcher. It does not wait for the
// dispatcher but takes the setup lock, so backends call it around Begin and
// Process, never from inside them. It reports false when nothing is attached
// or the queue is full.
func (e *Engine) Notify(ev client.Notification) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.notifyLocked(ev)
}

func (e *Engine) notifyLocked(ev client.Notification) bool {
	if e.notify == nil {
		return false
	}
	return e.notify.TrySend(ev)
}

// Stop reports the end of processing to the attached dispatcher, once per
// attachment. Call it from an ordinary goroutine.
func (e *Engine) Stop(err error) {
	e.mu.Lock()
	d, once := e.dispatcher, e.stopOnce
	e.mu.Unlock()
	if d == nil {
		return
	}
	once.Do(func() { d.Stopped(err) })
}

// Inject queues a MIDI event for a system MIDI capture port (1 based). It
// never blocks and reports false when the queue is full.
func (e *Engine) Inject(ev Injection) bool {
	return e.inject.Publish(ev)
}

// Stats returns a snapshot of the counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Cycles:      e.cycles.Load(),
		XRuns:       e.xruns.Load(),
		MidiDropped: e.midiDropped.Load(),
	}
}

// CountXRun records a missed deadline and notifies the dispatcher.
func (e *Engine) CountXRun() {
	e.xruns.Add(1)
	e.Notify(client.XRunEvent{})
}

// InjectStats exposes the injection queue counters.
func (e *Engine) InjectStats() rtchan.StatsReader { return e.inject }

// Close releases the client name. The engine must be detached.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dispatcher != nil {
		return ErrAttached
	}
	e.clientName = ""
	return nil
}
