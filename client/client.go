// SPDX-License-Identifier: EPL-2.0

package client

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Client is the handle of a client opened on a [Backend]. Handlers receive it
// in every callback. Its setup methods (port registration, connections,
// activation) are for ordinary goroutines only; from inside a process
// callback use only Name, SampleRate and BufferSize.
type Client struct {
	name    string
	backend Backend
	log     *slog.Logger

	mu     sync.Mutex
	ports  map[string]Port
	active *AsyncClient
	closed bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for setup and teardown messages.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New opens a client called name on b.
func New(name string, b Backend, opts ...Option) (*Client, error) {
	if name == "" || strings.Contains(name, ":") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if b == nil {
		return nil, ErrNilBackend
	}

	c := &Client{
		name:    name,
		backend: b,
		log:     slog.Default(),
		ports:   make(map[string]Port),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if err := b.Open(name); err != nil {
		return nil, fmt.Errorf("client: open %q: %w", name, err)
	}
	c.log.Debug("client opened", "name", name, "sample_rate", b.SampleRate(), "buffer_size", b.BufferSize())
	return c, nil
}

func (c *Client) Name() string { return c.name }

// SampleRate is the server sample rate in Hz.
func (c *Client) SampleRate() int { return c.backend.SampleRate() }

// BufferSize is the current block size.
func (c *Client) BufferSize() Frames { return c.backend.BufferSize() }

// PortName returns the full name of one of this client's ports.
func (c *Client) PortName(short string) string {
	return c.name + ":" + short
}

func (c *Client) RegisterAudioIn(name string) (AudioIn, error) {
	p, err := c.registerPort(name, AudioInput)
	return AudioIn{p}, err
}

func (c *Client) RegisterAudioOut(name string) (AudioOut, error) {
	p, err := c.registerPort(name, AudioOutput)
	return AudioOut{p}, err
}

func (c *Client) RegisterMidiIn(name string) (MidiIn, error) {
	p, err := c.registerPort(name, MidiInput)
	return MidiIn{p}, err
}

func (c *Client) RegisterMidiOut(name string) (MidiOut, error) {
	p, err := c.registerPort(name, MidiOutput)
	return MidiOut{p}, err
}

func (c *Client) registerPort(name string, kind PortKind) (Port, error) {
	if name == "" || strings.Contains(name, ":") {
		return Port{}, fmt.Errorf("%w: port %q", ErrInvalidName, name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return Port{}, ErrClosed
	}
	if _, ok := c.ports[name]; ok {
		return Port{}, fmt.Errorf("%w: %s", ErrPortExists, c.PortName(name))
	}

	id, full, err := c.backend.RegisterPort(name, kind)
	if err != nil {
		return Port{}, fmt.Errorf("client: register %s port %q: %w", kind, name, err)
	}
	p := Port{id: id, kind: kind, name: full}
	c.ports[name] = p
	c.log.Debug("port registered", "port", full, "kind", kind.String())
	return p, nil
}

// UnregisterPort removes a port. The client must not be active.
func (c *Client) UnregisterPort(p Port) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		return ErrAlreadyActive
	}
	short := strings.TrimPrefix(p.name, c.name+":")
	if _, ok := c.ports[short]; !ok {
		return fmt.Errorf("%w: %s", ErrPortNotFound, p.name)
	}
	if err := c.backend.UnregisterPort(p.id); err != nil {
		return fmt.Errorf("client: unregister %q: %w", p.name, err)
	}
	delete(c.ports, short)
	return nil
}

// Connect connects two ports by full name, output first.
func (c *Client) Connect(src, dst string) error {
	if err := c.backend.Connect(src, dst); err != nil {
		return fmt.Errorf("client: connect %q -> %q: %w", src, dst, err)
	}
	c.log.Debug("ports connected", "src", src, "dst", dst)
	return nil
}

// Disconnect removes a connection made with Connect.
func (c *Client) Disconnect(src, dst string) error {
	if err := c.backend.Disconnect(src, dst); err != nil {
		return fmt.Errorf("client: disconnect %q -> %q: %w", src, dst, err)
	}
	return nil
}

// Activate hands both handlers to the backend and starts processing. After
// this call the handlers belong to the returned [AsyncClient]; the caller
// should reach their state only through channels wired in beforehand.
// A nil notification handler is replaced by [NopNotificationHandler].
func (c *Client) Activate(n NotificationHandler, p ProcessHandler) (*AsyncClient, error) {
	if p == nil {
		return nil, ErrNilHandler
	}
	if n == nil {
		n = NopNotificationHandler{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.active != nil {
		return nil, ErrAlreadyActive
	}

	a := newAsyncClient(c, n, p)
	if err := c.backend.Activate(a); err != nil {
		return nil, fmt.Errorf("client: activate %q: %w", c.name, err)
	}
	c.active = a
	c.log.Info("client activated", "name", c.name)
	return a, nil
}

func (c *Client) release(a *AsyncClient) {
	c.mu.Lock()
	if c.active == a {
		c.active = nil
	}
	c.mu.Unlock()
}

// Close deactivates the client if needed and releases the backend.
func (c *Client) Close() error {
	c.mu.Lock()
	a := c.active
	c.mu.Unlock()

	var derr error
	if a != nil {
		derr = a.Deactivate()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return derr
	}
	c.closed = true
	if err := c.backend.Close(); err != nil {
		return errors.Join(derr, fmt.Errorf("client: close %q: %w", c.name, err))
	}
	return derr
}
