// SPDX-License-Identifier: EPL-2.0

package client

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

const (
	stateActive int32 = iota
	stateQuit
	stateDeactivated
)

// AsyncClient is an activated client. It implements [Dispatcher] for the
// backend and owns the handlers until Deactivate.
//
// Once any callback returns [Quit], or Deactivate is called, the handlers are
// never invoked again.
type AsyncClient struct {
	client       *Client
	notification NotificationHandler
	process      ProcessHandler

	state  atomic.Int32
	cycles atomic.Uint64

	done     chan struct{}
	doneOnce sync.Once
	errMu    sync.Mutex
	err      error

	deactivateOnce sync.Once
	deactivateErr  error
}

var _ Dispatcher = (*AsyncClient)(nil)

func newAsyncClient(c *Client, n NotificationHandler, p ProcessHandler) *AsyncClient {
	return &AsyncClient{
		client:       c,
		notification: n,
		process:      p,
		done:         make(chan struct{}),
	}
}

// Client returns the handle the client was activated from.
func (a *AsyncClient) Client() *Client { return a.client }

// Cycles is the number of blocks the process handler has run.
func (a *AsyncClient) Cycles() uint64 { return a.cycles.Load() }

// Done is closed when the backend stopped invoking the client on its own or
// the client was deactivated.
func (a *AsyncClient) Done() <-chan struct{} { return a.done }

// Err reports why the backend stopped, after Done is closed. It is nil for a
// Quit directive, a normal end of input, or an explicit Deactivate.
func (a *AsyncClient) Err() error {
	a.errMu.Lock()
	defer a.errMu.Unlock()
	return a.err
}

// Process implements Dispatcher.
func (a *AsyncClient) Process(ps *ProcessScope) Control {
	if a.state.Load() != stateActive {
		return Quit
	}
	ctl := a.process.Process(a.client, ps)
	a.cycles.Add(1)
	if ctl != Continue {
		a.state.CompareAndSwap(stateActive, stateQuit)
		return Quit
	}
	return Continue
}

// BufferSizeChanged implements Dispatcher.
func (a *AsyncClient) BufferSizeChanged(size Frames) Control {
	if a.state.Load() != stateActive {
		return Quit
	}
	if a.process.BufferSize(a.client, size) != Continue {
		a.state.CompareAndSwap(stateActive, stateQuit)
		return Quit
	}
	return Continue
}

// Notify implements Dispatcher.
func (a *AsyncClient) Notify(ev Notification) {
	if a.state.Load() == stateDeactivated {
		return
	}

	n, c := a.notification, a.client
	var ctl Control
	switch ev := ev.(type) {
	case ThreadInitEvent:
		n.ThreadInit(c)
	case ShutdownEvent:
		n.Shutdown(ev.Reason)
	case FreewheelEvent:
		n.Freewheel(c, ev.Enabled)
	case SampleRateEvent:
		ctl = n.SampleRate(c, ev.Rate)
	case ClientRegistrationEvent:
		n.ClientRegistration(c, ev.Name, ev.Registered)
	case PortRegistrationEvent:
		n.PortRegistration(c, ev.Port, ev.Registered)
	case PortsConnectedEvent:
		n.PortsConnected(c, ev.A, ev.B, ev.Connected)
	case GraphReorderEvent:
		ctl = n.GraphReorder(c)
	case XRunEvent:
		ctl = n.XRun(c)
	}
	if ctl != Continue {
		a.state.CompareAndSwap(stateActive, stateQuit)
	}
}

// Stopped implements Dispatcher.
func (a *AsyncClient) Stopped(err error) {
	a.state.CompareAndSwap(stateActive, stateQuit)
	a.finish(err)
}

func (a *AsyncClient) finish(err error) {
	a.doneOnce.Do(func() {
		a.errMu.Lock()
		a.err = err
		a.errMu.Unlock()
		close(a.done)
	})
}

// Deactivate stops the backend and releases the handlers. It must be called
// from an ordinary goroutine, never from a callback. When the process handler
// implements io.Closer it is closed here, after the backend guaranteed no
// more callbacks; that is where relay senders owned by the handler get closed
// and blocked consumers return. Calling it again returns the first result.
func (a *AsyncClient) Deactivate() error {
	a.deactivateOnce.Do(func() {
		var errs []error
		if err := a.client.backend.Deactivate(); err != nil {
			errs = append(errs, fmt.Errorf("client: deactivate %q: %w", a.client.name, err))
		}
		a.state.Store(stateDeactivated)

		if c, ok := a.process.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("client: close process handler: %w", err))
			}
		}

		a.client.release(a)
		a.finish(nil)
		a.deactivateErr = errors.Join(errs...)
		a.client.log.Info("client deactivated", "name", a.client.name, "cycles", a.cycles.Load())
	})
	return a.deactivateErr
}
