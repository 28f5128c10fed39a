// SPDX-License-Identifier: EPL-2.0

package rtproc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ik5/rtproc/client"
)

// Setup registers the ports of c and returns the handlers to activate it
// with. A nil notification handler is allowed.
type Setup func(c *client.Client) (client.NotificationHandler, client.ProcessHandler, error)

// Connection links two ports by full name, output first.
type Connection struct {
	Src string
	Dst string
}

type Option func(*options)

type options struct {
	log         *slog.Logger
	connections []Connection
	onActivate  func(*client.AsyncClient)
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithConnections makes the connections right after activation.
func WithConnections(conns ...Connection) Option {
	return func(o *options) { o.connections = append(o.connections, conns...) }
}

// WithActivateHook calls fn once the client is active and connected.
func WithActivateHook(fn func(*client.AsyncClient)) Option {
	return func(o *options) { o.onActivate = fn }
}

// Run drives a client named name on b until the server stops it or ctx is
// done, then deactivates and closes it. It returns the reason the server gave
// for stopping; a Quit directive, the end of the input and cancellation of
// ctx are not errors.
func Run(ctx context.Context, b client.Backend, name string, setup Setup, opts ...Option) error {
	o := options{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	c, err := client.New(name, b, client.WithLogger(o.log))
	if err != nil {
		return fmt.Errorf("rtproc: %w", err)
	}

	n, p, err := setup(c)
	if err != nil {
		return errors.Join(fmt.Errorf("rtproc: setup %q: %w", name, err), c.Close())
	}

	a, err := c.Activate(n, p)
	if err != nil {
		return errors.Join(fmt.Errorf("rtproc: %w", err), c.Close())
	}

	for _, conn := range o.connections {
		if err := c.Connect(conn.Src, conn.Dst); err != nil {
			return errors.Join(fmt.Errorf("rtproc: %w", err), c.Close())
		}
	}
	if o.onActivate != nil {
		o.onActivate(a)
	}

	var runErr error
	select {
	case <-ctx.Done():
		o.log.Info("client canceled", "name", name)
	case <-a.Done():
		if err := a.Err(); err != nil {
			runErr = fmt.Errorf("rtproc: %q stopped: %w", name, err)
		}
	}
	return errors.Join(runErr, c.Close())
}
