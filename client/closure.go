// SPDX-License-Identifier: EPL-2.0

package client

import "io"

// BufferFunc reacts to a block size change with mutable access to the
// handler state.
type BufferFunc[T any] func(state *T, c *Client, size Frames) Control

// ProcessFunc processes one block with mutable access to the handler state.
type ProcessFunc[T any] func(state *T, c *Client, ps *ProcessScope) Control

// ClosureProcessHandler builds a [ProcessHandler] out of a state value and two
// plain functions, so no named handler type is needed:
//
//	h := client.NewClosureProcessHandler(0).
//		WithBufferFn(func(n *int, c *client.Client, size client.Frames) client.Control {
//			return client.Continue
//		}).
//		WithProcessFn(func(n *int, c *client.Client, ps *client.ProcessScope) client.Control {
//			*n++
//			return client.Continue
//		})
//
// The functions are called directly from Process and BufferSize on the
// process goroutine, repeatedly, for as long as the client is active. They
// carry the same real-time restrictions as [ProcessHandler].
//
// The handler owns its state. WithBufferFn and WithProcessFn move the state
// into the adapter they return and leave the receiver empty, so the receiver
// must not be used afterwards.
type ClosureProcessHandler[T any] struct {
	inner     T
	bufferFn  BufferFunc[T]
	processFn ProcessFunc[T]
}

// NewClosureProcessHandler wraps state with always-continue behaviours.
// Activating it without calling any With method is valid.
func NewClosureProcessHandler[T any](state T) *ClosureProcessHandler[T] {
	return &ClosureProcessHandler[T]{
		inner:     state,
		bufferFn:  defaultBufferFn[T],
		processFn: defaultProcessFn[T],
	}
}

// WithBufferFn returns an adapter that uses f for block size changes and
// keeps the current process behaviour. A nil f restores the default.
func (h *ClosureProcessHandler[T]) WithBufferFn(f BufferFunc[T]) *ClosureProcessHandler[T] {
	if f == nil {
		f = defaultBufferFn[T]
	}
	next := &ClosureProcessHandler[T]{
		inner:     h.inner,
		bufferFn:  f,
		processFn: h.processFn,
	}
	*h = ClosureProcessHandler[T]{}
	return next
}

// WithProcessFn returns an adapter that uses f for every block and keeps the
// current buffer size behaviour. A nil f restores the default.
func (h *ClosureProcessHandler[T]) WithProcessFn(f ProcessFunc[T]) *ClosureProcessHandler[T] {
	if f == nil {
		f = defaultProcessFn[T]
	}
	next := &ClosureProcessHandler[T]{
		inner:     h.inner,
		bufferFn:  h.bufferFn,
		processFn: f,
	}
	*h = ClosureProcessHandler[T]{}
	return next
}

// Process forwards to the process function.
func (h *ClosureProcessHandler[T]) Process(c *Client, ps *ProcessScope) Control {
	return h.processFn(&h.inner, c, ps)
}

// BufferSize forwards to the buffer function.
func (h *ClosureProcessHandler[T]) BufferSize(c *Client, size Frames) Control {
	return h.bufferFn(&h.inner, c, size)
}

// Close closes the state when it implements io.Closer, either by value or
// through a pointer. [AsyncClient.Deactivate] calls it, which is how channel
// senders owned by the state get closed.
func (h *ClosureProcessHandler[T]) Close() error {
	if c, ok := any(&h.inner).(io.Closer); ok {
		return c.Close()
	}
	if c, ok := any(h.inner).(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func defaultBufferFn[T any](*T, *Client, Frames) Control {
	return Continue
}

func defaultProcessFn[T any](*T, *Client, *ProcessScope) Control {
	return Continue
}
