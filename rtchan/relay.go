// SPDX-License-Identifier: EPL-2.0

package rtchan

import (
	"context"
	"iter"
	"sync"
)

// NewRelay creates a bounded channel that carries values out of a process
// callback. The Sender goes into the callback, the Receiver to an ordinary
// goroutine. The capacity is fixed.
func NewRelay[T any](capacity int) (*Sender[T], *Receiver[T], error) {
	if err := checkCapacity(capacity); err != nil {
		return nil, nil, err
	}
	ch := make(chan T, capacity)
	return &Sender[T]{ch: ch}, &Receiver[T]{ch: ch}, nil
}

// Sender is the real-time side of a relay.
type Sender[T any] struct {
	counters

	ch        chan T
	closeOnce sync.Once
}

// TrySend offers v without blocking. When the relay is full v is dropped and
// counted, and the items already queued stay: of M sends into an undrained
// relay of capacity K, the first K are delivered.
func (s *Sender[T]) TrySend(v T) bool {
	select {
	case s.ch <- v:
		s.sent.Add(1)
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Len is the number of queued items.
func (s *Sender[T]) Len() int { return len(s.ch) }

// Cap is the fixed capacity.
func (s *Sender[T]) Cap() int { return cap(s.ch) }

// Close ends the relay; the receiver drains what is queued and then stops.
// It must not race with TrySend: call it once callbacks have stopped, which
// is what deactivating the client guarantees for senders held by the process
// handler. Further calls are no-ops.
func (s *Sender[T]) Close() error {
	s.closeOnce.Do(func() { close(s.ch) })
	return nil
}

// Receiver is the consumer side of a relay. It may block.
type Receiver[T any] struct {
	ch <-chan T
}

// Recv blocks until an item arrives. ok is false once the sender closed and
// the queue is empty.
func (r *Receiver[T]) Recv() (v T, ok bool) {
	v, ok = <-r.ch
	return v, ok
}

// RecvContext is Recv with cancellation. It returns [ErrClosed] after the
// sender closed and the queue is drained.
func (r *Receiver[T]) RecvContext(ctx context.Context) (T, error) {
	select {
	case v, ok := <-r.ch:
		if !ok {
			var zero T
			return zero, ErrClosed
		}
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// TryRecv returns an item if one is queued.
func (r *Receiver[T]) TryRecv() (v T, ok bool) {
	select {
	case v, ok = <-r.ch:
		return v, ok
	default:
		return v, false
	}
}

// All yields items in send order until the sender closes.
func (r *Receiver[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for v := range r.ch {
			if !yield(v) {
				return
			}
		}
	}
}

// C exposes the underlying channel for select statements.
func (r *Receiver[T]) C() <-chan T { return r.ch }
