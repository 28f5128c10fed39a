// SPDX-License-Identifier: EPL-2.0

package rtchan

import "sync"

// NewInbox creates a bounded channel that carries control values into a
// process callback. The Publisher stays on ordinary goroutines, the Inbox
// goes into the callback.
//
// With capacity 1 and [DropOldest] the inbox behaves as a "latest value"
// mailbox: the callback sees the most recent value published since its last
// drain.
func NewInbox[T any](capacity int, policy DropPolicy) (*Publisher[T], *Inbox[T], error) {
	if err := checkCapacity(capacity); err != nil {
		return nil, nil, err
	}
	ch := make(chan T, capacity)
	return &Publisher[T]{ch: ch, policy: policy}, &Inbox[T]{ch: ch}, nil
}

// Publisher is the non-real-time side of an inbox.
type Publisher[T any] struct {
	counters

	ch     chan T
	policy DropPolicy
	mu     sync.Mutex
	closed bool
}

// Publish queues v without blocking. Under DropNewest a full inbox rejects v
// and Publish returns false. Under DropOldest queued values are evicted until
// v fits and Publish returns true. Publishing after Close returns false.
func (p *Publisher[T]) Publish(v T) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		p.dropped.Add(1)
		return false
	}

	for {
		select {
		case p.ch <- v:
			p.sent.Add(1)
			return true
		default:
		}

		if p.policy != DropOldest {
			p.dropped.Add(1)
			return false
		}
		select {
		case <-p.ch:
			p.dropped.Add(1)
		default:
			// the callback drained it concurrently; retry the send
		}
	}
}

// Close stops publishing. The inbox keeps whatever is queued.
func (p *Publisher[T]) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.ch)
	}
	return nil
}

// Inbox is the real-time side. None of its methods block.
type Inbox[T any] struct {
	ch <-chan T
}

// TryRecv returns the oldest queued value, if any.
func (in *Inbox[T]) TryRecv() (v T, ok bool) {
	select {
	case v, ok = <-in.ch:
		return v, ok
	default:
		return v, false
	}
}

// Drain applies every queued value in receipt order and returns how many were
// applied. It stops as soon as the inbox reports empty.
func (in *Inbox[T]) Drain(apply func(T)) int {
	n := 0
	for {
		select {
		case v, ok := <-in.ch:
			if !ok {
				return n
			}
			apply(v)
			n++
		default:
			return n
		}
	}
}

// Latest drains the inbox and returns the last value received, or cur when
// nothing was queued.
func (in *Inbox[T]) Latest(cur T) (T, bool) {
	got := false
	for {
		select {
		case v, ok := <-in.ch:
			if !ok {
				return cur, got
			}
			cur, got = v, true
		default:
			return cur, got
		}
	}
}
