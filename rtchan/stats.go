// SPDX-License-Identifier: EPL-2.0

package rtchan

import (
	"errors"
	"fmt"
	"sync/atomic"
)

var (
	ErrInvalidCapacity = errors.New("rtchan: capacity must be at least 1")
	ErrClosed          = errors.New("rtchan: channel closed")
)

// DropPolicy decides which item is lost when a bounded channel is full.
type DropPolicy int

const (
	// DropNewest rejects the item being sent; items already queued are kept.
	DropNewest DropPolicy = iota
	// DropOldest evicts queued items, oldest first, until the new item fits.
	DropOldest
)

func (p DropPolicy) String() string {
	switch p {
	case DropNewest:
		return "drop-newest"
	case DropOldest:
		return "drop-oldest"
	}
	return fmt.Sprintf("DropPolicy(%d)", int(p))
}

// Stats is a snapshot of a channel's counters.
type Stats struct {
	Sent    uint64
	Dropped uint64
}

// StatsReader is implemented by every sending endpoint.
type StatsReader interface {
	Stats() Stats
}

type counters struct {
	sent    atomic.Uint64
	dropped atomic.Uint64
}

func (c *counters) Stats() Stats {
	return Stats{
		Sent:    c.sent.Load(),
		Dropped: c.dropped.Load(),
	}
}

func checkCapacity(capacity int) error {
	if capacity < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	return nil
}
