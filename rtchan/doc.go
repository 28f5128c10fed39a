// SPDX-License-Identifier: EPL-2.0

// Package rtchan provides the two bounded, non-blocking conduits used to talk
// to a process callback.
//
// # Out of the Callback
//
// A relay carries snapshots from the callback to an ordinary goroutine:
//
//	tx, rx, err := rtchan.NewRelay[midi.Copy](64)
//
//	// inside Process
//	tx.TrySend(midi.NewCopy(ev)) // never blocks
//
//	// consumer goroutine
//	for m := range rx.All() {
//	    fmt.Println(m)
//	}
//
// TrySend drops the new item when the relay is full (drop newest). Of M
// sends into a relay of capacity K with no receive in between, exactly the
// first K arrive, in order. Drops are counted in [Stats].
//
// Closing the sender ends the consumer loop. The sender must be closed only
// after callbacks stopped; when the sender is part of a closure handler's
// state and the state has a Close method, deactivating the client does it.
//
// # Into the Callback
//
// An inbox carries control values the other way:
//
//	pub, in, err := rtchan.NewInbox[float64](1, rtchan.DropOldest)
//
//	// UI goroutine
//	pub.Publish(440)
//
//	// inside Process
//	in.Drain(func(f float64) { freq = f })
//
// Drain applies every queued value in order until the inbox is empty, so the
// last value received before the block is rendered wins. With DropOldest a
// full inbox evicts its oldest entries on Publish, so the callback always
// sees the newest values; with DropNewest the newest are rejected. Evicting
// happens on the publishing goroutine, never in the callback.
//
// # Real-Time Safety
//
// Both directions are Go channels with a fixed buffer, operated only through
// select with a default case on the callback side. That path takes the
// channel's internal lock for a bounded, short time, never parks the
// goroutine and never allocates. Capacities cannot change after creation.
package rtchan
