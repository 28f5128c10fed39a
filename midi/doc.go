// SPDX-License-Identifier: EPL-2.0

// Package midi holds the value types used to move MIDI data out of a process
// callback.
//
// # Copying Borrowed Events
//
// Events read from a [client.MidiIn] port are borrowed: their bytes live in
// server memory that is reused on the next block. The only way to let one
// leave the callback is to copy it into a [Copy]:
//
//	for _, ev := range in.Events(ps) {
//	    tx.TrySend(midi.NewCopy(ev))
//	}
//
// A Copy has a fixed capacity of [MaxBytes]. Longer events are truncated,
// never rejected, and construction never allocates. Equality and formatting
// consider only the valid bytes.
//
// # Messages
//
// On the consumer side a Copy converts to a gitlab.com/gomidi/midi/v2
// Message for printing and inspection. [NoteOn] and [NoteOff] build output
// messages; build them before activation since they allocate.
//
// Interpreting MIDI beyond note start/end is left to the application.
package midi
