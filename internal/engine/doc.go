// SPDX-License-Identifier: EPL-2.0

// Package engine is the in-process audio graph shared by the bundled
// backends. It owns port memory, the connection graph and the block cycle;
// a backend adds a clock and the capture and playback ends.
//
// A backend drives one block on its process goroutine like this:
//
//	n, ctl := e.Begin(d)
//	if ctl == client.Quit {
//		return
//	}
//	fill(e.CaptureAudio(1)[:n])
//	if e.Process(d) == client.Quit {
//		return
//	}
//	record(e.PlaybackAudio(1))
//
// Setup calls (ports, connections) may run concurrently with the cycle; they
// publish a new graph snapshot that takes effect at the next Begin.
package engine
