// SPDX-License-Identifier: EPL-2.0

// Package rtproc is a real-time audio and MIDI processing client framework.
//
// A client registers ports on an audio server, hands a process handler to
// the server and from then on runs on two kinds of goroutines: the server's
// process goroutine, which calls the handler once per block under a hard
// deadline, and ordinary goroutines that talk to it only through bounded,
// non-blocking channels.
//
// # Packages
//
//   - client: ports, the process scope, handlers and activation
//   - midi: fixed-size copies of MIDI events that can cross goroutines
//   - rtchan: the bounded channels between the two sides
//   - backend/dummy: an in-memory server for tests and demos
//   - backend/offline: a server that renders files faster than real time
//
// # Quick Start
//
// Run opens a client, lets setup register its ports and build the handlers,
// activates it, makes the connections and blocks until the server stops the
// client or ctx is done:
//
//	b, _ := dummy.New(dummy.WithClock())
//	err := rtproc.Run(ctx, b, "gain", func(c *client.Client) (client.NotificationHandler, client.ProcessHandler, error) {
//		in, _ := c.RegisterAudioIn("in")
//		out, _ := c.RegisterAudioOut("out")
//		h := client.NewClosureProcessHandler(struct{}{}).
//			WithProcessFn(func(_ *struct{}, _ *client.Client, ps *client.ProcessScope) client.Control {
//				src, dst := in.Buffer(ps), out.Buffer(ps)
//				for i := range dst {
//					dst[i] = src[i] * 0.5
//				}
//				return client.Continue
//			})
//		return nil, h, nil
//	}, rtproc.WithConnections(
//		rtproc.Connection{Src: "system:capture_1", Dst: "gain:in"},
//		rtproc.Connection{Src: "gain:out", Dst: "system:playback_1"},
//	))
package rtproc
