// SPDX-License-Identifier: EPL-2.0

package client

// NotificationHandler receives informational callbacks. They never run on the
// process goroutine, so they may block briefly, but a panic in one of them is
// a programming error and takes the program down; it is not recovered.
//
// Embed [NopNotificationHandler] to implement only the methods you need.
type NotificationHandler interface {
	// ThreadInit runs once on the process goroutine's behalf before the
	// first block.
	ThreadInit(c *Client)
	// Shutdown reports that the server stopped serving the client.
	Shutdown(reason string)
	Freewheel(c *Client, enabled bool)
	SampleRate(c *Client, rate int) Control
	ClientRegistration(c *Client, name string, registered bool)
	PortRegistration(c *Client, port string, registered bool)
	PortsConnected(c *Client, a, b string, connected bool)
	GraphReorder(c *Client) Control
	XRun(c *Client) Control
}

// ProcessHandler is the real-time interface. Both methods run on the
// backend's process goroutine within the block deadline: they must not block
// on anything shared with ordinary goroutines (mutexes, blocking channel
// operations, I/O) and should not allocate. Violating this is undefined
// behaviour from the server's point of view, not a recoverable error.
//
// Embed [NopProcessHandler] to get always-continue defaults.
type ProcessHandler interface {
	// Process is called once per block.
	Process(c *Client, ps *ProcessScope) Control
	// BufferSize is called when the block size changes.
	BufferSize(c *Client, size Frames) Control
}

// NopNotificationHandler ignores every notification.
type NopNotificationHandler struct{}

func (NopNotificationHandler) ThreadInit(*Client)                           {}
func (NopNotificationHandler) Shutdown(string)                              {}
func (NopNotificationHandler) Freewheel(*Client, bool)                      {}
func (NopNotificationHandler) SampleRate(*Client, int) Control              { return Continue }
func (NopNotificationHandler) ClientRegistration(*Client, string, bool)     {}
func (NopNotificationHandler) PortRegistration(*Client, string, bool)       {}
func (NopNotificationHandler) PortsConnected(*Client, string, string, bool) {}
func (NopNotificationHandler) GraphReorder(*Client) Control                 { return Continue }
func (NopNotificationHandler) XRun(*Client) Control                         { return Continue }

// NopProcessHandler keeps the client running and touches no port.
type NopProcessHandler struct{}

func (NopProcessHandler) Process(*Client, *ProcessScope) Control { return Continue }
func (NopProcessHandler) BufferSize(*Client, Frames) Control     { return Continue }
