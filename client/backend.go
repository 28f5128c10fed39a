// SPDX-License-Identifier: EPL-2.0

package client

// Backend is the audio server a [Client] talks to. Everything except
// Activate/Deactivate bookkeeping happens on ordinary goroutines; the backend
// owns the goroutine that invokes the [Dispatcher].
//
// A backend must guarantee that once Deactivate returns no further calls are
// made on the dispatcher it was activated with.
type Backend interface {
	// Open attaches the backend to a client name. It is called once by [New].
	Open(name string) error
	SampleRate() int
	BufferSize() Frames
	// RegisterPort creates a port owned by the client and returns its id and
	// full name ("client:port").
	RegisterPort(name string, kind PortKind) (PortID, string, error)
	UnregisterPort(id PortID) error
	Connect(src, dst string) error
	Disconnect(src, dst string) error
	Activate(d Dispatcher) error
	Deactivate() error
	Close() error
}

// Buffers gives access to port memory for the current cycle only.
// Implementations must not allocate or block.
type Buffers interface {
	// Audio returns the sample buffer of an audio port, NFrames long.
	Audio(id PortID) []float32
	// MidiEvents returns the events received on a MIDI input port in the
	// order the server presents them.
	MidiEvents(id PortID) []RawMidi
	// WriteMidi queues an event on a MIDI output port. Range and ordering
	// checks are done by [MidiWriter] before this is called.
	WriteMidi(id PortID, ev RawMidi) error
}

// Dispatcher receives the callbacks of an activated client. It is
// implemented by [AsyncClient]; backends call it.
type Dispatcher interface {
	// Process runs once per block on the backend's process goroutine.
	Process(ps *ProcessScope) Control
	// BufferSizeChanged runs on the process goroutine before the first
	// block with the new size.
	BufferSizeChanged(size Frames) Control
	// Notify delivers an informational event. Backends call it from a
	// goroutine other than the process goroutine.
	Notify(ev Notification)
	// Stopped is called once, from an ordinary goroutine, after the backend
	// stopped invoking Process on its own: a Quit directive (err == nil),
	// end of input, or a server failure.
	Stopped(err error)
}

// Notification is an informational lifecycle event.
type Notification interface {
	notification()
}

type (
	ThreadInitEvent struct{}

	ShutdownEvent struct {
		Reason string
	}

	FreewheelEvent struct {
		Enabled bool
	}

	SampleRateEvent struct {
		Rate int
	}

	ClientRegistrationEvent struct {
		Name       string
		Registered bool
	}

	PortRegistrationEvent struct {
		Port       string
		Registered bool
	}

	PortsConnectedEvent struct {
		A, B      string
		Connected bool
	}

	GraphReorderEvent struct{}

	XRunEvent struct{}
)

func (ThreadInitEvent) notification()         {}
func (ShutdownEvent) notification()           {}
func (FreewheelEvent) notification()          {}
func (SampleRateEvent) notification()         {}
func (ClientRegistrationEvent) notification() {}
func (PortRegistrationEvent) notification()   {}
func (PortsConnectedEvent) notification()     {}
func (GraphReorderEvent) notification()       {}
func (XRunEvent) notification()               {}
