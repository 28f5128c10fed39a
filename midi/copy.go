// SPDX-License-Identifier: EPL-2.0

package midi

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/ik5/rtproc/client"
)

// MaxBytes is the capacity of a [Copy]. Channel voice messages fit; longer
// messages (SysEx) are truncated.
const MaxBytes = 3

// Copy is a fixed size snapshot of a [client.RawMidi]. It holds no pointers,
// so it can be sent out of a process callback by value and kept forever.
//
// Only the first Len bytes are meaningful. Bytes past Len are always zero.
type Copy struct {
	len  int
	data [MaxBytes]byte
	time client.Frames
}

// NewCopy snapshots ev. When ev is longer than MaxBytes the excess is dropped
// without error. NewCopy does not allocate.
func NewCopy(ev client.RawMidi) Copy {
	c := Copy{time: ev.Time}
	c.len = copy(c.data[:], ev.Bytes)
	return c
}

// Len is the number of valid bytes.
func (c Copy) Len() int { return c.len }

// Time is the frame offset of the event in the block it was received in.
func (c Copy) Time() client.Frames { return c.time }

// Array returns the whole backing array; only the first Len bytes are valid.
func (c Copy) Array() [MaxBytes]byte { return c.data }

// Bytes returns the valid bytes. The slice aliases c.
func (c *Copy) Bytes() []byte { return c.data[:c.len] }

// Status returns the first byte, or 0 for an empty copy.
func (c Copy) Status() byte {
	if c.len == 0 {
		return 0
	}
	return c.data[0]
}

// Equal compares time and valid bytes.
func (c Copy) Equal(o Copy) bool {
	if c.len != o.len || c.time != o.time {
		return false
	}
	for i := range c.len {
		if c.data[i] != o.data[i] {
			return false
		}
	}
	return true
}

// Raw turns the copy back into a [client.RawMidi] aliasing c, for writing it
// to an output port.
func (c *Copy) Raw() client.RawMidi {
	return client.RawMidi{Time: c.time, Bytes: c.data[:c.len]}
}

// Message converts the valid bytes to a gomidi message. It allocates, so use
// it on the consumer side only.
func (c Copy) Message() gomidi.Message {
	return gomidi.Message(append([]byte(nil), c.data[:c.len]...))
}

func (c Copy) String() string {
	return fmt.Sprintf("Midi { time: %d, len: %d, data: %v }", c.time, c.len, c.data[:c.len])
}
