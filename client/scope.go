// SPDX-License-Identifier: EPL-2.0

package client

// ProcessScope is the call-scoped view of one block. It is only valid for the
// duration of the Process call it was passed to.
type ProcessScope struct {
	nFrames       Frames
	lastFrameTime Frames
	buffers       Buffers
}

// NewProcessScope builds a scope for a block of nFrames frames whose first
// frame is lastFrameTime on the server clock. It is used by backends.
func NewProcessScope(nFrames, lastFrameTime Frames, b Buffers) ProcessScope {
	return ProcessScope{
		nFrames:       nFrames,
		lastFrameTime: lastFrameTime,
		buffers:       b,
	}
}

// NFrames is the number of frames in this block.
func (ps *ProcessScope) NFrames() Frames { return ps.nFrames }

// LastFrameTime is the server clock at the start of this block. It wraps.
func (ps *ProcessScope) LastFrameTime() Frames { return ps.lastFrameTime }

// FrameTime converts a block relative offset to server clock time.
func (ps *ProcessScope) FrameTime(offset Frames) Frames {
	return ps.lastFrameTime + offset
}
