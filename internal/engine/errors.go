// SPDX-License-Identifier: EPL-2.0

package engine

import "errors"

var (
	ErrInvalidConfig    = errors.New("engine: invalid config")
	ErrNotOpen          = errors.New("engine: no client attached")
	ErrAlreadyOpen      = errors.New("engine: a client is already attached")
	ErrAttached         = errors.New("engine: dispatcher already attached")
	ErrNotAttached      = errors.New("engine: no dispatcher attached")
	ErrAlreadyConnected = errors.New("engine: ports already connected")
	ErrNotConnected     = errors.New("engine: ports not connected")
	ErrNoSuchPort       = errors.New("engine: no such system port")
	ErrBufferSize       = errors.New("engine: buffer size out of range")
)
