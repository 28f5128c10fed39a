// SPDX-License-Identifier: EPL-2.0

package client

import "errors"

var (
	ErrInvalidName     = errors.New("client: invalid name")
	ErrNilBackend      = errors.New("client: nil backend")
	ErrClosed          = errors.New("client: closed")
	ErrAlreadyActive   = errors.New("client: already active")
	ErrNotActive       = errors.New("client: not active")
	ErrPortExists      = errors.New("client: port already exists")
	ErrPortNotFound    = errors.New("client: port not found")
	ErrPortMismatch    = errors.New("client: ports cannot be connected")
	ErrFrameOutOfRange = errors.New("client: midi event time outside of block")
	ErrTimeOrder       = errors.New("client: midi event written before previous event")
	ErrNotEnoughSpace  = errors.New("client: not enough space in midi buffer")
	ErrNilHandler      = errors.New("client: nil process handler")
)
