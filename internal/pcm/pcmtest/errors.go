// SPDX-License-Identifier: EPL-2.0

package pcmtest

import "errors"

var (
	errInvalidWhence  = errors.New("pcmtest: invalid whence")
	errNegativeOffset = errors.New("pcmtest: negative position")
)
