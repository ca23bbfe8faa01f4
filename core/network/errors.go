package network

import "errors"

// ErrWouldBlock is returned by a Conn when the operation cannot make progress without
// blocking. It is not a failure; the session waits for the next readiness event.
var ErrWouldBlock = errors.New("operation would block")
