package gateway

import (
	"io"

	"github.com/dmitrymomot/kvcache/core/network"
)

// frameConn adapts message-oriented WebSocket traffic to the byte stream a session
// expects. Inbound frames are queued with feed; replies accumulate until flushed.
type frameConn struct {
	in  []byte
	out []byte
	eof bool
}

func (c *frameConn) feed(p []byte) {
	c.in = append(c.in, p...)
}

// readable reports whether a Read would return data or end of stream.
func (c *frameConn) readable() bool {
	return len(c.in) > 0 || c.eof
}

func (c *frameConn) Read(p []byte) (int, error) {
	if len(c.in) == 0 {
		if c.eof {
			return 0, io.EOF
		}
		return 0, network.ErrWouldBlock
	}
	n := copy(p, c.in)
	m := copy(c.in, c.in[n:])
	c.in = c.in[:m]
	return n, nil
}

func (c *frameConn) Write(p []byte) (int, error) {
	c.out = append(c.out, p...)
	return len(p), nil
}

// flush returns and clears the accumulated output.
func (c *frameConn) flush() []byte {
	out := c.out
	c.out = nil
	return out
}
