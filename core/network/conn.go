package network

import "strings"

// Conn is a non-blocking byte stream. Read returns io.EOF once the peer has closed its
// side and ErrWouldBlock when no data is available. Write returns ErrWouldBlock when
// the peer cannot accept more bytes right now; partial writes are reported through n.
type Conn interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
}

// Event is a readiness interest bitmask.
type Event uint32

const (
	EventRead Event = 1 << iota
	EventWrite
	EventHangup
)

// Has reports whether all bits of f are set.
func (e Event) Has(f Event) bool {
	return e&f == f
}

func (e Event) String() string {
	if e == 0 {
		return "none"
	}
	var parts []string
	if e.Has(EventRead) {
		parts = append(parts, "read")
	}
	if e.Has(EventWrite) {
		parts = append(parts, "write")
	}
	if e.Has(EventHangup) {
		parts = append(parts, "hangup")
	}
	return strings.Join(parts, "|")
}
