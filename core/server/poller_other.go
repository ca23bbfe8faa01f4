//go:build !linux

package server

import "net"

// poller is unavailable off Linux; Start reports ErrUnsupportedPlatform.
type poller struct{}

func newPoller(int, *Server, chan<- error) (*poller, error) {
	return nil, ErrUnsupportedPlatform
}

func (p *poller) add(net.Conn) error { return ErrUnsupportedPlatform }

func (p *poller) close() {}

func (p *poller) run() {}
