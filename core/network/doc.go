// Package network contains the per-connection protocol state machine used by the cache
// server's event loop.
//
// A Session is fed readiness callbacks by its owner:
//
//	sess := network.NewSession(conn, storage,
//		network.WithMaxOutput(1<<20),
//		network.WithLogger(log),
//	)
//
//	// on readable
//	sess.OnRead()
//	// on writable
//	sess.OnWrite()
//	// on socket error
//	sess.OnError(err)
//
//	if !sess.Alive() {
//		// deregister and close the socket
//	}
//	rearm(sess.Events())
//
// OnRead drains the socket until it would block, consuming every complete command,
// including several pipelined in one read. Each request moves through
// StateAwaitingCommand, StateAwaitingArgument (for commands with a data block) and
// StateExecutingReady before the reply is queued with a CRLF terminator.
//
// End of stream from the peer is a graceful close: replies already queued are still
// written before the session reports itself dead. Any other I/O error kills the session
// at once and discards pending output.
//
// With WithMaxOutput set, a session whose pending output reaches the limit stops
// executing commands and drops read interest; OnWrite resumes processing once the
// backlog shrinks.
package network
