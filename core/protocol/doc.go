// Package protocol implements the memcached text protocol subset spoken by the cache
// server: a line parser, the command set and the mapping of errors to reply lines.
//
// A request is a header line optionally followed by a data block:
//
//	set greeting 0 0 5\r\n
//	hello\r\n
//
// Parse consumes the header, Build returns the Command and the length of the data block
// (NoData when there is none). The caller reads argLen+2 bytes, drops the CRLF trailer
// and passes the rest to Command.Execute. The result is written back followed by CRLF.
//
// Supported commands: set, add, replace, append, prepend, get, gets, delete, incr,
// decr, touch, version and quit. Storage commands accept a trailing "noreply"; those
// commands implement Quiet and their output is suppressed.
//
// Errors map to reply lines through FormatError:
//
//	ErrUnknownCommand          -> ERROR
//	errors.Is(err, ErrClient)  -> CLIENT_ERROR <msg>
//	anything else              -> SERVER_ERROR <msg>
//
// Additional commands can be registered with WithCommand.
package protocol
