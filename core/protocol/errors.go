package protocol

import "errors"

var (
	// ErrUnknownCommand is returned for a header whose command name is not registered.
	// It is reported to the peer as a bare "ERROR" line.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrClient is the parent of every error caused by malformed client input.
	// Match with errors.Is; such errors are reported as "CLIENT_ERROR <msg>".
	ErrClient = errors.New("client error")

	// ErrValueTooLarge is returned when a data block exceeds the configured maximum or
	// the storage refuses an entry because it cannot fit.
	ErrValueTooLarge = errors.New("object too large for cache")
)

var (
	ErrBadCommandLine  error = clientError("bad command line format")
	ErrBadDataChunk    error = clientError("bad data chunk")
	ErrInvalidKey      error = clientError("invalid key")
	ErrInvalidDelta    error = clientError("invalid numeric delta argument")
	ErrNonNumericValue error = clientError("cannot increment or decrement non-numeric value")
	ErrLineTooLong     error = clientError("line too long")
)

// clientError is a sentinel that matches ErrClient.
type clientError string

func (e clientError) Error() string { return string(e) }

func (e clientError) Is(target error) bool { return target == ErrClient }

// FormatError renders err as a protocol error line without the trailing CRLF.
func FormatError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownCommand):
		return "ERROR"
	case errors.Is(err, ErrClient):
		return "CLIENT_ERROR " + err.Error()
	default:
		return "SERVER_ERROR " + err.Error()
	}
}

// ErrIncompleteHeader is returned by Build when no full header has been parsed.
var ErrIncompleteHeader = errors.New("command header incomplete")
