package protocol

import (
	"github.com/dmitrymomot/kvcache/core/cache"
)

// Command is a parsed request ready to run against a storage.
type Command interface {
	// Name returns the protocol command name.
	Name() string

	// Execute runs the command with its data block (trailer already stripped) and returns
	// the result text without the trailing CRLF.
	Execute(s cache.Storage, arg []byte) (string, error)
}

// Quiet is implemented by commands issued with "noreply"; their result is not sent.
type Quiet interface {
	Quiet() bool
}

// Terminal is implemented by commands that end the session once output is flushed.
type Terminal interface {
	Terminal() bool
}

// Discard is implemented by commands whose data block is skipped instead of buffered.
// Execute then receives a nil block.
type Discard interface {
	Discard() bool
}

// Builder turns the arguments of a header line (command name excluded) into a Command
// and the length of the data block that follows. A command without a data block must
// return NoData: a length of zero announces an empty block, which still ends with the
// two-byte trailer ("set k 0 0 0\r\n\r\n" stores an empty value).
type Builder func(args []string) (Command, int, error)

// Result lines.
const (
	ResultStored    = "STORED"
	ResultNotStored = "NOT_STORED"
	ResultDeleted   = "DELETED"
	ResultNotFound  = "NOT_FOUND"
	ResultTouched   = "TOUCHED"
	ResultEnd       = "END"
)

// MaxKeyLength is the longest key accepted on the wire.
const MaxKeyLength = 250

func validKey(key string) bool {
	if key == "" || len(key) > MaxKeyLength {
		return false
	}
	for i := 0; i < len(key); i++ {
		if c := key[i]; c <= ' ' || c == 0x7f {
			return false
		}
	}
	return true
}

// noreply strips a trailing "noreply" token.
func noreply(args []string) ([]string, bool) {
	if n := len(args); n > 0 && args[n-1] == "noreply" {
		return args[:n-1], true
	}
	return args, false
}

// defaultBuilders returns the built-in command set.
func defaultBuilders(version string) map[string]Builder {
	return map[string]Builder{
		"set":     storeBuilder("set", modeSet),
		"add":     storeBuilder("add", modeAdd),
		"replace": storeBuilder("replace", modeReplace),
		"append":  storeBuilder("append", modeAppend),
		"prepend": storeBuilder("prepend", modePrepend),
		"get":     retrieveBuilder("get", false),
		"gets":    retrieveBuilder("gets", true),
		"delete":  buildDelete,
		"incr":    arithBuilder("incr", true),
		"decr":    arithBuilder("decr", false),
		"touch":   buildTouch,
		"version": versionBuilder(version),
		"quit":    buildQuit,
	}
}
