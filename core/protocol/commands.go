package protocol

import (
	"strconv"
	"strings"

	"github.com/dmitrymomot/kvcache/core/cache"
)

// NoData is the argument length reported for commands without a data block.
const NoData = -1

type storeMode int

const (
	modeSet storeMode = iota
	modeAdd
	modeReplace
	modeAppend
	modePrepend
)

// storeCommand covers set, add, replace, append and prepend:
//
//	<cmd> <key> <flags> <exptime> <bytes> [noreply]\r\n<data>\r\n
type storeCommand struct {
	name    string
	mode    storeMode
	key     string
	flags   uint32
	exptime int64
	quiet   bool
}

func storeBuilder(name string, mode storeMode) Builder {
	return func(args []string) (Command, int, error) {
		args, quiet := noreply(args)
		if len(args) != 4 {
			return nil, 0, ErrBadCommandLine
		}
		if !validKey(args[0]) {
			return nil, 0, ErrInvalidKey
		}
		flags, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return nil, 0, ErrBadCommandLine
		}
		exptime, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return nil, 0, ErrBadCommandLine
		}
		size, err := strconv.ParseInt(args[3], 10, 32)
		if err != nil || size < 0 {
			return nil, 0, ErrBadDataChunk
		}

		return &storeCommand{
			name:    name,
			mode:    mode,
			key:     args[0],
			flags:   uint32(flags),
			exptime: exptime,
			quiet:   quiet,
		}, int(size), nil
	}
}

func (c *storeCommand) Name() string { return c.name }
func (c *storeCommand) Quiet() bool  { return c.quiet }

func (c *storeCommand) Execute(s cache.Storage, arg []byte) (string, error) {
	var ok bool
	switch c.mode {
	case modeSet:
		if !s.Put(c.key, arg) {
			return "", ErrValueTooLarge
		}
		return ResultStored, nil
	case modeAdd:
		ok = s.PutIfAbsent(c.key, arg)
	case modeReplace:
		ok = s.Set(c.key, arg)
	case modeAppend, modePrepend:
		cur, found := s.Get(c.key)
		if !found {
			return ResultNotStored, nil
		}
		joined := make([]byte, 0, len(cur)+len(arg))
		if c.mode == modeAppend {
			joined = append(append(joined, cur...), arg...)
		} else {
			joined = append(append(joined, arg...), cur...)
		}
		ok = s.Set(c.key, joined)
	}

	if !ok {
		return ResultNotStored, nil
	}
	return ResultStored, nil
}

// retrieveCommand covers get and gets:
//
//	get <key>*\r\n
type retrieveCommand struct {
	name string
	keys []string
	cas  bool
}

func retrieveBuilder(name string, cas bool) Builder {
	return func(args []string) (Command, int, error) {
		if len(args) == 0 {
			return nil, 0, ErrBadCommandLine
		}
		for _, k := range args {
			if !validKey(k) {
				return nil, 0, ErrInvalidKey
			}
		}
		return &retrieveCommand{name: name, keys: args, cas: cas}, NoData, nil
	}
}

func (c *retrieveCommand) Name() string { return c.name }

// Execute emits one VALUE block per hit followed by END. Flags are not stored, so they
// are always reported as 0, as is the CAS unique for gets.
func (c *retrieveCommand) Execute(s cache.Storage, _ []byte) (string, error) {
	var b strings.Builder
	for _, key := range c.keys {
		v, ok := s.Get(key)
		if !ok {
			continue
		}
		b.WriteString("VALUE ")
		b.WriteString(key)
		b.WriteString(" 0 ")
		b.WriteString(strconv.Itoa(len(v)))
		if c.cas {
			b.WriteString(" 0")
		}
		b.WriteString("\r\n")
		b.Write(v)
		b.WriteString("\r\n")
	}
	b.WriteString(ResultEnd)
	return b.String(), nil
}

// deleteCommand: delete <key> [0] [noreply]
type deleteCommand struct {
	key   string
	quiet bool
}

func buildDelete(args []string) (Command, int, error) {
	args, quiet := noreply(args)
	// memcached still tolerates a legacy zero hold time
	if len(args) == 2 && args[1] == "0" {
		args = args[:1]
	}
	if len(args) != 1 {
		return nil, 0, ErrBadCommandLine
	}
	if !validKey(args[0]) {
		return nil, 0, ErrInvalidKey
	}
	return &deleteCommand{key: args[0], quiet: quiet}, NoData, nil
}

func (c *deleteCommand) Name() string { return "delete" }
func (c *deleteCommand) Quiet() bool  { return c.quiet }

func (c *deleteCommand) Execute(s cache.Storage, _ []byte) (string, error) {
	if s.Delete(c.key) {
		return ResultDeleted, nil
	}
	return ResultNotFound, nil
}

// arithCommand covers incr and decr: <cmd> <key> <delta> [noreply]
type arithCommand struct {
	name  string
	key   string
	delta uint64
	incr  bool
	quiet bool
}

func arithBuilder(name string, incr bool) Builder {
	return func(args []string) (Command, int, error) {
		args, quiet := noreply(args)
		if len(args) != 2 {
			return nil, 0, ErrBadCommandLine
		}
		if !validKey(args[0]) {
			return nil, 0, ErrInvalidKey
		}
		delta, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return nil, 0, ErrInvalidDelta
		}
		return &arithCommand{name: name, key: args[0], delta: delta, incr: incr, quiet: quiet}, NoData, nil
	}
}

func (c *arithCommand) Name() string { return c.name }
func (c *arithCommand) Quiet() bool  { return c.quiet }

// Execute applies the delta. Increments wrap at 64 bits; decrements stop at zero.
func (c *arithCommand) Execute(s cache.Storage, _ []byte) (string, error) {
	v, ok := s.Get(c.key)
	if !ok {
		return ResultNotFound, nil
	}
	cur, err := strconv.ParseUint(strings.TrimSpace(string(v)), 10, 64)
	if err != nil {
		return "", ErrNonNumericValue
	}

	switch {
	case c.incr:
		cur += c.delta
	case c.delta > cur:
		cur = 0
	default:
		cur -= c.delta
	}

	out := strconv.FormatUint(cur, 10)
	if !s.Set(c.key, []byte(out)) {
		// evicted or deleted between the read and the write
		return ResultNotFound, nil
	}
	return out, nil
}

// touchCommand: touch <key> <exptime> [noreply]
//
// Expiration is not tracked; touch refreshes the entry's recency instead.
type touchCommand struct {
	key   string
	quiet bool
}

func buildTouch(args []string) (Command, int, error) {
	args, quiet := noreply(args)
	if len(args) != 2 {
		return nil, 0, ErrBadCommandLine
	}
	if !validKey(args[0]) {
		return nil, 0, ErrInvalidKey
	}
	if _, err := strconv.ParseInt(args[1], 10, 64); err != nil {
		return nil, 0, ErrBadCommandLine
	}
	return &touchCommand{key: args[0], quiet: quiet}, NoData, nil
}

func (c *touchCommand) Name() string { return "touch" }
func (c *touchCommand) Quiet() bool  { return c.quiet }

func (c *touchCommand) Execute(s cache.Storage, _ []byte) (string, error) {
	if _, ok := s.Get(c.key); ok {
		return ResultTouched, nil
	}
	return ResultNotFound, nil
}

type versionCommand struct {
	version string
}

func versionBuilder(version string) Builder {
	return func(args []string) (Command, int, error) {
		if len(args) != 0 {
			return nil, 0, ErrBadCommandLine
		}
		return &versionCommand{version: version}, NoData, nil
	}
}

func (c *versionCommand) Name() string { return "version" }

func (c *versionCommand) Execute(cache.Storage, []byte) (string, error) {
	return "VERSION " + c.version, nil
}

type quitCommand struct{}

func buildQuit([]string) (Command, int, error) {
	return quitCommand{}, NoData, nil
}

func (quitCommand) Name() string                                  { return "quit" }
func (quitCommand) Quiet() bool                                   { return true }
func (quitCommand) Terminal() bool                                { return true }
func (quitCommand) Execute(cache.Storage, []byte) (string, error) { return "", nil }

// rejectCommand swallows a data block that was refused at parse time so the stream
// stays in sync, then reports err.
type rejectCommand struct {
	name string
	err  error
}

func (c *rejectCommand) Name() string  { return c.name }
func (c *rejectCommand) Discard() bool { return true }

func (c *rejectCommand) Execute(cache.Storage, []byte) (string, error) {
	return "", c.err
}
