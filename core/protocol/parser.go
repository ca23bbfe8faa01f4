package protocol

import (
	"bytes"
	"fmt"
	"strings"
)

const (
	DefaultMaxLineLength = 2048
	DefaultMaxValueSize  = 1 << 20
	DefaultVersion       = "1.0.0"
)

// Parser splits an input stream into command headers and builds commands from them.
type Parser interface {
	// Parse consumes at most one header from buf. It reports how many bytes were
	// consumed and whether a complete header is now available. Zero bytes are consumed
	// while no full line is buffered.
	Parse(buf []byte) (consumed int, done bool, err error)

	// Build turns the parsed header into a Command plus the length of its data block,
	// or NoData when the command takes none. Zero means an empty block followed by the
	// trailer. A block longer than the configured maximum comes back as a command that
	// implements Discard and reports ErrValueTooLarge.
	Build() (cmd Command, argLen int, err error)

	// Reset prepares the parser for the next header.
	Reset()
}

// ParserOption configures a TextParser.
type ParserOption func(*TextParser)

// WithMaxLineLength bounds a header line. Longer input fails with ErrLineTooLong.
func WithMaxLineLength(n int) ParserOption {
	return func(p *TextParser) {
		if n > 0 {
			p.maxLine = n
		}
	}
}

// WithMaxValueSize bounds the data block of storage commands.
func WithMaxValueSize(n int) ParserOption {
	return func(p *TextParser) {
		if n > 0 {
			p.maxValue = n
		}
	}
}

// WithVersion sets the string reported by the version command.
func WithVersion(v string) ParserOption {
	return func(p *TextParser) {
		if v != "" {
			p.version = v
		}
	}
}

// WithCommand registers or replaces a command builder.
func WithCommand(name string, b Builder) ParserOption {
	return func(p *TextParser) {
		if name != "" && b != nil {
			p.extra[name] = b
		}
	}
}

// TextParser parses the memcached text protocol. Not safe for concurrent use; each
// session owns one.
type TextParser struct {
	maxLine  int
	maxValue int
	version  string
	extra    map[string]Builder
	builders map[string]Builder

	line string
	done bool
}

var _ Parser = (*TextParser)(nil)

// NewParser creates a parser with the built-in command set.
func NewParser(opts ...ParserOption) *TextParser {
	p := &TextParser{
		maxLine:  DefaultMaxLineLength,
		maxValue: DefaultMaxValueSize,
		version:  DefaultVersion,
		extra:    make(map[string]Builder),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.builders = defaultBuilders(p.version)
	for name, b := range p.extra {
		p.builders[name] = b
	}
	p.extra = nil

	return p
}

func (p *TextParser) Parse(buf []byte) (int, bool, error) {
	if p.done {
		return 0, true, nil
	}

	i := bytes.IndexByte(buf, '\n')
	if i < 0 {
		if len(buf) > p.maxLine {
			return 0, false, ErrLineTooLong
		}
		return 0, false, nil
	}
	if i > p.maxLine {
		return 0, false, ErrLineTooLong
	}

	p.line = string(bytes.TrimSuffix(buf[:i], []byte{'\r'}))
	p.done = true
	return i + 1, true, nil
}

func (p *TextParser) Build() (Command, int, error) {
	if !p.done {
		return nil, 0, ErrIncompleteHeader
	}

	fields := strings.Fields(p.line)
	if len(fields) == 0 {
		return nil, 0, ErrUnknownCommand
	}

	b, ok := p.builders[fields[0]]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnknownCommand, fields[0])
	}

	cmd, n, err := b(fields[1:])
	if err != nil {
		return nil, 0, err
	}
	if n > p.maxValue {
		return &rejectCommand{name: fields[0], err: ErrValueTooLarge}, n, nil
	}
	if n < NoData {
		return nil, 0, ErrBadDataChunk
	}
	return cmd, n, nil
}

func (p *TextParser) Reset() {
	p.line = ""
	p.done = false
}

// Name returns the command name of the parsed header, or "" before one is available.
func (p *TextParser) Name() string {
	if !p.done {
		return ""
	}
	name, _, _ := strings.Cut(strings.TrimLeft(p.line, " \t"), " ")
	return name
}
