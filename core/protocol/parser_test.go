package protocol_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kvcache/core/cache"
	"github.com/dmitrymomot/kvcache/core/protocol"
)

func TestTextParser_Parse(t *testing.T) {
	t.Parallel()

	t.Run("consumes nothing without a full line", func(t *testing.T) {
		t.Parallel()

		p := protocol.NewParser()
		n, done, err := p.Parse([]byte("set a 0 0"))
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.False(t, done)
		assert.Empty(t, p.Name())

		n, done, err = p.Parse([]byte("set a 0 0 1\r\nx\r\n"))
		require.NoError(t, err)
		assert.Equal(t, 13, n)
		assert.True(t, done)
		assert.Equal(t, "set", p.Name())
	})

	t.Run("consumes one header at a time", func(t *testing.T) {
		t.Parallel()

		p := protocol.NewParser()
		buf := []byte("get a\r\nget b\r\n")

		n, done, err := p.Parse(buf)
		require.NoError(t, err)
		require.True(t, done)
		assert.Equal(t, 7, n)

		// a finished header is not overwritten until Reset
		n, done, err = p.Parse(buf[7:])
		require.NoError(t, err)
		assert.True(t, done)
		assert.Zero(t, n)

		p.Reset()
		n, done, err = p.Parse(buf[7:])
		require.NoError(t, err)
		assert.True(t, done)
		assert.Equal(t, 7, n)
	})

	t.Run("accepts bare newline", func(t *testing.T) {
		t.Parallel()

		p := protocol.NewParser()
		n, done, err := p.Parse([]byte("version\n"))
		require.NoError(t, err)
		require.True(t, done)
		assert.Equal(t, 8, n)

		cmd, argLen, err := p.Build()
		require.NoError(t, err)
		assert.Equal(t, "version", cmd.Name())
		assert.Equal(t, protocol.NoData, argLen)
	})

	t.Run("rejects overlong lines", func(t *testing.T) {
		t.Parallel()

		p := protocol.NewParser(protocol.WithMaxLineLength(16))

		_, _, err := p.Parse(bytes.Repeat([]byte("a"), 17))
		require.ErrorIs(t, err, protocol.ErrLineTooLong)
		assert.ErrorIs(t, err, protocol.ErrClient)

		_, _, err = p.Parse(append(bytes.Repeat([]byte("a"), 20), '\r', '\n'))
		require.ErrorIs(t, err, protocol.ErrLineTooLong)

		_, done, err := p.Parse([]byte("get a\r\n"))
		require.NoError(t, err)
		assert.True(t, done)
	})
}

func TestTextParser_Build(t *testing.T) {
	t.Parallel()

	t.Run("before parse", func(t *testing.T) {
		t.Parallel()

		_, _, err := protocol.NewParser().Build()
		assert.ErrorIs(t, err, protocol.ErrIncompleteHeader)
	})

	t.Run("storage command reports data length", func(t *testing.T) {
		t.Parallel()

		p := protocol.NewParser()
		_, _, err := p.Parse([]byte("set greeting 7 0 5\r\n"))
		require.NoError(t, err)

		cmd, argLen, err := p.Build()
		require.NoError(t, err)
		assert.Equal(t, "set", cmd.Name())
		assert.Equal(t, 5, argLen)
	})

	tests := []struct {
		name   string
		header string
		want   error
		line   string
	}{
		{"empty line", "", protocol.ErrUnknownCommand, "ERROR"},
		{"unknown command", "frobnicate a", protocol.ErrUnknownCommand, "ERROR"},
		{"missing storage args", "set a 0 0", protocol.ErrBadCommandLine, "CLIENT_ERROR bad command line format"},
		{"non-numeric flags", "set a x 0 1", protocol.ErrBadCommandLine, "CLIENT_ERROR bad command line format"},
		{"negative length", "set a 0 0 -1", protocol.ErrBadDataChunk, "CLIENT_ERROR bad data chunk"},
		{"length overflows", "set a 0 0 9223372036854775807", protocol.ErrBadDataChunk, "CLIENT_ERROR bad data chunk"},
		{"get without keys", "get", protocol.ErrBadCommandLine, "CLIENT_ERROR bad command line format"},
		{"key with control char", "get a\x01b", protocol.ErrInvalidKey, "CLIENT_ERROR invalid key"},
		{"key too long", "delete " + string(bytes.Repeat([]byte("k"), protocol.MaxKeyLength+1)), protocol.ErrInvalidKey, "CLIENT_ERROR invalid key"},
		{"bad delta", "incr a x", protocol.ErrInvalidDelta, "CLIENT_ERROR invalid numeric delta argument"},
		{"version with args", "version now", protocol.ErrBadCommandLine, "CLIENT_ERROR bad command line format"},
		{"touch bad exptime", "touch a soon", protocol.ErrBadCommandLine, "CLIENT_ERROR bad command line format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := protocol.NewParser()
			_, done, err := p.Parse([]byte(tt.header + "\r\n"))
			require.NoError(t, err)
			require.True(t, done)

			cmd, _, err := p.Build()
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, cmd)
			assert.Equal(t, tt.line, protocol.FormatError(err))
		})
	}

	t.Run("oversized value is swallowed then rejected", func(t *testing.T) {
		t.Parallel()

		p := protocol.NewParser(protocol.WithMaxValueSize(4))
		_, _, err := p.Parse([]byte("set a 0 0 10\r\n"))
		require.NoError(t, err)

		cmd, argLen, err := p.Build()
		require.NoError(t, err)
		assert.Equal(t, 10, argLen)

		d, ok := cmd.(protocol.Discard)
		require.True(t, ok, "rejected block must not be buffered")
		assert.True(t, d.Discard())

		_, err = cmd.Execute(cache.NewLRU(100), []byte("0123456789"))
		require.ErrorIs(t, err, protocol.ErrValueTooLarge)
		assert.Equal(t, "SERVER_ERROR object too large for cache", protocol.FormatError(err))
	})

	t.Run("custom command", func(t *testing.T) {
		t.Parallel()

		p := protocol.NewParser(protocol.WithCommand("ping", func(args []string) (protocol.Command, int, error) {
			return pingCommand{}, protocol.NoData, nil
		}))
		_, _, err := p.Parse([]byte("ping\r\n"))
		require.NoError(t, err)

		cmd, _, err := p.Build()
		require.NoError(t, err)
		out, err := cmd.Execute(nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "PONG", out)
	})

	t.Run("custom command with invalid length", func(t *testing.T) {
		t.Parallel()

		p := protocol.NewParser(protocol.WithCommand("ping", func(args []string) (protocol.Command, int, error) {
			return pingCommand{}, -7, nil
		}))
		_, _, err := p.Parse([]byte("ping\r\n"))
		require.NoError(t, err)

		cmd, _, err := p.Build()
		require.ErrorIs(t, err, protocol.ErrBadDataChunk)
		assert.Nil(t, cmd)
	})
}

func TestFormatError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, protocol.FormatError(nil))
	assert.Equal(t, "SERVER_ERROR disk on fire", protocol.FormatError(errors.New("disk on fire")))
	assert.Equal(t, "CLIENT_ERROR bad data chunk", protocol.FormatError(protocol.ErrBadDataChunk))
}

type pingCommand struct{}

func (pingCommand) Name() string { return "ping" }

func (pingCommand) Execute(cache.Storage, []byte) (string, error) { return "PONG", nil }
