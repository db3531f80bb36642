package boot

import (
	"bufio"
	"bytes"
	"io"

	"github.com/IRodriguez13/IR0-sub002/pkg/errno"
)

// Console simulates the keyboard ring buffer and the VGA/serial text
// console of spec.md §1/§6, independent of devfs's pty-backed tty: this
// is the arch-level boot console, present before any filesystem is
// mounted.
type Console interface {
	ReadByte() (byte, error)
	WriteString(s string) (int, error)
}

// stdioConsole bridges the boot console to the host process's real
// standard input/output, for a `cmd/ir0 boot` run attached to a terminal.
type stdioConsole struct {
	in  *bufio.Reader
	out io.Writer
}

// NewStdioConsole returns a Console backed by r/w (typically os.Stdin and
// os.Stdout).
func NewStdioConsole(r io.Reader, w io.Writer) Console {
	return &stdioConsole{in: bufio.NewReader(r), out: w}
}

func (c *stdioConsole) ReadByte() (byte, error) {
	b, err := c.in.ReadByte()
	if err != nil {
		return 0, errno.EIO
	}
	return b, nil
}

func (c *stdioConsole) WriteString(s string) (int, error) {
	n, err := io.WriteString(c.out, s)
	if err != nil {
		return n, errno.EIO
	}
	return n, nil
}

// ringConsole is an in-memory Console for tests and headless bring-up: a
// read side fed by Feed, and a write side callers inspect via Written.
type ringConsole struct {
	in  *bytes.Buffer
	out bytes.Buffer
}

// NewRingBufferConsole returns a Console with no attached terminal; bytes
// queued with Feed are what ReadByte returns, and everything written is
// retained for Written to inspect.
func NewRingBufferConsole() *RingBufferConsole {
	return &RingBufferConsole{ringConsole{in: &bytes.Buffer{}}}
}

// RingBufferConsole is the concrete type NewRingBufferConsole returns, so
// callers get Feed/Written without a type assertion back from Console.
type RingBufferConsole struct{ ringConsole }

func (c *RingBufferConsole) Feed(b []byte) { c.in.Write(b) }

func (c *RingBufferConsole) Written() []byte { return c.out.Bytes() }

// ReadByte returns io.EOF, not an errno, when nothing has been Fed yet:
// an empty ring buffer is an ordinary state for this console, not a
// syscall-boundary error.
func (c *RingBufferConsole) ReadByte() (byte, error) {
	return c.in.ReadByte()
}

func (c *RingBufferConsole) WriteString(s string) (int, error) {
	return c.out.WriteString(s)
}
