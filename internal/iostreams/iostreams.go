package iostreams

import (
	"bytes"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

var osStreams *IOStreams

// IOStreams groups the three standard streams. When serving MCP over stdio,
// In and Out belong to the protocol and nothing else may write to Out.
type IOStreams struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

// Key is the context key type for IOStreams.
type Key struct{}

// StreamsKey is a global instance of the Key type
var StreamsKey = Key{}

// GetOSIOStreams returns a singleton bound to the process standard streams.
func GetOSIOStreams() *IOStreams {
	if osStreams == nil {
		osStreams = &IOStreams{
			In:     os.Stdin,
			Out:    os.Stdout,
			ErrOut: os.Stderr,
		}
	}
	return osStreams
}

// IsTerminal reports whether w is attached to an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ErrIsTerminal reports whether the error stream is interactive.
func (s *IOStreams) ErrIsTerminal() bool {
	return s != nil && IsTerminal(s.ErrOut)
}

func NewTestIOStreams() (*IOStreams, *bytes.Buffer, *bytes.Buffer, *bytes.Buffer) {
	in := &bytes.Buffer{}
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &IOStreams{
		In:     in,
		Out:    out,
		ErrOut: errOut,
	}, in, out, errOut
}
