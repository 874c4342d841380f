// Package meter implements the terminal progress-meter collaborator
// spec.md §3.4/§6 leaves abstract behind the treehash.Meter interface: a
// redraw-in-place single line, gated on whether output is actually a
// terminal. Grounded on the teacher's cli/output.go Output interface, which
// likewise wraps terminal-vs-non-terminal rendering behind one interface
// with a single implementation swapped in by the CLI layer.
package meter

import (
	"fmt"
	"io"
	"sync"

	"github.com/mattn/go-isatty"
)

// Terminal redraws a single progress line in place using a carriage return,
// the way interactive CLI progress bars conventionally do. It is only
// meant to be constructed over a real terminal file descriptor; use NewFor
// to pick the right implementation automatically.
type Terminal struct {
	mu   sync.Mutex
	out  io.Writer
	last int // length of the last line written, for clearing on shrink
}

// NewTerminal wraps out (typically os.Stderr) in a redraw-in-place meter.
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out}
}

// Redraw implements treehash.Meter.
func (t *Terminal) Redraw(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pad := 0
	if t.last > len(line) {
		pad = t.last - len(line)
	}
	fmt.Fprintf(t.out, "\r%s%*s", line, pad, "")
	t.last = len(line)
}

// Finish moves past the progress line so subsequent output doesn't overlap
// it, and should be called once the operation being tracked completes.
func (t *Terminal) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out)
}

// NopMeter discards every redraw; used whenever output isn't a terminal
// (piped, redirected, or logged runs), where a carriage-return-redrawn line
// would just corrupt the output stream.
type NopMeter struct{}

// Redraw implements treehash.Meter by doing nothing.
func (NopMeter) Redraw(string) {}

// Meter is the minimal interface treehash.State drives; defined again here
// (rather than imported) so this package has no dependency on treehash —
// the two are wired together only at the CLI layer.
type Meter interface {
	Redraw(line string)
}

// fdWriter is satisfied by *os.File; isatty needs the raw descriptor.
type fdWriter interface {
	io.Writer
	Fd() uintptr
}

// NewFor picks Terminal when out is a real TTY and NopMeter otherwise,
// following the teacher's pattern of deciding the Output implementation
// once at startup based on whether stdout/stderr is a terminal.
func NewFor(out io.Writer) Meter {
	if fw, ok := out.(fdWriter); ok && isatty.IsTerminal(fw.Fd()) {
		return NewTerminal(out)
	}
	return NopMeter{}
}
