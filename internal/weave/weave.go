// Package weave implements the append-only, multi-delta, line-oriented
// store spec.md §6 names as an external collaborator without specifying a
// concrete format: a Stream that deltas (named batches of lines) are
// written to and read back from, in order, optionally gzip-compressed.
//
// There is no library in the retrieved pack for this particular format —
// it is this module's own on-disk format, not a standard one — so framing
// (delta.go) is hand-rolled the way the teacher hand-rolls its own report
// format in internals/reports_write.go. Compression itself uses the
// standard library's compress/gzip rather than a third-party codec,
// justified in DESIGN.md.
package weave

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
)

// Stream is the interface both the plain and gzip-backed weave writers
// satisfy (spec.md §6: "write_lines", "close", "name").
type Stream interface {
	// WriteLines appends one delta named name, consisting of lines in
	// order. Deltas accumulate; nothing already written is rewritten.
	WriteLines(name string, lines []string) error
	// Close flushes and releases the underlying file.
	Close() error
	// Name returns the path this stream is backed by.
	Name() string
}

// Writer is a weave.Stream backed by a regular file, optionally wrapping
// the output in gzip.
type Writer struct {
	path string
	file *os.File
	gz   *gzip.Writer
	bw   *bufio.Writer
}

// Create opens path for writing (truncating any existing contents — a
// fresh weave starts empty; appending to an existing one is a separate,
// explicit Open call) and, if compressed, wraps it in a gzip stream
// configured at level 3 with the OS field forced to 3 (Unix), matching
// spec.md §6's compression parameters.
func Create(path string, compressed bool) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := &Writer{path: path, file: f}
	if compressed {
		gz, err := gzip.NewWriterLevel(f, 3)
		if err != nil {
			f.Close()
			return nil, err
		}
		gz.OS = 3
		w.gz = gz
		w.bw = bufio.NewWriter(gz)
	} else {
		w.bw = bufio.NewWriter(f)
	}
	return w, nil
}

// Open reopens an existing weave file for appending further deltas. Only
// the uncompressed form supports append in place — gzip streams cannot be
// concatenated onto an already-finalized member without re-opening the
// whole stream, so an append to a compressed weave reads the existing
// deltas first and rewrites the file (see delta.go's appendCompressed).
func Open(path string, compressed bool) (*Writer, error) {
	if !compressed {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		return &Writer{path: path, file: f, bw: bufio.NewWriter(f)}, nil
	}
	return appendCompressed(path)
}

// WriteLines implements Stream.
func (w *Writer) WriteLines(name string, lines []string) error {
	if _, err := fmt.Fprintf(w.bw, "D %s %d\n", encodeField(name), len(lines)); err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := fmt.Fprintf(w.bw, "%s\n", encodeField(line)); err != nil {
			return err
		}
	}
	return nil
}

// Close implements Stream.
func (w *Writer) Close() error {
	if err := w.bw.Flush(); err != nil {
		return err
	}
	if w.gz != nil {
		if err := w.gz.Close(); err != nil {
			return err
		}
	}
	return w.file.Close()
}

// Name implements Stream.
func (w *Writer) Name() string { return w.path }

// Reader reads deltas back out of a weave file in the order they were
// written, compressed or not.
type Reader struct {
	file *os.File
	gz   *gzip.Reader
	br   *bufio.Reader

	remaining int // lines left in the delta currently being read
	deltaName string
}

// OpenReader opens path for reading. compressed must match how it was
// created — the weave format carries no self-describing magic byte beyond
// the gzip header itself, so the caller (or the weave file's own companion
// metadata) is responsible for knowing which kind it is.
func OpenReader(path string, compressed bool) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := &Reader{file: f}
	if compressed {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		r.gz = gz
		r.br = bufio.NewReader(gz)
	} else {
		r.br = bufio.NewReader(f)
	}
	return r, nil
}

// ReadLine returns the next line of the current delta along with the
// delta's name. ok is false once the weave is exhausted. A trailing newline
// is stripped on read; its absence at EOF is fatal (spec.md §6), since it
// means the file was truncated mid-line rather than cleanly ended between
// records.
func (r *Reader) ReadLine() (deltaName, line string, ok bool, err error) {
	for r.remaining == 0 {
		header, err := r.br.ReadString('\n')
		if err == io.EOF && header == "" {
			return "", "", false, nil
		}
		if err == io.EOF {
			return "", "", false, fmt.Errorf("weave: missing newline at EOF in delta header")
		}
		if err != nil {
			return "", "", false, err
		}
		name, count, perr := parseDeltaHeader(header)
		if perr != nil {
			return "", "", false, perr
		}
		r.deltaName = name
		r.remaining = count
	}

	raw, err := r.br.ReadString('\n')
	if err == io.EOF {
		return "", "", false, fmt.Errorf("weave: missing newline at EOF")
	}
	if err != nil {
		return "", "", false, err
	}
	r.remaining--
	return r.deltaName, decodeField(trimNewline(raw)), true, nil
}

// Close releases the underlying file (and gzip reader, if any).
func (r *Reader) Close() error {
	if r.gz != nil {
		r.gz.Close()
	}
	return r.file.Close()
}

func trimNewline(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		return s[:n-1]
	}
	return s
}
