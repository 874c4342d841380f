package treehash

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// This file implements the concrete "sure tree" external collaborator
// spec.md §6 otherwise leaves abstract: a line-oriented, UTF-8 report file
// that a node stream can be read from and written to. It is grounded on the
// teacher's internals/reports_read.go / reports_write.go, which parse and
// emit a flat list of hex-digest tail lines behind a regex-driven reader —
// restructured here into an Enter/Leave/Sep/File line grammar, since a sure
// tree is a nested structure rather than the teacher's flat per-path list.

const sureTreeVersion = "1.0.0"

// sureTreeHeadPrefix marks the single head line every sure tree file opens
// with, mirroring the teacher's "# <version> ..." head line convention.
const sureTreeHeadPrefix = "# "

// WriteSureTree drains stream and writes it out in the sure tree format.
// Grounded on Report.HeadLine / Report.TailLine: one fixed head line
// followed by one line per node.
func WriteSureTree(w io.Writer, stream NodeStream) error {
	sw, err := NewSureTreeWriter(w)
	if err != nil {
		return err
	}
	for {
		n, ok, err := stream.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := sw.Write(n); err != nil {
			return err
		}
	}
	return sw.Flush()
}

// SureTreeWriter writes one sure tree node at a time, for callers (such as
// the migrate CLI command) that produce nodes incrementally rather than
// from a single NodeStream and want to avoid buffering the whole tree.
type SureTreeWriter struct {
	bw *bufio.Writer
}

// NewSureTreeWriter writes the head line immediately and returns a writer
// ready to accept nodes via Write.
func NewSureTreeWriter(w io.Writer) (*SureTreeWriter, error) {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%s%s\n", sureTreeHeadPrefix, sureTreeVersion); err != nil {
		return nil, err
	}
	return &SureTreeWriter{bw: bw}, nil
}

// Write appends one node's line.
func (sw *SureTreeWriter) Write(n Node) error {
	return writeSureTreeLine(sw.bw, n)
}

// Flush flushes any buffered output. Callers must call this (or rely on
// WriteSureTree, which calls it for them) once done writing.
func (sw *SureTreeWriter) Flush() error {
	return sw.bw.Flush()
}

func writeSureTreeLine(w io.Writer, n Node) error {
	switch n.Tag {
	case TagEnter:
		_, err := fmt.Fprintf(w, "E %s %s\n", encodeField(n.Name), encodeAttrs(n.Attrs))
		return err
	case TagLeave:
		_, err := fmt.Fprintln(w, "L")
		return err
	case TagSep:
		_, err := fmt.Fprintln(w, "S")
		return err
	case TagFile:
		_, err := fmt.Fprintf(w, "F %s %s\n", encodeField(n.Name), encodeAttrs(n.Attrs))
		return err
	default:
		return fmt.Errorf("treehash: write sure tree: unknown node tag %v", n.Tag)
	}
}

// encodeAttrs renders an Attrs map as space-separated key=value pairs, keys
// sorted so the output is deterministic (useful for tests and diffs).
func encodeAttrs(a Attrs) string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+encodeField(a[k]))
	}
	return strings.Join(parts, " ")
}

// encodeField escapes spaces and newlines so the line-oriented format stays
// parseable; sure trees carry filenames, which may legitimately contain
// spaces.
func encodeField(s string) string {
	r := strings.NewReplacer(" ", "\\s", "\n", "\\n")
	return r.Replace(s)
}

func decodeField(s string) string {
	r := strings.NewReplacer("\\s", " ", "\\n", "\n")
	return r.Replace(s)
}

// SureTreeReader reads a sure tree file back as a NodeStream. It satisfies
// NodeStream so it can be handed directly to Prescan, TrackPaths, or
// Migrate without an adapter.
type SureTreeReader struct {
	file    *os.File
	scanner *bufio.Scanner
	started bool
}

// OpenSureTree opens path and returns a NodeStream over its contents.
// Passing "-" reads from stdin, mirroring the teacher's NewReportReader.
func OpenSureTree(path string) (*SureTreeReader, error) {
	r := &SureTreeReader{}
	if path == "-" {
		r.file = os.Stdin
	} else {
		fd, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		r.file = fd
	}
	r.scanner = bufio.NewScanner(r.file)
	r.scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	return r, nil
}

// Close releases the underlying file descriptor, if any.
func (r *SureTreeReader) Close() error {
	if r.file == os.Stdin {
		return nil
	}
	return r.file.Close()
}

// Next implements NodeStream.
func (r *SureTreeReader) Next() (Node, bool, error) {
	if !r.started {
		r.started = true
		if !r.scanner.Scan() {
			if err := r.scanner.Err(); err != nil {
				return Node{}, false, err
			}
			return Node{}, false, nil
		}
		line := r.scanner.Text()
		if !strings.HasPrefix(line, sureTreeHeadPrefix) {
			return Node{}, false, fmt.Errorf("treehash: sure tree: missing head line")
		}
		// version currently carries no semantics beyond presence.
	}

	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return Node{}, false, err
		}
		return Node{}, false, nil
	}

	return parseSureTreeLine(r.scanner.Text())
}

func parseSureTreeLine(line string) (Node, bool, error) {
	switch {
	case line == "L":
		return Leave(), true, nil
	case line == "S":
		return Sep(), true, nil
	case strings.HasPrefix(line, "E "):
		name, atts, err := parseSureTreeFields(line[2:])
		if err != nil {
			return Node{}, false, err
		}
		return Enter(name, atts), true, nil
	case strings.HasPrefix(line, "F "):
		name, atts, err := parseSureTreeFields(line[2:])
		if err != nil {
			return Node{}, false, err
		}
		return File(name, atts), true, nil
	default:
		return Node{}, false, fmt.Errorf("treehash: sure tree: malformed line %q", line)
	}
}

func parseSureTreeFields(rest string) (string, Attrs, error) {
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("treehash: sure tree: line has no name field")
	}
	name := decodeField(fields[0])
	atts := make(Attrs, len(fields)-1)
	for _, kv := range fields[1:] {
		i := strings.IndexByte(kv, '=')
		if i < 0 {
			return "", nil, fmt.Errorf("treehash: sure tree: malformed attribute %q", kv)
		}
		atts[kv[:i]] = decodeField(kv[i+1:])
	}
	return name, atts, nil
}
