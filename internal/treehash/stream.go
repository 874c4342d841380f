package treehash

// NodeStream is a lazy, single-pass sequence of Node events. Next returns
// (node, true, nil) for each element, then (_, false, nil) at end of stream.
// A non-nil error is fatal: the prior-tree reader producing this stream
// violated the format it is supposed to produce (spec.md §6).
type NodeStream interface {
	Next() (Node, bool, error)
}

// funcStream adapts a plain function into a NodeStream.
type funcStream struct {
	next func() (Node, bool, error)
}

func (f funcStream) Next() (Node, bool, error) { return f.next() }

// FromFunc builds a NodeStream from a closure, the shape external prior-tree
// readers are expected to provide (spec.md §6: "a function () -> Option<Node>").
func FromFunc(next func() (Node, bool, error)) NodeStream {
	return funcStream{next: next}
}

// FromSlice builds a NodeStream that replays a fixed slice of nodes. Useful
// for tests and for the replay phase of a Memo.
func FromSlice(nodes []Node) NodeStream {
	i := 0
	return FromFunc(func() (Node, bool, error) {
		if i >= len(nodes) {
			return Node{}, false, nil
		}
		n := nodes[i]
		i++
		return n, true, nil
	})
}

// Memo buffers an underlying NodeStream so it can be replayed after a full
// traversal. The pipeline needs exactly two traversals of the prior tree: a
// prescan (C5) to compute totals, and the dispatch pass (C8). A fresh Memo is
// consumed at most once by its source; every call to Stream after the first
// full drain replays the buffer instead of touching the source again.
type Memo struct {
	source   NodeStream
	buffer   []Node
	done     bool
	err      error
	inflight bool
}

// NewMemo wraps src so it becomes replayable. Do not read from src directly
// once it has been handed to NewMemo.
func NewMemo(src NodeStream) *Memo {
	return &Memo{source: src}
}

// Stream returns a NodeStream over the same sequence as the wrapped source.
// The first caller to fully drain it (or any concurrent caller, since the
// pipeline here is never run concurrently — see spec.md §5) causes the Memo
// to buffer the underlying source; later callers replay the buffer.
func (m *Memo) Stream() NodeStream {
	if m.done {
		return FromSlice(m.buffer)
	}

	i := 0
	return FromFunc(func() (Node, bool, error) {
		if i < len(m.buffer) {
			n := m.buffer[i]
			i++
			return n, true, nil
		}
		if m.done {
			return Node{}, false, m.err
		}

		n, ok, err := m.source.Next()
		if err != nil {
			m.done = true
			m.err = err
			return Node{}, false, err
		}
		if !ok {
			m.done = true
			return Node{}, false, nil
		}
		m.buffer = append(m.buffer, n)
		i++
		return n, true, nil
	})
}
