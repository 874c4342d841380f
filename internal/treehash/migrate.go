package treehash

// cursor lets the co-walk peek the current head of a NodeStream without
// consuming it, and advance explicitly once it has decided what to do with
// that head. The migrator needs this because, unlike the hash-update
// driver, it must compare the heads of two streams before deciding which
// one (or both) to advance.
type cursor struct {
	stream      NodeStream
	cur         Node
	ok          bool
	err         error
	initialized bool
}

func newCursor(s NodeStream) *cursor { return &cursor{stream: s} }

func (c *cursor) peek() (Node, bool, error) {
	if !c.initialized {
		c.advance()
	}
	return c.cur, c.ok, c.err
}

func (c *cursor) advance() {
	c.cur, c.ok, c.err = c.stream.Next()
	c.initialized = true
}

// migrator co-walks an older and a newer node stream (spec.md §4.9). It
// runs as an iterative two-state stack machine (children/files per
// directory level), per spec.md §9's design note, rather than the
// co-recursive children/files/aconsume/bconsume functions the algorithm is
// described with — this keeps auxiliary memory at O(tree depth) instead of
// native call-stack depth, which matters on real, possibly very deep,
// filesystem trees.
type migrator struct {
	older, newer *cursor

	// stack[i] is false while co-walking directory level i's subdirectory
	// section ("children state") and true once both sides have reached
	// their Sep and moved into the file section ("files state").
	stack []bool

	// passthroughDepth > 0 means the newer side fell ahead of a subtree the
	// older side has no counterpart for (bconsume): every remaining node of
	// that subtree is emitted verbatim from newer without touching older,
	// until nesting returns to zero.
	passthroughDepth int

	started bool
}

// Migrate co-walks older and latest and calls emit once per node of the
// output stream, which is shaped exactly like latest with `sha1` forwarded
// from older wherever the migration predicate holds (spec.md §4.9).
// Running as a push (callback) rather than a pull (NodeStream) interface
// lets a caller write straight through to its own output sink (e.g. a
// weave delta) without this function needing to buffer output, keeping it
// within the O(|older|+|newer|) time / O(depth) auxiliary memory bound
// spec.md §4.9 asks for.
func Migrate(older, latest NodeStream, emit func(Node) error) error {
	m := &migrator{older: newCursor(older), newer: newCursor(latest)}

	for {
		n, ok, err := m.step()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := emit(n); err != nil {
			return err
		}
	}
}

// MigrateToStream is a small convenience wrapper over Migrate for callers
// (and tests) that want a NodeStream result rather than a push callback. It
// does buffer the full output, trading the O(depth) auxiliary-memory bound
// for convenience; production callers should prefer Migrate directly.
func MigrateToStream(older, latest NodeStream) (NodeStream, error) {
	var out []Node
	err := Migrate(older, latest, func(n Node) error {
		out = append(out, n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromSlice(out), nil
}

func (m *migrator) step() (Node, bool, error) {
	if !m.started {
		return m.start()
	}

	for {
		if m.passthroughDepth > 0 {
			return m.passthroughStep()
		}
		if len(m.stack) == 0 {
			return Node{}, false, nil
		}

		top := len(m.stack) - 1
		if !m.stack[top] {
			n, ok, done, err := m.childrenStep(top)
			if err != nil || ok {
				return n, ok, err
			}
			if done {
				continue
			}
			continue
		}

		n, ok, done, err := m.filesStep(top)
		if err != nil || ok {
			return n, ok, err
		}
		if done {
			continue
		}
	}
}

func (m *migrator) start() (Node, bool, error) {
	m.started = true

	oh, ook, oerr := m.older.peek()
	if oerr != nil {
		return Node{}, false, oerr
	}
	nh, nok, nerr := m.newer.peek()
	if nerr != nil {
		return Node{}, false, nerr
	}
	if !ook || !nok || oh.Tag != TagEnter || nh.Tag != TagEnter {
		return Node{}, false, errorf("treehash: migrate: expected root Enter on both streams")
	}
	if oh.Name != nh.Name {
		return Node{}, false, errorf("Root directories have differing names")
	}

	m.older.advance()
	m.newer.advance()
	m.stack = append(m.stack, false)
	return Enter(nh.Name, nh.Attrs), true, nil
}

// passthroughStep emits the next node of a bconsumed newer subtree
// verbatim, adjusting nesting depth as Enter/Leave pass through.
func (m *migrator) passthroughStep() (Node, bool, error) {
	n, ok, err := m.newer.peek()
	if err != nil {
		return Node{}, false, err
	}
	if !ok {
		return Node{}, false, errorf("treehash: migrate: unexpected end of newer stream")
	}
	m.newer.advance()

	switch n.Tag {
	case TagEnter:
		m.passthroughDepth++
	case TagLeave:
		m.passthroughDepth--
	}
	return n, true, nil
}

// childrenStep handles one comparison of the children-state heads at
// directory level `level`. ok=true means a node was emitted (returned as
// the first value); ok=false,done=true means progress was made internally
// (an aconsume/bconsume/state-switch) and the caller should loop again
// without emitting.
func (m *migrator) childrenStep(level int) (Node, bool, bool, error) {
	oh, ook, oerr := m.older.peek()
	if oerr != nil {
		return Node{}, false, false, oerr
	}
	nh, nok, nerr := m.newer.peek()
	if nerr != nil {
		return Node{}, false, false, nerr
	}
	if !ook || !nok {
		return Node{}, false, false, errorf("treehash: migrate: unexpected end of stream")
	}

	switch {
	case oh.Tag == TagSep && nh.Tag == TagSep:
		m.older.advance()
		m.newer.advance()
		m.stack[level] = true
		return Sep(), true, false, nil

	case oh.Tag == TagEnter && nh.Tag == TagSep:
		if err := m.aconsumeOlder(); err != nil {
			return Node{}, false, false, err
		}
		return Node{}, false, true, nil

	case oh.Tag == TagSep && nh.Tag == TagEnter:
		return m.startBconsume(nh)

	case oh.Tag == TagEnter && nh.Tag == TagEnter:
		switch {
		case oh.Name < nh.Name:
			if err := m.aconsumeOlder(); err != nil {
				return Node{}, false, false, err
			}
			return Node{}, false, true, nil
		case oh.Name > nh.Name:
			return m.startBconsume(nh)
		default:
			m.older.advance()
			m.newer.advance()
			m.stack = append(m.stack, false)
			return Enter(nh.Name, nh.Attrs), true, false, nil
		}

	default:
		return Node{}, false, false, errorf("Invalid node in tree")
	}
}

func (m *migrator) startBconsume(nh Node) (Node, bool, bool, error) {
	m.newer.advance()
	m.passthroughDepth = 1
	return Enter(nh.Name, nh.Attrs), true, false, nil
}

// filesStep handles one comparison of the files-state heads at directory
// level `level`.
func (m *migrator) filesStep(level int) (Node, bool, bool, error) {
	oh, ook, oerr := m.older.peek()
	if oerr != nil {
		return Node{}, false, false, oerr
	}
	nh, nok, nerr := m.newer.peek()
	if nerr != nil {
		return Node{}, false, false, nerr
	}
	if !ook || !nok {
		return Node{}, false, false, errorf("treehash: migrate: unexpected end of stream")
	}

	switch {
	case oh.Tag == TagLeave && nh.Tag == TagLeave:
		m.older.advance()
		m.newer.advance()
		m.stack = m.stack[:level]
		return Leave(), true, false, nil

	case oh.Tag == TagFile && nh.Tag == TagLeave:
		m.older.advance()
		return Node{}, false, true, nil

	case oh.Tag == TagLeave && nh.Tag == TagFile:
		m.newer.advance()
		return File(nh.Name, nh.Attrs), true, false, nil

	case oh.Tag == TagFile && nh.Tag == TagFile:
		switch {
		case oh.Name < nh.Name:
			m.older.advance()
			return Node{}, false, true, nil
		case oh.Name > nh.Name:
			m.newer.advance()
			return File(nh.Name, nh.Attrs), true, false, nil
		default:
			merged := migrateAttrs(oh.Attrs, nh.Attrs)
			m.older.advance()
			m.newer.advance()
			return File(nh.Name, merged), true, false, nil
		}

	default:
		return Node{}, false, false, errorf("Invalid node in file part of tree")
	}
}

// aconsumeOlder discards an entire subtree from the older stream, starting
// at its Enter, counting nesting until the matching Leave (spec.md §4.9).
func (m *migrator) aconsumeOlder() error {
	n, ok, err := m.older.peek()
	if err != nil {
		return err
	}
	if !ok || n.Tag != TagEnter {
		return errorf("treehash: migrate: aconsume expected Enter")
	}
	m.older.advance()

	depth := 1
	for depth > 0 {
		n, ok, err := m.older.peek()
		if err != nil {
			return err
		}
		if !ok {
			return errorf("treehash: migrate: unexpected end of older stream")
		}
		m.older.advance()
		switch n.Tag {
		case TagEnter:
			depth++
		case TagLeave:
			depth--
		}
	}
	return nil
}

// migrateAttrs implements the migration predicate (spec.md §4.9):
// copying a sha1 attribute from an older node onto a newer node whose
// identity evidence (inode + ctime) shows the file is unchanged.
func migrateAttrs(older, newer Attrs) Attrs {
	if newer.HasSHA1() {
		return newer
	}
	if !newer.IsFile() || !older.IsFile() {
		return newer
	}
	if !older.HasSHA1() {
		return newer
	}
	if older["ino"] == newer["ino"] && older["ctime"] == newer["ctime"] {
		out := newer.Clone()
		out["sha1"] = older["sha1"]
		return out
	}
	return newer
}
