package treehash

import (
	"fmt"
	"path/filepath"
)

// PathNode pairs a Node with the absolute logical path reached at that
// event (spec.md §3.2): for Enter/Leave, the directory's own path; for
// File, the full file path; for Sep, the containing directory.
type PathNode struct {
	Node Node
	Path string
}

// PathStream is a NodeStream's path-tagged counterpart.
type PathStream interface {
	Next() (PathNode, bool, error)
}

type funcPathStream struct {
	next func() (PathNode, bool, error)
}

func (f funcPathStream) Next() (PathNode, bool, error) { return f.next() }

// TrackPaths wraps src with path tracking rooted at root, the caller
// supplied logical root path that replaces the sentinel name RootName on
// the outermost Enter (spec.md §4.3).
//
// Algorithm: a stack of path components plus a "current path" cache.
// Initial state: stack = [root], path = root. Enter("__root__", _) seen
// while the stack has exactly one element is a no-op on the stack. Enter
// otherwise pushes name. Leave pops one component. Sep and File emit
// without mutating the stack.
func TrackPaths(root string, src NodeStream) PathStream {
	stack := []string{root}

	return funcPathStream{next: func() (PathNode, bool, error) {
		n, ok, err := src.Next()
		if err != nil || !ok {
			return PathNode{}, false, err
		}

		cur := func() string { return stack[len(stack)-1] }

		switch n.Tag {
		case TagEnter:
			if n.Name == RootName && len(stack) == 1 {
				return PathNode{Node: n, Path: cur()}, true, nil
			}
			path := cur()
			stack = append(stack, filepath.Join(path, n.Name))
			return PathNode{Node: n, Path: stack[len(stack)-1]}, true, nil

		case TagLeave:
			if len(stack) == 0 {
				return PathNode{}, false, errorf("treehash: Leave with empty path stack")
			}
			path := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			return PathNode{Node: n, Path: path}, true, nil

		case TagSep:
			return PathNode{Node: n, Path: cur()}, true, nil

		case TagFile:
			return PathNode{Node: n, Path: filepath.Join(cur(), n.Name)}, true, nil

		default:
			return PathNode{}, false, fmt.Errorf("treehash: unknown node tag %v", n.Tag)
		}
	}}
}
