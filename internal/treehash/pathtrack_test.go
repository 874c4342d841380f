package treehash

import (
	"path/filepath"
	"testing"
)

// buildTree constructs a small two-level tree, respecting spec.md §3.1
// invariant N2 (subdirectory blocks before Sep before File events, within
// one directory):
//
//	__root__/
//	  sub/
//	    Sep
//	    b.txt
//	    Leave
//	  Sep
//	  a.txt
//	  Leave
func buildTree() []Node {
	return []Node{
		Enter(RootName, Attrs{"kind": "dir"}),
		Enter("sub", Attrs{"kind": "dir"}),
		Sep(),
		File("b.txt", Attrs{"kind": "file", "size": "1"}),
		Leave(),
		Sep(),
		File("a.txt", Attrs{"kind": "file", "size": "3"}),
		Leave(),
	}
}

func TestTrackPathsFileEventsConcatenateLiveEnterNames(t *testing.T) {
	root := "/srv/backup"
	stream := TrackPaths(root, FromSlice(buildTree()))

	var gotFiles []string
	for {
		pn, ok, err := stream.Next()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			break
		}
		if pn.Node.Tag == TagFile {
			gotFiles = append(gotFiles, pn.Path)
		}
	}

	want := []string{
		filepath.Join(root, "sub", "b.txt"),
		filepath.Join(root, "a.txt"),
	}
	if len(gotFiles) != len(want) {
		t.Fatalf("got %v, want %v", gotFiles, want)
	}
	for i := range want {
		if gotFiles[i] != want[i] {
			t.Errorf("file %d: got %q, want %q", i, gotFiles[i], want[i])
		}
	}
}

func TestTrackPathsRootEnterAndLeaveShareThePath(t *testing.T) {
	root := "/srv/backup"
	stream := TrackPaths(root, FromSlice(buildTree()))

	var rootEnterPath, rootLeavePath string
	for {
		pn, ok, err := stream.Next()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			break
		}
		if pn.Node.Tag == TagEnter && pn.Node.Name == RootName {
			rootEnterPath = pn.Path
		}
		if pn.Node.Tag == TagLeave {
			rootLeavePath = pn.Path // last Leave seen wins: the outermost one
		}
	}

	if rootEnterPath != root {
		t.Errorf("root Enter path = %q, want %q", rootEnterPath, root)
	}
	if rootLeavePath != root {
		t.Errorf("outermost Leave path = %q, want %q", rootLeavePath, root)
	}
}
