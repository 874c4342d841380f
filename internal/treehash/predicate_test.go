package treehash

import "testing"

func TestNeedsHashOnlyFlagsUnhashedFileKinds(t *testing.T) {
	cases := []struct {
		name string
		n    Node
		want bool
	}{
		{"file without sha1", File("a.txt", Attrs{"kind": "file"}), true},
		{"file with sha1", File("a.txt", Attrs{"kind": "file", "sha1": "dead"}), false},
		{"symlink", File("link", Attrs{"kind": "lnk"}), false},
		{"directory enter", Enter("sub", Attrs{"kind": "dir"}), false},
		{"leave", Leave(), false},
		{"sep", Sep(), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := NeedsHash(c.n); got != c.want {
				t.Errorf("NeedsHash(%v) = %v, want %v", c.n, got, c.want)
			}
		})
	}
}

// TestNeedsHashIdempotentAfterBackfill models spec.md §8's property: once
// every file needing a hash has had its sha1 attribute backfilled, a second
// pass over the same tree needs to hash nothing.
func TestNeedsHashIdempotentAfterBackfill(t *testing.T) {
	tree := buildTree()

	backfilled := make([]Node, len(tree))
	for i, n := range tree {
		if NeedsHash(n) {
			atts := n.Attrs.Clone()
			atts["sha1"] = "deadbeef"
			n = File(n.Name, atts)
		}
		backfilled[i] = n
	}

	for _, n := range backfilled {
		if NeedsHash(n) {
			t.Fatalf("node %v still needs a hash after backfill", n)
		}
	}
}
