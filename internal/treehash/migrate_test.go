package treehash

import (
	"testing"
)

func drainNodes(t *testing.T, s NodeStream) []Node {
	t.Helper()
	var out []Node
	for {
		n, ok, err := s.Next()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			return out
		}
		out = append(out, n)
	}
}

func shapeOf(nodes []Node) []struct {
	Tag  Tag
	Name string
} {
	out := make([]struct {
		Tag  Tag
		Name string
	}, len(nodes))
	for i, n := range nodes {
		out[i].Tag = n.Tag
		out[i].Name = n.Name
	}
	return out
}

// TestMigrateScenario3UnchangedInodeAndCtimeForwardsHash is spec.md §8
// scenario 3.
func TestMigrateScenario3UnchangedInodeAndCtimeForwardsHash(t *testing.T) {
	older := []Node{
		Enter(RootName, Attrs{"kind": "dir"}),
		Sep(),
		File("a.txt", Attrs{"kind": "file", "ino": "10", "ctime": "100", "sha1": "dead"}),
		Leave(),
	}
	newer := []Node{
		Enter(RootName, Attrs{"kind": "dir"}),
		Sep(),
		File("a.txt", Attrs{"kind": "file", "ino": "10", "ctime": "100"}),
		Leave(),
	}

	out, err := MigrateToStream(FromSlice(older), FromSlice(newer))
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	nodes := drainNodes(t, out)

	var file Node
	for _, n := range nodes {
		if n.Tag == TagFile {
			file = n
		}
	}
	if got := file.Attrs["sha1"]; got != "dead" {
		t.Errorf("sha1 = %q, want %q", got, "dead")
	}
}

// TestMigrateScenario4CtimeDiffersKeepsNewerUnchanged is spec.md §8
// scenario 4.
func TestMigrateScenario4CtimeDiffersKeepsNewerUnchanged(t *testing.T) {
	older := []Node{
		Enter(RootName, Attrs{"kind": "dir"}),
		Sep(),
		File("a.txt", Attrs{"kind": "file", "ino": "10", "ctime": "100", "sha1": "dead"}),
		Leave(),
	}
	newer := []Node{
		Enter(RootName, Attrs{"kind": "dir"}),
		Sep(),
		File("a.txt", Attrs{"kind": "file", "ino": "10", "ctime": "101"}),
		Leave(),
	}

	out, err := MigrateToStream(FromSlice(older), FromSlice(newer))
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	nodes := drainNodes(t, out)

	var file Node
	for _, n := range nodes {
		if n.Tag == TagFile {
			file = n
		}
	}
	if file.Attrs.HasSHA1() {
		t.Errorf("expected no sha1 forwarded, got %q", file.Attrs["sha1"])
	}
}

// TestMigrateScenario5SubtreeAddedMatchesNewerShapeVerbatim is spec.md §8
// scenario 5.
func TestMigrateScenario5SubtreeAddedMatchesNewerShapeVerbatim(t *testing.T) {
	older := []Node{
		Enter(RootName, Attrs{"kind": "dir"}),
		Enter("x", Attrs{"kind": "dir"}),
		Sep(),
		Leave(),
		Sep(),
		Leave(),
	}
	newer := []Node{
		Enter(RootName, Attrs{"kind": "dir"}),
		Enter("x", Attrs{"kind": "dir"}),
		Sep(),
		Leave(),
		Enter("y", Attrs{"kind": "dir"}),
		Sep(),
		File("a.txt", Attrs{"kind": "file", "ino": "20", "ctime": "200"}),
		Leave(),
		Sep(),
		Leave(),
	}

	out, err := MigrateToStream(FromSlice(older), FromSlice(newer))
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	got := drainNodes(t, out)

	gotShape := shapeOf(got)
	wantShape := shapeOf(newer)
	if len(gotShape) != len(wantShape) {
		t.Fatalf("shape length mismatch: got %d, want %d", len(gotShape), len(wantShape))
	}
	for i := range wantShape {
		if gotShape[i] != wantShape[i] {
			t.Errorf("node %d: got %+v, want %+v", i, gotShape[i], wantShape[i])
		}
	}

	for _, n := range got {
		if n.Tag == TagFile && n.Name == "a.txt" {
			if n.Attrs.HasSHA1() {
				t.Errorf("y/a.txt has no older counterpart; sha1 must not be migrated")
			}
		}
	}
}

// TestMigrateShapeMatchesNewerExactly is spec.md §8's general shape
// invariant, exercised over a bushier tree than the single-file scenarios.
func TestMigrateShapeMatchesNewerExactly(t *testing.T) {
	older := buildTree()
	newer := buildTree()

	out, err := MigrateToStream(FromSlice(older), FromSlice(newer))
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	got := drainNodes(t, out)

	gotShape := shapeOf(got)
	wantShape := shapeOf(newer)
	if len(gotShape) != len(wantShape) {
		t.Fatalf("shape length mismatch: got %d, want %d", len(gotShape), len(wantShape))
	}
	for i := range wantShape {
		if gotShape[i] != wantShape[i] {
			t.Errorf("node %d: got %+v, want %+v", i, gotShape[i], wantShape[i])
		}
	}
}

// TestMigrateIsIdempotent verifies migrate(older, migrate(older, newer)) ==
// migrate(older, newer) (spec.md §8).
func TestMigrateIsIdempotent(t *testing.T) {
	older := []Node{
		Enter(RootName, Attrs{"kind": "dir"}),
		Sep(),
		File("a.txt", Attrs{"kind": "file", "ino": "10", "ctime": "100", "sha1": "dead"}),
		Leave(),
	}
	newer := []Node{
		Enter(RootName, Attrs{"kind": "dir"}),
		Sep(),
		File("a.txt", Attrs{"kind": "file", "ino": "10", "ctime": "100"}),
		Leave(),
	}

	firstStream, err := MigrateToStream(FromSlice(older), FromSlice(newer))
	if err != nil {
		t.Fatalf("first Migrate: %v", err)
	}
	first := drainNodes(t, firstStream)

	secondStream, err := MigrateToStream(FromSlice(older), FromSlice(first))
	if err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	second := drainNodes(t, secondStream)

	if len(first) != len(second) {
		t.Fatalf("length mismatch: first=%d second=%d", len(first), len(second))
	}
	for i := range first {
		if first[i].Tag != second[i].Tag || first[i].Name != second[i].Name {
			t.Fatalf("node %d shape mismatch: %+v vs %+v", i, first[i], second[i])
		}
		if first[i].Attrs["sha1"] != second[i].Attrs["sha1"] {
			t.Fatalf("node %d sha1 mismatch: %q vs %q", i, first[i].Attrs["sha1"], second[i].Attrs["sha1"])
		}
	}
}

// TestMigrateSafetyNeverOverwritesExistingSHA1 checks the migrator never
// replaces a sha1 newer already has, even when older's differs.
func TestMigrateSafetyNeverOverwritesExistingSHA1(t *testing.T) {
	older := []Node{
		Enter(RootName, Attrs{"kind": "dir"}),
		Sep(),
		File("a.txt", Attrs{"kind": "file", "ino": "10", "ctime": "100", "sha1": "old-hash"}),
		Leave(),
	}
	newer := []Node{
		Enter(RootName, Attrs{"kind": "dir"}),
		Sep(),
		File("a.txt", Attrs{"kind": "file", "ino": "10", "ctime": "100", "sha1": "already-set"}),
		Leave(),
	}

	out, err := MigrateToStream(FromSlice(older), FromSlice(newer))
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	nodes := drainNodes(t, out)

	for _, n := range nodes {
		if n.Tag == TagFile {
			if n.Attrs["sha1"] != "already-set" {
				t.Errorf("sha1 was overwritten: got %q", n.Attrs["sha1"])
			}
		}
		if n.Tag != TagFile && n.Attrs.HasSHA1() {
			t.Errorf("non-file node %v carries a sha1", n)
		}
	}
}

func TestMigrateRootNameMismatchIsFatal(t *testing.T) {
	older := []Node{Enter("one", nil), Sep(), Leave()}
	newer := []Node{Enter("two", nil), Sep(), Leave()}

	_, err := MigrateToStream(FromSlice(older), FromSlice(newer))
	if err == nil {
		t.Fatal("expected an error for mismatched root names")
	}
	if !IsFatal(err) {
		t.Errorf("expected a FatalError, got %T: %v", err, err)
	}
}
