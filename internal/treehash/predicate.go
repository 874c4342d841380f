package treehash

// NeedsHash reports whether node requires hashing: it must be a File node,
// its "kind" attribute must be "file", and it must not already carry a
// "sha1" attribute (spec.md §4.4). Directories and separators never need
// hashing; non-regular "files" (symlinks, devices, sockets, ...) are
// skipped.
func NeedsHash(n Node) bool {
	return n.Tag == TagFile && n.Attrs.IsFile() && !n.Attrs.HasSHA1()
}

// FileSize returns atts["size"] as a uint64, defaulting to 0 if the
// attribute is absent or malformed.
func FileSize(n Node) uint64 {
	v, ok := n.Attrs["size"]
	if !ok {
		return 0
	}
	size, err := parseUint(v)
	if err != nil {
		return 0
	}
	return size
}
