package treehash

import (
	"crypto/sha1"
	"io"
	"os"
)

// hashFileContents streams the file at path through SHA-1 and returns the
// raw 20-byte digest. Grounded on the teacher's internals/hash_sha-1.go
// SHA1.ReadFile (open, io.Copy into the hash state, Sum). SHA-1 computation
// itself is an out-of-scope external collaborator per spec.md §1; this is
// the one concrete place it is invoked from.
func hashFileContents(path string) ([20]byte, error) {
	var out [20]byte

	fd, err := os.Open(path)
	if err != nil {
		return out, err
	}
	defer fd.Close()

	h := sha1.New()
	if _, err := io.Copy(h, fd); err != nil {
		return out, err
	}
	copy(out[:], h.Sum(nil))
	return out, nil
}
