package treehash

import (
	"errors"
	"fmt"
)

// FatalError marks an error that must terminate the whole process rather
// than being absorbed locally (spec.md §7): a non-DONE SQL step, a
// structural violation of the node-stream invariants, a root-name mismatch
// during migration, or an uncaught worker/collector error. Per-file hashing
// I/O errors are never wrapped in FatalError — they are logged and the row
// is simply omitted (spec.md §4.6, §4.7).
type FatalError struct {
	Msg string
}

func (e *FatalError) Error() string { return e.Msg }

// IsFatal reports whether err is (or wraps) a *FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

func errorf(format string, args ...any) error {
	return &FatalError{Msg: fmt.Sprintf(format, args...)}
}
