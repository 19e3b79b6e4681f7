package errors

import stdErrors "errors"

// Key-visibility failures are the only errors a healthy store raises on the
// read path, so they are plain sentinels rather than structured types: callers
// branch on them with errors.Is and never need extra context beyond the key
// they just passed in.
var (
	// ErrKeyNotFound indicates the key is not present anywhere visible:
	// neither the memtable nor any segment holds a record for it.
	ErrKeyNotFound = stdErrors.New("key not found")

	// ErrKeyDeleted indicates the key was explicitly deleted: the newest
	// visible record for it is a tombstone.
	ErrKeyDeleted = stdErrors.New("key deleted")
)

// IsKeyNotFound reports whether err indicates a missing key.
func IsKeyNotFound(err error) bool {
	return stdErrors.Is(err, ErrKeyNotFound)
}

// IsKeyDeleted reports whether err indicates a tombstoned key.
func IsKeyDeleted(err error) bool {
	return stdErrors.Is(err, ErrKeyDeleted)
}

// IsKeyNotVisible reports whether err indicates the key is not visible for
// either reason. Contains() uses this to convert lookup failures into false.
func IsKeyNotVisible(err error) bool {
	return IsKeyNotFound(err) || IsKeyDeleted(err)
}
