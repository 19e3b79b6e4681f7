package segment

import (
	"bufio"
	"bytes"
	"os"

	"github.com/flintdb/flint/internal/entry"
	"github.com/flintdb/flint/pkg/errors"
)

// Writer constructs one segment file. Entries must be appended in strictly
// increasing key order; the writer samples the sparse index as it goes and
// seals the file on Close.
//
// The file is written under a temporary name and renamed into place when
// sealed, so a crash mid-construction never leaves a half-written file behind
// that cold start would pick up.
type Writer struct {
	id           uint64
	path         string
	sparseOffset int

	f   *os.File
	buf *bufio.Writer

	offset     int64
	count      int
	lastKey    []byte
	lastOffset int64
	sparse     []sample
}

// tmpSuffix marks in-construction segment files. Cold start ignores them
// because they don't carry the segment extension.
const tmpSuffix = ".tmp"

// NewWriter creates the backing file for a new segment at path and returns a
// writer ready for appends.
func NewWriter(path string, id uint64, sparseOffset int) (*Writer, error) {
	f, err := os.OpenFile(path+tmpSuffix, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to create segment file").
			WithSegmentID(id).WithPath(path + tmpSuffix)
	}

	return &Writer{
		id:           id,
		path:         path,
		sparseOffset: sparseOffset,
		f:            f,
		buf:          bufio.NewWriter(f),
	}, nil
}

// Append writes one entry to the segment. The caller is responsible for
// passing entries in ascending key order; a violation surfaces as an ordering
// error, since a mis-sorted segment would silently corrupt every future
// lookup against it.
func (w *Writer) Append(e entry.Entry) error {
	if len(e.Key) == 0 {
		return errors.NewStorageError(nil, errors.ErrorCodeInvalidInput, "Segment entry key must be non-empty").
			WithSegmentID(w.id).WithPath(w.path)
	}
	if w.lastKey != nil && bytes.Compare(e.Key, w.lastKey) <= 0 {
		return errors.NewStorageError(nil, errors.ErrorCodeOrderingViolation, "Segment entries appended out of key order").
			WithSegmentID(w.id).
			WithPath(w.path).
			WithDetail("lastKey", string(w.lastKey)).
			WithDetail("key", string(e.Key))
	}

	if err := entry.Encode(w.buf, e); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to append segment entry").
			WithSegmentID(w.id).WithPath(w.path).WithOffset(w.offset)
	}

	if w.count%w.sparseOffset == 0 {
		w.sparse = append(w.sparse, sample{key: e.Key, offset: w.offset})
	}
	w.lastKey = e.Key
	w.lastOffset = w.offset

	w.offset += e.EncodedSize()
	w.count++
	return nil
}

// Count returns the number of entries appended so far.
func (w *Writer) Count() int {
	return w.count
}

// Close seals the segment: the last entry is recorded in the sparse index if
// the sampling period didn't already catch it, buffers are flushed and synced,
// and the file is renamed to its final name. The returned Segment is immutable.
func (w *Writer) Close() (*Segment, error) {
	// Guarantee the final entry is sampled so any key ≤ the segment's largest
	// key has an upper sampled bound, keeping lookups window-bounded.
	if w.count > 0 {
		last := w.sparse[len(w.sparse)-1]
		if !bytes.Equal(last.key, w.lastKey) {
			w.sparse = append(w.sparse, sample{key: w.lastKey, offset: w.lastOffset})
		}
	}

	if err := w.buf.Flush(); err != nil {
		w.abort()
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to flush segment file").
			WithSegmentID(w.id).WithPath(w.path)
	}
	if err := w.f.Sync(); err != nil {
		w.abort()
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to sync segment file").
			WithSegmentID(w.id).WithPath(w.path)
	}
	if err := w.f.Close(); err != nil {
		os.Remove(w.path + tmpSuffix)
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to close segment file").
			WithSegmentID(w.id).WithPath(w.path)
	}
	if err := os.Rename(w.path+tmpSuffix, w.path); err != nil {
		os.Remove(w.path + tmpSuffix)
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to seal segment file").
			WithSegmentID(w.id).WithPath(w.path)
	}

	return &Segment{
		ID:     w.id,
		Path:   w.path,
		sparse: w.sparse,
		count:  w.count,
	}, nil
}

// Abort discards the in-construction file. Safe to call after a failed Append
// to release the file handle and unlink the temporary file.
func (w *Writer) Abort() {
	w.abort()
}

func (w *Writer) abort() {
	w.f.Close()
	os.Remove(w.path + tmpSuffix)
}
