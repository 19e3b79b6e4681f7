package segment

import (
	"bufio"
	"io"
	"os"

	"github.com/flintdb/flint/internal/entry"
	"github.com/flintdb/flint/pkg/errors"
)

// Iterator is a lazy, forward-only traversal of one segment's entries in key
// order. It holds the segment file open for its lifetime, so callers must
// Close it on every exit path. Iterators are not restartable; open a new one
// to scan again.
type Iterator struct {
	seg    *Segment
	f      *os.File
	r      *bufio.Reader
	offset int64
}

// Scan opens a full sorted traversal of the segment. The merger consumes
// these, one per input segment, in its k-way merge.
func (s *Segment) Scan() (*Iterator, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to open segment file").
			WithSegmentID(s.ID).WithPath(s.Path)
	}
	return &Iterator{seg: s, f: f, r: bufio.NewReader(f)}, nil
}

// Next returns the next entry in key order. It returns io.EOF once the
// segment is exhausted.
func (it *Iterator) Next() (entry.Entry, error) {
	e, err := entry.Read(it.r)
	if err == io.EOF {
		return entry.Entry{}, io.EOF
	}
	if err != nil {
		return entry.Entry{}, errors.NewStorageError(err, errors.ErrorCodeSegmentCorrupted, "Failed to decode segment entry").
			WithSegmentID(it.seg.ID).WithPath(it.seg.Path).WithOffset(it.offset)
	}
	it.offset += e.EncodedSize()
	return e, nil
}

// Close releases the underlying file handle.
func (it *Iterator) Close() error {
	return it.f.Close()
}
