// Package segment owns the immutable sorted segment files ("SSTs") that hold
// flushed entries, together with the in-memory sparse index that bounds the
// cost of a point lookup inside one file.
//
// A segment is a sequence of encoded entries sorted ascending by key, each key
// unique within the file. The sparse index samples every sparseOffset-th
// entry's key and byte offset, and always the last entry, so any key from the
// segment's smallest key to its largest key has both a lower and an upper
// sampled bound. A lookup therefore scans at most one sampling window instead of the
// whole file.
//
// Segments are immutable once sealed: a Writer appends entries during
// construction and produces a Segment value on Close; after that the file is
// only ever read or unlinked. File handles are scoped to a single operation
// and released on every exit path.
package segment

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"sort"

	"github.com/flintdb/flint/internal/entry"
	"github.com/flintdb/flint/pkg/errors"
	"github.com/flintdb/flint/pkg/filesys"
)

// sample is one sparse-index entry: a sampled key and the byte offset of its
// encoded entry in the file.
type sample struct {
	key    []byte
	offset int64
}

// Segment is a handle to one sealed segment file. It is a plain value holding
// the file path, the sparse index, and the entry count; it does not keep the
// file open.
type Segment struct {
	// ID is the segment's sequence number. Higher IDs are newer. The engine
	// ranks segments by their position in its newest-first set, not by ID.
	ID uint64

	// Path is the location of the sealed segment file.
	Path string

	sparse []sample // Sampled keys with offsets, ascending by key.
	count  int      // Total entries in the file.
}

// EntryCount returns the number of entries stored in the segment file.
func (s *Segment) EntryCount() int {
	return s.count
}

// Remove unlinks the segment file. Called when the segment has been merged
// away or the store is discarding ephemeral state.
func (s *Segment) Remove() error {
	if err := filesys.DeleteFile(s.Path); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to remove segment file").
			WithSegmentID(s.ID).WithPath(s.Path)
	}
	return nil
}

// Load opens the segment file at path, scans it sequentially to rebuild the
// sparse index and entry count, and returns the resulting Segment. This is the
// cold-start path: no separate index file exists, so the index is always
// reconstructed from the data itself.
func Load(path string, id uint64, sparseOffset int) (*Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to open segment file").
			WithSegmentID(id).WithPath(path)
	}
	defer f.Close()

	s := &Segment{ID: id, Path: path}
	r := bufio.NewReader(f)

	var offset int64
	var lastKey []byte
	var lastOffset int64
	for {
		e, err := entry.Read(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewStorageError(err, errors.ErrorCodeSegmentCorrupted, "Failed to decode segment entry").
				WithSegmentID(id).WithPath(path).WithOffset(offset)
		}

		if s.count%sparseOffset == 0 {
			s.sparse = append(s.sparse, sample{key: e.Key, offset: offset})
		}
		lastKey = e.Key
		lastOffset = offset

		offset += e.EncodedSize()
		s.count++
	}

	// The last entry is always indexed so every key within the segment's
	// range has an upper sampled bound.
	if s.count > 0 {
		last := s.sparse[len(s.sparse)-1]
		if !bytes.Equal(last.key, lastKey) {
			s.sparse = append(s.sparse, sample{key: lastKey, offset: lastOffset})
		}
	}

	return s, nil
}

// Search locates the entry for key within this segment, if any. The boolean
// reports whether any record for key exists; the entry's Tombstone flag tells
// a found deletion marker apart from a live value.
//
// The sparse index narrows the scan window: the file is read from the greatest
// sampled key ≤ key up to (but not including) the smallest sampled key > key,
// decoding at most one sampling window of entries.
func (s *Segment) Search(key []byte) (entry.Entry, bool, error) {
	if len(s.sparse) == 0 {
		// No samples at all: scan the whole file.
		return s.scanRange(0, -1, key)
	}

	// First sampled key greater than key; everything before index hi is ≤ key.
	hi := sort.Search(len(s.sparse), func(i int) bool {
		return bytes.Compare(s.sparse[i].key, key) > 0
	})

	if hi == 0 {
		// key sorts before the first sampled key. The first entry is always
		// sampled, so key is smaller than every key in the segment.
		return entry.Entry{}, false, nil
	}

	lo := s.sparse[hi-1]
	limit := int64(-1)
	if hi < len(s.sparse) {
		limit = s.sparse[hi].offset
	}
	return s.scanRange(lo.offset, limit, key)
}

// scanRange decodes entries from byte offset lo up to (but not including)
// offset hi, returning the entry matching key if present. hi < 0 means scan to
// end of file. Entries are sorted, so the scan stops as soon as a key greater
// than the target is seen.
func (s *Segment) scanRange(lo, hi int64, key []byte) (entry.Entry, bool, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return entry.Entry{}, false, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to open segment file").
			WithSegmentID(s.ID).WithPath(s.Path)
	}
	defer f.Close()

	if _, err := f.Seek(lo, io.SeekStart); err != nil {
		return entry.Entry{}, false, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to seek in segment file").
			WithSegmentID(s.ID).WithPath(s.Path).WithOffset(lo)
	}

	var r io.Reader = f
	if hi >= 0 {
		r = io.LimitReader(f, hi-lo)
	}
	br := bufio.NewReader(r)

	offset := lo
	for {
		e, err := entry.Read(br)
		if err == io.EOF {
			return entry.Entry{}, false, nil
		}
		if err != nil {
			return entry.Entry{}, false, errors.NewStorageError(err, errors.ErrorCodeSegmentCorrupted, "Failed to decode segment entry").
				WithSegmentID(s.ID).WithPath(s.Path).WithOffset(offset)
		}

		switch bytes.Compare(e.Key, key) {
		case 0:
			return e, true, nil
		case 1:
			// Sorted file: once past the target, it cannot appear later.
			return entry.Entry{}, false, nil
		}
		offset += e.EncodedSize()
	}
}
