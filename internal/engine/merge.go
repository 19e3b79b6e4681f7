package engine

import (
	"bytes"
	"container/heap"
	stdErrors "errors"
	"io"

	"go.uber.org/multierr"

	"github.com/flintdb/flint/internal/entry"
	"github.com/flintdb/flint/internal/segment"
)

// mergeItem is one head-of-stream element in the k-way merge. rank is the
// segment's position in the newest-first set, so a smaller rank means a newer
// record for the same key.
type mergeItem struct {
	rec  entry.Entry
	rank int
	it   *segment.Iterator
}

// mergeHeap orders items by key ascending, breaking ties by rank so the
// newest segment's record for a key surfaces first.
type mergeHeap []*mergeItem

func (h mergeHeap) Len() int { return len(h) }

func (h mergeHeap) Less(i, j int) bool {
	if c := bytes.Compare(h[i].rec.Key, h[j].rec.Key); c != 0 {
		return c < 0
	}
	return h[i].rank < h[j].rank
}

func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap) Push(x any) { *h = append(*h, x.(*mergeItem)) }

func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// compact merges every segment in the set into a new set with the same visible
// contents and no more segments than before.
//
// All segments' sorted scans feed a k-way merge. For each key the record from
// the newest segment wins; older duplicates are discarded. Tombstones are
// dropped outright: since every segment participates, no older segment
// outside the merge could still hold a value the tombstone must shadow. The
// surviving stream is chunked into new segments of at most SegmentSize
// entries, the set is swapped, and the old files are unlinked.
func (e *Engine) compact() error {
	if len(e.segments) < 2 {
		return nil
	}

	old := e.segments
	e.log.Infow("Starting compaction", "segments", len(old))

	merged, err := e.mergeSegments(old)
	if err != nil {
		// A failed merge leaves the old set in place; any chunks already
		// sealed belong to no segment set, so their files are removed.
		for _, seg := range merged {
			err = multierr.Append(err, seg.Remove())
		}
		return err
	}

	e.segments = merged

	var cleanup error
	for _, seg := range old {
		cleanup = multierr.Append(cleanup, seg.Remove())
	}
	if cleanup != nil {
		e.log.Errorw("Failed to remove merged-away segment files", "error", cleanup)
		return cleanup
	}

	e.log.Infow("Compaction finished", "segments", len(e.segments))
	return nil
}

// mergeSegments runs the k-way merge over segs (newest first) and seals the
// last-write-wins stream into new segments. The output chunks hold disjoint
// ascending key ranges, so their relative rank in the returned set is
// immaterial.
func (e *Engine) mergeSegments(segs []*segment.Segment) (result []*segment.Segment, err error) {
	iters := make([]*segment.Iterator, 0, len(segs))
	defer func() {
		for _, it := range iters {
			err = multierr.Append(err, it.Close())
		}
	}()

	h := make(mergeHeap, 0, len(segs))
	for rank, seg := range segs {
		it, scanErr := seg.Scan()
		if scanErr != nil {
			return nil, scanErr
		}
		iters = append(iters, it)

		rec, readErr := it.Next()
		if stdErrors.Is(readErr, io.EOF) {
			continue
		}
		if readErr != nil {
			return nil, readErr
		}
		h = append(h, &mergeItem{rec: rec, rank: rank, it: it})
	}
	heap.Init(&h)

	var (
		w       *segment.Writer
		lastKey []byte
	)
	defer func() {
		if w != nil {
			w.Abort()
		}
	}()

	for h.Len() > 0 {
		item := heap.Pop(&h).(*mergeItem)

		// Refill from the popped stream before deciding anything, so every
		// older duplicate of the current key surfaces (and is skipped) in
		// subsequent iterations.
		next, readErr := item.it.Next()
		if readErr != nil && !stdErrors.Is(readErr, io.EOF) {
			return result, readErr
		}
		if readErr == nil {
			heap.Push(&h, &mergeItem{rec: next, rank: item.rank, it: item.it})
		}

		// The first occurrence of a key comes from the newest segment holding
		// it; later occurrences are shadowed.
		if lastKey != nil && bytes.Equal(item.rec.Key, lastKey) {
			continue
		}
		lastKey = item.rec.Key

		// Every segment participates, so a tombstone has nothing left to
		// shadow and can be dropped.
		if item.rec.Tombstone {
			continue
		}

		if w == nil {
			if w, err = e.newMergeWriter(); err != nil {
				return result, err
			}
		}
		if err = w.Append(item.rec); err != nil {
			return result, err
		}
		if w.Count() >= e.options.SegmentSize {
			seg, closeErr := w.Close()
			w = nil
			if closeErr != nil {
				return result, closeErr
			}
			result = append(result, seg)
		}
	}

	if w != nil {
		seg, closeErr := w.Close()
		w = nil
		if closeErr != nil {
			return result, closeErr
		}
		result = append(result, seg)
	}
	return result, nil
}

// newMergeWriter opens a writer for the next compaction output chunk.
func (e *Engine) newMergeWriter() (*segment.Writer, error) {
	id := e.nextID
	e.nextID++
	return segment.NewWriter(e.segmentPath(id), id, e.options.SparseOffset)
}
