// Package engine provides the core database engine for the flint storage
// system.
//
// The engine is the central coordinator for all database operations. It owns
// the three pieces of LSM state and the discipline between them:
//   - Memtable: the ordered in-memory buffer absorbing recent writes
//   - Segment set: sealed sorted segment files, ranked newest to oldest
//   - Compaction: the k-way merge that collapses the segment set when it
//     reaches the configured threshold
//
// Reads consult the memtable first and then segments newest to oldest, so the
// most recent record for a key always wins and a tombstone shadows everything
// older. Writes land in the memtable; when an insert would grow it past its
// capacity, the memtable is flushed to new segment files first.
//
// The engine runs single-threaded and cooperative: every public operation
// completes on the calling goroutine, and file handles are scoped to a single
// operation. Lifecycle is guarded by an atomic closed flag so a closed engine
// reliably rejects further use.
package engine

import (
	"context"
	stdErrors "errors"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/flintdb/flint/internal/entry"
	"github.com/flintdb/flint/internal/memtable"
	"github.com/flintdb/flint/internal/segment"
	"github.com/flintdb/flint/pkg/errors"
	"github.com/flintdb/flint/pkg/filesys"
	"github.com/flintdb/flint/pkg/options"
	"github.com/flintdb/flint/pkg/segname"
)

var (
	// ErrEngineClosed is returned when attempting to perform operations on a closed engine.
	ErrEngineClosed = stdErrors.New("operation failed: cannot access closed engine")
)

// Engine coordinates the memtable, the segment set, and compaction, and
// implements every public store operation.
type Engine struct {
	options *options.Options   // Configuration parameters for the engine.
	log     *zap.SugaredLogger // Structured logging throughout the engine.
	closed  atomic.Bool        // Tracks the engine's lifecycle state.

	mem      *memtable.Memtable // Ordered buffer of the most recent writes.
	segments []*segment.Segment // Sealed segments, newest first.

	dir       string // Directory holding this instance's segment files.
	ephemeral bool   // dir is a per-instance temp dir removed on Close.
	nextID    uint64 // Next segment sequence number to assign.
}

// Config holds all the parameters needed to initialize a new Engine instance.
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
}

// New creates and initializes an Engine. When persistence is enabled, the data
// directory is created if needed and any segment files already present are
// loaded back: each file is scanned to rebuild its sparse index, and files are
// ranked by name so that rank matches write order. When persistence is
// disabled, segments live in a private temporary directory that Close removes.
func New(ctx context.Context, config *Config) (*Engine, error) {
	if config == nil || config.Options == nil || config.Logger == nil {
		return nil, errors.NewRequiredFieldError("config").
			WithProvided(config).
			WithMessage("Engine configuration with options and logger is required")
	}

	e := &Engine{
		options: config.Options,
		log:     config.Logger,
		mem:     memtable.New(),
	}

	if config.Options.PersistSegments {
		e.dir = config.Options.DataDir
		if err := filesys.CreateDir(e.dir, 0755, true); err != nil {
			return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to create data directory").
				WithPath(e.dir)
		}
		if err := e.loadSegments(); err != nil {
			return nil, err
		}
	} else {
		dir, err := os.MkdirTemp("", "flint-*")
		if err != nil {
			return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to create ephemeral segment directory")
		}
		e.dir = dir
		e.ephemeral = true
	}

	e.log.Infow(
		"Engine initialized",
		"dir", e.dir,
		"ephemeral", e.ephemeral,
		"segments", len(e.segments),
		"maxInMemorySize", e.options.MaxInMemorySize,
		"segmentSize", e.options.SegmentSize,
		"sparseOffset", e.options.SparseOffset,
		"mergeThreshold", e.options.MergeThreshold,
	)
	return e, nil
}

// loadSegments performs the cold-start directory scan: every segment file in
// the data directory is loaded, its sparse index rebuilt by scanning, and the
// set installed newest-first. Filenames carry zero-padded monotonic IDs, so
// lexicographic order equals write order and the newest file sorts last.
func (e *Engine) loadSegments() error {
	files, err := segname.List(e.dir)
	if err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to scan data directory").
			WithPath(e.dir)
	}

	// files is oldest to newest; the segment set holds newest first.
	for i := len(files) - 1; i >= 0; i-- {
		seg, err := segment.Load(files[i], uint64(i+1), e.options.SparseOffset)
		if err != nil {
			return err
		}
		e.segments = append(e.segments, seg)
	}

	// Seed the ID counter past anything on disk so new files sort after
	// existing ones.
	latest, err := segname.LatestID(e.dir, e.options.SegmentPrefix)
	if err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to determine latest segment ID").
			WithPath(e.dir)
	}
	if uint64(len(files)) > latest {
		latest = uint64(len(files))
	}
	e.nextID = latest + 1

	if len(files) > 0 {
		e.log.Infow("Loaded existing segments", "count", len(files), "nextSegmentID", e.nextID)
	}
	return nil
}

// Put records key → value. If the key is already buffered it is overwritten in
// place, tombstone included, which resurrects a deleted key. Otherwise, if the
// memtable is at capacity, it is flushed to new segments before the insert so
// a caller never observes the bound exceeded.
func (e *Engine) Put(key string, value []byte) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	if key == "" {
		return errors.NewRequiredFieldError("key")
	}

	k := []byte(key)
	if !e.mem.Contains(k) && e.mem.Len() >= e.options.MaxInMemorySize {
		if err := e.Flush(); err != nil {
			return err
		}
	}
	e.mem.Put(k, value)
	return nil
}

// Get returns the value recorded for key. The memtable is consulted first,
// then segments newest to oldest, each through its sparse index. A tombstone
// anywhere along the way fails the lookup immediately with ErrKeyDeleted,
// without consulting older segments; a key found nowhere fails with
// ErrKeyNotFound.
func (e *Engine) Get(key string) ([]byte, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	if key == "" {
		return nil, errors.NewRequiredFieldError("key")
	}

	rec, err := e.lookup([]byte(key))
	if err != nil {
		return nil, err
	}
	return rec.Value, nil
}

// lookup finds the newest record for key across the memtable and all
// segments. It returns ErrKeyDeleted when that record is a tombstone and
// ErrKeyNotFound when no record exists.
func (e *Engine) lookup(key []byte) (entry.Entry, error) {
	if rec, ok := e.mem.Get(key); ok {
		if rec.Tombstone {
			return entry.Entry{}, errors.ErrKeyDeleted
		}
		return rec, nil
	}

	for _, seg := range e.segments {
		rec, found, err := seg.Search(key)
		if err != nil {
			return entry.Entry{}, err
		}
		if !found {
			continue
		}
		if rec.Tombstone {
			return entry.Entry{}, errors.ErrKeyDeleted
		}
		return rec, nil
	}
	return entry.Entry{}, errors.ErrKeyNotFound
}

// Delete records a tombstone for key. The key must currently be visible; a
// delete of a missing or already-deleted key fails with ErrKeyNotFound. The
// tombstone lands in the memtable under the same capacity discipline as Put,
// and shadows every older record for the key until compaction drops both.
func (e *Engine) Delete(key string) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	if key == "" {
		return errors.NewRequiredFieldError("key")
	}

	k := []byte(key)
	if _, err := e.lookup(k); err != nil {
		if errors.IsKeyNotVisible(err) {
			return errors.ErrKeyNotFound
		}
		return err
	}

	if !e.mem.Contains(k) && e.mem.Len() >= e.options.MaxInMemorySize {
		if err := e.Flush(); err != nil {
			return err
		}
	}
	e.mem.PutTombstone(k)
	return nil
}

// Contains reports whether key is currently visible. It is the one operation
// that converts a lookup failure into a boolean: both a missing key and a
// tombstoned key yield false without an error.
func (e *Engine) Contains(key string) (bool, error) {
	if e.closed.Load() {
		return false, ErrEngineClosed
	}
	if key == "" {
		return false, errors.NewRequiredFieldError("key")
	}

	_, err := e.lookup([]byte(key))
	if err != nil {
		if errors.IsKeyNotVisible(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Len counts the distinct keys currently visible across the memtable and all
// segments. Newer records shadow older ones and tombstones hide their key, so
// the count walks every source newest to oldest with a seen-key filter. The
// cost is proportional to the total number of stored entries.
func (e *Engine) Len() (int, error) {
	if e.closed.Load() {
		return 0, ErrEngineClosed
	}

	seen := make(map[string]struct{}, e.mem.Len())
	count := 0

	e.mem.Ascend(func(rec entry.Entry) bool {
		seen[string(rec.Key)] = struct{}{}
		if !rec.Tombstone {
			count++
		}
		return true
	})

	for _, seg := range e.segments {
		n, err := e.countUnseen(seg, seen)
		if err != nil {
			return 0, err
		}
		count += n
	}
	return count, nil
}

// countUnseen scans one segment and counts its live entries whose keys have
// not been seen in a newer source, marking every key it visits.
func (e *Engine) countUnseen(seg *segment.Segment, seen map[string]struct{}) (int, error) {
	it, err := seg.Scan()
	if err != nil {
		return 0, err
	}
	defer it.Close()

	count := 0
	for {
		rec, err := it.Next()
		if stdErrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}
		if _, ok := seen[string(rec.Key)]; ok {
			continue
		}
		seen[string(rec.Key)] = struct{}{}
		if !rec.Tombstone {
			count++
		}
	}
	return count, nil
}

// SegmentCount returns the number of sealed segments in the set.
func (e *Engine) SegmentCount() int {
	return len(e.segments)
}

// Flush force-writes the current memtable contents to new segments and empties
// it. The sorted entries are chunked into groups of at most SegmentSize, each
// chunk sealed into its own file; the chunks of one flush hold disjoint keys,
// so their relative rank in the segment set is immaterial. An empty memtable
// makes Flush a no-op, so back-to-back flushes never create empty files.
// Reaching the merge threshold afterwards triggers compaction.
func (e *Engine) Flush() error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	if e.mem.Len() == 0 {
		return nil
	}

	entries := e.mem.Entries()
	for lo := 0; lo < len(entries); lo += e.options.SegmentSize {
		hi := min(lo+e.options.SegmentSize, len(entries))
		seg, err := e.writeSegment(entries[lo:hi])
		if err != nil {
			return err
		}
		e.segments = append([]*segment.Segment{seg}, e.segments...)
	}

	e.mem.Clear()
	e.log.Infow("Flushed memtable", "entries", len(entries), "segments", e.SegmentCount())

	if e.SegmentCount() >= e.options.MergeThreshold {
		return e.compact()
	}
	return nil
}

// writeSegment seals one ascending-sorted chunk of entries into a new segment
// file named with the next sequence number.
func (e *Engine) writeSegment(entries []entry.Entry) (*segment.Segment, error) {
	id := e.nextID
	e.nextID++

	w, err := segment.NewWriter(e.segmentPath(id), id, e.options.SparseOffset)
	if err != nil {
		return nil, err
	}

	for _, rec := range entries {
		if err := w.Append(rec); err != nil {
			w.Abort()
			return nil, err
		}
	}
	return w.Close()
}

// segmentPath builds the full path of a new segment file with sequence
// number id.
func (e *Engine) segmentPath(id uint64) string {
	return filepath.Join(e.dir, segname.GenerateName(id, e.options.SegmentPrefix))
}

// Close shuts the engine down. Exactly one caller wins the closed flag; the
// rest get ErrEngineClosed. A persistent engine flushes its memtable first so
// a clean shutdown never drops acknowledged writes; an ephemeral engine
// discards its temporary directory wholesale.
func (e *Engine) Close() error {
	if e.closed.CompareAndSwap(false, true) {
		var err error
		if !e.ephemeral {
			// Flush directly: the closed flag is already set, so the public
			// Flush would refuse.
			err = e.flushLocked()
		} else {
			err = os.RemoveAll(e.dir)
		}
		e.log.Infow("Engine closed", "dir", e.dir)
		return err
	}
	return ErrEngineClosed
}

// flushLocked is Close's flush path, bypassing the closed-flag check.
func (e *Engine) flushLocked() error {
	if e.mem.Len() == 0 {
		return nil
	}
	entries := e.mem.Entries()
	var errs error
	for lo := 0; lo < len(entries); lo += e.options.SegmentSize {
		hi := min(lo+e.options.SegmentSize, len(entries))
		seg, err := e.writeSegment(entries[lo:hi])
		if err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		e.segments = append([]*segment.Segment{seg}, e.segments...)
	}
	e.mem.Clear()
	return errs
}
