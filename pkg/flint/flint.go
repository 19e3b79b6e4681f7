// Package flint provides an embedded, persistent, ordered key/value store
// built as a log-structured merge engine. Recent writes accumulate in an
// ordered in-memory table; when it fills, its contents are flushed to sorted,
// immutable segment files on disk. Reads consult the memtable and then the
// segment files newest to oldest, with a per-segment sparse index bounding the
// bytes scanned. When enough segments accumulate, they are merged into a new
// set of no more files, applying last-write-wins and discarding deletion
// markers.
//
// DB is the primary entry point, providing point writes, point reads, point
// deletes, existence checks, entry counting, and explicit flushing. A DB
// constructed over a directory a previous instance flushed to recovers the
// full segment set from the files on disk.
package flint

import (
	"context"

	"github.com/flintdb/flint/internal/engine"
	"github.com/flintdb/flint/pkg/errors"
	"github.com/flintdb/flint/pkg/logger"
	"github.com/flintdb/flint/pkg/options"
)

// Lookup failures surfaced by Get and Delete. Check with errors.Is.
var (
	// ErrKeyNotFound indicates the key is not present anywhere visible.
	ErrKeyNotFound = errors.ErrKeyNotFound

	// ErrKeyDeleted indicates the latest visible record for the key is a
	// deletion marker.
	ErrKeyDeleted = errors.ErrKeyDeleted
)

// DB represents an instance of the flint key/value store. It encapsulates the
// engine responsible for data handling and the configuration options for this
// specific instance.
//
// A DB instance exclusively owns its segment directory; opening the same
// directory with two live instances is undefined. All operations run to
// completion on the calling goroutine.
type DB struct {
	engine  *engine.Engine   // The underlying engine handling read/write operations.
	options *options.Options // Configuration options applied to this DB instance.
}

// New creates and initializes a flint DB instance. When persistence is
// enabled (the default), segment files already present under the configured
// data directory are loaded, ranked by filename so the newest file shadows
// older ones, and their sparse indices rebuilt,
// so a restart resumes exactly where the previous instance flushed.
func New(ctx context.Context, service string, opts ...options.OptionFunc) (*DB, error) {
	log := logger.New(service)

	defaultOpts := options.NewDefaultOptions()
	for _, opt := range opts {
		opt(&defaultOpts)
	}

	eng, err := engine.New(ctx, &engine.Config{Logger: log, Options: &defaultOpts})
	if err != nil {
		return nil, err
	}

	return &DB{engine: eng, options: &defaultOpts}, nil
}

// Put stores a key-value pair. If the key already exists, its value is
// updated; writing over a deleted key makes it visible again. When the
// in-memory table is at capacity, it is flushed to disk before the new pair
// is admitted.
func (db *DB) Put(key string, value []byte) error {
	return db.engine.Put(key, value)
}

// Get retrieves the value associated with the given key. It fails with
// ErrKeyNotFound if no record for the key exists, and with ErrKeyDeleted if
// the newest record is a deletion marker.
func (db *DB) Get(key string) ([]byte, error) {
	return db.engine.Get(key)
}

// Delete removes a key-value pair. The key must currently be visible;
// deleting a missing or already-deleted key fails with ErrKeyNotFound. The
// deletion is recorded as a marker that shadows older values until compaction
// removes both.
func (db *DB) Delete(key string) error {
	return db.engine.Delete(key)
}

// Contains reports whether key is currently visible. A deleted or missing key
// yields false; unlike Get, no lookup failure is surfaced as an error.
func (db *DB) Contains(key string) (bool, error) {
	return db.engine.Contains(key)
}

// Len returns the number of distinct keys currently visible across the
// in-memory table and all segments.
func (db *DB) Len() (int, error) {
	return db.engine.Len()
}

// Flush force-writes the current in-memory table to new segment files and
// empties it, even if it has not reached capacity. Flushing an empty table is
// a no-op and creates no files.
func (db *DB) Flush() error {
	return db.engine.Flush()
}

// SegmentCount returns the number of sealed segment files backing the store.
func (db *DB) SegmentCount() int {
	return db.engine.SegmentCount()
}

// Close shuts the instance down. A persistent store flushes buffered writes
// first so a clean shutdown never drops acknowledged data; an ephemeral store
// discards its temporary files. Further operations fail after Close.
func (db *DB) Close() error {
	return db.engine.Close()
}
