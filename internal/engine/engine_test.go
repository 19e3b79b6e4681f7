package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flintdb/flint/internal/entry"
	"github.com/flintdb/flint/internal/segment"
	"github.com/flintdb/flint/pkg/errors"
	"github.com/flintdb/flint/pkg/logger"
	"github.com/flintdb/flint/pkg/options"
	"github.com/flintdb/flint/pkg/segname"
)

// newTestEngine builds an ephemeral engine with the given option overrides
// and tears it down with the test.
func newTestEngine(t *testing.T, opts ...options.OptionFunc) *Engine {
	t.Helper()

	o := options.NewDefaultOptions()
	options.WithPersistSegments(false)(&o)
	for _, opt := range opts {
		opt(&o)
	}

	e, err := New(context.Background(), &Config{Options: &o, Logger: logger.NewNop()})
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

// newPersistentEngine builds an engine over dir; the caller reopens it by
// calling this again with the same dir.
func newPersistentEngine(t *testing.T, dir string, opts ...options.OptionFunc) *Engine {
	t.Helper()

	o := options.NewDefaultOptions()
	options.WithDataDir(dir)(&o)
	for _, opt := range opts {
		opt(&o)
	}

	e, err := New(context.Background(), &Config{Options: &o, Logger: logger.NewNop()})
	require.NoError(t, err)
	return e
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(context.Background(), nil)
	require.Error(t, err)
	require.True(t, errors.IsValidationError(err))

	_, err = New(context.Background(), &Config{Options: nil, Logger: logger.NewNop()})
	require.Error(t, err)

	o := options.NewDefaultOptions()
	_, err = New(context.Background(), &Config{Options: &o, Logger: nil})
	require.Error(t, err)
}

func TestEmptyKeyRejected(t *testing.T) {
	e := newTestEngine(t)

	require.Error(t, e.Put("", []byte("v")))
	_, err := e.Get("")
	require.Error(t, err)
	require.Error(t, e.Delete(""))
}

func TestMemtableNeverExceedsCapacity(t *testing.T) {
	e := newTestEngine(t, options.WithMaxInMemorySize(3), options.WithSegmentSize(2))

	for i := range 20 {
		require.NoError(t, e.Put(fmt.Sprintf("k%02d", i), fmt.Appendf(nil, "v%02d", i)))
		require.LessOrEqual(t, e.mem.Len(), 3)
	}

	for i := range 20 {
		v, err := e.Get(fmt.Sprintf("k%02d", i))
		require.NoError(t, err)
		require.Equal(t, fmt.Appendf(nil, "v%02d", i), v)
	}
}

func TestOverwriteInMemtableDoesNotFlush(t *testing.T) {
	e := newTestEngine(t, options.WithMaxInMemorySize(2))

	require.NoError(t, e.Put("k1", []byte("v1")))
	require.NoError(t, e.Put("k2", []byte("v2")))

	// The memtable is full, but rewriting a buffered key overwrites in place.
	require.NoError(t, e.Put("k1", []byte("v1_1")))
	require.Zero(t, e.SegmentCount())

	v, err := e.Get("k1")
	require.NoError(t, err)
	require.Equal(t, []byte("v1_1"), v)
}

func TestFlushChunksBySegmentSize(t *testing.T) {
	e := newTestEngine(t, options.WithSegmentSize(3))

	for i := range 7 {
		require.NoError(t, e.Put(fmt.Sprintf("k%02d", i), []byte("v")))
	}
	require.NoError(t, e.Flush())

	// ceil(7/3) segments, memtable drained.
	require.Equal(t, 3, e.SegmentCount())
	require.Zero(t, e.mem.Len())
}

func TestFlushEmptyMemtableIsNoOp(t *testing.T) {
	dir := t.TempDir()
	e := newPersistentEngine(t, dir)
	defer e.Close()

	require.NoError(t, e.Put("k1", []byte("v1")))
	require.NoError(t, e.Flush())
	require.Equal(t, 1, e.SegmentCount())

	files, err := segname.List(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)

	// A second flush with nothing buffered creates no files and changes nothing.
	require.NoError(t, e.Flush())
	require.Equal(t, 1, e.SegmentCount())

	files, err = segname.List(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
}

func TestDeleteRequiresVisibleKey(t *testing.T) {
	e := newTestEngine(t)

	err := e.Delete("missing")
	require.ErrorIs(t, err, errors.ErrKeyNotFound)

	require.NoError(t, e.Put("k1", []byte("v1")))
	require.NoError(t, e.Delete("k1"))

	// Deleting an already-deleted key fails the same way.
	err = e.Delete("k1")
	require.ErrorIs(t, err, errors.ErrKeyNotFound)
}

func TestGetDistinguishesDeletedFromMissing(t *testing.T) {
	e := newTestEngine(t)

	require.NoError(t, e.Put("k1", []byte("v1")))
	require.NoError(t, e.Delete("k1"))

	_, err := e.Get("k1")
	require.ErrorIs(t, err, errors.ErrKeyDeleted)

	_, err = e.Get("k2")
	require.ErrorIs(t, err, errors.ErrKeyNotFound)
}

func TestTombstoneShadowsOlderSegments(t *testing.T) {
	e := newTestEngine(t, options.WithMaxInMemorySize(2), options.WithSegmentSize(2))

	require.NoError(t, e.Put("k1", []byte("v1")))
	require.NoError(t, e.Put("k2", []byte("v2")))
	require.NoError(t, e.Flush())

	// The tombstone lands in a newer segment than the value.
	require.NoError(t, e.Delete("k1"))
	require.NoError(t, e.Flush())
	require.Equal(t, 2, e.SegmentCount())

	_, err := e.Get("k1")
	require.ErrorIs(t, err, errors.ErrKeyDeleted)

	ok, err := e.Contains("k1")
	require.NoError(t, err)
	require.False(t, ok)

	// A newer write resurrects the key.
	require.NoError(t, e.Put("k1", []byte("v1_1")))
	v, err := e.Get("k1")
	require.NoError(t, err)
	require.Equal(t, []byte("v1_1"), v)
}

func TestLenDeduplicatesAcrossSources(t *testing.T) {
	e := newTestEngine(t, options.WithSegmentSize(2))

	require.NoError(t, e.Put("k1", []byte("v1")))
	require.NoError(t, e.Put("k2", []byte("v2")))
	require.NoError(t, e.Flush())

	// Overwrite one key and delete another; both now exist in two places.
	require.NoError(t, e.Put("k1", []byte("v1_1")))
	require.NoError(t, e.Delete("k2"))
	require.NoError(t, e.Put("k3", []byte("v3")))

	n, err := e.Len()
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestColdStartRanksSegmentsByFilename(t *testing.T) {
	dir := t.TempDir()

	// Three segments written out-of-band, the newer one shadowing k2.
	writeSegment(t, dir, 1, []entry.Entry{entry.NewValue([]byte("k1"), []byte("v1"))})
	writeSegment(t, dir, 2, []entry.Entry{entry.NewValue([]byte("k2"), []byte("v2"))})
	writeSegment(t, dir, 3, []entry.Entry{entry.NewValue([]byte("k2"), []byte("v2_2"))})

	e := newPersistentEngine(t, dir)
	defer e.Close()
	require.Equal(t, 3, e.SegmentCount())

	v, err := e.Get("k1")
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), v)

	v, err = e.Get("k2")
	require.NoError(t, err)
	require.Equal(t, []byte("v2_2"), v)
}

func TestColdStartSeedsIDCounter(t *testing.T) {
	dir := t.TempDir()
	writeSegment(t, dir, 5, []entry.Entry{entry.NewValue([]byte("k1"), []byte("v1"))})

	e := newPersistentEngine(t, dir)
	defer e.Close()

	// New segments must sort after the existing ID 5.
	require.NoError(t, e.Put("k2", []byte("v2")))
	require.NoError(t, e.Flush())

	files, err := segname.List(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)

	id, err := segname.ParseID(files[1], options.DefaultSegmentPrefix)
	require.NoError(t, err)
	require.Greater(t, id, uint64(5))
}

func TestWorstCaseLookupFallsThroughSegments(t *testing.T) {
	dir := t.TempDir()

	// The newer segment's index covers k1 only; the target lives in the older
	// segment past its first sample.
	writeSegment(t, dir, 1, []entry.Entry{
		entry.NewValue([]byte("k1"), []byte("v1")),
		entry.NewValue([]byte("k1_1"), []byte("v_1")),
	})
	writeSegment(t, dir, 2, []entry.Entry{entry.NewValue([]byte("k1"), []byte("v1"))})

	e := newPersistentEngine(t, dir, options.WithSparseOffset(2))
	defer e.Close()
	require.Equal(t, 2, e.SegmentCount())

	v, err := e.Get("k1_1")
	require.NoError(t, err)
	require.Equal(t, []byte("v_1"), v)
}

func TestCloseFlushesPersistentState(t *testing.T) {
	dir := t.TempDir()

	e := newPersistentEngine(t, dir)
	require.NoError(t, e.Put("k1", []byte("v1")))
	require.NoError(t, e.Close())

	reopened := newPersistentEngine(t, dir)
	defer reopened.Close()

	v, err := reopened.Get("k1")
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), v)
}

func TestClosedEngineRejectsOperations(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Close())

	require.ErrorIs(t, e.Put("k", []byte("v")), ErrEngineClosed)
	_, err := e.Get("k")
	require.ErrorIs(t, err, ErrEngineClosed)
	require.ErrorIs(t, e.Delete("k"), ErrEngineClosed)
	require.ErrorIs(t, e.Flush(), ErrEngineClosed)
	require.ErrorIs(t, e.Close(), ErrEngineClosed)
}

// writeSegment creates a sealed segment file in dir out-of-band, the way an
// external producer or an earlier process would.
func writeSegment(t *testing.T, dir string, id uint64, entries []entry.Entry) {
	t.Helper()

	path := filepath.Join(dir, segname.GenerateName(id, options.DefaultSegmentPrefix))
	w, err := segment.NewWriter(path, id, options.DefaultSparseOffset)
	require.NoError(t, err)
	for _, e := range entries {
		require.NoError(t, w.Append(e))
	}
	_, err = w.Close()
	require.NoError(t, err)
}
