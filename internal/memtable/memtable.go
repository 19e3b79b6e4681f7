// Package memtable implements the in-memory ordered buffer of recent writes.
//
// The memtable maps keys to their most recent entry, value or tombstone, and
// keeps them sorted so a flush can emit a segment in key order with a single
// in-order traversal. Ordering is delegated to a B-tree rather than a sorted
// slice so overwrites and lookups stay logarithmic as the table fills.
package memtable

import (
	"bytes"

	"github.com/google/btree"

	"github.com/flintdb/flint/internal/entry"
)

// btreeDegree controls node fanout. 32 keeps the tree shallow for memtables in
// the thousands of keys without wasting space on tiny ones.
const btreeDegree = 32

// Memtable is an ordered key → entry map. Keys are unique; re-insertion
// overwrites, and tombstones occupy a slot just like live values so the
// capacity trigger counts both equally.
type Memtable struct {
	tree *btree.BTreeG[entry.Entry]
}

// New returns an empty memtable.
func New() *Memtable {
	return &Memtable{
		tree: btree.NewG(btreeDegree, func(a, b entry.Entry) bool {
			return bytes.Compare(a.Key, b.Key) < 0
		}),
	}
}

// Put records key → value, overwriting any previous entry for key,
// tombstone included.
func (m *Memtable) Put(key, value []byte) {
	m.tree.ReplaceOrInsert(entry.NewValue(key, value))
}

// PutTombstone records a deletion marker for key, overwriting any previous
// entry for key.
func (m *Memtable) PutTombstone(key []byte) {
	m.tree.ReplaceOrInsert(entry.NewTombstone(key))
}

// Get returns the entry recorded for key, if any. The returned entry's
// Tombstone flag distinguishes a buffered deletion from a live value.
func (m *Memtable) Get(key []byte) (entry.Entry, bool) {
	return m.tree.Get(entry.Entry{Key: key})
}

// Contains reports whether key has any entry in the memtable, tombstone
// included.
func (m *Memtable) Contains(key []byte) bool {
	return m.tree.Has(entry.Entry{Key: key})
}

// Len counts entries currently held, live and tombstone alike. This is the
// quantity bounded by the store's in-memory capacity.
func (m *Memtable) Len() int {
	return m.tree.Len()
}

// Ascend visits every entry in ascending key order. Iteration stops early if
// fn returns false.
func (m *Memtable) Ascend(fn func(e entry.Entry) bool) {
	m.tree.Ascend(func(e entry.Entry) bool {
		return fn(e)
	})
}

// Entries returns all entries in ascending key order. Flush uses this to
// snapshot the memtable before writing segments.
func (m *Memtable) Entries() []entry.Entry {
	out := make([]entry.Entry, 0, m.tree.Len())
	m.tree.Ascend(func(e entry.Entry) bool {
		out = append(out, e)
		return true
	})
	return out
}

// Clear drops every entry, returning the memtable to its empty state.
func (m *Memtable) Clear() {
	m.tree.Clear(false)
}
