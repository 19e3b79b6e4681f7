// Package options provides data structures and functions for configuring a
// flint database. It defines the parameters that control the store's write
// buffering, segment layout, sparse-index granularity, compaction behavior,
// and persistence.
package options

import "strings"

// Options defines the configurable parameters for a flint DB instance.
type Options struct {
	// Maximum number of distinct keys held in the memtable. When a write would
	// grow the memtable past this bound, the memtable is flushed to a new
	// segment first, so a caller never observes more than this many keys in
	// memory.
	//
	// Default: 1000
	MaxInMemorySize int `json:"maxInMemorySize"`

	// Maximum number of entries per segment file produced by a flush or merge.
	// A flush of N memtable entries produces ceil(N / SegmentSize) segments.
	// Smaller segments mean more files but finer-grained compaction.
	//
	// Default: 1000
	SegmentSize int `json:"segmentSize"`

	// Sampling period for each segment's sparse index. Every SparseOffset-th
	// entry (and always the last entry) is indexed with its byte offset,
	// bounding a point lookup's scan window to at most SparseOffset entries.
	// Larger values mean less memory per segment but longer scans.
	//
	// Default: 100
	SparseOffset int `json:"sparseOffset"`

	// Segment count that triggers compaction. When a flush leaves the store
	// with at least this many segments, they are all merged into a new
	// segment set with no more segments than before.
	//
	// Default: 8
	MergeThreshold int `json:"mergeThreshold"`

	// Whether segment files survive the DB instance. When false, segments are
	// written beneath a per-instance temporary directory and removed on Close;
	// when true, they live under DataDir and are reloaded on the next start.
	//
	// Default: true
	PersistSegments bool `json:"persistSegments"`

	// Directory holding persistent segment files. Ignored when
	// PersistSegments is false.
	//
	// Default: "flint_data"
	DataDir string `json:"dataDir"`

	// Filename prefix for segment files.
	// Final filename will be: `prefix_segmentId_timestamp.dat`
	//
	// Default: "segment"
	SegmentPrefix string `json:"segmentPrefix"`
}

// OptionFunc is a function type that modifies the store's configuration.
type OptionFunc func(*Options)

// WithMaxInMemorySize sets the memtable capacity trigger.
func WithMaxInMemorySize(size int) OptionFunc {
	return func(o *Options) {
		if size > 0 {
			o.MaxInMemorySize = size
		}
	}
}

// WithSegmentSize sets the maximum number of entries per segment file.
func WithSegmentSize(size int) OptionFunc {
	return func(o *Options) {
		if size > 0 {
			o.SegmentSize = size
		}
	}
}

// WithSparseOffset sets the sparse-index sampling period.
func WithSparseOffset(offset int) OptionFunc {
	return func(o *Options) {
		if offset > 0 {
			o.SparseOffset = offset
		}
	}
}

// WithMergeThreshold sets the segment count that triggers compaction.
func WithMergeThreshold(threshold int) OptionFunc {
	return func(o *Options) {
		if threshold > 0 {
			o.MergeThreshold = threshold
		}
	}
}

// WithPersistSegments controls whether segment files outlive the instance.
func WithPersistSegments(persist bool) OptionFunc {
	return func(o *Options) {
		o.PersistSegments = persist
	}
}

// WithDataDir sets the directory for persistent segment files. Setting a data
// directory implies persistence.
func WithDataDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.DataDir = directory
			o.PersistSegments = true
		}
	}
}

// WithSegmentPrefix sets the file name prefix for segment files.
func WithSegmentPrefix(prefix string) OptionFunc {
	return func(o *Options) {
		prefix = strings.TrimSpace(prefix)
		if prefix != "" {
			o.SegmentPrefix = prefix
		}
	}
}
