package options

const (
	// DefaultMaxInMemorySize is the number of distinct keys the memtable holds
	// before a write triggers a flush to a new segment.
	DefaultMaxInMemorySize = 1000

	// DefaultSegmentSize is the maximum number of entries written into a single
	// segment file by a flush or a merge.
	DefaultSegmentSize = 1000

	// DefaultSparseOffset is the sampling period of the per-segment sparse
	// index: every DefaultSparseOffset-th entry's key and byte offset are kept
	// in memory, bounding the scan window of a point lookup.
	DefaultSparseOffset = 100

	// DefaultMergeThreshold is the segment count at which compaction runs,
	// merging all segments into fewer last-write-wins segments.
	DefaultMergeThreshold = 8

	// DefaultDataDir specifies the default directory where segment files are
	// stored when persistence is enabled.
	DefaultDataDir = "flint_data"

	// DefaultSegmentPrefix defines the default prefix for segment file names.
	// A segment file might be named "segment_00001_1678881234567890123.dat".
	DefaultSegmentPrefix = "segment"
)

// Holds the default configuration settings for a flint instance.
var defaultOptions = Options{
	MaxInMemorySize: DefaultMaxInMemorySize,
	SegmentSize:     DefaultSegmentSize,
	SparseOffset:    DefaultSparseOffset,
	MergeThreshold:  DefaultMergeThreshold,
	PersistSegments: true,
	DataDir:         DefaultDataDir,
	SegmentPrefix:   DefaultSegmentPrefix,
}

func NewDefaultOptions() Options {
	return defaultOptions
}
