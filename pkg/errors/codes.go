package errors

// ErrorCode represents a standardized way to categorize different types of errors.
type ErrorCode string

// Base error codes represent the fundamental categories of failures that can
// occur anywhere in the store. These codes provide the foundation layer
// of error classification.
const (
	// ErrorCodeIO represents failures in input/output operations against the
	// filesystem: creating the data directory, writing or renaming segment
	// files during a flush or merge, and reading segment files during lookups
	// or cold start.
	ErrorCodeIO ErrorCode = "IO_ERROR"

	// ErrorCodeInvalidInput represents caller-side errors where the provided
	// data doesn't meet the store's requirements, such as an empty key or a
	// nil configuration. These indicate problems with the request itself
	// rather than system failures.
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// ErrorCodeInternal represents unexpected failures that don't fit into
	// other categories: bugs, assertion failures, or other conditions that
	// shouldn't occur during normal operation.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Storage-specific error codes extend the base taxonomy to the failure modes
// of segment files and their on-disk encoding.
const (
	// ErrorCodeSegmentCorrupted indicates that a segment file's contents could
	// not be decoded: a truncated entry, an impossible length field, or bytes
	// that don't parse as an entry at the expected offset.
	ErrorCodeSegmentCorrupted ErrorCode = "SEGMENT_CORRUPTED"

	// ErrorCodeOrderingViolation indicates that entries were appended to a
	// segment out of key order during construction. Segments must be sorted
	// ascending with unique keys; this code marks the check that guards that
	// invariant.
	ErrorCodeOrderingViolation ErrorCode = "ORDERING_VIOLATION"
)
