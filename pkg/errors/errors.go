// Package errors provides the structured error types used throughout flint.
//
// The error system is built around a hierarchical structure that starts with a
// foundational baseError and extends into domain-specific error types. This
// keeps error handling consistent across the store while allowing specialized
// context for different failure domains: a validation error knows which field
// failed and what rule was violated, while a storage error knows which segment
// file and byte offset were involved.
//
// Central to the system is a small error-code taxonomy that categorizes
// failures programmatically, so callers and monitoring don't have to parse
// error messages. Errors chain through the standard errors.Is/errors.As
// machinery; the As* and Is* helpers here are conveniences over that.
//
// Key-visibility failures (ErrKeyNotFound, ErrKeyDeleted) sit outside the
// structured hierarchy as plain sentinels, since they are expected outcomes of
// the read path rather than faults.
package errors

import stdErrors "errors"

// IsStorageError determines if an error is related to segment-file operations,
// such as file I/O failures or corrupted segment contents. Storage errors often
// require different handling than other types because they may indicate
// hardware issues or data integrity concerns that need immediate attention.
func IsStorageError(err error) bool {
	var se *StorageError
	return stdErrors.As(err, &se)
}

// IsValidationError checks if the given error is a ValidationError or contains
// one in its error chain.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return stdErrors.As(err, &ve)
}

// AsStorageError safely extracts a StorageError from an error chain, providing
// access to storage-specific context such as the segment ID, file path, and
// byte offset involved in the failure.
func AsStorageError(err error) (*StorageError, bool) {
	var se *StorageError
	if stdErrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// AsValidationError safely extracts a ValidationError from an error chain,
// providing access to which field failed, what rule was violated, and what
// values were provided versus expected.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if stdErrors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
