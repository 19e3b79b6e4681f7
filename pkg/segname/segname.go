// Package segname provides utilities for naming and discovering segment files.
//
// Filename format: prefix_NNNNN_timestamp.dat
//
// Where:
//   - prefix: a configurable string identifying the file type (e.g., "segment").
//   - NNNNN: a zero-padded 5-digit sequence number (00001, 00002, etc.).
//   - timestamp: a nanosecond-precision Unix timestamp for uniqueness.
//   - .dat: the fixed segment file extension.
//
// Zero-padded IDs with monotonically increasing timestamps make lexicographic
// filename order equal creation order, which is what cold start relies on to
// rank segments oldest to newest.
package segname

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/flintdb/flint/pkg/filesys"
)

// Extension is the file extension shared by all segment files.
const Extension = ".dat"

// GenerateName creates a properly formatted filename for a new segment file.
// %05d zero-pads the ID (00001, 00002, etc.) so lexicographic sorting ranks
// segments by creation order.
func GenerateName(id uint64, prefix string) string {
	return fmt.Sprintf("%s_%05d_%d%s", prefix, id, time.Now().UnixNano(), Extension)
}

// ParseID extracts the sequence ID from a segment filename.
func ParseID(fullPath, prefix string) (uint64, error) {
	_, filename := filepath.Split(fullPath)

	if !strings.HasPrefix(filename, prefix) {
		return 0, fmt.Errorf("filename %s does not start with expected prefix %s", filename, prefix)
	}

	// Strip the prefix and extension, then split the remaining
	// "_ID_timestamp" into its components. The leading underscore yields an
	// empty first element.
	withoutPrefix := strings.TrimPrefix(filename, prefix)
	withoutExtension := strings.TrimSuffix(withoutPrefix, Extension)
	parts := strings.Split(withoutExtension, "_")
	if len(parts) < 3 {
		return 0, fmt.Errorf("filename %s has unexpected format, expected prefix_ID_timestamp%s", filename, Extension)
	}

	id, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse segment ID %q as integer: %w", parts[1], err)
	}

	return id, nil
}

// List returns the paths of all segment files in dir, sorted oldest to newest.
// Sorting lexicographically is correct because segment IDs are zero-padded and
// timestamps are monotonically increasing.
func List(dir string) ([]string, error) {
	pattern := filepath.Join(dir, "*"+Extension)
	files, err := filesys.ReadDir(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to read segment directory with pattern %s: %w", pattern, err)
	}
	slices.Sort(files)
	return files, nil
}

// LatestID returns the highest segment ID present in dir, or 0 if the
// directory holds no segment files. The engine seeds its segment ID counter
// from this so newly created files always sort after existing ones.
func LatestID(dir, prefix string) (uint64, error) {
	files, err := List(dir)
	if err != nil {
		return 0, err
	}

	var latest uint64
	for _, f := range files {
		id, err := ParseID(f, prefix)
		if err != nil {
			// Foreign .dat files without our prefix still load as segments;
			// they just don't advance the ID counter.
			continue
		}
		if id > latest {
			latest = id
		}
	}
	return latest, nil
}
