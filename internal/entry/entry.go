// Package entry defines the logical record stored in segment files and its
// on-disk encoding.
//
// Each encoded entry is self-framing so a reader can parse a segment
// sequentially without ambiguity:
//
//	+------+-----------+-------------+-----------+-------------+
//	| kind | keyLen u32 | valueLen u32 | key bytes | value bytes |
//	+------+-----------+-------------+-----------+-------------+
//
// kind is a one-byte tag distinguishing live values from tombstones, so a
// deletion marker can never collide with literal value bytes. Lengths are
// little-endian uint32. A tombstone always carries a zero valueLen.
package entry

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Kind tags on disk. A tombstone marks the key as deleted and shadows any
// older value for the same key.
const (
	kindValue     byte = 0
	kindTombstone byte = 1
)

// headerSize is the fixed prefix of every encoded entry:
// one kind byte plus two uint32 length fields.
const headerSize = 1 + 4 + 4

// Entry is one logical record: a key, its value, and whether the record is a
// tombstone. When Tombstone is true the value is semantically absent and
// Value is nil.
type Entry struct {
	Key       []byte
	Value     []byte
	Tombstone bool
}

// NewValue returns a live entry for key.
func NewValue(key, value []byte) Entry {
	return Entry{Key: key, Value: value}
}

// NewTombstone returns a deletion marker for key.
func NewTombstone(key []byte) Entry {
	return Entry{Key: key, Tombstone: true}
}

// EncodedSize returns the number of bytes Encode produces for e. Segment
// construction uses this to track byte offsets while appending.
func (e Entry) EncodedSize() int64 {
	return int64(headerSize + len(e.Key) + len(e.Value))
}

// Encode serializes e to out. The write is buffered by the caller; Encode
// itself performs no seeks, so entries can be appended back to back.
func Encode(out io.Writer, e Entry) error {
	var buf [headerSize]byte
	if e.Tombstone {
		buf[0] = kindTombstone
	} else {
		buf[0] = kindValue
	}
	binary.LittleEndian.PutUint32(buf[1:5], uint32(len(e.Key)))
	binary.LittleEndian.PutUint32(buf[5:9], uint32(len(e.Value)))

	if _, err := out.Write(buf[:]); err != nil {
		return err
	}
	if _, err := out.Write(e.Key); err != nil {
		return err
	}
	if len(e.Value) > 0 {
		if _, err := out.Write(e.Value); err != nil {
			return err
		}
	}
	return nil
}

// Read decodes one entry from r. It returns io.EOF when r is exhausted at an
// entry boundary; a reader that ends mid-entry yields io.ErrUnexpectedEOF.
func Read(r io.Reader) (Entry, error) {
	var buf [headerSize]byte
	if _, err := io.ReadFull(r, buf[:1]); err != nil {
		// Clean EOF at an entry boundary: nothing read at all.
		return Entry{}, err
	}
	if _, err := io.ReadFull(r, buf[1:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Entry{}, err
	}

	kind := buf[0]
	if kind != kindValue && kind != kindTombstone {
		return Entry{}, fmt.Errorf("unknown entry kind tag %#x", kind)
	}

	keyLen := binary.LittleEndian.Uint32(buf[1:5])
	valueLen := binary.LittleEndian.Uint32(buf[5:9])
	if keyLen == 0 {
		return Entry{}, fmt.Errorf("entry with empty key")
	}
	if kind == kindTombstone && valueLen != 0 {
		return Entry{}, fmt.Errorf("tombstone with non-zero value length %d", valueLen)
	}

	e := Entry{Tombstone: kind == kindTombstone}
	e.Key = make([]byte, keyLen)
	if _, err := io.ReadFull(r, e.Key); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Entry{}, err
	}
	if valueLen > 0 {
		e.Value = make([]byte, valueLen)
		if _, err := io.ReadFull(r, e.Value); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return Entry{}, err
		}
	}
	return e, nil
}
