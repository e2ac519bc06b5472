// Package pathtable implements the ECMA-119 6.9 Path Table: the flat,
// parent-indexed directory index that exists in parallel little- and
// big-endian copies (spec component E).
package pathtable

import (
	"encoding/binary"
	"fmt"
)

// Record is one row of a path table.
type Record struct {
	LengthOfDirectoryIdentifier   uint8
	ExtendedAttributeRecordLength uint8
	LocationOfExtent              uint32
	ParentDirectoryNumber         uint16
	DirectoryIdentifier           string
}

// Size returns the on-disk size of this record, including its padding byte.
func (r Record) Size() int {
	n := 8 + len(r.DirectoryIdentifier)
	if len(r.DirectoryIdentifier)%2 != 0 {
		n++
	}
	return n
}

// Marshal encodes the record using the given byte order.
func (r *Record) Marshal(littleEndian bool) []byte {
	dirIDBytes := []byte(r.DirectoryIdentifier)
	r.LengthOfDirectoryIdentifier = uint8(len(dirIDBytes))

	buf := make([]byte, r.Size())
	offset := 0
	buf[offset] = r.LengthOfDirectoryIdentifier
	offset++
	buf[offset] = r.ExtendedAttributeRecordLength
	offset++

	order := byteOrder(littleEndian)
	order.PutUint32(buf[offset:], r.LocationOfExtent)
	offset += 4
	order.PutUint16(buf[offset:], r.ParentDirectoryNumber)
	offset += 2

	copy(buf[offset:], dirIDBytes)
	offset += len(dirIDBytes)
	if len(dirIDBytes)%2 != 0 {
		buf[offset] = 0x00
	}
	return buf
}

// Unmarshal decodes a single record from data using the given byte order,
// returning the number of bytes consumed.
func Unmarshal(data []byte, littleEndian bool) (*Record, int, error) {
	if len(data) < 8 {
		return nil, 0, fmt.Errorf("pathtable: data too short to contain a record")
	}
	order := byteOrder(littleEndian)

	r := &Record{}
	offset := 0
	r.LengthOfDirectoryIdentifier = data[offset]
	offset++
	r.ExtendedAttributeRecordLength = data[offset]
	offset++
	r.LocationOfExtent = order.Uint32(data[offset:])
	offset += 4
	r.ParentDirectoryNumber = order.Uint16(data[offset:])
	offset += 2

	n := int(r.LengthOfDirectoryIdentifier)
	if len(data) < offset+n {
		return nil, 0, fmt.Errorf("pathtable: data too short for directory identifier")
	}
	r.DirectoryIdentifier = string(data[offset : offset+n])
	offset += n
	if n%2 != 0 {
		offset++
	}
	return r, offset, nil
}

type order interface {
	PutUint32([]byte, uint32)
	PutUint16([]byte, uint16)
	Uint32([]byte) uint32
	Uint16([]byte) uint16
}

func byteOrder(littleEndian bool) order {
	if littleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// Table is a full path table: an ordered sequence of records, indexed 1-N
// in the order required by ECMA-119 (parent number, then identifier,
// coinciding with BFS pre-order).
type Table struct {
	Records []*Record
}

// Parse decodes size bytes of path table data.
func Parse(data []byte, littleEndian bool) (*Table, error) {
	t := &Table{}
	offset := 0
	for offset < len(data) {
		if data[offset] == 0 {
			break
		}
		rec, n, err := Unmarshal(data[offset:], littleEndian)
		if err != nil {
			return nil, err
		}
		t.Records = append(t.Records, rec)
		offset += n
	}
	return t, nil
}

// Marshal encodes the whole table using the given byte order.
func (t *Table) Marshal(littleEndian bool) []byte {
	var buf []byte
	for _, r := range t.Records {
		buf = append(buf, r.Marshal(littleEndian)...)
	}
	return buf
}

// ByteSize returns the unpadded size in bytes of the table.
func (t *Table) ByteSize() int {
	n := 0
	for _, r := range t.Records {
		n += r.Size()
	}
	return n
}

// NumExtents returns how many 2048-byte extents one copy of this table
// occupies on disk. This must track the allocator's own reservation
// formula (see ceilPathTableExtents in package image) exactly, since
// LocationOfTypeMPathTable - LocationOfTypeLPathTable is defined as
// exactly this many extents: both copies are reserved in 4096-byte
// (two-logical-block) units, doubled.
func (t *Table) NumExtents() int {
	size := t.ByteSize()
	if size == 0 {
		return 0
	}
	return ((size + 4095) / 4096) * 2
}

// Equal reports whether two tables agree field-by-field once endianness is
// normalized away — the little/big endian cross-check spec.md §3 requires.
func Equal(a, b *Table) bool {
	if len(a.Records) != len(b.Records) {
		return false
	}
	for i := range a.Records {
		ra, rb := a.Records[i], b.Records[i]
		if ra.LocationOfExtent != rb.LocationOfExtent ||
			ra.ParentDirectoryNumber != rb.ParentDirectoryNumber ||
			ra.DirectoryIdentifier != rb.DirectoryIdentifier ||
			ra.ExtendedAttributeRecordLength != rb.ExtendedAttributeRecordLength {
			return false
		}
	}
	return true
}
