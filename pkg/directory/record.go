// Package directory implements the ECMA-119 Directory Record (component D):
// parsing, emission, and the in-memory tree of children that backs both the
// primary and Joliet hierarchies.
package directory

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/discforge/iso9660/pkg/consts"
	"github.com/discforge/iso9660/pkg/encoding"
	"github.com/discforge/iso9660/pkg/logging"
	"github.com/discforge/iso9660/pkg/susp"
)

// Record is one on-disk Directory Record plus the in-memory tree linkage
// needed to walk and re-serialize the hierarchy it belongs to. A Record
// acts as its own non-owning handle: parent/". .."/Rock-Ridge back
// references are plain pointers into the tree the Image owns, not a
// separately indexed arena — Go's garbage collector already makes that
// safe, so introducing an index layer on top would only add bookkeeping.
type Record struct {
	LengthOfDirectoryRecord       uint8
	ExtendedAttributeRecordLength uint8

	// OriginalExtent is the extent this record had when parsed (zero for
	// a freshly constructed record). PendingExtent is set by the
	// allocator; Extent() prefers it.
	OriginalExtent uint32
	PendingExtent  *uint32

	OriginalDataLength uint32
	PendingDataLength  *uint32

	RecordingDateAndTime time.Time
	FileFlags             FileFlags
	FileUnitSize          uint8
	InterleaveGapSize     uint8
	VolumeSequenceNumber  uint16
	LengthOfFileIdentifier uint8
	FileIdentifier        string
	SystemUse             []byte

	// RockRidge holds the decoded SUSP/Rock Ridge entries for this
	// record, if any. Encoded back into SystemUse by the allocator once
	// continuation extents are known.
	RockRidge *susp.Entries

	// Joliet marks that this record belongs to the Joliet tree, which
	// changes identifier decoding (UCS-2) and sort order.
	Joliet bool

	// Parent is nil only for the root record.
	Parent   *Record
	Children []*Record

	// PayloadSource backs a newly added file's bytes (nil for records
	// whose payload still lives in the originating image).
	PayloadSource  interface{ ReadAt(p []byte, off int64) (int, error) }
	PayloadReaderAt int64

	Logger *logging.Logger
}

// fileIdentifierBytes returns the on-disk encoding of FileIdentifier: UCS-2
// big-endian for non-sentinel Joliet records, raw ASCII otherwise.
func (r *Record) fileIdentifierBytes() []byte {
	if r.Joliet && !r.IsSpecial() {
		return encoding.EncodeUCS2BigEndian(r.FileIdentifier)
	}
	return []byte(r.FileIdentifier)
}

// SystemUseBudget returns the residual system-use bytes available for this
// record's Rock Ridge annotation: the maximum on-disk record length minus
// the fixed fields and identifier every record carries regardless of Rock
// Ridge. Used by the allocator to decide, ahead of Marshal, whether (and
// how much of) a record's SUSP entries must spill into a continuation area.
func (r *Record) SystemUseBudget() int {
	fiBytes := r.fileIdentifierBytes()
	fixed := 33 + len(fiBytes)
	if len(fiBytes)%2 == 0 {
		fixed++
	}
	budget := consts.MAX_DIRECTORY_RECORD_LENGTH - fixed
	if budget < 0 {
		return 0
	}
	return budget
}

// Extent returns the record's allocated extent: the pending value if the
// allocator has run since the last mutation, else the original.
func (r *Record) Extent() uint32 {
	if r.PendingExtent != nil {
		return *r.PendingExtent
	}
	return r.OriginalExtent
}

// DataLength returns the record's data length, preferring a pending value.
func (r *Record) DataLength() uint32 {
	if r.PendingDataLength != nil {
		return *r.PendingDataLength
	}
	return r.OriginalDataLength
}

// SetExtent stages a new extent for the next write; it does not mutate
// OriginalExtent so a failed write leaves the previous value recoverable.
func (r *Record) SetExtent(extent uint32) { r.PendingExtent = &extent }

// SetDataLength stages a new data length for the next write.
func (r *Record) SetDataLength(length uint32) { r.PendingDataLength = &length }

// IsDirectory reports whether this record names a directory.
func (r *Record) IsDirectory() bool { return r.FileFlags.Directory }

// IsDot reports whether this is the "." sentinel.
func (r *Record) IsDot() bool { return r.FileIdentifier == "\x00" }

// IsDotDot reports whether this is the ".." sentinel.
func (r *Record) IsDotDot() bool { return r.FileIdentifier == "\x01" }

// IsSpecial reports whether this is either sentinel.
func (r *Record) IsSpecial() bool { return r.IsDot() || r.IsDotDot() }

// BestName returns the Rock Ridge alternate name when present and enabled,
// else the raw ISO9660 identifier.
func (r *Record) BestName(rockRidgeEnabled bool) string {
	if r.IsSpecial() {
		if r.IsDot() {
			return "."
		}
		return ".."
	}
	if rockRidgeEnabled && r.RockRidge != nil {
		if nm := r.RockRidge.Name(); nm != "" {
			return nm
		}
	}
	return r.FileIdentifier
}

// Permissions returns the Rock Ridge POSIX mode when present, else a
// directory/file default.
func (r *Record) Permissions(rockRidgeEnabled bool) os.FileMode {
	if rockRidgeEnabled && r.RockRidge != nil {
		if px := r.RockRidge.Posix(); px != nil {
			return px.Mode
		}
	}
	if r.IsDirectory() {
		return 0o755
	}
	return 0o644
}

// AddChild inserts child in sorted position among non-sentinel children;
// "." and ".." always occupy indices 0 and 1.
func (r *Record) AddChild(child *Record) {
	child.Parent = r
	if child.IsDot() || child.IsDotDot() {
		return
	}
	idx := sort.Search(len(r.Children), func(i int) bool {
		if r.Children[i].IsSpecial() {
			return false
		}
		return compareIdentifiers(r.Children[i].FileIdentifier, child.FileIdentifier, r.Joliet) > 0
	})
	r.Children = append(r.Children, nil)
	copy(r.Children[idx+1:], r.Children[idx:])
	r.Children[idx] = child
}

// RemoveChild removes the first non-sentinel child whose FileIdentifier
// equals identifier, and reports whether such a child was found.
func (r *Record) RemoveChild(identifier string) bool {
	for i, c := range r.Children {
		if c.IsSpecial() {
			continue
		}
		if c.FileIdentifier == identifier {
			r.Children = append(r.Children[:i], r.Children[i+1:]...)
			return true
		}
	}
	return false
}

// compareIdentifiers implements the ISO9660 sort order: extension-first,
// then name, then descending version for the primary hierarchy; plain
// UCS-2 byte order for Joliet (identifiers are already decoded to Go
// strings, so byte order over the decoded runes is sufficient here since
// Joliet names carry no version suffix).
func compareIdentifiers(a, b string, joliet bool) int {
	if joliet {
		if a < b {
			return -1
		}
		if a > b {
			return 1
		}
		return 0
	}
	aName, aExt, aVer := splitVersioned(a)
	bName, bExt, bVer := splitVersioned(b)
	if aExt != bExt {
		if aExt < bExt {
			return -1
		}
		return 1
	}
	if aName != bName {
		if aName < bName {
			return -1
		}
		return 1
	}
	// Version descending.
	if aVer != bVer {
		if aVer > bVer {
			return -1
		}
		return 1
	}
	return 0
}

func splitVersioned(id string) (name, ext string, version int) {
	base := id
	for i := 0; i < len(id); i++ {
		if id[i] == ';' {
			base = id[:i]
			fmt.Sscanf(id[i+1:], "%d", &version)
			break
		}
	}
	for i := 0; i < len(base); i++ {
		if base[i] == '.' {
			return base[:i], base[i+1:], version
		}
	}
	return base, "", version
}

// Marshal produces the on-disk byte representation of this single record,
// excluding children. It sets LengthOfDirectoryRecord as a side effect.
func (r *Record) Marshal() ([]byte, error) {
	var buf []byte
	buf = append(buf, 0) // length placeholder
	buf = append(buf, r.ExtendedAttributeRecordLength)

	locBytes := encoding.MarshalBothByteOrders32(r.Extent())
	buf = append(buf, locBytes[:]...)

	dataLenBytes := encoding.MarshalBothByteOrders32(r.DataLength())
	buf = append(buf, dataLenBytes[:]...)

	recTimeBytes, err := encoding.MarshalRecordingDateTime(r.RecordingDateAndTime)
	if err != nil {
		return nil, fmt.Errorf("marshal recording date: %w", err)
	}
	buf = append(buf, recTimeBytes[:]...)

	buf = append(buf, r.FileFlags.Marshal())
	buf = append(buf, r.FileUnitSize)
	buf = append(buf, r.InterleaveGapSize)

	volSeqBytes := encoding.MarshalBothByteOrders16(r.VolumeSequenceNumber)
	buf = append(buf, volSeqBytes[:]...)

	fileIDBytes := r.fileIdentifierBytes()
	fiLen := uint8(len(fileIDBytes))
	buf = append(buf, fiLen)
	buf = append(buf, fileIDBytes...)

	if fiLen%2 == 0 {
		buf = append(buf, 0x00)
	}

	if r.RockRidge != nil {
		budget := consts.MAX_DIRECTORY_RECORD_LENGTH - len(buf)
		su, err := r.RockRidge.Marshal(budget)
		if err != nil {
			return nil, fmt.Errorf("marshal rock ridge system use: %w", err)
		}
		r.SystemUse = su
	}
	buf = append(buf, r.SystemUse...)

	recordLength := uint8(len(buf))
	if recordLength == 0 {
		return nil, fmt.Errorf("record length is zero")
	}
	buf[0] = recordLength
	r.LengthOfDirectoryRecord = recordLength

	return buf, nil
}

// Unmarshal decodes a Record from data, which must contain at least
// LengthOfDirectoryRecord bytes. joliet selects UCS-2 identifier decoding.
func Unmarshal(data []byte, joliet bool) (*Record, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("data too short to contain a directory record")
	}
	r := &Record{Joliet: joliet}
	offset := 0

	recordLength := data[offset]
	r.LengthOfDirectoryRecord = recordLength
	if len(data) < int(recordLength) {
		return nil, fmt.Errorf("data length %d less than record length %d", len(data), recordLength)
	}
	offset++

	r.ExtendedAttributeRecordLength = data[offset]
	offset++

	if offset+8 > int(recordLength) {
		return nil, fmt.Errorf("insufficient data for location of extent")
	}
	var locBytes [8]byte
	copy(locBytes[:], data[offset:offset+8])
	loc, err := encoding.UnmarshalUint32LSBMSB(locBytes)
	if err != nil {
		return nil, fmt.Errorf("unmarshal location of extent: %w", err)
	}
	r.OriginalExtent = loc
	offset += 8

	if offset+8 > int(recordLength) {
		return nil, fmt.Errorf("insufficient data for data length")
	}
	var dataLenBytes [8]byte
	copy(dataLenBytes[:], data[offset:offset+8])
	dataLen, err := encoding.UnmarshalUint32LSBMSB(dataLenBytes)
	if err != nil {
		return nil, fmt.Errorf("unmarshal data length: %w", err)
	}
	r.OriginalDataLength = dataLen
	offset += 8

	if offset+7 > int(recordLength) {
		return nil, fmt.Errorf("insufficient data for recording date")
	}
	var recTimeBytes [7]byte
	copy(recTimeBytes[:], data[offset:offset+7])
	recTime, err := encoding.UnmarshalRecordingDateTime(recTimeBytes)
	if err != nil {
		return nil, fmt.Errorf("unmarshal recording date: %w", err)
	}
	r.RecordingDateAndTime = recTime
	offset += 7

	if offset+1 > int(recordLength) {
		return nil, fmt.Errorf("insufficient data for file flags")
	}
	ff, err := UnmarshalFileFlags(data[offset])
	if err != nil {
		return nil, fmt.Errorf("unmarshal file flags: %w", err)
	}
	r.FileFlags = ff
	offset++

	if offset+1 > int(recordLength) {
		return nil, fmt.Errorf("insufficient data for file unit size")
	}
	r.FileUnitSize = data[offset]
	offset++

	if offset+1 > int(recordLength) {
		return nil, fmt.Errorf("insufficient data for interleave gap size")
	}
	r.InterleaveGapSize = data[offset]
	offset++

	if offset+4 > int(recordLength) {
		return nil, fmt.Errorf("insufficient data for volume sequence number")
	}
	var volSeqBytes [4]byte
	copy(volSeqBytes[:], data[offset:offset+4])
	volSeq, err := encoding.UnmarshalUint16LSBMSB(volSeqBytes)
	if err != nil {
		return nil, fmt.Errorf("unmarshal volume sequence number: %w", err)
	}
	r.VolumeSequenceNumber = volSeq
	offset += 4

	if offset+1 > int(recordLength) {
		return nil, fmt.Errorf("insufficient data for length of file identifier")
	}
	fiLen := int(data[offset])
	r.LengthOfFileIdentifier = uint8(fiLen)
	offset++

	if offset+fiLen > int(recordLength) {
		return nil, fmt.Errorf("insufficient data for file identifier")
	}
	if joliet && fiLen != 1 {
		r.FileIdentifier = encoding.DecodeUCS2BigEndian(data[offset : offset+fiLen])
	} else {
		r.FileIdentifier = string(data[offset : offset+fiLen])
	}
	offset += fiLen

	if fiLen%2 == 0 {
		if offset+1 > int(recordLength) {
			return nil, fmt.Errorf("insufficient data for padding byte")
		}
		if data[offset] != 0x00 {
			return nil, fmt.Errorf("expected padding byte 0x00, got 0x%02X", data[offset])
		}
		offset++
	}

	if offset < int(recordLength) {
		suLen := int(recordLength) - offset
		r.SystemUse = make([]byte, suLen)
		copy(r.SystemUse, data[offset:offset+suLen])
	}

	return r, nil
}
