package descriptor

import (
	"fmt"
	"strings"
	"time"

	"github.com/discforge/iso9660/pkg/consts"
	"github.com/discforge/iso9660/pkg/directory"
	"github.com/discforge/iso9660/pkg/encoding"
)

const (
	bodyReservedFieldSize = 653
	bodySize              = 2041
)

// jolietEscapeUCS2Level3 is the escape sequence this library writes when
// mastering a Joliet SVD; it is the widest of the three conforming
// sequences (%/E selects the full UCS-2 Level 3 repertoire).
var jolietEscapeUCS2Level3 = []byte(consts.JOLIET_LEVEL_3_ESCAPE)

var jolietEscapeSequences = [][]byte{
	[]byte(consts.JOLIET_LEVEL_1_ESCAPE),
	[]byte(consts.JOLIET_LEVEL_2_ESCAPE),
	[]byte(consts.JOLIET_LEVEL_3_ESCAPE),
}

// Body is the shared 2041-byte field layout of the Primary and
// Supplementary (Joliet) Volume Descriptors; the two differ only in
// identifier charset and the escape-sequence slot, per Ecma-119 §8.
type Body struct {
	VolumeFlags                 byte
	SystemIdentifier             string
	VolumeIdentifier              string
	VolumeSpaceSize               uint32
	EscapeSequences               [32]byte
	VolumeSetSize                 uint16
	VolumeSequenceNumber          uint16
	LogicalBlockSize              uint16
	PathTableSize                 uint32
	LocationOfTypeLPathTable      uint32
	LocationOfOptionalTypeLPathTable uint32
	LocationOfTypeMPathTable      uint32
	LocationOfOptionalTypeMPathTable uint32
	RootDirectoryRecord           *directory.Record
	VolumeSetIdentifier           string
	PublisherIdentifier           string
	DataPreparerIdentifier        string
	ApplicationIdentifier         string
	CopyrightFileIdentifier       string
	AbstractFileIdentifier        string
	BibliographicFileIdentifier   string
	VolumeCreationDateAndTime     time.Time
	VolumeModificationDateAndTime time.Time
	VolumeExpirationDateAndTime   time.Time
	VolumeEffectiveDateAndTime    time.Time
	FileStructureVersion          uint8
	ApplicationUse                [512]byte
}

// IsJoliet reports whether EscapeSequences names one of the three
// conforming Joliet UCS-2 levels.
func (b *Body) IsJoliet() bool {
	for _, esc := range jolietEscapeSequences {
		if b.EscapeSequences[0] == esc[0] && b.EscapeSequences[1] == esc[1] && b.EscapeSequences[2] == esc[2] {
			return true
		}
	}
	return false
}

// Marshal encodes the body, using UCS-2 big-endian for the d-character
// identifier fields when joliet is set.
func (b *Body) Marshal(joliet bool) ([bodySize]byte, error) {
	var buf [bodySize]byte
	offset := 0

	buf[offset] = 0x00 // unused field 1
	offset++

	copy(buf[offset:offset+32], encoding.MarshalString(b.SystemIdentifier, 32))
	offset += 32

	copy(buf[offset:offset+32], identifierBytes(b.VolumeIdentifier, 32, joliet))
	offset += 32

	offset += 8 // unused field 2

	spaceBytes := encoding.MarshalBothByteOrders32(b.VolumeSpaceSize)
	copy(buf[offset:offset+8], spaceBytes[:])
	offset += 8

	copy(buf[offset:offset+32], b.EscapeSequences[:])
	offset += 32

	setSizeBytes := encoding.MarshalBothByteOrders16(b.VolumeSetSize)
	copy(buf[offset:offset+4], setSizeBytes[:])
	offset += 4

	seqBytes := encoding.MarshalBothByteOrders16(b.VolumeSequenceNumber)
	copy(buf[offset:offset+4], seqBytes[:])
	offset += 4

	blockSizeBytes := encoding.MarshalBothByteOrders16(b.LogicalBlockSize)
	copy(buf[offset:offset+4], blockSizeBytes[:])
	offset += 4

	pathTableSizeBytes := encoding.MarshalBothByteOrders32(b.PathTableSize)
	copy(buf[offset:offset+8], pathTableSizeBytes[:])
	offset += 8

	encoding.WriteUint32LE(buf[offset:offset+4], b.LocationOfTypeLPathTable)
	offset += 4
	encoding.WriteUint32LE(buf[offset:offset+4], b.LocationOfOptionalTypeLPathTable)
	offset += 4
	encoding.WriteUint32BE(buf[offset:offset+4], b.LocationOfTypeMPathTable)
	offset += 4
	encoding.WriteUint32BE(buf[offset:offset+4], b.LocationOfOptionalTypeMPathTable)
	offset += 4

	if b.RootDirectoryRecord == nil {
		return buf, fmt.Errorf("descriptor: missing root directory record")
	}
	rootBytes, err := b.RootDirectoryRecord.Marshal()
	if err != nil {
		return buf, fmt.Errorf("marshal root directory record: %w", err)
	}
	copy(buf[offset:offset+34], rootBytes)
	offset += 34

	copy(buf[offset:offset+128], identifierBytes(b.VolumeSetIdentifier, 128, joliet))
	offset += 128
	copy(buf[offset:offset+128], identifierBytes(b.PublisherIdentifier, 128, joliet))
	offset += 128
	copy(buf[offset:offset+128], identifierBytes(b.DataPreparerIdentifier, 128, joliet))
	offset += 128
	copy(buf[offset:offset+128], identifierBytes(b.ApplicationIdentifier, 128, joliet))
	offset += 128
	copy(buf[offset:offset+37], identifierBytes(b.CopyrightFileIdentifier, 37, joliet))
	offset += 37
	copy(buf[offset:offset+37], identifierBytes(b.AbstractFileIdentifier, 37, joliet))
	offset += 37
	copy(buf[offset:offset+37], identifierBytes(b.BibliographicFileIdentifier, 37, joliet))
	offset += 37

	for _, t := range []time.Time{
		b.VolumeCreationDateAndTime, b.VolumeModificationDateAndTime,
		b.VolumeExpirationDateAndTime, b.VolumeEffectiveDateAndTime,
	} {
		dt, err := encoding.MarshalDateTime(t)
		if err != nil {
			return buf, fmt.Errorf("marshal volume date: %w", err)
		}
		copy(buf[offset:offset+17], dt[:])
		offset += 17
	}

	buf[offset] = b.FileStructureVersion
	offset++
	offset++ // reserved

	copy(buf[offset:offset+512], b.ApplicationUse[:])
	offset += 512

	// remaining bodyReservedFieldSize bytes stay zero.
	return buf, nil
}

// Unmarshal decodes the body from data, which must be at least bodySize
// bytes (the sector minus the 7-byte header); bytes past bodySize are
// ignored.
func (b *Body) Unmarshal(data []byte, joliet bool) error {
	if len(data) < bodySize {
		return fmt.Errorf("descriptor: body data too short: got %d, want %d", len(data), bodySize)
	}
	offset := 1 // skip unused field 1

	b.SystemIdentifier = decodeIdentifier(data[offset:offset+32], joliet)
	offset += 32
	b.VolumeIdentifier = decodeIdentifier(data[offset:offset+32], joliet)
	offset += 32

	offset += 8 // unused field 2

	var spaceBytes [8]byte
	copy(spaceBytes[:], data[offset:offset+8])
	spaceSize, err := encoding.UnmarshalUint32LSBMSB(spaceBytes)
	if err != nil {
		return fmt.Errorf("unmarshal volume space size: %w", err)
	}
	b.VolumeSpaceSize = spaceSize
	offset += 8

	copy(b.EscapeSequences[:], data[offset:offset+32])
	offset += 32

	var setSizeBytes, seqBytes, blockSizeBytes [4]byte
	copy(setSizeBytes[:], data[offset:offset+4])
	b.VolumeSetSize, err = encoding.UnmarshalUint16LSBMSB(setSizeBytes)
	if err != nil {
		return fmt.Errorf("unmarshal volume set size: %w", err)
	}
	offset += 4

	copy(seqBytes[:], data[offset:offset+4])
	b.VolumeSequenceNumber, err = encoding.UnmarshalUint16LSBMSB(seqBytes)
	if err != nil {
		return fmt.Errorf("unmarshal volume sequence number: %w", err)
	}
	offset += 4

	copy(blockSizeBytes[:], data[offset:offset+4])
	b.LogicalBlockSize, err = encoding.UnmarshalUint16LSBMSB(blockSizeBytes)
	if err != nil {
		return fmt.Errorf("unmarshal logical block size: %w", err)
	}
	offset += 4

	var pathTableSizeBytes [8]byte
	copy(pathTableSizeBytes[:], data[offset:offset+8])
	b.PathTableSize, err = encoding.UnmarshalUint32LSBMSB(pathTableSizeBytes)
	if err != nil {
		return fmt.Errorf("unmarshal path table size: %w", err)
	}
	offset += 8

	b.LocationOfTypeLPathTable = leUint32(data[offset : offset+4])
	offset += 4
	b.LocationOfOptionalTypeLPathTable = leUint32(data[offset : offset+4])
	offset += 4
	b.LocationOfTypeMPathTable = beUint32(data[offset : offset+4])
	offset += 4
	b.LocationOfOptionalTypeMPathTable = beUint32(data[offset : offset+4])
	offset += 4

	root, err := directory.Unmarshal(data[offset:offset+34], joliet)
	if err != nil {
		return fmt.Errorf("unmarshal root directory record: %w", err)
	}
	b.RootDirectoryRecord = root
	offset += 34

	b.VolumeSetIdentifier = decodeIdentifier(data[offset:offset+128], joliet)
	offset += 128
	b.PublisherIdentifier = decodeIdentifier(data[offset:offset+128], joliet)
	offset += 128
	b.DataPreparerIdentifier = decodeIdentifier(data[offset:offset+128], joliet)
	offset += 128
	b.ApplicationIdentifier = decodeIdentifier(data[offset:offset+128], joliet)
	offset += 128
	b.CopyrightFileIdentifier = decodeIdentifier(data[offset:offset+37], joliet)
	offset += 37
	b.AbstractFileIdentifier = decodeIdentifier(data[offset:offset+37], joliet)
	offset += 37
	b.BibliographicFileIdentifier = decodeIdentifier(data[offset:offset+37], joliet)
	offset += 37

	dates := make([]*time.Time, 4)
	dates[0] = &b.VolumeCreationDateAndTime
	dates[1] = &b.VolumeModificationDateAndTime
	dates[2] = &b.VolumeExpirationDateAndTime
	dates[3] = &b.VolumeEffectiveDateAndTime
	for _, d := range dates {
		var dt [17]byte
		copy(dt[:], data[offset:offset+17])
		t, err := encoding.UnmarshalDateTime(dt)
		if err != nil {
			return fmt.Errorf("unmarshal volume date: %w", err)
		}
		*d = t
		offset += 17
	}

	b.FileStructureVersion = data[offset]
	offset += 2

	copy(b.ApplicationUse[:], data[offset:offset+512])
	offset += 512

	return nil
}

func identifierBytes(s string, length int, joliet bool) []byte {
	if joliet {
		enc := encoding.EncodeUCS2BigEndian(s)
		out := make([]byte, length)
		n := len(enc)
		if n > length {
			n = length
		}
		copy(out, enc[:n])
		for i := n; i < length; i += 2 {
			out[i], out[i+1] = 0x00, 0x20
		}
		return out
	}
	return encoding.MarshalString(s, length)
}

func decodeIdentifier(b []byte, joliet bool) string {
	if joliet {
		return strings.TrimRight(encoding.DecodeUCS2BigEndian(b), " ")
	}
	return strings.TrimRight(string(b), " ")
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func beUint32(b []byte) uint32 {
	return uint32(b[3]) | uint32(b[2])<<8 | uint32(b[1])<<16 | uint32(b[0])<<24
}
