// Package isohybrid implements the isolinux-style hybrid MBR (component
// H): a 432-byte caller-supplied code prefix plus a CHS partition table
// that lets an El Torito-bootable image also boot from block devices.
package isohybrid

import (
	"encoding/binary"
	"fmt"

	"github.com/discforge/iso9660/pkg/consts"
)

const (
	// PrefixSize is the fixed length of the caller-supplied boot image
	// that becomes the MBR's code prefix.
	PrefixSize = 432

	signatureOffset = 0x40
	mbrSignature    = 0x1234
	probeLen        = 2

	partitionTableEntries = 4
	partitionEntrySize    = 16
)

var bootFileSignature = [4]byte{0xFB, 0xC0, 0x78, 0x70}

// ProbeBytes are the first two bytes of an isohybridized image's system
// area: 0x33 0xED ("xor bp, bp" in real mode), per spec 4.I.
var ProbeBytes = [2]byte{0x33, 0xED}

// PartitionEntry is one 16-byte CHS partition table row.
type PartitionEntry struct {
	Status      byte
	StartHead   byte
	StartSector byte
	StartCyl    byte
	PartType    byte
	EndHead     byte
	EndSector   byte
	EndCyl      byte
	StartLBA    uint32
	SectorCount uint32
}

func (p PartitionEntry) marshal() [partitionEntrySize]byte {
	var b [partitionEntrySize]byte
	b[0] = p.Status
	b[1] = p.StartHead
	b[2] = p.StartSector
	b[3] = p.StartCyl
	b[4] = p.PartType
	b[5] = p.EndHead
	b[6] = p.EndSector
	b[7] = p.EndCyl
	binary.LittleEndian.PutUint32(b[8:12], p.StartLBA)
	binary.LittleEndian.PutUint32(b[12:16], p.SectorCount)
	return b
}

func unmarshalPartitionEntry(b []byte) PartitionEntry {
	return PartitionEntry{
		Status:      b[0],
		StartHead:   b[1],
		StartSector: b[2],
		StartCyl:    b[3],
		PartType:    b[4],
		EndHead:     b[5],
		EndSector:   b[6],
		EndCyl:      b[7],
		StartLBA:    binary.LittleEndian.Uint32(b[8:12]),
		SectorCount: binary.LittleEndian.Uint32(b[12:16]),
	}
}

// chs converts a zero-based LBA to a CHS triple clamped to the classic
// 1024/256/63 addressable range, the way isolinux's own mbr patcher does.
func chs(lba uint32, heads, sectorsPerTrack uint32) (head, sector, cyl byte) {
	if heads == 0 {
		heads = 64
	}
	if sectorsPerTrack == 0 {
		sectorsPerTrack = 32
	}
	cylinder := lba / (heads * sectorsPerTrack)
	head = byte((lba / sectorsPerTrack) % heads)
	sector = byte((lba%sectorsPerTrack)+1) & 0x3F
	if cylinder > 1023 {
		cylinder = 1023
	}
	sector |= byte((cylinder >> 2) & 0xC0)
	cyl = byte(cylinder & 0xFF)
	return
}

// MBR is the decoded isohybrid MBR: the caller's code prefix plus the
// partition table isolinux's isohybrid convention derives from it.
type MBR struct {
	Prefix      [PrefixSize]byte
	BootBlockID uint32
	Partitions  [partitionTableEntries]PartitionEntry
}

// New builds an MBR from a 432-byte boot image, the El Torito initial
// entry's load RBA, and the partition geometry/placement parameters from
// add_isohybrid, validating the boot image's signature and sector count
// preconditions from spec 4.H.
func New(prefix []byte, loadRBA uint32, initialEntrySectorCount uint16, partEntry int, mbrID uint32, partOffset uint32, geometrySectors, geometryHeads uint32, partType byte) (*MBR, error) {
	if len(prefix) != PrefixSize {
		return nil, fmt.Errorf("isohybrid: boot image must be exactly %d bytes, got %d", PrefixSize, len(prefix))
	}
	if initialEntrySectorCount != 4 {
		return nil, fmt.Errorf("isohybrid: El Torito initial entry sector count must be 4, got %d", initialEntrySectorCount)
	}
	if !matchesSignature(prefix) {
		return nil, fmt.Errorf("isohybrid: invalid signature on boot file for iso hybrid")
	}
	if partEntry < 1 || partEntry > partitionTableEntries {
		return nil, fmt.Errorf("isohybrid: partition entry must be in [1,%d], got %d", partitionTableEntries, partEntry)
	}

	m := &MBR{BootBlockID: mbrID}
	copy(m.Prefix[:], prefix)

	startLBA := loadRBA*uint32(consts.ISO9660_SECTOR_SIZE/512) + partOffset
	startHead, startSector, startCyl := chs(startLBA, geometryHeads, geometrySectors)

	m.Partitions[partEntry-1] = PartitionEntry{
		Status:      0x80,
		StartHead:   startHead,
		StartSector: startSector,
		StartCyl:    startCyl,
		PartType:    partType,
		StartLBA:    startLBA,
	}
	return m, nil
}

func matchesSignature(prefix []byte) bool {
	if len(prefix) < signatureOffset+4 {
		return false
	}
	for i, want := range bootFileSignature {
		if prefix[signatureOffset+i] != want {
			return false
		}
	}
	return true
}

// FinalizeSize sets the active partition's sector count from the final
// image size, and returns the tail padding (in bytes) spec 4.H requires
// at the end of the image to round out a whole cylinder.
func (m *MBR) FinalizeSize(partEntry int, imageSizeBytes int64, geometrySectors, geometryHeads uint32) int64 {
	if geometrySectors == 0 {
		geometrySectors = 32
	}
	if geometryHeads == 0 {
		geometryHeads = 64
	}
	cylinderBytes := int64(geometrySectors) * int64(geometryHeads) * 512
	totalSectors := (imageSizeBytes + 511) / 512

	padded := ((imageSizeBytes + cylinderBytes - 1) / cylinderBytes) * cylinderBytes
	pad := padded - imageSizeBytes

	p := &m.Partitions[partEntry-1]
	p.SectorCount = uint32(totalSectors) - p.StartLBA
	endHead, endSector, endCyl := chs(uint32(totalSectors)-1, geometryHeads, geometrySectors)
	p.EndHead, p.EndSector, p.EndCyl = endHead, endSector, endCyl

	return pad
}

// Marshal encodes the MBR as the leading 512-byte sector of the image:
// the 432-byte code prefix, a 4-byte boot-block ID, the 0x1234 signature,
// 2 unused bytes, and the 64-byte CHS partition table.
func (m *MBR) Marshal() ([512]byte, error) {
	var out [512]byte
	copy(out[:PrefixSize], m.Prefix[:])

	binary.LittleEndian.PutUint32(out[432:436], m.BootBlockID)
	binary.LittleEndian.PutUint16(out[436:438], mbrSignature)

	offset := 440
	for _, p := range m.Partitions {
		b := p.marshal()
		copy(out[offset:offset+partitionEntrySize], b[:])
		offset += partitionEntrySize
	}

	return out, nil
}

// Unmarshal decodes a 512-byte leading sector into an MBR, used by the
// image parser after the 0x33 0xED probe succeeds.
func Unmarshal(data []byte) (*MBR, error) {
	if len(data) < 512 {
		return nil, fmt.Errorf("isohybrid: mbr sector must be at least 512 bytes, got %d", len(data))
	}
	m := &MBR{}
	copy(m.Prefix[:], data[:PrefixSize])
	m.BootBlockID = binary.LittleEndian.Uint32(data[432:436])

	sig := binary.LittleEndian.Uint16(data[436:438])
	if sig != mbrSignature {
		return nil, fmt.Errorf("isohybrid: mbr signature 0x%04X, want 0x%04X", sig, mbrSignature)
	}

	offset := 440
	for i := range m.Partitions {
		m.Partitions[i] = unmarshalPartitionEntry(data[offset : offset+partitionEntrySize])
		offset += partitionEntrySize
	}

	return m, nil
}

// Probe reports whether data's first two bytes mark an image as
// isohybridized, per spec 4.I.
func Probe(data []byte) bool {
	return len(data) >= probeLen && data[0] == ProbeBytes[0] && data[1] == ProbeBytes[1]
}
