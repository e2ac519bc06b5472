package descriptor

import (
	"fmt"
	"io"

	"github.com/discforge/iso9660/pkg/consts"
)

// Set is the parsed Volume Descriptor Set: the PVD is mandatory, the
// Joliet SVD and boot records are optional.
type Set struct {
	Primary        *PrimaryVolumeDescriptor
	Joliet         *SupplementaryVolumeDescriptor
	BootRecords    []*BootRecord
	TerminatorAt   uint32
}

// ParseSet reads sequential 2048-byte sectors starting at logical block 16
// (the System Area's end), dispatching each by its header type, and stops
// at the first Terminator it finds. A second Joliet SVD is rejected as
// Unsupported, matching the published restriction on multiple Joliet SVDs.
func ParseSet(r io.ReaderAt) (*Set, error) {
	set := &Set{}
	extent := uint32(16)
	for {
		var sector [consts.ISO9660_SECTOR_SIZE]byte
		off := int64(extent) * consts.ISO9660_SECTOR_SIZE
		if _, err := r.ReadAt(sector[:], off); err != nil {
			return nil, fmt.Errorf("descriptor: read sector at extent %d: %w", extent, err)
		}

		var hdr Header
		var headerBytes [consts.ISO9660_VOLUME_DESC_HEADER_SIZE]byte
		copy(headerBytes[:], sector[:7])
		if err := hdr.Unmarshal(headerBytes); err != nil {
			return nil, fmt.Errorf("descriptor: extent %d: %w", extent, err)
		}

		switch hdr.DescriptorType {
		case TypePrimary:
			if set.Primary != nil {
				return nil, fmt.Errorf("descriptor: unsupported: more than one primary volume descriptor")
			}
			pvd := &PrimaryVolumeDescriptor{}
			if err := pvd.Unmarshal(sector); err != nil {
				return nil, fmt.Errorf("descriptor: parse primary volume descriptor at extent %d: %w", extent, err)
			}
			set.Primary = pvd
		case TypeSupplementary:
			svd := &SupplementaryVolumeDescriptor{}
			if err := svd.Unmarshal(sector); err != nil {
				return nil, fmt.Errorf("descriptor: parse supplementary volume descriptor at extent %d: %w", extent, err)
			}
			if svd.IsJoliet() {
				if set.Joliet != nil {
					return nil, fmt.Errorf("descriptor: unsupported: more than one Joliet supplementary volume descriptor")
				}
				set.Joliet = svd
			}
		case TypeBootRecord:
			br := &BootRecord{}
			if err := br.Unmarshal(sector); err != nil {
				return nil, fmt.Errorf("descriptor: parse boot record at extent %d: %w", extent, err)
			}
			set.BootRecords = append(set.BootRecords, br)
		case TypePartition:
			return nil, fmt.Errorf("descriptor: unsupported: volume partition descriptor at extent %d", extent)
		case TypeTerminator:
			set.TerminatorAt = extent
			if set.Primary == nil {
				return nil, fmt.Errorf("descriptor: volume descriptor set terminated without a primary volume descriptor")
			}
			return set, nil
		default:
			// Reserved descriptor type; skip, per Ecma-119 §8.1.4.
		}

		extent++
	}
}

// Marshal serializes the set back to a sequence of 2048-byte sectors
// starting at logical block 16, in the order PVD, boot records, Joliet
// SVD, terminator.
func (s *Set) Marshal() ([][consts.ISO9660_SECTOR_SIZE]byte, error) {
	var sectors [][consts.ISO9660_SECTOR_SIZE]byte

	if s.Primary == nil {
		return nil, fmt.Errorf("descriptor: cannot marshal a set without a primary volume descriptor")
	}
	pvdBytes, err := s.Primary.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal primary volume descriptor: %w", err)
	}
	sectors = append(sectors, pvdBytes)

	for _, br := range s.BootRecords {
		brBytes, err := br.Marshal()
		if err != nil {
			return nil, fmt.Errorf("marshal boot record: %w", err)
		}
		sectors = append(sectors, brBytes)
	}

	if s.Joliet != nil {
		svdBytes, err := s.Joliet.Marshal()
		if err != nil {
			return nil, fmt.Errorf("marshal supplementary volume descriptor: %w", err)
		}
		sectors = append(sectors, svdBytes)
	}

	term := NewTerminator()
	termBytes, err := term.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal terminator: %w", err)
	}
	sectors = append(sectors, termBytes)

	return sectors, nil
}
