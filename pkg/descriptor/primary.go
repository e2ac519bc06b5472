package descriptor

import (
	"fmt"
	"time"

	"github.com/discforge/iso9660/pkg/consts"
	"github.com/discforge/iso9660/pkg/directory"
)

// PrimaryVolumeDescriptor is the mandatory, first Volume Descriptor of an
// image: the root of the primary (ISO9660 proper) hierarchy.
type PrimaryVolumeDescriptor struct {
	Header
	Body
}

// NewPrimaryVolumeDescriptor builds an empty PVD with sane identification
// defaults; callers fill in Body fields and RootDirectoryRecord before the
// image is mastered.
func NewPrimaryVolumeDescriptor() *PrimaryVolumeDescriptor {
	return &PrimaryVolumeDescriptor{
		Header: Header{
			DescriptorType: TypePrimary,
			Identifier:     consts.ISO9660_STD_IDENTIFIER,
			DescVersion:    consts.ISO9660_VOLUME_DESC_VERSION,
		},
		Body: Body{FileStructureVersion: 1},
	}
}

func (pvd *PrimaryVolumeDescriptor) Type() Type { return pvd.Header.DescriptorType }

func (pvd *PrimaryVolumeDescriptor) RootDirectory() *directory.Record { return pvd.Body.RootDirectoryRecord }

func (pvd *PrimaryVolumeDescriptor) VolumeCreationDateTime() time.Time {
	return pvd.Body.VolumeCreationDateAndTime
}

// IsJoliet is always false for a PVD.
func (pvd *PrimaryVolumeDescriptor) IsJoliet() bool { return false }

func (pvd *PrimaryVolumeDescriptor) Marshal() ([consts.ISO9660_SECTOR_SIZE]byte, error) {
	var out [consts.ISO9660_SECTOR_SIZE]byte
	headerBytes := pvd.Header.Marshal()
	copy(out[:7], headerBytes[:])
	bodyBytes, err := pvd.Body.Marshal(false)
	if err != nil {
		return out, fmt.Errorf("marshal primary volume descriptor body: %w", err)
	}
	copy(out[7:], bodyBytes[:])
	return out, nil
}

func (pvd *PrimaryVolumeDescriptor) Unmarshal(data [consts.ISO9660_SECTOR_SIZE]byte) error {
	var headerBytes [consts.ISO9660_VOLUME_DESC_HEADER_SIZE]byte
	copy(headerBytes[:], data[:7])
	if err := pvd.Header.Unmarshal(headerBytes); err != nil {
		return fmt.Errorf("unmarshal primary volume descriptor header: %w", err)
	}
	if pvd.Header.DescriptorType != TypePrimary {
		return fmt.Errorf("descriptor: expected type %d, got %d", TypePrimary, pvd.Header.DescriptorType)
	}
	if err := pvd.Body.Unmarshal(data[7:], false); err != nil {
		return fmt.Errorf("unmarshal primary volume descriptor body: %w", err)
	}
	return nil
}
