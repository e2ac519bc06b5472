package descriptor

import (
	"fmt"
	"time"

	"github.com/discforge/iso9660/pkg/consts"
	"github.com/discforge/iso9660/pkg/directory"
)

// SupplementaryVolumeDescriptor is a Volume Descriptor Type 2 sector. This
// library writes exactly one, the Joliet SVD, and rejects any image
// carrying more than one on parse (spec: multiple Joliet SVDs are
// Unsupported).
type SupplementaryVolumeDescriptor struct {
	Header
	Body
	VolumeFlags byte
}

// NewJolietSupplementaryVolumeDescriptor builds an empty Joliet SVD with
// its escape sequence preset to UCS-2 Level 3.
func NewJolietSupplementaryVolumeDescriptor() *SupplementaryVolumeDescriptor {
	svd := &SupplementaryVolumeDescriptor{
		Header: Header{
			DescriptorType: TypeSupplementary,
			Identifier:     consts.ISO9660_STD_IDENTIFIER,
			DescVersion:    consts.ISO9660_VOLUME_DESC_VERSION,
		},
		Body: Body{FileStructureVersion: 1},
	}
	copy(svd.Body.EscapeSequences[:3], jolietEscapeUCS2Level3)
	return svd
}

func (svd *SupplementaryVolumeDescriptor) Type() Type { return svd.Header.DescriptorType }

func (svd *SupplementaryVolumeDescriptor) RootDirectory() *directory.Record {
	return svd.Body.RootDirectoryRecord
}

func (svd *SupplementaryVolumeDescriptor) VolumeCreationDateTime() time.Time {
	return svd.Body.VolumeCreationDateAndTime
}

func (svd *SupplementaryVolumeDescriptor) IsJoliet() bool { return svd.Body.IsJoliet() }

func (svd *SupplementaryVolumeDescriptor) Marshal() ([consts.ISO9660_SECTOR_SIZE]byte, error) {
	var out [consts.ISO9660_SECTOR_SIZE]byte
	headerBytes := svd.Header.Marshal()
	copy(out[:7], headerBytes[:])
	bodyBytes, err := svd.Body.Marshal(svd.IsJoliet())
	if err != nil {
		return out, fmt.Errorf("marshal supplementary volume descriptor body: %w", err)
	}
	copy(out[7:], bodyBytes[:])
	return out, nil
}

func (svd *SupplementaryVolumeDescriptor) Unmarshal(data [consts.ISO9660_SECTOR_SIZE]byte) error {
	var headerBytes [consts.ISO9660_VOLUME_DESC_HEADER_SIZE]byte
	copy(headerBytes[:], data[:7])
	if err := svd.Header.Unmarshal(headerBytes); err != nil {
		return fmt.Errorf("unmarshal supplementary volume descriptor header: %w", err)
	}
	if svd.Header.DescriptorType != TypeSupplementary {
		return fmt.Errorf("descriptor: expected type %d, got %d", TypeSupplementary, svd.Header.DescriptorType)
	}
	if err := svd.Body.Unmarshal(data[7:], true); err != nil {
		return fmt.Errorf("unmarshal supplementary volume descriptor body: %w", err)
	}
	if !svd.Body.IsJoliet() {
		return fmt.Errorf("descriptor: unsupported non-Joliet supplementary volume descriptor")
	}
	return nil
}
