package descriptor

import (
	"fmt"

	"github.com/discforge/iso9660/pkg/consts"
)

const terminatorReservedSize = consts.ISO9660_SECTOR_SIZE - 7

// Terminator is the Volume Descriptor Set Terminator (type 255) that ends
// the descriptor set; this library's parser stops at the first one it
// sees, per the stated non-goal of tolerating multi-terminator sets.
type Terminator struct {
	Header
}

func NewTerminator() *Terminator {
	return &Terminator{Header: Header{
		DescriptorType: TypeTerminator,
		Identifier:     consts.ISO9660_STD_IDENTIFIER,
		DescVersion:    consts.ISO9660_VOLUME_DESC_VERSION,
	}}
}

func (t *Terminator) Type() Type { return t.Header.DescriptorType }

func (t *Terminator) Marshal() ([consts.ISO9660_SECTOR_SIZE]byte, error) {
	var out [consts.ISO9660_SECTOR_SIZE]byte
	headerBytes := t.Header.Marshal()
	copy(out[:7], headerBytes[:])
	return out, nil
}

func (t *Terminator) Unmarshal(data [consts.ISO9660_SECTOR_SIZE]byte) error {
	var headerBytes [consts.ISO9660_VOLUME_DESC_HEADER_SIZE]byte
	copy(headerBytes[:], data[:7])
	if err := t.Header.Unmarshal(headerBytes); err != nil {
		return fmt.Errorf("unmarshal terminator header: %w", err)
	}
	if t.Header.DescriptorType != TypeTerminator {
		return fmt.Errorf("descriptor: expected type %d, got %d", TypeTerminator, t.Header.DescriptorType)
	}
	return nil
}
