// Package descriptor implements the ECMA-119 Volume Descriptor Set
// (component F): Primary and Supplementary (Joliet) Volume Descriptors,
// Boot Record, and the set Terminator. A Volume Partition Descriptor is
// recognised by its type code only; ParseSet rejects it as unsupported.
package descriptor

import (
	"fmt"

	"github.com/discforge/iso9660/pkg/consts"
	"github.com/discforge/iso9660/pkg/helpers"
)

// Type identifies the kind of Volume Descriptor a sector holds.
type Type byte

const (
	TypeBootRecord   Type = 0x00
	TypePrimary      Type = 0x01
	TypeSupplementary Type = 0x02
	TypePartition    Type = 0x03
	TypeTerminator   Type = 0xFF
)

func (t Type) String() string {
	switch t {
	case TypeBootRecord:
		return "Boot Record"
	case TypePrimary:
		return "Primary Volume Descriptor"
	case TypeSupplementary:
		return "Supplementary Volume Descriptor"
	case TypePartition:
		return "Volume Partition Descriptor"
	case TypeTerminator:
		return "Volume Descriptor Set Terminator"
	default:
		return fmt.Sprintf("Unknown Volume Descriptor (0x%X)", byte(t))
	}
}

// Header is the common 7-byte prefix of every Volume Descriptor.
type Header struct {
	DescriptorType Type
	Identifier     string
	DescVersion    uint8
}

func (h Header) Marshal() [consts.ISO9660_VOLUME_DESC_HEADER_SIZE]byte {
	var buf [consts.ISO9660_VOLUME_DESC_HEADER_SIZE]byte
	buf[0] = byte(h.DescriptorType)
	copy(buf[1:6], helpers.PadString(h.Identifier, 5))
	buf[6] = h.DescVersion
	return buf
}

func (h *Header) Unmarshal(data [consts.ISO9660_VOLUME_DESC_HEADER_SIZE]byte) error {
	h.DescriptorType = Type(data[0])
	h.Identifier = string(data[1:6])
	h.DescVersion = data[6]
	if h.Identifier != consts.ISO9660_STD_IDENTIFIER {
		return fmt.Errorf("descriptor: unexpected standard identifier %q", h.Identifier)
	}
	return nil
}
