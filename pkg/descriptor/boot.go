package descriptor

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/discforge/iso9660/pkg/consts"
	"github.com/discforge/iso9660/pkg/helpers"
)

const bootSystemUseSize = consts.ISO9660_SECTOR_SIZE - 71

// ElToritoIdentifier is the Boot System Identifier this library recognizes
// as El Torito, per the El Torito 1.0 specification.
const ElToritoIdentifier = consts.EL_TORITO_BOOT_SYSTEM_ID

// BootRecord is a Volume Descriptor Type 0 sector. Its BootSystemUse area
// holds, for El Torito, the boot catalog's extent as a 4-byte
// little-endian value at offset 0.
type BootRecord struct {
	Header
	BootSystemIdentifier string
	BootIdentifier       string
	BootSystemUse        [bootSystemUseSize]byte
}

// NewElToritoBootRecord builds a Boot Record pointing at catalogExtent.
func NewElToritoBootRecord(catalogExtent uint32) *BootRecord {
	br := &BootRecord{
		Header: Header{
			DescriptorType: TypeBootRecord,
			Identifier:     consts.ISO9660_STD_IDENTIFIER,
			DescVersion:    consts.ISO9660_VOLUME_DESC_VERSION,
		},
		BootSystemIdentifier: ElToritoIdentifier,
	}
	br.SetBootCatalogExtent(catalogExtent)
	return br
}

// IsElTorito reports whether this Boot Record's system identifier names
// El Torito.
func (br *BootRecord) IsElTorito() bool {
	return strings.TrimRight(br.BootSystemIdentifier, " ") == ElToritoIdentifier
}

// BootCatalogExtent reads the El Torito boot catalog pointer out of the
// Boot System Use area.
func (br *BootRecord) BootCatalogExtent() uint32 {
	return binary.LittleEndian.Uint32(br.BootSystemUse[0:4])
}

// SetBootCatalogExtent writes the El Torito boot catalog pointer.
func (br *BootRecord) SetBootCatalogExtent(extent uint32) {
	binary.LittleEndian.PutUint32(br.BootSystemUse[0:4], extent)
}

func (br *BootRecord) Type() Type { return br.Header.DescriptorType }

func (br *BootRecord) Marshal() ([consts.ISO9660_SECTOR_SIZE]byte, error) {
	var out [consts.ISO9660_SECTOR_SIZE]byte
	headerBytes := br.Header.Marshal()
	copy(out[:7], headerBytes[:])
	copy(out[7:39], helpers.PadString(br.BootSystemIdentifier, 32))
	copy(out[39:71], helpers.PadString(br.BootIdentifier, 32))
	copy(out[71:], br.BootSystemUse[:])
	return out, nil
}

func (br *BootRecord) Unmarshal(data [consts.ISO9660_SECTOR_SIZE]byte) error {
	var headerBytes [consts.ISO9660_VOLUME_DESC_HEADER_SIZE]byte
	copy(headerBytes[:], data[:7])
	if err := br.Header.Unmarshal(headerBytes); err != nil {
		return fmt.Errorf("unmarshal boot record header: %w", err)
	}
	if br.Header.DescriptorType != TypeBootRecord {
		return fmt.Errorf("descriptor: expected type %d, got %d", TypeBootRecord, br.Header.DescriptorType)
	}
	br.BootSystemIdentifier = strings.TrimRight(string(data[7:39]), " ")
	br.BootIdentifier = strings.TrimRight(string(data[39:71]), " ")
	copy(br.BootSystemUse[:], data[71:])
	return nil
}
