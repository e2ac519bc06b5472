package susp

import (
	"fmt"

	"github.com/discforge/iso9660/pkg/encoding"
)

// ContinuationRef is the (extent, offset, length) triple of a CE entry.
// Extent/Offset are left unset (zero) on a freshly built Entries until the
// allocator's Rock Ridge continuation packer assigns them — see
// spec 4.C/4.J and the design note on continuation allocation.
type ContinuationRef struct {
	Extent uint32
	Offset uint32
	Length uint32
}

func decodeContinuationEntry(e rawEntry) (ContinuationRef, error) {
	if len(e.data) != 24 {
		return ContinuationRef{}, fmt.Errorf("susp: CE payload length %d, expected 24", len(e.data))
	}
	var extentB, offsetB, lengthB [8]byte
	copy(extentB[:], e.data[0:8])
	copy(offsetB[:], e.data[8:16])
	copy(lengthB[:], e.data[16:24])

	extent, err := encoding.UnmarshalUint32LSBMSB(extentB)
	if err != nil {
		return ContinuationRef{}, fmt.Errorf("susp: CE extent: %w", err)
	}
	offset, err := encoding.UnmarshalUint32LSBMSB(offsetB)
	if err != nil {
		return ContinuationRef{}, fmt.Errorf("susp: CE offset: %w", err)
	}
	length, err := encoding.UnmarshalUint32LSBMSB(lengthB)
	if err != nil {
		return ContinuationRef{}, fmt.Errorf("susp: CE length: %w", err)
	}
	return ContinuationRef{Extent: extent, Offset: offset, Length: length}, nil
}

func (c ContinuationRef) marshal() rawEntry {
	var data [24]byte
	e := encoding.MarshalBothByteOrders32(c.Extent)
	o := encoding.MarshalBothByteOrders32(c.Offset)
	l := encoding.MarshalBothByteOrders32(c.Length)
	copy(data[0:8], e[:])
	copy(data[8:16], o[:])
	copy(data[16:24], l[:])
	return rawEntry{sig: SigCE, version: 1, data: data[:]}
}

// ExtensionRecord describes the extension identified by an ER entry,
// recorded once on the root directory's "." entry.
type ExtensionRecord struct {
	Identifier string
	Descriptor string
	Source     string
	Version    uint8
}

func decodeExtensionRecord(e rawEntry) (ExtensionRecord, error) {
	if len(e.data) < 3 {
		return ExtensionRecord{}, fmt.Errorf("susp: ER payload too short")
	}
	idLen, descLen, srcLen := int(e.data[0]), int(e.data[1]), int(e.data[2])
	need := 4 + idLen + descLen + srcLen
	if len(e.data) < need {
		return ExtensionRecord{}, fmt.Errorf("susp: ER payload length %d, need %d", len(e.data), need)
	}
	off := 4
	id := string(e.data[off : off+idLen])
	off += idLen
	desc := string(e.data[off : off+descLen])
	off += descLen
	src := string(e.data[off : off+srcLen])
	return ExtensionRecord{Identifier: id, Descriptor: desc, Source: src, Version: e.data[3]}, nil
}

func (er ExtensionRecord) marshal() rawEntry {
	data := []byte{byte(len(er.Identifier)), byte(len(er.Descriptor)), byte(len(er.Source)), 1}
	data = append(data, er.Identifier...)
	data = append(data, er.Descriptor...)
	data = append(data, er.Source...)
	return rawEntry{sig: SigER, version: 1, data: data}
}

// DefaultExtensionRecord is the ER this library writes on freshly mastered
// Rock Ridge images.
func DefaultExtensionRecord() ExtensionRecord {
	return ExtensionRecord{
		Identifier: RockRidgeIdentifier,
		Descriptor: "THE ROCK RIDGE INTERCHANGE PROTOCOL PROVIDES SUPPORT FOR POSIX FILE SYSTEM SEMANTICS",
		Source:     "PLEASE CONTACT DISC PUBLISHER FOR SPECIFICATION SOURCE",
	}
}
