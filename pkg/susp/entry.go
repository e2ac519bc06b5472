// Package susp implements the System Use Sharing Protocol (IEEE P1281)
// framing and the Rock Ridge (IEEE P1282) entries carried inside it:
// SP, CE, ER, PX, NM, SL, CL, PL, RE, TF, PN (spec component C).
package susp

import (
	"fmt"
	"io"

	"github.com/discforge/iso9660/pkg/consts"
)

// Signature identifies a SUSP entry's 2-byte type tag.
type Signature string

const (
	SigSP Signature = "SP"
	SigCE Signature = "CE"
	SigPD Signature = "PD"
	SigST Signature = "ST"
	SigER Signature = "ER"
	SigES Signature = "ES"
	SigPX Signature = "PX"
	SigPN Signature = "PN"
	SigSL Signature = "SL"
	SigNM Signature = "NM"
	SigCL Signature = "CL"
	SigPL Signature = "PL"
	SigRE Signature = "RE"
	SigTF Signature = "TF"

	RockRidgeIdentifier = "IEEE_P1282"
	RockRidgeVersion     = 1
)

// rawEntry is one {signature,len,version,payload} SUSP record as read off
// disk, before semantic interpretation.
type rawEntry struct {
	sig     Signature
	version uint8
	data    []byte
}

func (e rawEntry) length() int { return 4 + len(e.data) }

func (e rawEntry) marshal() []byte {
	buf := make([]byte, 4, e.length())
	copy(buf[0:2], e.sig)
	buf[2] = byte(e.length())
	buf[3] = e.version
	buf = append(buf, e.data...)
	return buf
}

// parseRawEntries splits a system-use byte area into raw entries, chasing
// at most one level of CE continuation per visited extent (cycle-guarded).
func parseRawEntries(data []byte, reader io.ReaderAt, visited map[uint32]bool) ([]rawEntry, error) {
	var out []rawEntry

	for offset := 0; offset < len(data); {
		remaining := len(data) - offset
		if remaining < 4 || data[offset] == 0x00 {
			break
		}
		entryLen := int(data[offset+2])
		if entryLen < 4 {
			return nil, fmt.Errorf("susp: invalid entry length %d at offset %d", entryLen, offset)
		}
		if entryLen > remaining {
			return nil, fmt.Errorf("susp: entry length %d exceeds remaining data %d", entryLen, remaining)
		}

		e := rawEntry{
			sig:     Signature(data[offset : offset+2]),
			version: data[offset+3],
			data:    append([]byte(nil), data[offset+4:offset+entryLen]...),
		}

		if e.sig == SigCE {
			ce, err := decodeContinuationEntry(e)
			if err != nil {
				return nil, err
			}
			if reader == nil {
				return nil, fmt.Errorf("susp: CE entry present but no reader to chase it")
			}
			if visited[ce.Extent] {
				return nil, fmt.Errorf("susp: circular CE reference at extent %d", ce.Extent)
			}
			visited[ce.Extent] = true

			buf := make([]byte, ce.Length)
			at := int64(ce.Extent)*int64(consts.ISO9660_SECTOR_SIZE) + int64(ce.Offset)
			if _, err := reader.ReadAt(buf, at); err != nil {
				return nil, fmt.Errorf("susp: read continuation area at %d: %w", at, err)
			}
			chased, err := parseRawEntries(buf, reader, visited)
			if err != nil {
				return nil, fmt.Errorf("susp: parse continuation area: %w", err)
			}
			out = append(out, chased...)
		} else {
			out = append(out, e)
		}

		offset += entryLen
	}

	return out, nil
}
