package susp

import (
	"fmt"
	"io"
	"strings"
)

// Entries is the decoded Rock Ridge/SUSP annotation of one Directory
// Record. Zero value is "no Rock Ridge data".
type Entries struct {
	SkipBytes  *uint8 // SP, root "." only
	Extension  *ExtensionRecord // ER, root "." only
	PX         *PosixEntry
	PN         *DeviceNumber
	nameFrags  []string
	SL         []SymlinkComponent
	TF         *Timestamps

	// ChildLink is set on a relocated directory's placeholder left at
	// its original parent (CL): the extent of the real directory under
	// RR_MOVED.
	ChildLink *uint32
	// ParentLink is set on the real, relocated directory (PL): the
	// extent of its original parent.
	ParentLink *uint32
	// Relocated marks a directory record as the target of a CL (RE).
	Relocated bool

	// continuation, if non-nil, is where overflow entries were (or will
	// be) packed; Extent/Offset are allocator-assigned.
	continuation *ContinuationRef
	// continuationBytes holds the overflow entries' encoded bytes after
	// the most recent Marshal call, for the writer to copy into the
	// continuation area Extent/Offset names.
	continuationBytes []byte
}

// Name returns the reconstructed Rock Ridge alternate name.
func (e *Entries) Name() string {
	if e == nil {
		return ""
	}
	return strings.Join(e.nameFrags, "")
}

// SetName stages the alternate name, splitting into NM fragments on Marshal.
func (e *Entries) SetName(name string) { e.nameFrags = []string{name} }

// Posix returns the decoded PX entry, if any.
func (e *Entries) Posix() *PosixEntry {
	if e == nil {
		return nil
	}
	return e.PX
}

// Parse decodes the Rock Ridge entries found in a directory record's
// system-use area, chasing CE continuations through reader.
func Parse(systemUse []byte, reader io.ReaderAt) (*Entries, error) {
	raws, err := parseRawEntries(systemUse, reader, make(map[uint32]bool))
	if err != nil {
		return nil, err
	}
	if len(raws) == 0 {
		return nil, nil
	}

	e := &Entries{}
	var nameFrags []string
	for _, r := range raws {
		switch r.sig {
		case SigSP:
			if len(r.data) >= 3 {
				v := r.data[2]
				e.SkipBytes = &v
			}
		case SigER:
			er, err := decodeExtensionRecord(r)
			if err != nil {
				return nil, err
			}
			e.Extension = &er
		case SigPX:
			px, err := decodePosixEntry(r)
			if err != nil {
				return nil, err
			}
			e.PX = px
		case SigPN:
			pn, err := decodeDeviceNumber(r)
			if err != nil {
				return nil, err
			}
			e.PN = pn
		case SigNM:
			frag, _, err := decodeNameEntry(r)
			if err != nil {
				return nil, err
			}
			nameFrags = append(nameFrags, frag)
		case SigSL:
			comps, err := decodeSymlinkComponents(r)
			if err != nil {
				return nil, err
			}
			e.SL = append(e.SL, comps...)
		case SigTF:
			tf, err := decodeTimestamps(r)
			if err != nil {
				return nil, err
			}
			e.TF = tf
		case SigCL:
			v, err := dualOrder32(r.data)
			if err != nil {
				return nil, fmt.Errorf("susp: CL extent: %w", err)
			}
			e.ChildLink = &v
		case SigPL:
			v, err := dualOrder32(r.data)
			if err != nil {
				return nil, fmt.Errorf("susp: PL extent: %w", err)
			}
			e.ParentLink = &v
		case SigRE:
			e.Relocated = true
		}
	}
	e.nameFrags = nameFrags
	return e, nil
}

// buildPieces returns every SUSP entry this Entries carries, in the fixed
// order spec 4.C requires (SP first, CE excluded — Marshal appends that
// last, once it knows whether one is needed).
func (e *Entries) buildPieces() []rawEntry {
	var pieces []rawEntry

	if e.SkipBytes != nil {
		data := []byte{0xBE, 0xEF, *e.SkipBytes}
		pieces = append(pieces, rawEntry{sig: SigSP, version: 1, data: data})
	}
	if e.Extension != nil {
		pieces = append(pieces, e.Extension.marshal())
	}
	if e.PX != nil {
		pieces = append(pieces, e.PX.marshal())
	}
	if e.PN != nil {
		pieces = append(pieces, e.PN.marshal())
	}
	if len(e.nameFrags) > 0 {
		pieces = append(pieces, marshalNameEntries(strings.Join(e.nameFrags, ""))...)
	}
	if len(e.SL) > 0 {
		pieces = append(pieces, marshalSymlinkEntries(e.SL)...)
	}
	if e.TF != nil {
		pieces = append(pieces, e.TF.marshal())
	}
	if e.ChildLink != nil {
		pieces = append(pieces, rawEntry{sig: SigCL, version: 1, data: dualBytes32(*e.ChildLink)})
	}
	if e.ParentLink != nil {
		pieces = append(pieces, rawEntry{sig: SigPL, version: 1, data: dualBytes32(*e.ParentLink)})
	}
	if e.Relocated {
		pieces = append(pieces, rawEntry{sig: SigRE, version: 1, data: nil})
	}

	return pieces
}

func sumEntryLengths(pieces []rawEntry) int {
	n := 0
	for _, p := range pieces {
		n += p.length()
	}
	return n
}

// ceEntrySize is the on-disk size of a CE entry: the 4-byte SUSP header
// plus three dual-endian 8-byte extent/offset/length fields.
const ceEntrySize = 4 + 24

// split divides this entry set's pieces, in order, into what fits inline
// within budget bytes (reserving room for a trailing CE if a split is
// needed) and what must overflow into a continuation area. A non-positive
// budget, or pieces that already fit, disables splitting entirely.
func (e *Entries) split(budget int) (inline, overflow []rawEntry) {
	pieces := e.buildPieces()
	if budget <= 0 || sumEntryLengths(pieces) <= budget {
		return pieces, nil
	}

	used := 0
	splitting := false
	for _, p := range pieces {
		if !splitting && used+p.length()+ceEntrySize <= budget {
			inline = append(inline, p)
			used += p.length()
			continue
		}
		splitting = true
		overflow = append(overflow, p)
	}
	return inline, overflow
}

// Marshal encodes the entries back to a system-use byte area, given budget
// bytes of residual system-use space in the owning directory record. Pieces
// that don't fit spill, in order, into the allocator-assigned continuation
// area (see AssignContinuation) behind a trailing CE entry, per spec 4.C.
// A non-positive budget always produces the full inline encoding.
func (e *Entries) Marshal(budget int) ([]byte, error) {
	if e == nil {
		return nil, nil
	}

	inline, overflow := e.split(budget)
	var buf []byte
	for _, p := range inline {
		buf = append(buf, p.marshal()...)
	}

	if len(overflow) == 0 {
		e.continuationBytes = nil
		return buf, nil
	}

	var overflowBuf []byte
	for _, p := range overflow {
		overflowBuf = append(overflowBuf, p.marshal()...)
	}
	e.continuationBytes = overflowBuf

	ref := e.continuation
	if ref == nil {
		// Not yet allocator-assigned: this happens when a directory
		// record's size is estimated ahead of the allocator's
		// continuation-packing pass (see estimateDirectoryDataLength).
		// A CE entry's on-disk size doesn't depend on what it points
		// at, so a zero-valued placeholder sizes identically to the
		// real one; by the time bytes actually reach disk, Reshuffle
		// has run to completion and AssignContinuation has replaced it.
		ref = &ContinuationRef{}
	}
	ref.Length = uint32(len(overflowBuf))
	buf = append(buf, ref.marshal().marshal()...)

	return buf, nil
}

// InlineSize reports the byte size Marshal would produce with no budget
// limit — i.e. with every entry inline and no CE. Used to decide whether a
// continuation is needed at all for a given residual budget.
func (e *Entries) InlineSize() int {
	return sumEntryLengths(e.buildPieces())
}

// OverflowSize reports how many bytes would need a continuation area for
// the given residual system-use budget, without mutating e. Used by the
// allocator to size the continuation-area reservation before Marshal runs.
func (e *Entries) OverflowSize(budget int) int {
	_, overflow := e.split(budget)
	return sumEntryLengths(overflow)
}

// NeedsContinuation reports whether, given budget bytes of residual
// system-use space, this entry set must spill into a CE continuation.
func (e *Entries) NeedsContinuation(budget int) bool {
	return e.InlineSize() > budget
}

// AssignContinuation records the extent/offset/length of the continuation
// area the allocator packed this record's overflow into.
func (e *Entries) AssignContinuation(ref ContinuationRef) { e.continuation = &ref }

// Continuation returns the currently assigned continuation reference, if any.
func (e *Entries) Continuation() *ContinuationRef { return e.continuation }

// ContinuationBytes returns the overflow entries' encoded bytes from the
// most recent Marshal call, for the writer to copy into the continuation
// area named by Continuation. Nil if nothing overflowed.
func (e *Entries) ContinuationBytes() []byte {
	if e == nil {
		return nil
	}
	return e.continuationBytes
}

// NewRockRidgeOverlay builds the PX/TF/NM annotation this library attaches
// to every Rock Ridge record it creates; SP/ER are added separately, only
// on the root "." record, by the image layer.
func NewRockRidgeOverlay(name string, px PosixEntry, tf Timestamps) *Entries {
	e := &Entries{PX: &px, TF: &tf}
	e.SetName(name)
	return e
}
