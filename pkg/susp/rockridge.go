package susp

import (
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/discforge/iso9660/pkg/encoding"
)

// PosixEntry is a decoded PX entry: POSIX mode, link count, uid, gid, and
// serial number, each a dual-endian 8-byte field.
type PosixEntry struct {
	Mode     os.FileMode
	Links    uint32
	UID      uint32
	GID      uint32
	SerialNo uint32
}

func decodePosixEntry(e rawEntry) (*PosixEntry, error) {
	if len(e.data) < 32 {
		return nil, fmt.Errorf("susp: PX payload length %d, expected >= 32", len(e.data))
	}
	mode, err := dualOrder32(e.data[0:8])
	if err != nil {
		return nil, fmt.Errorf("susp: PX mode: %w", err)
	}
	links, err := dualOrder32(e.data[8:16])
	if err != nil {
		return nil, fmt.Errorf("susp: PX links: %w", err)
	}
	uid, err := dualOrder32(e.data[16:24])
	if err != nil {
		return nil, fmt.Errorf("susp: PX uid: %w", err)
	}
	gid, err := dualOrder32(e.data[24:32])
	if err != nil {
		return nil, fmt.Errorf("susp: PX gid: %w", err)
	}
	var serial uint32
	if len(e.data) >= 40 {
		serial, _ = dualOrder32(e.data[32:40])
	}
	return &PosixEntry{
		Mode:     posixModeToFileMode(mode),
		Links:    links,
		UID:      uid,
		GID:      gid,
		SerialNo: serial,
	}, nil
}

func (p *PosixEntry) marshal() rawEntry {
	data := make([]byte, 40)
	copy(data[0:8], dualBytes32(fileModeToPosixMode(p.Mode)))
	copy(data[8:16], dualBytes32(p.Links))
	copy(data[16:24], dualBytes32(p.UID))
	copy(data[24:32], dualBytes32(p.GID))
	copy(data[32:40], dualBytes32(p.SerialNo))
	return rawEntry{sig: SigPX, version: 1, data: data}
}

func dualOrder32(b []byte) (uint32, error) {
	var arr [8]byte
	copy(arr[:], b)
	return encoding.UnmarshalUint32LSBMSB(arr)
}

func dualBytes32(v uint32) []byte {
	arr := encoding.MarshalBothByteOrders32(v)
	return arr[:]
}

func posixModeToFileMode(mode uint32) os.FileMode {
	var fm os.FileMode
	switch mode & 0xF000 {
	case 0xC000:
		fm |= os.ModeSocket
	case 0xA000:
		fm |= os.ModeSymlink
	case 0x8000:
	case 0x6000:
		fm |= os.ModeDevice
	case 0x2000:
		fm |= os.ModeCharDevice
	case 0x4000:
		fm |= os.ModeDir
	case 0x1000:
		fm |= os.ModeNamedPipe
	}
	fm |= os.FileMode(mode & 0777)
	if mode&0x800 != 0 {
		fm |= os.ModeSetuid
	}
	if mode&0x400 != 0 {
		fm |= os.ModeSetgid
	}
	if mode&0x200 != 0 {
		fm |= os.ModeSticky
	}
	return fm
}

func fileModeToPosixMode(fm os.FileMode) uint32 {
	var mode uint32
	switch {
	case fm&fs.ModeSocket != 0:
		mode |= 0xC000
	case fm&fs.ModeSymlink != 0:
		mode |= 0xA000
	case fm&fs.ModeDevice != 0 && fm&fs.ModeCharDevice == 0:
		mode |= 0x6000
	case fm&fs.ModeCharDevice != 0:
		mode |= 0x2000
	case fm&fs.ModeDir != 0:
		mode |= 0x4000
	case fm&fs.ModeNamedPipe != 0:
		mode |= 0x1000
	default:
		mode |= 0x8000
	}
	mode |= uint32(fm.Perm())
	if fm&os.ModeSetuid != 0 {
		mode |= 0x800
	}
	if fm&os.ModeSetgid != 0 {
		mode |= 0x400
	}
	if fm&os.ModeSticky != 0 {
		mode |= 0x200
	}
	return mode
}

// DeviceNumber is a decoded PN entry (major/minor device numbers).
type DeviceNumber struct {
	High uint32
	Low  uint32
}

func decodeDeviceNumber(e rawEntry) (*DeviceNumber, error) {
	if len(e.data) < 16 {
		return nil, fmt.Errorf("susp: PN payload length %d, expected 16", len(e.data))
	}
	high, err := dualOrder32(e.data[0:8])
	if err != nil {
		return nil, fmt.Errorf("susp: PN high: %w", err)
	}
	low, err := dualOrder32(e.data[8:16])
	if err != nil {
		return nil, fmt.Errorf("susp: PN low: %w", err)
	}
	return &DeviceNumber{High: high, Low: low}, nil
}

func (d *DeviceNumber) marshal() rawEntry {
	data := make([]byte, 16)
	copy(data[0:8], dualBytes32(d.High))
	copy(data[8:16], dualBytes32(d.Low))
	return rawEntry{sig: SigPN, version: 1, data: data}
}

// nameFlag bits for an NM entry.
const (
	nmContinue = 0x01
	nmCurrent  = 0x02
	nmParent   = 0x04
)

// splitNameFragments breaks a long alternate name into <=250-byte NM
// fragments, setting the CONTINUE flag on all but the last.
func splitNameFragments(name string) [][]byte {
	const maxFragment = 250
	if name == "" {
		return [][]byte{{}}
	}
	var frags [][]byte
	b := []byte(name)
	for len(b) > 0 {
		n := len(b)
		if n > maxFragment {
			n = maxFragment
		}
		frags = append(frags, b[:n])
		b = b[n:]
	}
	return frags
}

func marshalNameEntries(name string) []rawEntry {
	frags := splitNameFragments(name)
	entries := make([]rawEntry, 0, len(frags))
	for i, frag := range frags {
		flags := byte(0)
		if i < len(frags)-1 {
			flags |= nmContinue
		}
		data := append([]byte{flags}, frag...)
		entries = append(entries, rawEntry{sig: SigNM, version: 1, data: data})
	}
	return entries
}

func decodeNameEntry(e rawEntry) (fragment string, flags byte, err error) {
	if len(e.data) < 1 {
		return "", 0, fmt.Errorf("susp: NM payload too short")
	}
	return string(e.data[1:]), e.data[0], nil
}

// SymlinkComponent is one path component of an SL entry.
type SymlinkComponent struct {
	Current bool // "."
	Parent  bool // ".."
	Root    bool // "/"
	Name    string
}

const (
	slContinue = 0x01
	slCurrent  = 0x02
	slParent   = 0x04
	slRoot     = 0x08
)

func marshalSymlinkEntries(components []SymlinkComponent) []rawEntry {
	// SUSP-112 5.3: each component is {flags, len, content}. All
	// components that fit in one 255-byte payload share a single SL
	// entry; this module keeps it simple and emits one SL entry per
	// component run, splitting into a new entry only when the payload
	// would exceed 250 bytes.
	var entries []rawEntry
	var payload []byte
	flush := func() {
		if payload != nil {
			entries = append(entries, rawEntry{sig: SigSL, version: 1, data: append([]byte{0}, payload...)})
		}
		payload = []byte{}
	}
	flush()
	for _, c := range components {
		var flags byte
		var name []byte
		switch {
		case c.Current:
			flags = slCurrent
		case c.Parent:
			flags = slParent
		case c.Root:
			flags = slRoot
		default:
			name = []byte(c.Name)
		}
		compLen := len(name)
		if len(payload)+2+compLen > 250 {
			flush()
		}
		payload = append(payload, flags, byte(compLen))
		payload = append(payload, name...)
	}
	if len(payload) > 0 {
		entries = append(entries, rawEntry{sig: SigSL, version: 1, data: append([]byte{0}, payload...)})
	}
	return entries
}

func decodeSymlinkComponents(e rawEntry) ([]SymlinkComponent, error) {
	if len(e.data) < 1 {
		return nil, fmt.Errorf("susp: SL payload too short")
	}
	data := e.data[1:]
	var comps []SymlinkComponent
	for off := 0; off < len(data); {
		if off+2 > len(data) {
			return nil, fmt.Errorf("susp: truncated SL component at offset %d", off)
		}
		flags := data[off]
		n := int(data[off+1])
		off += 2
		if off+n > len(data) {
			return nil, fmt.Errorf("susp: SL component length %d exceeds remaining data", n)
		}
		comps = append(comps, SymlinkComponent{
			Current: flags&slCurrent != 0,
			Parent:  flags&slParent != 0,
			Root:    flags&slRoot != 0,
			Name:    string(data[off : off+n]),
		})
		off += n
	}
	return comps, nil
}

// Timestamps is a decoded TF entry (creation/modification/access, the
// three this module tracks).
type Timestamps struct {
	Creation     time.Time
	Modification time.Time
	Access       time.Time
}

const (
	tfCreation     = 0x01
	tfModification = 0x02
	tfAccess       = 0x04
	tfLongForm     = 0x80
)

func decodeTimestamps(e rawEntry) (*Timestamps, error) {
	if len(e.data) < 1 {
		return nil, fmt.Errorf("susp: TF payload too short")
	}
	flags := e.data[0]
	ts := &Timestamps{}
	off := 1
	read := func() (time.Time, error) {
		if off+7 > len(e.data) {
			return time.Time{}, fmt.Errorf("susp: TF truncated timestamp")
		}
		var b [7]byte
		copy(b[:], e.data[off:off+7])
		off += 7
		return encoding.UnmarshalRecordingDateTime(b)
	}
	if flags&tfCreation != 0 {
		t, err := read()
		if err != nil {
			return nil, err
		}
		ts.Creation = t
	}
	if flags&tfModification != 0 {
		t, err := read()
		if err != nil {
			return nil, err
		}
		ts.Modification = t
	}
	if flags&tfAccess != 0 {
		t, err := read()
		if err != nil {
			return nil, err
		}
		ts.Access = t
	}
	return ts, nil
}

func (t *Timestamps) marshal() rawEntry {
	flags := byte(tfCreation | tfModification | tfAccess)
	data := []byte{flags}
	for _, tm := range []time.Time{t.Creation, t.Modification, t.Access} {
		b, err := encoding.MarshalRecordingDateTime(tm)
		if err != nil {
			b = [7]byte{}
		}
		data = append(data, b[:]...)
	}
	return rawEntry{sig: SigTF, version: 1, data: data}
}
