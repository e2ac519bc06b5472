// Package encoding implements the ECMA-119 numeric and date primitives:
// dual little/big-endian integers (7.2.3, 7.3.3), the 17-byte volume
// descriptor date/time (8.4.26.1), the 7-byte directory record date/time
// (Table 9), and UCS-2 big-endian string conversion used by Joliet.
package encoding

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"
	"unicode/utf16"
)

// MarshalString encodes the given string as a byte array padded with spaces
// to padToLength, truncating if the string is longer.
func MarshalString(s string, padToLength int) []byte {
	if len(s) > padToLength {
		s = s[:padToLength]
	}
	missingPadding := padToLength - len(s)
	s = s + strings.Repeat(" ", missingPadding)
	return []byte(s)
}

// MarshalBothByteOrders32 converts a uint32 value into an 8-byte field that
// encodes the value in both little-endian and big-endian order (7.3.3).
func MarshalBothByteOrders32(val uint32) [8]byte {
	var data [8]byte
	binary.LittleEndian.PutUint32(data[0:4], val)
	binary.BigEndian.PutUint32(data[4:8], val)
	return data
}

// UnmarshalUint32LSBMSB converts an 8-byte dual-endian field (7.3.3) back to
// a uint32, failing if the two halves disagree.
func UnmarshalUint32LSBMSB(data [8]byte) (uint32, error) {
	little := binary.LittleEndian.Uint32(data[0:4])
	big := binary.BigEndian.Uint32(data[4:8])
	if little != big {
		return 0, fmt.Errorf("mismatched both-byte orders: little-endian value %d != big-endian value %d", little, big)
	}
	return little, nil
}

// MarshalBothByteOrders16 converts a uint16 value into a 4-byte field that
// encodes the value in both little-endian and big-endian order (7.2.3).
func MarshalBothByteOrders16(val uint16) [4]byte {
	var data [4]byte
	binary.LittleEndian.PutUint16(data[0:2], val)
	binary.BigEndian.PutUint16(data[2:4], val)
	return data
}

// UnmarshalUint16LSBMSB converts a 4-byte dual-endian field (7.2.3) back to
// a uint16, failing if the two halves disagree.
func UnmarshalUint16LSBMSB(data [4]byte) (uint16, error) {
	little := binary.LittleEndian.Uint16(data[0:2])
	big := binary.BigEndian.Uint16(data[2:4])
	if little != big {
		return 0, fmt.Errorf("mismatched both-byte orders: little-endian value %d != big-endian value %d", little, big)
	}
	return little, nil
}

// WriteUint32LE writes a plain 32-bit little-endian value (7.3.1), used for
// the endianness-specific halves of a path table row.
func WriteUint32LE(dst []byte, v uint32) { binary.LittleEndian.PutUint32(dst, v) }

// WriteUint32BE writes a plain 32-bit big-endian value (7.3.2).
func WriteUint32BE(dst []byte, v uint32) { binary.BigEndian.PutUint32(dst, v) }

// MarshalDateTime converts a time.Time into a 17-byte field following ECMA-119 8.4.26.1.
// The first 16 bytes contain ASCII digits YYYYMMDDhhmmsscc; the 17th byte is
// the time zone offset in 15-minute intervals. The zero time encodes the
// "unspecified" value (16 ASCII '0' plus a zero offset byte).
func MarshalDateTime(t time.Time) ([17]byte, error) {
	var out [17]byte

	if t.IsZero() {
		for i := 0; i < 16; i++ {
			out[i] = '0'
		}
		out[16] = 0
		return out, nil
	}

	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	hundredths := t.Nanosecond() / 10_000_000

	s := fmt.Sprintf("%04d%02d%02d%02d%02d%02d%02d",
		y, int(m), d, hh, mm, ss, hundredths)
	copy(out[:16], s)

	_, offsetSec := t.Zone()
	offset15 := int8(offsetSec / 900)
	if offset15 < -48 || offset15 > 52 {
		return [17]byte{}, fmt.Errorf("offset %d out of ISO9660 bounds", offset15)
	}

	out[16] = byte(offset15)
	return out, nil
}

// UnmarshalDateTime converts a 17-byte ECMA-119 volume date field into a time.Time.
func UnmarshalDateTime(b [17]byte) (time.Time, error) {
	isUnspecified := true
	for i := 0; i < 16; i++ {
		if b[i] != '0' {
			isUnspecified = false
			break
		}
	}
	if isUnspecified && b[16] == 0 {
		return time.Time{}, nil
	}

	dtStr := string(b[:16])
	var year, mon, day, hour, min, sec, hundredths int
	_, err := fmt.Sscanf(dtStr, "%4d%2d%2d%2d%2d%2d%2d",
		&year, &mon, &day, &hour, &min, &sec, &hundredths)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse error: %v", err)
	}
	nsec := hundredths * 10_000_000

	offset15 := int8(b[16])
	if offset15 < -48 || offset15 > 52 {
		return time.Time{}, fmt.Errorf("offset %d out of ISO9660 bounds", offset15)
	}
	offsetSec := int(offset15) * 900

	var loc *time.Location
	if offsetSec == 0 {
		loc = time.UTC
	} else {
		loc = time.FixedZone("", offsetSec)
	}

	return time.Date(year, time.Month(mon), day, hour, min, sec, nsec, loc), nil
}

// MarshalRecordingDateTime converts a time.Time into the 7-byte directory
// record date (Table 9): years since 1900, month, day, hour, minute,
// second, and a 15-minute-interval timezone offset.
func MarshalRecordingDateTime(t time.Time) ([7]byte, error) {
	var b [7]byte
	if t.IsZero() {
		return b, nil
	}

	year, month, day := t.Date()
	hour, minute, second := t.Clock()

	if year < 1900 || year > 2155 {
		return b, fmt.Errorf("year %d out of range for Recording Date and Time (must be between 1900 and 2155)", year)
	}
	b[0] = byte(year - 1900)
	b[1] = byte(month)
	b[2] = byte(day)
	b[3] = byte(hour)
	b[4] = byte(minute)
	b[5] = byte(second)

	_, offsetSec := t.Zone()
	offset15 := int8(offsetSec / (15 * 60))
	if offset15 < -48 || offset15 > 52 {
		return b, fmt.Errorf("time zone offset %d (in 15-minute intervals: %d) is out of allowed range", offsetSec, offset15)
	}
	b[6] = byte(offset15)
	return b, nil
}

// UnmarshalRecordingDateTime converts a 7-byte directory record date into a
// time.Time. An all-zero field means "not specified" and yields the zero time.
func UnmarshalRecordingDateTime(b [7]byte) (time.Time, error) {
	allZero := true
	for _, v := range b {
		if v != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return time.Time{}, nil
	}

	year := int(b[0]) + 1900
	month := time.Month(b[1])
	day := int(b[2])
	hour := int(b[3])
	minute := int(b[4])
	second := int(b[5])
	offset15 := int8(b[6])
	offsetSec := int(offset15) * 15 * 60

	loc := time.FixedZone("ISO9660", offsetSec)
	return time.Date(year, month, day, hour, minute, second, 0, loc), nil
}

// DecodeUCS2BigEndian converts a UCS-2 big-endian byte slice (Joliet names)
// into a Go UTF-8 string.
func DecodeUCS2BigEndian(ucs2 []byte) string {
	if len(ucs2)%2 != 0 {
		return ""
	}

	utf16Slice := make([]uint16, len(ucs2)/2)
	for i := 0; i < len(ucs2)/2; i++ {
		utf16Slice[i] = uint16(ucs2[2*i])<<8 | uint16(ucs2[2*i+1])
	}

	return string(utf16.Decode(utf16Slice))
}

// EncodeUCS2BigEndian converts a Go UTF-8 string into UCS-2 big-endian bytes,
// encoding runes above U+FFFF as UTF-16 surrogate pairs.
func EncodeUCS2BigEndian(s string) []byte {
	runes := []rune(s)
	utf16encoded := utf16.Encode(runes)

	out := make([]byte, 2*len(utf16encoded))
	for i, code := range utf16encoded {
		out[2*i] = byte(code >> 8)
		out[2*i+1] = byte(code & 0xFF)
	}
	return out
}
