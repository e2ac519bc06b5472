package encoding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalString(t *testing.T) {
	assert.Equal(t, "hello     ", string(MarshalString("hello", 10)))
	assert.Equal(t, "12345", string(MarshalString("12345", 5)))
	assert.Equal(t, "1234567890", string(MarshalString("1234567890ABC", 10)))
}

func TestDualByteOrder32RoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 2048, 0xFFFFFFFF, 123456789} {
		enc := MarshalBothByteOrders32(v)
		got, err := UnmarshalUint32LSBMSB(enc)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestDualByteOrder32Disagreement(t *testing.T) {
	var bad [8]byte
	WriteUint32LE(bad[0:4], 1)
	WriteUint32BE(bad[4:8], 2)
	_, err := UnmarshalUint32LSBMSB(bad)
	assert.Error(t, err)
}

func TestDualByteOrder16RoundTrip(t *testing.T) {
	for _, v := range []uint16{0, 1, 2048, 0xFFFF} {
		enc := MarshalBothByteOrders16(v)
		got, err := UnmarshalUint16LSBMSB(enc)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestVolumeDateTimeUnspecified(t *testing.T) {
	enc, err := MarshalDateTime(time.Time{})
	require.NoError(t, err)
	for i := 0; i < 16; i++ {
		assert.Equal(t, byte('0'), enc[i])
	}
	assert.Equal(t, byte(0), enc[16])

	dec, err := UnmarshalDateTime(enc)
	require.NoError(t, err)
	assert.True(t, dec.IsZero())
}

func TestVolumeDateTimeRoundTrip(t *testing.T) {
	tm := time.Date(2024, time.March, 5, 13, 45, 2, 0, time.UTC)
	enc, err := MarshalDateTime(tm)
	require.NoError(t, err)
	dec, err := UnmarshalDateTime(enc)
	require.NoError(t, err)
	assert.Equal(t, tm.Year(), dec.Year())
	assert.Equal(t, tm.Month(), dec.Month())
	assert.Equal(t, tm.Day(), dec.Day())
	assert.Equal(t, tm.Hour(), dec.Hour())
	assert.Equal(t, tm.Minute(), dec.Minute())
	assert.Equal(t, tm.Second(), dec.Second())
}

func TestRecordingDateTimeRoundTrip(t *testing.T) {
	tm := time.Date(2030, time.December, 31, 23, 59, 58, 0, time.UTC)
	enc, err := MarshalRecordingDateTime(tm)
	require.NoError(t, err)
	dec, err := UnmarshalRecordingDateTime(enc)
	require.NoError(t, err)
	assert.Equal(t, tm.Year(), dec.Year())
	assert.Equal(t, tm.Month(), dec.Month())
	assert.Equal(t, tm.Day(), dec.Day())
	assert.Equal(t, tm.Hour(), dec.Hour())
	assert.Equal(t, tm.Minute(), dec.Minute())
	assert.Equal(t, tm.Second(), dec.Second())
}

func TestRecordingDateTimeYearOutOfRange(t *testing.T) {
	_, err := MarshalRecordingDateTime(time.Date(1899, time.January, 1, 0, 0, 0, 0, time.UTC))
	assert.Error(t, err)
}

func TestUCS2RoundTrip(t *testing.T) {
	s := "HELLO.TXT"
	enc := EncodeUCS2BigEndian(s)
	assert.Equal(t, len(s)*2, len(enc))
	assert.Equal(t, s, DecodeUCS2BigEndian(enc))
}
