package pathtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRoundTripLittleEndian(t *testing.T) {
	r := &Record{
		ExtendedAttributeRecordLength: 0,
		LocationOfExtent:              0x00001234,
		ParentDirectoryNumber:         1,
		DirectoryIdentifier:           "DOCS",
	}
	data := r.Marshal(true)
	decoded, n, err := Unmarshal(data, true)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.Equal(t, r.LocationOfExtent, decoded.LocationOfExtent)
	assert.Equal(t, r.ParentDirectoryNumber, decoded.ParentDirectoryNumber)
	assert.Equal(t, r.DirectoryIdentifier, decoded.DirectoryIdentifier)
}

func TestRecordRoundTripBigEndian(t *testing.T) {
	r := &Record{LocationOfExtent: 0x00001234, ParentDirectoryNumber: 2, DirectoryIdentifier: "X"}
	data := r.Marshal(false)
	decoded, _, err := Unmarshal(data, false)
	require.NoError(t, err)
	assert.Equal(t, r.LocationOfExtent, decoded.LocationOfExtent)
}

func TestRecordPadsOddIdentifierLength(t *testing.T) {
	r := &Record{DirectoryIdentifier: "ODD"}
	data := r.Marshal(true)
	assert.Equal(t, 0, len(data)%2)
}

func TestRootRecordUsesNulIdentifier(t *testing.T) {
	r := &Record{DirectoryIdentifier: "\x00"}
	data := r.Marshal(true)
	assert.Equal(t, 10, len(data))
}

func TestParseTableStopsAtSectorPadding(t *testing.T) {
	a := &Record{LocationOfExtent: 20, ParentDirectoryNumber: 1, DirectoryIdentifier: "\x00"}
	b := &Record{LocationOfExtent: 21, ParentDirectoryNumber: 1, DirectoryIdentifier: "SUBDIR"}
	buf := append(a.Marshal(true), b.Marshal(true)...)
	padded := make([]byte, 2048)
	copy(padded, buf)

	table, err := Parse(padded, true)
	require.NoError(t, err)
	require.Len(t, table.Records, 2)
	assert.Equal(t, "SUBDIR", table.Records[1].DirectoryIdentifier)
}

func TestEqualDetectsMismatch(t *testing.T) {
	a := &Table{Records: []*Record{{LocationOfExtent: 1, DirectoryIdentifier: "A"}}}
	b := &Table{Records: []*Record{{LocationOfExtent: 2, DirectoryIdentifier: "A"}}}
	assert.False(t, Equal(a, b))
	b.Records[0].LocationOfExtent = 1
	assert.True(t, Equal(a, b))
}

func TestNumExtents(t *testing.T) {
	table := &Table{Records: []*Record{{DirectoryIdentifier: "\x00"}}}
	assert.Equal(t, 2, table.NumExtents())
}
