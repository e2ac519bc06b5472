package descriptor

import (
	"testing"
	"time"

	"github.com/discforge/iso9660/pkg/directory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rootRecord() *directory.Record {
	return &directory.Record{
		FileIdentifier:       "\x00",
		RecordingDateAndTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		FileFlags:            directory.FileFlags{Directory: true},
	}
}

func TestPrimaryVolumeDescriptorRoundTrip(t *testing.T) {
	pvd := NewPrimaryVolumeDescriptor()
	pvd.Body.VolumeIdentifier = "TESTVOL"
	pvd.Body.VolumeSpaceSize = 100
	pvd.Body.LogicalBlockSize = 2048
	pvd.Body.RootDirectoryRecord = rootRecord()

	data, err := pvd.Marshal()
	require.NoError(t, err)

	decoded := &PrimaryVolumeDescriptor{}
	require.NoError(t, decoded.Unmarshal(data))
	assert.Equal(t, "TESTVOL", decoded.Body.VolumeIdentifier)
	assert.Equal(t, uint32(100), decoded.Body.VolumeSpaceSize)
	assert.False(t, decoded.IsJoliet())
}

func TestJolietEscapeSequenceDetection(t *testing.T) {
	svd := NewJolietSupplementaryVolumeDescriptor()
	assert.True(t, svd.IsJoliet())

	plain := &SupplementaryVolumeDescriptor{}
	assert.False(t, plain.IsJoliet())
}

func TestJolietVolumeDescriptorRoundTrip(t *testing.T) {
	svd := NewJolietSupplementaryVolumeDescriptor()
	svd.Body.VolumeIdentifier = "Joliet Volume"
	svd.Body.RootDirectoryRecord = rootRecord()

	data, err := svd.Marshal()
	require.NoError(t, err)

	decoded := &SupplementaryVolumeDescriptor{}
	require.NoError(t, decoded.Unmarshal(data))
	assert.True(t, decoded.IsJoliet())
	assert.Equal(t, "Joliet Volume", decoded.Body.VolumeIdentifier)
}

func TestBootRecordElToritoRoundTrip(t *testing.T) {
	br := NewElToritoBootRecord(25)
	data, err := br.Marshal()
	require.NoError(t, err)

	decoded := &BootRecord{}
	require.NoError(t, decoded.Unmarshal(data))
	assert.True(t, decoded.IsElTorito())
	assert.Equal(t, uint32(25), decoded.BootCatalogExtent())
}

func TestTerminatorRoundTrip(t *testing.T) {
	term := NewTerminator()
	data, err := term.Marshal()
	require.NoError(t, err)

	decoded := &Terminator{}
	require.NoError(t, decoded.Unmarshal(data))
	assert.Equal(t, TypeTerminator, decoded.Type())
}

type memReader [][2048]byte

func (m memReader) ReadAt(p []byte, off int64) (int, error) {
	idx := off / 2048
	if int(idx) >= len(m) {
		return 0, assert.AnError
	}
	copy(p, m[idx][:])
	return len(p), nil
}

func TestParseSetStopsAtTerminator(t *testing.T) {
	pvd := NewPrimaryVolumeDescriptor()
	pvd.Body.RootDirectoryRecord = rootRecord()
	pvdBytes, err := pvd.Marshal()
	require.NoError(t, err)

	term := NewTerminator()
	termBytes, err := term.Marshal()
	require.NoError(t, err)

	reader := make(memReader, 18)
	reader[16] = pvdBytes
	reader[17] = termBytes

	set, err := ParseSet(reader)
	require.NoError(t, err)
	require.NotNil(t, set.Primary)
	assert.Equal(t, uint32(17), set.TerminatorAt)
	assert.Nil(t, set.Joliet)
}

func TestParseSetRejectsMissingPrimary(t *testing.T) {
	term := NewTerminator()
	termBytes, err := term.Marshal()
	require.NoError(t, err)

	reader := make(memReader, 17)
	reader[16] = termBytes

	_, err = ParseSet(reader)
	assert.Error(t, err)
}
