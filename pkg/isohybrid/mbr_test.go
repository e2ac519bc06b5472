package isohybrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPrefix() []byte {
	p := make([]byte, PrefixSize)
	copy(p[signatureOffset:], bootFileSignature[:])
	return p
}

func TestNewRejectsWrongPrefixSize(t *testing.T) {
	_, err := New(make([]byte, 10), 100, 4, 1, 0, 0, 32, 64, 0x17)
	assert.Error(t, err)
}

func TestNewRejectsWrongSectorCount(t *testing.T) {
	_, err := New(validPrefix(), 100, 7, 1, 0, 0, 32, 64, 0x17)
	assert.Error(t, err)
}

func TestNewRejectsBadSignature(t *testing.T) {
	_, err := New(make([]byte, PrefixSize), 100, 4, 1, 0, 0, 32, 64, 0x17)
	assert.Error(t, err)
}

func TestNewComputesStartLBA(t *testing.T) {
	m, err := New(validPrefix(), 100, 4, 1, 0xDEADBEEF, 0, 32, 64, 0x17)
	require.NoError(t, err)
	assert.Equal(t, uint32(400), m.Partitions[0].StartLBA)
	assert.Equal(t, byte(0x80), m.Partitions[0].Status)
	assert.Equal(t, byte(0x17), m.Partitions[0].PartType)
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	m, err := New(validPrefix(), 100, 4, 1, 0x12345678, 0, 32, 64, 0x17)
	require.NoError(t, err)

	out, err := m.Marshal()
	require.NoError(t, err)

	got, err := Unmarshal(out[:])
	require.NoError(t, err)
	assert.Equal(t, m.BootBlockID, got.BootBlockID)
	assert.Equal(t, m.Partitions, got.Partitions)
}

func TestUnmarshalRejectsBadSignature(t *testing.T) {
	data := make([]byte, 512)
	_, err := Unmarshal(data)
	assert.Error(t, err)
}

func TestProbe(t *testing.T) {
	assert.True(t, Probe([]byte{0x33, 0xED, 0x00}))
	assert.False(t, Probe([]byte{0x00, 0x00}))
	assert.False(t, Probe([]byte{0x33}))
}

func TestFinalizeSizeSetsSectorCount(t *testing.T) {
	m, err := New(validPrefix(), 100, 4, 1, 0, 0, 32, 64, 0x17)
	require.NoError(t, err)

	pad := m.FinalizeSize(1, 700*1024, 32, 64)
	assert.GreaterOrEqual(t, pad, int64(0))
	assert.Greater(t, m.Partitions[0].SectorCount, uint32(0))
}
