package filesystem

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type byteReader []byte

func (b byteReader) ReadAt(p []byte, off int64) (int, error) {
	return copy(p, b[off:]), nil
}

func TestGetBytesReadsPayloadAtLocation(t *testing.T) {
	payload := []byte("hello world")
	reader := make(byteReader, 2048+len(payload))
	copy(reader[2048:], payload)

	entry := NewEntry("FILE.TXT", "/FILE.TXT", false, uint32(len(payload)), 1, nil, nil, 0o644, time.Time{}, time.Time{}, nil, reader)
	data, err := entry.GetBytes()
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestGetAndWriteStreamsInBlocks(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 5000)
	reader := make(byteReader, len(payload))
	copy(reader, payload)

	entry := NewEntry("BIG.BIN", "/BIG.BIN", false, uint32(len(payload)), 0, nil, nil, 0o644, time.Time{}, time.Time{}, nil, reader)
	var out bytes.Buffer
	require.NoError(t, entry.GetAndWrite(&out, 2048))
	assert.Equal(t, payload, out.Bytes())
}

func TestGetBytesRejectsDirectory(t *testing.T) {
	entry := NewEntry("DIR", "/DIR", true, 0, 0, nil, nil, 0o755, time.Time{}, time.Time{}, nil, nil)
	_, err := entry.GetBytes()
	assert.Error(t, err)
}

func TestGetMD5(t *testing.T) {
	payload := []byte("checksum me")
	reader := make(byteReader, len(payload))
	copy(reader, payload)
	entry := NewEntry("F", "/F", false, uint32(len(payload)), 0, nil, nil, 0o644, time.Time{}, time.Time{}, nil, reader)
	sum, err := entry.GetMD5()
	require.NoError(t, err)
	assert.Len(t, sum, 32)
}
