package susp

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRockRidgeRoundTrip(t *testing.T) {
	tf := Timestamps{
		Creation:     time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Modification: time.Date(2024, 6, 7, 8, 9, 10, 0, time.UTC),
		Access:       time.Date(2024, 6, 7, 8, 9, 10, 0, time.UTC),
	}
	px := PosixEntry{Mode: 0o100644, Links: 1, UID: 1000, GID: 1000}
	e := NewRockRidgeOverlay("a-long-case-preserving-name.txt", px, tf)

	raw, err := e.Marshal(0)
	require.NoError(t, err)

	decoded, err := Parse(raw, nil)
	require.NoError(t, err)
	require.NotNil(t, decoded)
	assert.Equal(t, "a-long-case-preserving-name.txt", decoded.Name())
	require.NotNil(t, decoded.Posix())
	assert.Equal(t, uint32(1000), decoded.Posix().UID)
	assert.True(t, decoded.Posix().Mode&os.ModeDir == 0)
	require.NotNil(t, decoded.TF)
	assert.Equal(t, 2024, decoded.TF.Creation.Year())
}

func TestRockRidgeLongNameSplitsAcrossEntries(t *testing.T) {
	longName := make([]byte, 400)
	for i := range longName {
		longName[i] = 'a'
	}
	e := &Entries{}
	e.SetName(string(longName))
	raw, err := e.Marshal(0)
	require.NoError(t, err)

	decoded, err := Parse(raw, nil)
	require.NoError(t, err)
	assert.Equal(t, string(longName), decoded.Name())
}

func TestSymlinkRoundTrip(t *testing.T) {
	e := &Entries{SL: []SymlinkComponent{
		{Parent: true},
		{Name: "usr"},
		{Name: "bin"},
	}}
	raw, err := e.Marshal(0)
	require.NoError(t, err)

	decoded, err := Parse(raw, nil)
	require.NoError(t, err)
	require.Len(t, decoded.SL, 3)
	assert.True(t, decoded.SL[0].Parent)
	assert.Equal(t, "usr", decoded.SL[1].Name)
	assert.Equal(t, "bin", decoded.SL[2].Name)
}

func TestExtensionRecordRoundTrip(t *testing.T) {
	er := DefaultExtensionRecord()
	e := &Entries{Extension: &er}
	raw, err := e.Marshal(0)
	require.NoError(t, err)

	decoded, err := Parse(raw, nil)
	require.NoError(t, err)
	require.NotNil(t, decoded.Extension)
	assert.Equal(t, RockRidgeIdentifier, decoded.Extension.Identifier)
}

func TestRelocationLinks(t *testing.T) {
	childExtent := uint32(42)
	e := &Entries{ChildLink: &childExtent}
	raw, err := e.Marshal(0)
	require.NoError(t, err)
	decoded, err := Parse(raw, nil)
	require.NoError(t, err)
	require.NotNil(t, decoded.ChildLink)
	assert.Equal(t, childExtent, *decoded.ChildLink)

	parentExtent := uint32(7)
	re := &Entries{ParentLink: &parentExtent, Relocated: true}
	raw2, err := re.Marshal(0)
	require.NoError(t, err)
	decoded2, err := Parse(raw2, nil)
	require.NoError(t, err)
	assert.True(t, decoded2.Relocated)
	assert.Equal(t, parentExtent, *decoded2.ParentLink)
}
