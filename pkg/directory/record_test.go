package directory

import (
	"os"
	"testing"
	"time"

	"github.com/discforge/iso9660/pkg/susp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddChildSortOrderExtensionFirstThenNameThenVersionDescending(t *testing.T) {
	root := &Record{FileIdentifier: "\x00", FileFlags: FileFlags{Directory: true}}

	for _, id := range []string{"B.TXT;1", "A.TXT;2", "A.TXT;1", "A.DAT;1"} {
		root.AddChild(&Record{FileIdentifier: id})
	}

	var order []string
	for _, c := range root.Children {
		order = append(order, c.FileIdentifier)
	}
	assert.Equal(t, []string{"A.DAT;1", "A.TXT;2", "A.TXT;1", "B.TXT;1"}, order)
}

func TestAddChildLeavesDotAndDotDotInPlace(t *testing.T) {
	root := &Record{FileIdentifier: "\x00", FileFlags: FileFlags{Directory: true}}
	root.Children = []*Record{
		{FileIdentifier: "\x00"},
		{FileIdentifier: "\x01"},
	}

	root.AddChild(&Record{FileIdentifier: "FOO.;1"})

	require.Len(t, root.Children, 3)
	assert.True(t, root.Children[0].IsDot())
	assert.True(t, root.Children[1].IsDotDot())
	assert.Equal(t, "FOO.;1", root.Children[2].FileIdentifier)
}

func TestRemoveChildSkipsSentinels(t *testing.T) {
	root := &Record{FileIdentifier: "\x00", FileFlags: FileFlags{Directory: true}}
	root.Children = []*Record{
		{FileIdentifier: "\x00"},
		{FileIdentifier: "\x01"},
		{FileIdentifier: "FOO.;1"},
	}

	assert.True(t, root.RemoveChild("FOO.;1"))
	assert.Len(t, root.Children, 2)
	assert.False(t, root.RemoveChild("\x00"))
	assert.Len(t, root.Children, 2)
}

func TestExtentPrefersPendingOverOriginal(t *testing.T) {
	r := &Record{OriginalExtent: 10}
	assert.Equal(t, uint32(10), r.Extent())

	r.SetExtent(42)
	assert.Equal(t, uint32(42), r.Extent())
}

func TestBestNamePrefersRockRidgeWhenEnabled(t *testing.T) {
	r := &Record{FileIdentifier: "FOO.;1"}
	r.RockRidge = susp.NewRockRidgeOverlay("foo.txt", susp.PosixEntry{Mode: 0o644}, susp.Timestamps{})

	assert.Equal(t, "FOO.;1", r.BestName(false))
	assert.Equal(t, "foo.txt", r.BestName(true))
}

func TestBestNameSentinelsAlwaysDotOrDotDot(t *testing.T) {
	dot := &Record{FileIdentifier: "\x00"}
	dotdot := &Record{FileIdentifier: "\x01"}
	assert.Equal(t, ".", dot.BestName(true))
	assert.Equal(t, "..", dotdot.BestName(true))
}

func TestPermissionsDefaultsByKind(t *testing.T) {
	file := &Record{FileFlags: FileFlags{Directory: false}}
	dir := &Record{FileFlags: FileFlags{Directory: true}}
	assert.Equal(t, os.FileMode(0o644), file.Permissions(false))
	assert.Equal(t, os.FileMode(0o755), dir.Permissions(false))
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	r := &Record{
		FileIdentifier:       "FOO.;1",
		FileFlags:            FileFlags{Directory: false},
		RecordingDateAndTime: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		VolumeSequenceNumber: 1,
	}
	r.SetExtent(100)
	r.SetDataLength(4)

	data, err := r.Marshal()
	require.NoError(t, err)

	got, err := Unmarshal(data, false)
	require.NoError(t, err)
	assert.Equal(t, "FOO.;1", got.FileIdentifier)
	assert.Equal(t, uint32(100), got.Extent())
	assert.Equal(t, uint32(4), got.DataLength())
}

func TestUnmarshalRejectsTruncatedData(t *testing.T) {
	_, err := Unmarshal([]byte{50}, false)
	assert.Error(t, err)
}
