package image

import (
	"bytes"
	"sync"
	"testing"

	"github.com/discforge/iso9660/pkg/consts"
	"github.com/discforge/iso9660/pkg/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memDisk is a growable in-memory random-access sink/source, standing in
// for the host's byte-sink abstraction spec §1 treats as an external
// collaborator.
type memDisk struct {
	mu   sync.Mutex
	data []byte
}

func (d *memDisk) ReadAt(p []byte, off int64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if off >= int64(len(d.data)) {
		return 0, nil
	}
	n := copy(p, d.data[off:])
	return n, nil
}

func (d *memDisk) WriteAt(p []byte, off int64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	end := off + int64(len(p))
	if end > int64(len(d.data)) {
		grown := make([]byte, end)
		copy(grown, d.data)
		d.data = grown
	}
	copy(d.data[off:end], p)
	return len(p), nil
}

func (d *memDisk) Truncate(size int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if size <= int64(len(d.data)) {
		d.data = d.data[:size]
		return nil
	}
	grown := make([]byte, size)
	copy(grown, d.data)
	d.data = grown
	return nil
}

func TestNofileLayout(t *testing.T) {
	img, err := New(option.WithInterchangeLevel(1))
	require.NoError(t, err)

	assert.Len(t, img.Primary.Body.RootDirectoryRecord.Children, 2)
	assert.True(t, img.Primary.Body.RootDirectoryRecord.Children[0].IsDot())
	assert.True(t, img.Primary.Body.RootDirectoryRecord.Children[1].IsDotDot())

	assert.Equal(t, uint32(19), img.Primary.Body.LocationOfTypeLPathTable)
	assert.Equal(t, uint32(21), img.Primary.Body.LocationOfTypeMPathTable)
	assert.Equal(t, uint32(23), img.Primary.Body.RootDirectoryRecord.Extent())
	assert.Equal(t, uint32(24), img.Primary.Body.VolumeSpaceSize)
}

func TestOneFileLayoutAndRoundTrip(t *testing.T) {
	img, err := New(option.WithInterchangeLevel(1))
	require.NoError(t, err)

	content := []byte("foo\n")
	require.NoError(t, img.AddFile(bytes.NewReader(content), uint32(len(content)), "/FOO.;1", "", ""))

	assert.Equal(t, uint32(24), findPath(img.Primary.Body.RootDirectoryRecord, "/FOO.;1").Extent())

	disk := &memDisk{}
	require.NoError(t, img.Write(disk))
	assert.Equal(t, int64(img.Primary.Body.VolumeSpaceSize)*consts.ISO9660_SECTOR_SIZE, int64(len(disk.data)))

	var out bytes.Buffer
	require.NoError(t, img.GetAndWrite("/FOO.;1", &out, 0))
	assert.Equal(t, content, out.Bytes())

	reopened, err := Open(disk)
	require.NoError(t, err)
	entries, err := reopened.ListDir("/")
	require.NoError(t, err)
	assert.Len(t, entries, 3) // ".", "..", FOO.;1

	var reopenedOut bytes.Buffer
	require.NoError(t, reopened.GetAndWrite("/FOO.;1", &reopenedOut, 512))
	assert.Equal(t, content, reopenedOut.Bytes())
}

func TestOneDirLayout(t *testing.T) {
	img, err := New(option.WithInterchangeLevel(1))
	require.NoError(t, err)

	require.NoError(t, img.AddDirectory("/DIR1", "", ""))

	root := img.Primary.Body.RootDirectoryRecord
	require.Len(t, root.Children, 3)
	assert.Equal(t, "DIR1", root.Children[2].FileIdentifier)

	dir1 := root.Children[2]
	require.Len(t, dir1.Children, 2)
	assert.Equal(t, dir1.Extent(), dir1.Children[0].Extent())  // "." points at self
	assert.Equal(t, root.Extent(), dir1.Children[1].Extent()) // ".." points at parent

	disk := &memDisk{}
	require.NoError(t, img.Write(disk))

	reopened, err := Open(disk)
	require.NoError(t, err)
	entries, err := reopened.ListDir("/DIR1")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestTwoExtentFile(t *testing.T) {
	img, err := New(option.WithInterchangeLevel(1))
	require.NoError(t, err)

	content := bytes.Repeat([]byte("x"), 2049)
	require.NoError(t, img.AddFile(bytes.NewReader(content), uint32(len(content)), "/BIG.;1", "", ""))

	disk := &memDisk{}
	require.NoError(t, img.Write(disk))

	rec := findPath(img.Primary.Body.RootDirectoryRecord, "/BIG.;1")
	require.NotNil(t, rec)
	assert.Equal(t, uint32(2), ceilExtents(rec.DataLength()))

	var out bytes.Buffer
	require.NoError(t, img.GetAndWrite("/BIG.;1", &out, 2048))
	assert.Equal(t, content, out.Bytes())
}

func TestRemoveFileAndDirectory(t *testing.T) {
	img, err := New(option.WithInterchangeLevel(1))
	require.NoError(t, err)

	require.NoError(t, img.AddFile(bytes.NewReader([]byte("a")), 1, "/A.;1", "", ""))
	require.NoError(t, img.AddDirectory("/D1", "", ""))

	require.NoError(t, img.RemoveFile("/A.;1"))
	err = img.GetAndWrite("/A.;1", &bytes.Buffer{}, 0)
	assert.Error(t, err)

	require.NoError(t, img.RemoveDirectory("/D1", ""))
	_, err = img.ListDir("/D1")
	assert.Error(t, err)
}

func TestRemoveNonEmptyDirectoryRejected(t *testing.T) {
	img, err := New(option.WithInterchangeLevel(1))
	require.NoError(t, err)

	require.NoError(t, img.AddDirectory("/D1", "", ""))
	require.NoError(t, img.AddFile(bytes.NewReader([]byte("a")), 1, "/D1/A.;1", "", ""))

	err = img.RemoveDirectory("/D1", "")
	assert.Error(t, err)
}

func TestJolietDualHierarchyPayloadAliasing(t *testing.T) {
	img, err := New(option.WithJoliet(true))
	require.NoError(t, err)

	content := []byte("hello joliet")
	require.NoError(t, img.AddFile(bytes.NewReader(content), uint32(len(content)), "/HELLO.;1", "", "hello.txt"))

	primary := findPath(img.Primary.Body.RootDirectoryRecord, "/HELLO.;1")
	require.NotNil(t, primary)
	joliet := findPath(img.Joliet.Body.RootDirectoryRecord, "/hello.txt")
	require.NotNil(t, joliet)

	assert.Equal(t, primary.Extent(), joliet.Extent())
	assert.Equal(t, primary.DataLength(), joliet.DataLength())
}

func TestCloseResetsToUninitialized(t *testing.T) {
	img, err := New()
	require.NoError(t, err)
	require.NoError(t, img.Close())

	err = img.AddDirectory("/X", "", "")
	assert.Error(t, err)
}

func TestElToritoAndIsohybridRoundTrip(t *testing.T) {
	img, err := New(option.WithInterchangeLevel(1))
	require.NoError(t, err)

	bootImage := bytes.Repeat([]byte{0xAA}, 4*consts.ISO9660_SECTOR_SIZE)
	require.NoError(t, img.AddElTorito(bytes.NewReader(bootImage), uint32(len(bootImage)), "/BOOT.CAT;1", "", "", 4, option.WithBootInfoTable(true)))
	assert.True(t, img.HasElTorito())

	prefix := make([]byte, 432)
	// An isolinux MBR code prefix opens with 0x33 0xED; the writer copies
	// the prefix to the start of the image unchanged.
	prefix[0], prefix[1] = 0x33, 0xED
	copy(prefix[0x40:], []byte{0xFB, 0xC0, 0x78, 0x70})
	require.NoError(t, img.AddIsohybrid(prefix, 1, 0xDEADBEEF, 0, 32, 64, 0x17))
	assert.True(t, img.HasIsohybrid())

	disk := &memDisk{}
	require.NoError(t, img.Write(disk))
	assert.True(t, len(disk.data) > 0)
	assert.Equal(t, byte(0x33), disk.data[0])
	assert.Equal(t, byte(0xED), disk.data[1])

	require.NoError(t, img.RemoveElTorito())
	assert.False(t, img.HasElTorito())
}

func TestDeepDirectoryRelocatesUnderRRMoved(t *testing.T) {
	img, err := New(option.WithInterchangeLevel(1), option.WithRockRidge(true))
	require.NoError(t, err)

	segments := []string{"A", "B", "C", "D", "E", "F", "G"}
	built := ""
	for _, seg := range segments {
		built += "/" + seg
		require.NoError(t, img.AddDirectory(built, seg, ""))
	}

	root := img.Primary.Body.RootDirectoryRecord
	rrMoved := findChild(root, "RR_MOVED")
	require.NotNil(t, rrMoved)
	assert.True(t, rrMoved.IsDirectory())

	relocated := findChild(rrMoved, "G")
	require.NotNil(t, relocated)
	require.NotNil(t, relocated.RockRidge)
	assert.True(t, relocated.RockRidge.Relocated)

	logicalParent := findPath(root, "/A/B/C/D/E/F")
	require.NotNil(t, logicalParent)
	placeholder := findChild(logicalParent, "G")
	require.NotNil(t, placeholder)
	require.NotNil(t, placeholder.RockRidge.ChildLink)
	assert.Equal(t, relocated.Extent(), *placeholder.RockRidge.ChildLink)

	disk := &memDisk{}
	require.NoError(t, img.Write(disk))
}

func TestManyEmptyDirectoriesSpanMultiplePathTableExtents(t *testing.T) {
	img, err := New(option.WithInterchangeLevel(1))
	require.NoError(t, err)

	for i := 0; i < 295; i++ {
		name := "D" + padDigits(i)
		require.NoError(t, img.AddDirectory("/"+name, "", ""))
	}

	assert.Greater(t, img.Primary.Body.LocationOfTypeMPathTable, img.Primary.Body.LocationOfTypeLPathTable)
	assert.Greater(t, img.PrimaryPathTableL.NumExtents(), 1)

	disk := &memDisk{}
	require.NoError(t, img.Write(disk))
	assert.Equal(t, int64(img.Primary.Body.VolumeSpaceSize)*consts.ISO9660_SECTOR_SIZE, int64(len(disk.data)))
}

func padDigits(i int) string {
	const digits = "0123456789"
	out := []byte{digits[(i/100)%10], digits[(i/10)%10], digits[i%10]}
	return string(out)
}

func TestPrintTree(t *testing.T) {
	img, err := New(option.WithInterchangeLevel(1))
	require.NoError(t, err)
	require.NoError(t, img.AddDirectory("/DIR1", "", ""))

	var out bytes.Buffer
	require.NoError(t, img.PrintTree(&out))
	assert.Contains(t, out.String(), "DIR1")
}
