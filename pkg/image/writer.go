package image

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/discforge/iso9660/pkg/consts"
	"github.com/discforge/iso9660/pkg/descriptor"
	"github.com/discforge/iso9660/pkg/directory"
	"github.com/discforge/iso9660/pkg/isoerr"
	"github.com/discforge/iso9660/pkg/option"
	"github.com/discforge/iso9660/pkg/pathtable"
)

// Write serializes the image to sink, which must support random-access
// writes (component K). Reshuffle must have been run since the last
// mutation; Write calls it once more defensively so a caller can mutate
// then write without an explicit Reshuffle call.
func (img *Image) Write(sink io.WriterAt, opts ...option.WriteOption) error {
	if err := img.requireInitialized(); err != nil {
		return err
	}
	if err := img.Reshuffle(); err != nil {
		return err
	}

	writeOptions := option.DefaultWriteOptions()
	for _, opt := range opts {
		opt(&writeOptions)
	}

	total := int64(img.Primary.Body.VolumeSpaceSize) * consts.ISO9660_SECTOR_SIZE
	var done int64
	report := func() {
		if writeOptions.Progress != nil {
			writeOptions.Progress(int(done), int(total))
		}
	}
	report()

	if img.Isohybrid != nil {
		mbr, err := img.Isohybrid.Marshal()
		if err != nil {
			return fmt.Errorf("image: marshal isohybrid mbr: %w", err)
		}
		if _, err := sink.WriteAt(mbr[:], 0); err != nil {
			return fmt.Errorf("image: write isohybrid mbr: %w", err)
		}
	}

	if err := img.writeDescriptorSet(sink); err != nil {
		return err
	}
	done += extentBytes(img.descriptorSetExtentCount())
	report()

	if err := img.writePathTables(sink); err != nil {
		return err
	}
	done += extentBytes(uint32(img.PrimaryPathTableL.NumExtents() + img.PrimaryPathTableM.NumExtents()))
	report()

	if err := img.writeDirectoryTree(sink, img.Primary.Body.RootDirectoryRecord); err != nil {
		return err
	}
	report()

	if img.RockRidgeEnabled {
		if err := img.writeRockRidgeContinuations(sink); err != nil {
			return err
		}
	}

	if img.Joliet != nil {
		if err := img.writeDirectoryTree(sink, img.Joliet.Body.RootDirectoryRecord); err != nil {
			return err
		}
		report()
	}

	if img.ElTorito != nil {
		catalogData, err := img.ElTorito.Marshal()
		if err != nil {
			return fmt.Errorf("image: marshal el torito catalog: %w", err)
		}
		if _, err := sink.WriteAt(catalogData, int64(img.elToritoCatalogRecord.Extent())*consts.ISO9660_SECTOR_SIZE); err != nil {
			return fmt.Errorf("image: write el torito catalog: %w", err)
		}
	}

	tick := func() {
		done += int64(writeOptions.BlockSize)
		if done > total {
			done = total
		}
		report()
	}
	if err := img.writeFilePayloads(sink, writeOptions.BlockSize, tick); err != nil {
		return err
	}

	if img.elToritoBootInfoTable && img.elToritoInitialRecord != nil {
		if err := img.patchBootInfoTable(sink); err != nil {
			return err
		}
	}

	if tw, ok := sink.(interface{ Truncate(int64) error }); ok {
		if err := tw.Truncate(total); err != nil {
			return fmt.Errorf("image: truncate to space size: %w", err)
		}
	}

	if img.Isohybrid != nil {
		tailPad := img.Isohybrid.FinalizeSize(1, total, 32, 64)
		if tailPad > 0 {
			if _, err := sink.WriteAt(make([]byte, 1), total+tailPad-1); err != nil {
				return fmt.Errorf("image: write isohybrid tail padding: %w", err)
			}
		}
	}

	done = total
	report()
	return nil
}

func extentBytes(n uint32) int64 { return int64(n) * consts.ISO9660_SECTOR_SIZE }

// patchBootInfoTable overwrites bytes 8-63 of the boot file's first
// sector with the PVD extent, boot file extent, boot file length, and a
// 32-bit checksum of the remaining sectors, per spec 4.G.
func (img *Image) patchBootInfoTable(sink io.WriterAt) error {
	rec := img.elToritoInitialRecord
	base := int64(rec.Extent()) * consts.ISO9660_SECTOR_SIZE
	length := rec.DataLength()

	var table [56]byte
	binary.LittleEndian.PutUint32(table[0:4], consts.PVD_EXTENT)
	binary.LittleEndian.PutUint32(table[4:8], rec.Extent())
	binary.LittleEndian.PutUint32(table[8:12], length)

	checksum, err := bootInfoTableChecksum(rec, length)
	if err != nil {
		return fmt.Errorf("image: compute boot info table checksum: %w", err)
	}
	binary.LittleEndian.PutUint32(table[12:16], checksum)

	if _, err := sink.WriteAt(table[:], base+8); err != nil {
		return fmt.Errorf("image: patch boot info table: %w", err)
	}
	return nil
}

// bootInfoTableChecksum sums, as little-endian uint32 words modulo 2^32,
// every byte of the boot file from its second sector onward (the first
// sector is excluded because it is what the table itself patches).
func bootInfoTableChecksum(rec *directory.Record, length uint32) (uint32, error) {
	if rec.PayloadSource == nil || length <= consts.ISO9660_SECTOR_SIZE {
		return 0, nil
	}
	remaining := int64(length) - consts.ISO9660_SECTOR_SIZE
	buf := make([]byte, remaining)
	n, err := rec.PayloadSource.ReadAt(buf, rec.PayloadReaderAt+consts.ISO9660_SECTOR_SIZE)
	if err != nil && err != io.EOF {
		return 0, err
	}
	buf = buf[:n]

	var sum uint32
	for len(buf) >= 4 {
		sum += binary.LittleEndian.Uint32(buf[:4])
		buf = buf[4:]
	}
	if len(buf) > 0 {
		var tail [4]byte
		copy(tail[:], buf)
		sum += binary.LittleEndian.Uint32(tail[:])
	}
	return sum, nil
}

func (img *Image) descriptorSetExtentCount() uint32 {
	n := uint32(1 + len(img.BootRecords) + 2) // PVD + boot records + VDST + version descriptor
	if img.Joliet != nil {
		n++
	}
	return n
}

func (img *Image) writeDescriptorSet(sink io.WriterAt) error {
	extent := int64(consts.ISO9660_SYSTEM_AREA_SECTORS)

	if err := writeDescriptorAt(sink, img.Primary, extent); err != nil {
		return err
	}
	extent++

	for _, br := range img.BootRecords {
		if err := writeDescriptorAt(sink, br, extent); err != nil {
			return err
		}
		extent++
	}

	if img.Joliet != nil {
		if err := writeDescriptorAt(sink, img.Joliet, extent); err != nil {
			return err
		}
		extent++
	}

	if err := writeDescriptorAt(sink, descriptor.NewTerminator(), extent); err != nil {
		return err
	}
	extent++

	// Version descriptor: one extent of zeros.
	var zeros [consts.ISO9660_SECTOR_SIZE]byte
	if _, err := sink.WriteAt(zeros[:], extent*consts.ISO9660_SECTOR_SIZE); err != nil {
		return fmt.Errorf("image: write version descriptor: %w", err)
	}

	return nil
}

func writeDescriptorAt(sink io.WriterAt, d descriptor.VolumeDescriptor, extent int64) error {
	data, err := d.Marshal()
	if err != nil {
		return fmt.Errorf("image: marshal descriptor %s: %w", d.Type(), err)
	}
	if _, err := sink.WriteAt(data[:], extent*consts.ISO9660_SECTOR_SIZE); err != nil {
		return fmt.Errorf("image: write descriptor %s: %w", d.Type(), err)
	}
	return nil
}

func (img *Image) writePathTables(sink io.WriterAt) error {
	pvdBFS := directoryBFS(img.Primary.Body.RootDirectoryRecord)
	img.PrimaryPathTableL = buildPathTable(pvdBFS)
	img.PrimaryPathTableM = buildPathTable(pvdBFS)

	if err := writePathTablePair(sink, img.PrimaryPathTableL, int64(img.Primary.Body.LocationOfTypeLPathTable), int64(img.Primary.Body.LocationOfTypeMPathTable)); err != nil {
		return err
	}

	if img.Joliet != nil {
		jolietBFS := directoryBFS(img.Joliet.Body.RootDirectoryRecord)
		img.JolietPathTableL = buildPathTable(jolietBFS)
		img.JolietPathTableM = buildPathTable(jolietBFS)
		if err := writePathTablePair(sink, img.JolietPathTableL, int64(img.Joliet.Body.LocationOfTypeLPathTable), int64(img.Joliet.Body.LocationOfTypeMPathTable)); err != nil {
			return err
		}
	}

	return nil
}

func writePathTablePair(sink io.WriterAt, t *pathtable.Table, leExtent, beExtent int64) error {
	leData := t.Marshal(true)
	if _, err := sink.WriteAt(leData, leExtent*consts.ISO9660_SECTOR_SIZE); err != nil {
		return fmt.Errorf("image: write little-endian path table: %w", err)
	}
	beData := t.Marshal(false)
	if _, err := sink.WriteAt(beData, beExtent*consts.ISO9660_SECTOR_SIZE); err != nil {
		return fmt.Errorf("image: write big-endian path table: %w", err)
	}
	return nil
}

func (img *Image) writeDirectoryTree(sink io.WriterAt, root *directory.Record) error {
	for _, d := range directoryBFS(root) {
		if err := writeOneDirectory(sink, d); err != nil {
			return err
		}
	}
	return nil
}

func writeOneDirectory(sink io.WriterAt, d *directory.Record) error {
	base := int64(d.Extent()) * consts.ISO9660_SECTOR_SIZE
	var offset int64
	for _, c := range d.Children {
		data, err := c.Marshal()
		if err != nil {
			return fmt.Errorf("image: marshal directory record %q: %w", c.FileIdentifier, err)
		}
		if _, err := sink.WriteAt(data, base+offset); err != nil {
			return fmt.Errorf("image: write directory record %q: %w", c.FileIdentifier, err)
		}
		offset += int64(len(data))
	}
	capacity := int64(ceilExtents(d.DataLength())) * consts.ISO9660_SECTOR_SIZE
	if pad := capacity - offset; pad > 0 {
		if _, err := sink.WriteAt(make([]byte, pad), base+offset); err != nil {
			return fmt.Errorf("image: pad directory extent: %w", err)
		}
	}
	return nil
}

// writeRockRidgeContinuations copies every record's overflow SUSP entries
// (staged into RockRidge.ContinuationBytes by the Marshal calls inside
// writeDirectoryTree) into the continuation area Reshuffle reserved for
// it, per spec 4.C's CE mechanism.
func (img *Image) writeRockRidgeContinuations(sink io.WriterAt) error {
	for _, d := range directoryBFS(img.Primary.Body.RootDirectoryRecord) {
		for _, c := range d.Children {
			if c.RockRidge == nil {
				continue
			}
			data := c.RockRidge.ContinuationBytes()
			if len(data) == 0 {
				continue
			}
			ref := c.RockRidge.Continuation()
			if ref == nil {
				return isoerr.New(isoerr.NotInitialized, "record %q has continuation overflow but no continuation area assigned", c.FileIdentifier)
			}
			base := int64(ref.Extent)*consts.ISO9660_SECTOR_SIZE + int64(ref.Offset)
			if _, err := sink.WriteAt(data, base); err != nil {
				return fmt.Errorf("image: write rock ridge continuation for %q: %w", c.FileIdentifier, err)
			}
		}
	}
	return nil
}

func (img *Image) writeFilePayloads(sink io.WriterAt, blockSize int, tick func()) error {
	if blockSize <= 0 {
		blockSize = consts.ISO9660_SECTOR_SIZE
	}
	for _, d := range directoryBFS(img.Primary.Body.RootDirectoryRecord) {
		for _, c := range d.Children {
			if c.IsSpecial() || c.IsDirectory() || c == img.elToritoCatalogRecord {
				continue
			}
			if err := streamPayload(sink, c, blockSize); err != nil {
				return err
			}
			tick()
		}
	}
	return nil
}

func streamPayload(sink io.WriterAt, rec *directory.Record, blockSize int) error {
	if rec.PayloadSource == nil {
		return isoerr.New(isoerr.NotInitialized, "file record %q has no payload source", rec.FileIdentifier)
	}
	remaining := int64(rec.DataLength())
	base := int64(rec.Extent()) * consts.ISO9660_SECTOR_SIZE
	buf := make([]byte, blockSize)
	var off int64
	for remaining > 0 {
		n := int64(blockSize)
		if n > remaining {
			n = remaining
		}
		read, err := rec.PayloadSource.ReadAt(buf[:n], rec.PayloadReaderAt+off)
		if err != nil && err != io.EOF {
			return fmt.Errorf("image: read payload for %q: %w", rec.FileIdentifier, err)
		}
		if _, err := sink.WriteAt(buf[:read], base+off); err != nil {
			return fmt.Errorf("image: write payload for %q: %w", rec.FileIdentifier, err)
		}
		off += int64(read)
		remaining -= int64(read)
		if read == 0 {
			break
		}
	}
	capacity := int64(ceilExtents(rec.DataLength())) * consts.ISO9660_SECTOR_SIZE
	if pad := capacity - off; pad > 0 {
		if _, err := sink.WriteAt(make([]byte, pad), base+off); err != nil {
			return fmt.Errorf("image: pad file payload extent: %w", err)
		}
	}
	return nil
}
