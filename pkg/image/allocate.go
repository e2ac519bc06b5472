package image

import (
	"fmt"

	"github.com/discforge/iso9660/pkg/consts"
	"github.com/discforge/iso9660/pkg/directory"
	"github.com/discforge/iso9660/pkg/pathtable"
	"github.com/discforge/iso9660/pkg/susp"
)

func continuationRefFor(extent uint32, offset int) susp.ContinuationRef {
	return susp.ContinuationRef{Extent: extent, Offset: uint32(offset)}
}

// ceilExtents returns the number of 2048-byte extents needed to hold n
// bytes.
func ceilExtents(n uint32) uint32 {
	if n == 0 {
		return 0
	}
	return (n + consts.ISO9660_SECTOR_SIZE - 1) / consts.ISO9660_SECTOR_SIZE
}

func ceilPathTableExtents(size uint32) uint32 {
	if size == 0 {
		return 0
	}
	return ((size + 4095) / 4096) * 2
}

// Reshuffle is the extent allocator (component J): invoked after every
// mutation and before every write that follows one. It assigns extents
// in the exact order spec'd, so two images with the same mutation history
// always serialize identically.
func (img *Image) Reshuffle() error {
	if err := img.requireInitialized(); err != nil {
		return err
	}

	extent := uint32(consts.ISO9660_SYSTEM_AREA_SECTORS)

	// 1. PVD.
	extent++

	// 2. Boot Records, in insertion order.
	for _, br := range img.BootRecords {
		_ = br
		extent++
	}

	// 3. SVDs.
	if img.Joliet != nil {
		extent++
	}

	// 4. VDST (exactly one, always).
	extent++

	// 5. Version descriptor: one extent of zeros.
	extent++

	// 6. PVD path tables.
	pvdData := directoryBFS(img.Primary.Body.RootDirectoryRecord)
	pvdPT := buildPathTable(pvdData)
	ptSize := uint32(pvdPT.ByteSize())
	img.Primary.Body.PathTableSize = ptSize

	ptExtents := ceilPathTableExtents(ptSize)
	img.Primary.Body.LocationOfTypeLPathTable = extent
	extent += ptExtents
	img.Primary.Body.LocationOfTypeMPathTable = extent
	extent += ptExtents

	// 7. SVD path tables.
	var jolietData []*directory.Record
	if img.Joliet != nil {
		jolietData = directoryBFS(img.Joliet.Body.RootDirectoryRecord)
		jolietPT := buildPathTable(jolietData)
		jptSize := uint32(jolietPT.ByteSize())
		img.Joliet.Body.PathTableSize = jptSize

		jptExtents := ceilPathTableExtents(jptSize)
		img.Joliet.Body.LocationOfTypeLPathTable = extent
		extent += jptExtents
		img.Joliet.Body.LocationOfTypeMPathTable = extent
		extent += jptExtents
	}

	// 8. PVD directory BFS.
	extent = assignDirectoryExtents(pvdData, extent)

	// 9. SVD directory BFS.
	if img.Joliet != nil {
		extent = assignDirectoryExtents(jolietData, extent)
	}

	// Keep the in-memory path tables in step with the directory extents
	// just assigned.
	img.PrimaryPathTableL, img.PrimaryPathTableM = buildPathTable(pvdData), buildPathTable(pvdData)
	if img.Joliet != nil {
		img.JolietPathTableL, img.JolietPathTableM = buildPathTable(jolietData), buildPathTable(jolietData)
	}

	// 10. Rock Ridge "ER" + remaining continuation reserve.
	if img.RockRidgeEnabled {
		extent++
		extent = packContinuations(pvdData, extent)
	}

	// Rewrite CL/PL back-references now that every directory has its
	// final extent.
	resolveRelocationLinks(pvdData)

	// 11. El Torito catalog + initial entry file.
	if img.ElTorito != nil {
		if img.elToritoCatalogRecord != nil {
			img.elToritoCatalogRecord.SetExtent(extent)
			img.elToritoCatalogRecord.SetDataLength(consts.ISO9660_SECTOR_SIZE)
		}
		if img.elToritoBootRecord != nil {
			img.elToritoBootRecord.SetBootCatalogExtent(extent)
		}
		extent++

		if img.elToritoInitialRecord != nil {
			img.elToritoInitialRecord.SetExtent(extent)
			img.ElTorito.Initial.LoadRBA = extent
			extent += ceilExtents(img.elToritoInitialRecord.DataLength())
		}
	}

	// 12. File payloads in BFS order. The El Torito catalog and initial
	// entry records already got their extents in step 11; skip them here
	// so this pass doesn't overwrite those with conflicting values.
	skip := map[*directory.Record]bool{}
	if img.elToritoCatalogRecord != nil {
		skip[img.elToritoCatalogRecord] = true
	}
	if img.elToritoInitialRecord != nil {
		skip[img.elToritoInitialRecord] = true
	}
	extent = assignFilePayloadExtents(pvdData, extent, skip)
	if img.Joliet != nil {
		// Joliet records share the primary's payload extent; no new
		// extents are consumed for file data here, but each Joliet
		// file record is patched to the matching primary extent.
		patchJolietFileExtents(pvdData, jolietData)
	}

	img.Primary.Body.VolumeSpaceSize = extent
	if img.Joliet != nil {
		img.Joliet.Body.VolumeSpaceSize = extent
	}

	return nil
}

// directoryBFS returns every directory record reachable from root, root
// first, in breadth-first order.
func directoryBFS(root *directory.Record) []*directory.Record {
	var order []*directory.Record
	queue := []*directory.Record{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		order = append(order, cur)
		for _, c := range cur.Children {
			if c.IsDirectory() && !c.IsSpecial() {
				queue = append(queue, c)
			}
		}
	}
	return order
}

// buildPathTable derives a pathtable.Table from the BFS directory order;
// row N's parent directory number is the BFS index (1-based) of its
// parent.
func buildPathTable(dirsInBFSOrder []*directory.Record) *pathtable.Table {
	index := make(map[*directory.Record]uint16, len(dirsInBFSOrder))
	for i, d := range dirsInBFSOrder {
		index[d] = uint16(i + 1)
	}

	t := &pathtable.Table{}
	for _, d := range dirsInBFSOrder {
		parentNum := uint16(1)
		if d.Parent != nil {
			if n, ok := index[d.Parent]; ok {
				parentNum = n
			}
		}
		id := d.FileIdentifier
		if d.Parent == nil {
			id = "\x00"
		}
		t.Records = append(t.Records, &pathtable.Record{
			LengthOfDirectoryIdentifier: uint8(len(id)),
			LocationOfExtent:            d.Extent(),
			ParentDirectoryNumber:       parentNum,
			DirectoryIdentifier:         id,
		})
	}
	return t
}

// assignDirectoryExtents walks dirsInBFSOrder (root first) assigning each
// directory ceil(data_length/2048) extents, fixing up "." and ".." to
// point at the directory's own and parent's extent, and returns the
// extent counter after the walk.
func assignDirectoryExtents(dirsInBFSOrder []*directory.Record, extent uint32) uint32 {
	for _, d := range dirsInBFSOrder {
		dataLength := estimateDirectoryDataLength(d)
		d.SetExtent(extent)
		d.SetDataLength(dataLength)
		extent += ceilExtents(dataLength)
	}

	for _, d := range dirsInBFSOrder {
		for _, c := range d.Children {
			if c.IsDot() {
				c.SetExtent(d.Extent())
				c.SetDataLength(d.DataLength())
			} else if c.IsDotDot() {
				parent := d.Parent
				if parent == nil {
					parent = d
				}
				c.SetExtent(parent.Extent())
				c.SetDataLength(parent.DataLength())
			}
		}
	}

	return extent
}

// estimateDirectoryDataLength sums the marshaled size of every child
// record (including "." and "..") padded to an even byte count, which is
// the quantity Marshal() itself would produce once extents are known;
// since sizes don't depend on the extent value, this can run ahead of
// extent assignment.
func estimateDirectoryDataLength(d *directory.Record) uint32 {
	var total int
	for _, c := range d.Children {
		data, err := c.Marshal()
		if err != nil {
			continue
		}
		total += len(data)
	}
	return uint32(total)
}

// packContinuations assigns Rock Ridge CE continuation extents across
// every record in dirsInBFSOrder that needs one, packing multiple
// entries into a shared extent and spilling to a fresh one on overflow,
// per spec 4.J step 10. Each record's residual system-use budget is its
// own SystemUseBudget, not a fixed constant, since that budget depends on
// the record's own identifier length.
func packContinuations(dirsInBFSOrder []*directory.Record, extent uint32) uint32 {
	curExtent := extent
	curOffset := 0
	used := false

	for _, d := range dirsInBFSOrder {
		for _, c := range d.Children {
			if c.RockRidge == nil {
				continue
			}
			budget := c.SystemUseBudget()
			if !c.RockRidge.NeedsContinuation(budget) {
				continue
			}
			used = true
			overflowSize := c.RockRidge.OverflowSize(budget)
			if curOffset > 0 && curOffset+overflowSize > consts.ISO9660_SECTOR_SIZE {
				curExtent++
				curOffset = 0
			}
			c.RockRidge.AssignContinuation(continuationRefFor(curExtent, curOffset))
			curOffset += overflowSize
			for curOffset > consts.ISO9660_SECTOR_SIZE {
				curOffset -= consts.ISO9660_SECTOR_SIZE
				curExtent++
			}
		}
	}

	if used {
		return curExtent + 1
	}
	return extent
}

// resolveRelocationLinks rewrites every CL placeholder's target extent
// and every PL back-reference's original-parent extent now that the BFS
// has assigned final extents to both sides of each relocation.
func resolveRelocationLinks(dirsInBFSOrder []*directory.Record) {
	byExtent := make(map[uint32]*directory.Record, len(dirsInBFSOrder))
	for _, d := range dirsInBFSOrder {
		byExtent[d.OriginalExtent] = d
	}

	for _, d := range dirsInBFSOrder {
		for _, c := range d.Children {
			if c.RockRidge == nil {
				continue
			}
			if c.RockRidge.ChildLink != nil {
				if target, ok := byExtent[*c.RockRidge.ChildLink]; ok {
					link := target.Extent()
					c.RockRidge.ChildLink = &link
				}
			}
			if c.RockRidge.ParentLink != nil {
				if target, ok := byExtent[*c.RockRidge.ParentLink]; ok {
					link := target.Extent()
					c.RockRidge.ParentLink = &link
				}
			}
		}
	}
}

// assignFilePayloadExtents walks every directory's non-directory
// children in BFS order, assigning each file ceil(data_length/2048)
// extents. Records in skip already got their extent from an earlier
// allocator step (the El Torito catalog and initial entry, step 11) and
// are left untouched.
func assignFilePayloadExtents(dirsInBFSOrder []*directory.Record, extent uint32, skip map[*directory.Record]bool) uint32 {
	for _, d := range dirsInBFSOrder {
		for _, c := range d.Children {
			if c.IsSpecial() || c.IsDirectory() || skip[c] {
				continue
			}
			c.SetExtent(extent)
			extent += ceilExtents(c.DataLength())
		}
	}
	return extent
}

// patchJolietFileExtents makes each Joliet file record's extent equal
// its primary-tree twin's, so both trees address the same payload bytes.
func patchJolietFileExtents(primaryBFS, jolietBFS []*directory.Record) {
	if len(primaryBFS) != len(jolietBFS) {
		return
	}
	for i := range primaryBFS {
		pChildren := nonSpecialFiles(primaryBFS[i])
		jChildren := nonSpecialFiles(jolietBFS[i])
		n := len(pChildren)
		if len(jChildren) < n {
			n = len(jChildren)
		}
		for k := 0; k < n; k++ {
			jChildren[k].SetExtent(pChildren[k].Extent())
			jChildren[k].SetDataLength(pChildren[k].DataLength())
		}
	}
}

func nonSpecialFiles(d *directory.Record) []*directory.Record {
	var out []*directory.Record
	for _, c := range d.Children {
		if c.IsSpecial() || c.IsDirectory() {
			continue
		}
		out = append(out, c)
	}
	return out
}

// validatePathTables is exposed for the parser: a freshly parsed image's
// little- and big-endian path tables MUST agree, per the dual-endian
// agreement invariant.
func validatePathTables(l, m *pathtable.Table) error {
	if !pathtable.Equal(l, m) {
		return fmt.Errorf("image: primary path table LE/BE copies disagree")
	}
	return nil
}
