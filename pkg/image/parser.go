package image

import (
	"fmt"
	"io"

	"github.com/discforge/iso9660/pkg/consts"
	"github.com/discforge/iso9660/pkg/descriptor"
	"github.com/discforge/iso9660/pkg/directory"
	"github.com/discforge/iso9660/pkg/eltorito"
	"github.com/discforge/iso9660/pkg/isohybrid"
	"github.com/discforge/iso9660/pkg/logging"
	"github.com/discforge/iso9660/pkg/option"
	"github.com/discforge/iso9660/pkg/pathtable"
	"github.com/discforge/iso9660/pkg/susp"
	"github.com/discforge/iso9660/pkg/validation"
)

// Open parses an existing image from r (component I): the descriptor
// set, an isohybrid MBR probe, any El Torito boot catalog, both path
// tables (compared against each other), and a breadth-first walk of the
// primary and, if present, Joliet directory trees.
func Open(r io.ReaderAt, opts ...option.OpenOption) (*Image, error) {
	openOptions := option.OpenOptions{Logger: logging.DefaultLogger()}
	for _, opt := range opts {
		opt(&openOptions)
	}

	set, err := descriptor.ParseSet(r)
	if err != nil {
		return nil, fmt.Errorf("image: parse descriptor set: %w", err)
	}

	img := &Image{
		Primary:       set.Primary,
		Joliet:        set.Joliet,
		BootRecords:   set.BootRecords,
		reader:        r,
		OpenOptions:   openOptions,
		Logger:        openOptions.Logger,
		JolietEnabled: set.Joliet != nil,
		initialized:   true,
	}

	var probe [2]byte
	if _, err := r.ReadAt(probe[:], 0); err == nil && isohybrid.Probe(probe[:]) {
		var mbrSector [512]byte
		if _, err := r.ReadAt(mbrSector[:], 0); err == nil {
			if mbr, err := isohybrid.Unmarshal(mbrSector[:]); err == nil {
				img.Isohybrid = mbr
			}
		}
	}

	for _, br := range set.BootRecords {
		if !eltorito.IsElTorito(br.BootSystemIdentifier) || !openOptions.ElToritoEnabled {
			continue
		}
		catalogExtent := br.BootCatalogExtent()
		var sector [consts.ISO9660_SECTOR_SIZE]byte
		if _, err := r.ReadAt(sector[:], int64(catalogExtent)*consts.ISO9660_SECTOR_SIZE); err != nil {
			return nil, fmt.Errorf("image: read el torito catalog: %w", err)
		}
		catalog, err := eltorito.Parse(sector[:])
		if err != nil {
			return nil, fmt.Errorf("image: parse el torito catalog: %w", err)
		}
		img.ElTorito = catalog
		img.elToritoBootRecord = br
		break
	}

	primaryL, primaryM, err := readPathTablePair(r, img.Primary.Body)
	if err != nil {
		return nil, err
	}
	if err := validatePathTables(primaryL, primaryM); err != nil {
		return nil, err
	}
	img.PrimaryPathTableL, img.PrimaryPathTableM = primaryL, primaryM

	img.RockRidgeEnabled, err = walkDirectoryTree(r, img.Primary.Body.RootDirectoryRecord, openOptions.RockRidgeEnabled)
	if err != nil {
		return nil, fmt.Errorf("image: walk primary directory tree: %w", err)
	}

	img.CreateOptions.InterchangeLevel = int(detectInterchangeLevel(img.Primary.Body.RootDirectoryRecord))

	if img.Joliet != nil {
		jolietL, jolietM, err := readPathTablePair(r, img.Joliet.Body)
		if err != nil {
			return nil, err
		}
		if err := validatePathTables(jolietL, jolietM); err != nil {
			return nil, err
		}
		img.JolietPathTableL, img.JolietPathTableM = jolietL, jolietM

		if _, err := walkDirectoryTree(r, img.Joliet.Body.RootDirectoryRecord, false); err != nil {
			return nil, fmt.Errorf("image: walk joliet directory tree: %w", err)
		}
	}

	return img, nil
}

func readPathTablePair(r io.ReaderAt, body *descriptor.Body) (*pathtable.Table, *pathtable.Table, error) {
	lData := make([]byte, body.PathTableSize)
	if _, err := r.ReadAt(lData, int64(body.LocationOfTypeLPathTable)*consts.ISO9660_SECTOR_SIZE); err != nil {
		return nil, nil, fmt.Errorf("image: read little-endian path table: %w", err)
	}
	l, err := pathtable.Parse(lData, true)
	if err != nil {
		return nil, nil, fmt.Errorf("image: parse little-endian path table: %w", err)
	}

	mData := make([]byte, body.PathTableSize)
	if _, err := r.ReadAt(mData, int64(body.LocationOfTypeMPathTable)*consts.ISO9660_SECTOR_SIZE); err != nil {
		return nil, nil, fmt.Errorf("image: read big-endian path table: %w", err)
	}
	m, err := pathtable.Parse(mData, false)
	if err != nil {
		return nil, nil, fmt.Errorf("image: parse big-endian path table: %w", err)
	}

	return l, m, nil
}

// walkDirectoryTree attaches children to root by breadth-first reading
// its extent(s) and, recursively, each child directory's. When
// rockRidgeRequested, each record's system-use area is parsed for Rock
// Ridge entries, chasing CE continuations through r. Returns whether any
// record actually carried Rock Ridge data.
func walkDirectoryTree(r io.ReaderAt, root *directory.Record, rockRidgeRequested bool) (bool, error) {
	sawRockRidge := false
	queue := []*directory.Record{root}

	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		data := make([]byte, int64(ceilExtents(dir.DataLength()))*consts.ISO9660_SECTOR_SIZE)
		if len(data) == 0 {
			data = make([]byte, consts.ISO9660_SECTOR_SIZE)
		}
		if _, err := r.ReadAt(data, int64(dir.Extent())*consts.ISO9660_SECTOR_SIZE); err != nil {
			return sawRockRidge, err
		}

		var children []*directory.Record
		offset := 0
		for offset < len(data) && data[offset] != 0 {
			rec, err := directory.Unmarshal(data[offset:], dir.Joliet)
			if err != nil {
				break
			}
			rec.Parent = dir
			offset += int(rec.LengthOfDirectoryRecord)

			if rockRidgeRequested && len(rec.SystemUse) > 0 && !rec.IsSpecial() {
				entries, err := susp.Parse(rec.SystemUse, r)
				if err == nil && entries != nil {
					rec.RockRidge = entries
					sawRockRidge = true
				}
			}

			children = append(children, rec)
			if rec.IsDirectory() && !rec.IsSpecial() {
				queue = append(queue, rec)
			}
		}
		dir.Children = children
	}

	return sawRockRidge, nil
}

// detectInterchangeLevel tries level-1 validation against every
// non-special identifier in the tree, falling back to level 3 if any
// name fails — per spec 4.I.
func detectInterchangeLevel(root *directory.Record) validation.InterchangeLevel {
	level := validation.InterchangeLevel(1)
	var walk func(*directory.Record)
	walk = func(d *directory.Record) {
		for _, c := range d.Children {
			if c.IsSpecial() {
				continue
			}
			if level == 1 && validation.ValidateFileIdentifier(c.FileIdentifier, 1) != nil {
				level = 3
			}
			if c.IsDirectory() {
				walk(c)
			}
		}
	}
	walk(root)
	return level
}
