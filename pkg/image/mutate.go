package image

import (
	"io"
	"path"
	"strings"
	"time"

	"github.com/discforge/iso9660/pkg/consts"
	"github.com/discforge/iso9660/pkg/descriptor"
	"github.com/discforge/iso9660/pkg/directory"
	"github.com/discforge/iso9660/pkg/eltorito"
	"github.com/discforge/iso9660/pkg/isoerr"
	"github.com/discforge/iso9660/pkg/isohybrid"
	"github.com/discforge/iso9660/pkg/option"
	"github.com/discforge/iso9660/pkg/susp"
	"github.com/discforge/iso9660/pkg/validation"
)

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// resolveParent walks from root following every path segment but the
// last, returning the parent directory and the final segment name.
func resolveParent(root *directory.Record, isoPath string) (*directory.Record, string, error) {
	segs := splitPath(isoPath)
	if len(segs) == 0 {
		return nil, "", isoerr.New(isoerr.InvalidName, "empty path")
	}
	cur := root
	for _, seg := range segs[:len(segs)-1] {
		next := findChild(cur, seg)
		if next == nil || !next.IsDirectory() {
			return nil, "", isoerr.New(isoerr.NotFound, "directory %q not found", seg)
		}
		cur = next
	}
	return cur, segs[len(segs)-1], nil
}

func findChild(dir *directory.Record, name string) *directory.Record {
	for _, c := range dir.Children {
		if c.IsSpecial() {
			continue
		}
		if c.FileIdentifier == name || (c.RockRidge != nil && c.RockRidge.Name() == name) {
			return c
		}
	}
	return nil
}

func findPath(root *directory.Record, isoPath string) *directory.Record {
	segs := splitPath(isoPath)
	cur := root
	for _, seg := range segs {
		cur = findChild(cur, seg)
		if cur == nil {
			return nil
		}
	}
	return cur
}

func depthOf(isoPath string) int {
	return len(splitPath(isoPath)) + 1 // root counts as depth 1
}

// AddFile inserts a new file record, backed by src, under iso_path (and,
// when enabled, its Joliet/Rock Ridge twins), per spec 4.L.
func (img *Image) AddFile(src io.ReaderAt, length uint32, isoPath, rrPath, jolietPath string) error {
	if err := img.requireInitialized(); err != nil {
		return err
	}
	if err := img.checkExtensionPaths(rrPath, jolietPath); err != nil {
		return err
	}
	if err := validation.ValidateFileIdentifier(path.Base(isoPath), validation.InterchangeLevel(img.CreateOptions.InterchangeLevel)); err != nil {
		return isoerr.Wrap(isoerr.InvalidName, err, "invalid iso_path %q", isoPath)
	}
	if !img.RockRidgeEnabled && depthOf(isoPath) > consts.MAX_HIERARCHY_DEPTH-1 {
		return isoerr.New(isoerr.DepthExceeded, "path %q exceeds non-RR depth limit", isoPath)
	}

	parent, name, err := resolveParent(img.Primary.Body.RootDirectoryRecord, isoPath)
	if err != nil {
		return err
	}

	now := time.Now()
	rec := &directory.Record{
		FileIdentifier:       name,
		OriginalDataLength:   length,
		RecordingDateAndTime: now,
		VolumeSequenceNumber: 1,
		PayloadSource:        src,
	}
	if img.RockRidgeEnabled {
		rec.RockRidge = susp.NewRockRidgeOverlay(rrPath, susp.PosixEntry{Mode: 0o644}, susp.Timestamps{})
	}
	parent.AddChild(rec)

	if img.Joliet != nil {
		jParent, _, err := resolveParent(img.Joliet.Body.RootDirectoryRecord, jolietIsoPath(isoPath, jolietPath))
		if err != nil {
			return err
		}
		jRec := &directory.Record{
			FileIdentifier:       path.Base(jolietIsoPath(isoPath, jolietPath)),
			OriginalDataLength:   length,
			RecordingDateAndTime: now,
			VolumeSequenceNumber: 1,
			Joliet:               true,
			PayloadSource:        src,
		}
		jParent.AddChild(jRec)
	}

	return img.Reshuffle()
}

func jolietIsoPath(isoPath, jolietPath string) string {
	if jolietPath != "" {
		return jolietPath
	}
	return isoPath
}

func (img *Image) checkExtensionPaths(rrPath, jolietPath string) error {
	if img.RockRidgeEnabled && rrPath == "" {
		return isoerr.New(isoerr.InvalidName, "rock ridge is enabled but rr_path is absent")
	}
	if !img.RockRidgeEnabled && rrPath != "" {
		return isoerr.New(isoerr.NotPermitted, "rr_path given but rock ridge is not enabled")
	}
	if img.Joliet != nil && jolietPath == "" {
		return isoerr.New(isoerr.InvalidName, "joliet is enabled but joliet_path is absent")
	}
	if img.Joliet == nil && jolietPath != "" {
		return isoerr.New(isoerr.NotPermitted, "joliet_path given but joliet is not enabled")
	}
	return nil
}

// AddDirectory creates an empty directory at iso_path, triggering Rock
// Ridge relocation under /RR_MOVED when the new directory would sit at a
// depth that is a multiple of 8, per spec 4.L.
func (img *Image) AddDirectory(isoPath, rrPath, jolietPath string) error {
	if err := img.requireInitialized(); err != nil {
		return err
	}
	if err := img.checkExtensionPaths(rrPath, jolietPath); err != nil {
		return err
	}
	if err := validation.ValidateDirectoryIdentifier(path.Base(isoPath), validation.InterchangeLevel(img.CreateOptions.InterchangeLevel)); err != nil {
		return isoerr.Wrap(isoerr.InvalidName, err, "invalid iso_path %q", isoPath)
	}
	if !img.RockRidgeEnabled && depthOf(isoPath) > consts.MAX_HIERARCHY_DEPTH-1 {
		return isoerr.New(isoerr.DepthExceeded, "path %q exceeds non-RR depth limit", isoPath)
	}

	parent, name, err := resolveParent(img.Primary.Body.RootDirectoryRecord, isoPath)
	if err != nil {
		return err
	}

	now := time.Now()
	dir := &directory.Record{
		FileIdentifier:       name,
		FileFlags:            directory.FileFlags{Directory: true},
		RecordingDateAndTime: now,
		VolumeSequenceNumber: 1,
	}
	dir.Children = []*directory.Record{dotRecord(dir), dotDotRecord(dir, parent)}
	if img.RockRidgeEnabled {
		dir.RockRidge = susp.NewRockRidgeOverlay(rrPath, susp.PosixEntry{Mode: 0o755}, susp.Timestamps{})
	}

	if img.RockRidgeEnabled && depthOf(isoPath)%8 == 0 {
		img.relocateUnderRRMoved(parent, dir)
	} else {
		parent.AddChild(dir)
	}

	if img.Joliet != nil {
		jParent, jName, err := resolveParent(img.Joliet.Body.RootDirectoryRecord, jolietIsoPath(isoPath, jolietPath))
		if err != nil {
			return err
		}
		jDir := &directory.Record{
			FileIdentifier:       jName,
			FileFlags:            directory.FileFlags{Directory: true},
			RecordingDateAndTime: now,
			VolumeSequenceNumber: 1,
			Joliet:               true,
		}
		jDir.Children = []*directory.Record{dotRecord(jDir), dotDotRecord(jDir, jParent)}
		jParent.AddChild(jDir)
	}

	return img.Reshuffle()
}

// relocateUnderRRMoved implements the deep-tree relocation rule: the new
// directory's real record (carrying RE + PL) is placed under a
// find-or-create /RR_MOVED directory, while a placeholder record
// carrying CL is left under its logical parent.
func (img *Image) relocateUnderRRMoved(logicalParent, dir *directory.Record) {
	root := img.Primary.Body.RootDirectoryRecord
	rrMoved := findChild(root, consts.RR_MOVED_DIR_NAME)
	if rrMoved == nil {
		now := time.Now()
		rrMoved = &directory.Record{
			FileIdentifier:       consts.RR_MOVED_DIR_NAME,
			FileFlags:            directory.FileFlags{Directory: true},
			RecordingDateAndTime: now,
		}
		rrMoved.Children = []*directory.Record{dotRecord(rrMoved), dotDotRecord(rrMoved, root)}
		if img.RockRidgeEnabled {
			rrMoved.RockRidge = susp.NewRockRidgeOverlay(consts.RR_MOVED_RR_NAME, susp.PosixEntry{Mode: 0o755}, susp.Timestamps{})
		}
		root.AddChild(rrMoved)
	}

	placeholder := &directory.Record{
		FileIdentifier:       dir.FileIdentifier,
		FileFlags:            directory.FileFlags{Directory: true},
		RecordingDateAndTime: dir.RecordingDateAndTime,
	}
	zero := uint32(0)
	placeholder.RockRidge = &susp.Entries{ChildLink: &zero}
	logicalParent.AddChild(placeholder)

	if dir.RockRidge == nil {
		dir.RockRidge = &susp.Entries{}
	}
	dir.RockRidge.Relocated = true
	parentZero := uint32(0)
	dir.RockRidge.ParentLink = &parentZero
	rrMoved.AddChild(dir)

	// The allocator's resolveRelocationLinks pass rewrites these zero
	// placeholders to the real extents once both sides are assigned;
	// until then they are keyed by OriginalExtent identity, which a
	// freshly created record doesn't have, so patch it here instead.
	placeholder.RockRidge.ChildLink = addrOf(dir.Extent())
	dir.RockRidge.ParentLink = addrOf(logicalParent.Extent())
}

func addrOf(v uint32) *uint32 { return &v }

// RemoveFile deletes the file at iso_path from every active tree.
func (img *Image) RemoveFile(isoPath string) error {
	if err := img.requireInitialized(); err != nil {
		return err
	}
	parent, name, err := resolveParent(img.Primary.Body.RootDirectoryRecord, isoPath)
	if err != nil {
		return err
	}
	rec := findPath(img.Primary.Body.RootDirectoryRecord, isoPath)
	if !parent.RemoveChild(name) {
		return isoerr.New(isoerr.NotFound, "file %q not found", isoPath)
	}
	if img.Joliet != nil && rec != nil {
		// The Joliet twin shares the primary record's payload extent.
		removeByExtent(img.Joliet.Body.RootDirectoryRecord, rec.Extent())
	}
	return img.Reshuffle()
}

// RemoveDirectory deletes the (empty) directory at iso_path.
func (img *Image) RemoveDirectory(isoPath, jolietPath string) error {
	if err := img.requireInitialized(); err != nil {
		return err
	}
	target := findPath(img.Primary.Body.RootDirectoryRecord, isoPath)
	if target == nil {
		return isoerr.New(isoerr.NotFound, "directory %q not found", isoPath)
	}
	if len(target.Children) > 2 {
		return isoerr.New(isoerr.NotPermitted, "directory %q is not empty", isoPath)
	}
	parent, name, err := resolveParent(img.Primary.Body.RootDirectoryRecord, isoPath)
	if err != nil {
		return err
	}
	if !parent.RemoveChild(name) {
		return isoerr.New(isoerr.NotFound, "directory %q not found", isoPath)
	}

	if img.Joliet != nil && jolietPath != "" {
		jParent, jName, err := resolveParent(img.Joliet.Body.RootDirectoryRecord, jolietPath)
		if err == nil {
			jParent.RemoveChild(jName)
		}
	}

	return img.Reshuffle()
}

// AddSymlink adds a Rock Ridge symbolic link; target must be relative,
// per spec 4.L.
func (img *Image) AddSymlink(symlinkPath, rrName, target string) error {
	if err := img.requireInitialized(); err != nil {
		return err
	}
	if !img.RockRidgeEnabled {
		return isoerr.New(isoerr.NotPermitted, "add_symlink requires rock ridge")
	}
	if path.IsAbs(target) {
		return isoerr.New(isoerr.InvalidName, "symlink target %q must be relative", target)
	}

	parent, name, err := resolveParent(img.Primary.Body.RootDirectoryRecord, symlinkPath)
	if err != nil {
		return err
	}
	rec := &directory.Record{
		FileIdentifier:       name,
		RecordingDateAndTime: time.Now(),
	}
	rec.RockRidge = susp.NewRockRidgeOverlay(rrName, susp.PosixEntry{Mode: 0o777}, susp.Timestamps{})
	rec.RockRidge.SL = symlinkComponents(target)
	parent.AddChild(rec)

	return img.Reshuffle()
}

func symlinkComponents(target string) []susp.SymlinkComponent {
	var comps []susp.SymlinkComponent
	for _, seg := range strings.Split(target, "/") {
		switch seg {
		case ".":
			comps = append(comps, susp.SymlinkComponent{Current: true})
		case "..":
			comps = append(comps, susp.SymlinkComponent{Parent: true})
		default:
			comps = append(comps, susp.SymlinkComponent{Name: seg})
		}
	}
	return comps
}

// AddElTorito creates a Boot Record and a synthesized boot catalog file,
// linking the catalog's and boot file's Directory Records to the catalog
// object, per spec 4.L.
func (img *Image) AddElTorito(bootFile io.ReaderAt, bootFileSize uint32, bootCatFile, rrBootCatFile, jolietBootCatFile string, bootLoadSize uint16, opts ...option.ElToritoOption) error {
	if err := img.requireInitialized(); err != nil {
		return err
	}
	if img.ElTorito != nil {
		return isoerr.New(isoerr.NotPermitted, "el torito boot catalog already present")
	}

	elToritoOptions := option.DefaultElToritoOptions()
	for _, opt := range opts {
		opt(&elToritoOptions)
	}

	now := time.Now()
	bootRec := &directory.Record{
		FileIdentifier:       path.Base(bootCatFile),
		RecordingDateAndTime: now,
		VolumeSequenceNumber: 1,
	}
	if img.RockRidgeEnabled {
		bootRec.RockRidge = susp.NewRockRidgeOverlay(rrBootCatFile, susp.PosixEntry{Mode: 0o444}, susp.Timestamps{})
	}

	bootFileRec := &directory.Record{
		FileIdentifier:       path.Base(bootCatFile) + ".img",
		OriginalDataLength:   bootFileSize,
		RecordingDateAndTime: now,
		VolumeSequenceNumber: 1,
		PayloadSource:        bootFile,
	}

	parent, catName, err := resolveParent(img.Primary.Body.RootDirectoryRecord, bootCatFile)
	if err != nil {
		return err
	}
	bootRec.FileIdentifier = catName
	parent.AddChild(bootRec)
	parent.AddChild(bootFileRec)

	sectorCount := bootLoadSize
	if sectorCount == 0 {
		sectorCount = 4
	}

	img.elToritoBootInfoTable = elToritoOptions.BootInfoTable

	img.ElTorito = &eltorito.Catalog{
		Validation: eltorito.ValidationEntry{Platform: eltorito.PlatformBIOS},
		Initial: eltorito.Entry{
			Bootable:    true,
			Emulation:   eltorito.NoEmulation,
			SectorCount: sectorCount,
		},
	}
	img.elToritoCatalogRecord = bootRec
	img.elToritoInitialRecord = bootFileRec

	br := descriptor.NewElToritoBootRecord(0)
	img.BootRecords = append(img.BootRecords, br)
	img.elToritoBootRecord = br

	if img.Joliet != nil && jolietBootCatFile != "" {
		jParent, jName, err := resolveParent(img.Joliet.Body.RootDirectoryRecord, jolietBootCatFile)
		if err == nil {
			jParent.AddChild(&directory.Record{FileIdentifier: jName, RecordingDateAndTime: now, Joliet: true})
		}
	}

	return img.Reshuffle()
}

// RemoveElTorito deletes the Boot Record and its catalog file, found by
// matching the catalog record's extent.
func (img *Image) RemoveElTorito() error {
	if err := img.requireInitialized(); err != nil {
		return err
	}
	if img.ElTorito == nil {
		return isoerr.New(isoerr.NotFound, "no el torito boot catalog present")
	}

	if img.elToritoCatalogRecord != nil {
		removeByExtent(img.Primary.Body.RootDirectoryRecord, img.elToritoCatalogRecord.Extent())
	}
	if img.elToritoInitialRecord != nil {
		removeByExtent(img.Primary.Body.RootDirectoryRecord, img.elToritoInitialRecord.Extent())
	}

	for i, br := range img.BootRecords {
		if br == img.elToritoBootRecord {
			img.BootRecords = append(img.BootRecords[:i], img.BootRecords[i+1:]...)
			break
		}
	}

	img.ElTorito = nil
	img.elToritoCatalogRecord = nil
	img.elToritoInitialRecord = nil
	img.elToritoBootRecord = nil

	return img.Reshuffle()
}

func removeByExtent(dir *directory.Record, extent uint32) bool {
	for _, c := range dir.Children {
		if !c.IsSpecial() && c.Extent() == extent {
			dir.RemoveChild(c.FileIdentifier)
			return true
		}
		if c.IsDirectory() && !c.IsSpecial() {
			if removeByExtent(c, extent) {
				return true
			}
		}
	}
	return false
}

// AddIsohybrid makes the image bootable from block devices as well as
// optical media, per spec 4.H/4.L.
func (img *Image) AddIsohybrid(prefix []byte, partEntry int, mbrID uint32, partOffset, geometrySectors, geometryHeads uint32, partType byte) error {
	if err := img.requireInitialized(); err != nil {
		return err
	}
	if img.ElTorito == nil {
		return isoerr.New(isoerr.NotPermitted, "add_isohybrid requires an active el torito boot record")
	}
	if img.ElTorito.Initial.SectorCount != 4 {
		return isoerr.New(isoerr.NotPermitted, "el torito initial entry sector count must be 4, was %d", img.ElTorito.Initial.SectorCount)
	}

	mbr, err := isohybrid.New(prefix, img.ElTorito.Initial.LoadRBA, img.ElTorito.Initial.SectorCount, partEntry, mbrID, partOffset, geometrySectors, geometryHeads, partType)
	if err != nil {
		return isoerr.Wrap(isoerr.InvalidDescriptor, err, "add_isohybrid")
	}
	img.Isohybrid = mbr
	return nil
}

// RemoveIsohybrid clears the hybrid MBR, making the image a traditional
// optical-only ISO again.
func (img *Image) RemoveIsohybrid() error {
	if err := img.requireInitialized(); err != nil {
		return err
	}
	img.Isohybrid = nil
	return nil
}
