package image

import (
	"fmt"
	"io"
	"strings"

	"github.com/discforge/iso9660/pkg/directory"
	"github.com/discforge/iso9660/pkg/filesystem"
	"github.com/discforge/iso9660/pkg/isoerr"
)

// ListDir returns the children of the directory at isoPath, in stored
// (sorted, "." and ".." first) order, per spec §6 list_dir.
func (img *Image) ListDir(isoPath string) ([]*filesystem.FileSystemEntry, error) {
	if err := img.requireInitialized(); err != nil {
		return nil, err
	}
	dir := findPath(img.Primary.Body.RootDirectoryRecord, isoPath)
	if isoPath == "/" || isoPath == "" {
		dir = img.Primary.Body.RootDirectoryRecord
	}
	if dir == nil {
		return nil, isoerr.New(isoerr.NotFound, "directory %q not found", isoPath)
	}
	if !dir.IsDirectory() {
		return nil, isoerr.New(isoerr.NotFound, "%q is not a directory", isoPath)
	}

	entries := make([]*filesystem.FileSystemEntry, 0, len(dir.Children))
	for _, c := range dir.Children {
		entries = append(entries, img.toEntry(isoPath, c))
	}
	return entries, nil
}

// GetEntry returns the directory record at isoPath, per spec §6 get_entry.
func (img *Image) GetEntry(isoPath string) (*filesystem.FileSystemEntry, error) {
	if err := img.requireInitialized(); err != nil {
		return nil, err
	}
	if isoPath == "/" || isoPath == "" {
		return img.toEntry("", img.Primary.Body.RootDirectoryRecord), nil
	}
	rec := findPath(img.Primary.Body.RootDirectoryRecord, isoPath)
	if rec == nil {
		return nil, isoerr.New(isoerr.NotFound, "%q not found", isoPath)
	}
	parent := "/" + strings.Join(splitPath(isoPath)[:max(0, len(splitPath(isoPath))-1)], "/")
	return img.toEntry(parent, rec), nil
}

// GetAndWrite copies the file payload at isoPath to sink in blockSize
// chunks, per spec §6 get_and_write.
func (img *Image) GetAndWrite(isoPath string, sink io.Writer, blockSize int) error {
	if err := img.requireInitialized(); err != nil {
		return err
	}
	rec := findPath(img.Primary.Body.RootDirectoryRecord, isoPath)
	if rec == nil {
		return isoerr.New(isoerr.NotFound, "%q not found", isoPath)
	}
	if rec.IsDirectory() {
		return isoerr.New(isoerr.NotPermitted, "%q is a directory", isoPath)
	}

	if rec.PayloadSource != nil {
		if blockSize <= 0 {
			blockSize = 2048
		}
		remaining := int64(rec.DataLength())
		buf := make([]byte, blockSize)
		var off int64
		for remaining > 0 {
			n := int64(blockSize)
			if n > remaining {
				n = remaining
			}
			read, err := rec.PayloadSource.ReadAt(buf[:n], rec.PayloadReaderAt+off)
			if err != nil && err != io.EOF {
				return fmt.Errorf("image: read payload for %q: %w", isoPath, err)
			}
			if _, err := sink.Write(buf[:read]); err != nil {
				return fmt.Errorf("image: write payload for %q: %w", isoPath, err)
			}
			off += int64(read)
			remaining -= int64(read)
			if read == 0 {
				break
			}
		}
		return nil
	}

	if img.reader == nil {
		return isoerr.New(isoerr.NotFound, "%q has no backing reader or payload source", isoPath)
	}
	entry := img.toEntry("", rec)
	return entry.GetAndWrite(sink, blockSize)
}

func (img *Image) toEntry(parentPath string, rec *directory.Record) *filesystem.FileSystemEntry {
	name := rec.BestName(img.RockRidgeEnabled)
	full := parentPath
	if !rec.IsSpecial() {
		if full == "" || full == "/" {
			full = "/" + name
		} else {
			full = full + "/" + name
		}
	}
	var uid, gid *uint32
	if img.RockRidgeEnabled && rec.RockRidge != nil {
		if px := rec.RockRidge.Posix(); px != nil {
			u, g := px.UID, px.GID
			uid, gid = &u, &g
		}
	}
	return filesystem.NewEntry(
		name, full, rec.IsDirectory(), rec.DataLength(), rec.Extent(),
		uid, gid, rec.Permissions(img.RockRidgeEnabled),
		rec.RecordingDateAndTime, rec.RecordingDateAndTime,
		rec, img.reader,
	)
}

// PrintTree writes a diagnostic, indented dump of the primary (and, if
// present, Joliet) hierarchy to w, per spec §6 print_tree.
func (img *Image) PrintTree(w io.Writer) error {
	if err := img.requireInitialized(); err != nil {
		return err
	}
	fmt.Fprintln(w, "primary:")
	if err := printSubtree(w, img.Primary.Body.RootDirectoryRecord, "  "); err != nil {
		return err
	}
	if img.Joliet != nil {
		fmt.Fprintln(w, "joliet:")
		if err := printSubtree(w, img.Joliet.Body.RootDirectoryRecord, "  "); err != nil {
			return err
		}
	}
	return nil
}

func printSubtree(w io.Writer, dir *directory.Record, indent string) error {
	for _, c := range dir.Children {
		if c.IsSpecial() {
			continue
		}
		kind := "f"
		if c.IsDirectory() {
			kind = "d"
		}
		if _, err := fmt.Fprintf(w, "%s%s %-34s extent=%-6d len=%d\n", indent, kind, c.FileIdentifier, c.Extent(), c.DataLength()); err != nil {
			return err
		}
		if c.IsDirectory() {
			if err := printSubtree(w, c, indent+"  "); err != nil {
				return err
			}
		}
	}
	return nil
}
