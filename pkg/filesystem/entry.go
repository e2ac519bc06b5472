// Package filesystem exposes a parsed or staged Directory Record as a
// file-system-shaped handle: name, metadata, and payload access, backing
// the public list_dir/get_entry/get_and_write operations.
package filesystem

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/discforge/iso9660/pkg/consts"
	"github.com/discforge/iso9660/pkg/directory"
)

// NewEntry wraps record (and the image's backing reader) as a
// FileSystemEntry.
func NewEntry(name, fullPath string, isDir bool, size, location uint32, uid, gid *uint32, mode os.FileMode, createTime, modTime time.Time, record *directory.Record, reader io.ReaderAt) *FileSystemEntry {
	return &FileSystemEntry{
		Name:       name,
		FullPath:   fullPath,
		IsDir:      isDir,
		Size:       size,
		Location:   location,
		UID:        uid,
		GID:        gid,
		Mode:       mode,
		CreateTime: createTime,
		ModTime:    modTime,
		record:     record,
		reader:     reader,
	}
}

// FileSystemEntry is the read-facing view of one directory record,
// returned by get_entry and the elements of list_dir.
type FileSystemEntry struct {
	Name         string
	FullPath     string
	IsDir        bool
	Size         uint32
	Location     uint32
	UID          *uint32
	GID          *uint32
	Mode         os.FileMode
	CreateTime   time.Time
	ModTime      time.Time
	HasRockRidge bool

	record *directory.Record
	reader io.ReaderAt
}

// Record returns the underlying directory record this entry was built from.
func (fse *FileSystemEntry) Record() *directory.Record { return fse.record }

// ReadAt lets a FileSystemEntry stand in for an io.ReaderAt over its own
// file payload.
func (fse *FileSystemEntry) ReadAt(p []byte, off int64) (int, error) {
	if fse.IsDir {
		return 0, fmt.Errorf("filesystem: cannot read bytes of directory %s", fse.FullPath)
	}
	startOffset := int64(fse.Location)*int64(consts.ISO9660_SECTOR_SIZE) + off
	return fse.reader.ReadAt(p, startOffset)
}

// GetBytes reads the full file payload into memory.
func (fse *FileSystemEntry) GetBytes() ([]byte, error) {
	if fse.IsDir {
		return nil, fmt.Errorf("filesystem: cannot get bytes for directory %s", fse.FullPath)
	}
	data := make([]byte, fse.Size)
	if _, err := fse.ReadAt(data, 0); err != nil {
		return nil, fmt.Errorf("filesystem: read payload for %s: %w", fse.FullPath, err)
	}
	return data, nil
}

// GetAndWrite streams the file payload to sink in blockSize chunks,
// backing the public get_and_write operation.
func (fse *FileSystemEntry) GetAndWrite(sink io.Writer, blockSize int) error {
	if fse.IsDir {
		return fmt.Errorf("filesystem: cannot write directory %s as a file", fse.FullPath)
	}
	if blockSize <= 0 {
		blockSize = consts.ISO9660_SECTOR_SIZE
	}
	remaining := int64(fse.Size)
	buf := make([]byte, blockSize)
	var off int64
	for remaining > 0 {
		n := int64(blockSize)
		if n > remaining {
			n = remaining
		}
		read, err := fse.ReadAt(buf[:n], off)
		if err != nil {
			return fmt.Errorf("filesystem: read payload for %s: %w", fse.FullPath, err)
		}
		if _, err := sink.Write(buf[:read]); err != nil {
			return fmt.Errorf("filesystem: write payload for %s: %w", fse.FullPath, err)
		}
		off += int64(read)
		remaining -= int64(read)
	}
	return nil
}

// ExtractToDisk writes this entry under outputDir, preserving mode and
// modification time.
func (fse *FileSystemEntry) ExtractToDisk(outputDir string) error {
	outputPath := filepath.Join(outputDir, fse.FullPath)

	if fse.IsDir {
		return os.MkdirAll(outputPath, fse.Mode)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("filesystem: create parent directories for %s: %w", outputPath, err)
	}

	outFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("filesystem: create file %s: %w", outputPath, err)
	}
	defer outFile.Close()

	if err := fse.GetAndWrite(outFile, consts.ISO9660_SECTOR_SIZE); err != nil {
		return err
	}

	if err := os.Chmod(outputPath, fse.Mode); err != nil {
		return fmt.Errorf("filesystem: set permissions on %s: %w", outputPath, err)
	}
	if err := os.Chtimes(outputPath, fse.ModTime, fse.ModTime); err != nil {
		return fmt.Errorf("filesystem: set timestamps on %s: %w", outputPath, err)
	}

	return nil
}

// GetMD5 computes the MD5 digest of the file payload.
func (fse *FileSystemEntry) GetMD5() (string, error) {
	data, err := fse.GetBytes()
	if err != nil {
		return "", err
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}

// GetSHA256 computes the SHA-256 digest of the file payload.
func (fse *FileSystemEntry) GetSHA256() (string, error) {
	data, err := fse.GetBytes()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
