package eltorito

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/discforge/iso9660/pkg/consts"
)

// ExtractBootImages writes every Initial and Section boot image referenced
// by catalog to outputDir, reading each image's payload from ra at the
// sector given by the entry's LoadRBA.
func ExtractBootImages(catalog *Catalog, ra io.ReaderAt, outputDir string) error {
	entries := []struct {
		name  string
		entry Entry
	}{{name: "boot.img", entry: catalog.Initial}}

	for si, sec := range catalog.Sections {
		for ei, e := range sec.Entries {
			entries = append(entries, struct {
				name  string
				entry Entry
			}{
				name:  fmt.Sprintf("boot-%d-%d.img", si, ei),
				entry: e,
			})
		}
	}

	for _, item := range entries {
		outputPath := filepath.Join(outputDir, item.name)
		if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
			return fmt.Errorf("eltorito: create parent directories for %s: %w", outputPath, err)
		}

		size := int64(item.entry.SectorCount) * 512
		if size == 0 {
			continue
		}
		data := make([]byte, size)
		offset := int64(item.entry.LoadRBA) * int64(consts.ISO9660_SECTOR_SIZE)
		if _, err := ra.ReadAt(data, offset); err != nil && err != io.EOF {
			return fmt.Errorf("eltorito: read boot image at extent %d: %w", item.entry.LoadRBA, err)
		}

		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			return fmt.Errorf("eltorito: write boot image %s: %w", outputPath, err)
		}
	}

	return nil
}

// IsElTorito reports whether a Boot Record's system identifier marks it
// as an El Torito boot catalog pointer.
func IsElTorito(bootSystemIdentifier string) bool {
	return bootSystemIdentifier == consts.EL_TORITO_BOOT_SYSTEM_ID
}
