// Package validation implements the d-/d1-character and interchange-level
// rules for ISO9660 file and directory identifiers (spec component B).
package validation

import (
	"strings"

	"github.com/discforge/iso9660/pkg/consts"
	"github.com/discforge/iso9660/pkg/isoerr"
)

// InterchangeLevel selects which filename strictness class applies.
type InterchangeLevel int

const (
	Level1 InterchangeLevel = 1
	Level3 InterchangeLevel = 3
)

// ValidISO9660FileIdentifier reports whether identifier contains only
// characters legal in a primary-hierarchy file name, including the
// '.'/';' separators.
func ValidISO9660FileIdentifier(identifier string) bool {
	return validateIdentifierRune(identifier, ".;")
}

// ValidISO9660DirIdentifier reports whether identifier contains only
// characters legal in a primary-hierarchy directory name; the sentinel
// identifiers 0x00 ("." ) and 0x01 ("..") are also accepted.
func ValidISO9660DirIdentifier(identifier string) bool {
	if len(identifier) == 1 && (identifier[0] == 0x00 || identifier[0] == 0x01) {
		return true
	}
	return validateIdentifierRune(identifier, "")
}

func validateIdentifierRune(identifier string, additionalChars string) bool {
	allowed := consts.D_CHARACTERS + consts.D1_CHARACTERS + additionalChars
	for _, r := range identifier {
		if !strings.ContainsRune(allowed, r) {
			return false
		}
	}
	return true
}

// splitNameExt splits a d-character file identifier "NAME.EXT" on the
// first '.', with no extension if none is present.
func splitNameExt(id string) (name, ext string) {
	if i := strings.IndexByte(id, '.'); i >= 0 {
		return id[:i], id[i+1:]
	}
	return id, ""
}

// ValidateFileIdentifier checks a candidate primary-hierarchy file
// identifier ("NAME.EXT;VERSION", version optional) against the rules for
// the given interchange level, per spec 4.B.
func ValidateFileIdentifier(id string, level InterchangeLevel) error {
	base := id
	if i := strings.IndexByte(id, ';'); i >= 0 {
		base = id[:i]
	}
	check := base
	if level == Level3 {
		check = strings.ToUpper(base)
	}
	if !ValidISO9660FileIdentifier(check) {
		return isoerr.New(isoerr.InvalidName, "file identifier %q contains characters outside the d/d1 set", id)
	}

	name, ext := splitNameExt(base)
	if name == "" && ext == "" {
		return isoerr.New(isoerr.InvalidName, "file identifier %q must have a non-empty name or extension", id)
	}

	maxName, maxExt := consts.LEVEL1_MAX_NAME_LEN, consts.LEVEL1_MAX_EXT_LEN
	if level == Level3 {
		maxName, maxExt = consts.LEVEL3_MAX_NAME_LEN, consts.LEVEL3_MAX_EXT_LEN
	}
	if len(name) > maxName {
		return isoerr.New(isoerr.InvalidName, "file name %q exceeds interchange level %d limit of %d", name, level, maxName)
	}
	if len(ext) > maxExt {
		return isoerr.New(isoerr.InvalidName, "file extension %q exceeds interchange level %d limit of %d", ext, level, maxExt)
	}
	return nil
}

// ValidateDirectoryIdentifier checks a candidate primary-hierarchy
// directory identifier against the rules for the given interchange level.
func ValidateDirectoryIdentifier(id string, level InterchangeLevel) error {
	if !ValidISO9660DirIdentifier(strings.ToUpper(id)) {
		return isoerr.New(isoerr.InvalidName, "directory identifier %q contains characters outside the d/d1 set", id)
	}
	maxDir := consts.LEVEL1_MAX_DIR_LEN
	if level == Level3 {
		maxDir = consts.LEVEL3_MAX_DIR_LEN
	}
	if len(id) > maxDir {
		return isoerr.New(isoerr.InvalidName, "directory name %q exceeds interchange level %d limit of %d", id, level, maxDir)
	}
	return nil
}

// DetectInterchangeLevel returns Level1 if every identifier in names
// validates at level 1, else Level3. Used by the parser, which infers the
// level of an opened image rather than trusting a field for it.
func DetectInterchangeLevel(names []string) InterchangeLevel {
	for _, n := range names {
		if err := ValidateFileIdentifier(n, Level1); err != nil {
			if err2 := ValidateDirectoryIdentifier(n, Level1); err2 != nil {
				return Level3
			}
		}
	}
	return Level1
}
