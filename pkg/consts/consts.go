package consts

const (
	// Number of system area sectors.
	ISO9660_SYSTEM_AREA_SECTORS = 16

	// Extent of the Primary Volume Descriptor, always the first
	// descriptor after the system area.
	PVD_EXTENT = ISO9660_SYSTEM_AREA_SECTORS

	// Standard ISO9660 identifier.
	ISO9660_STD_IDENTIFIER = "CD001"

	// ISO9660 volume descriptor version (always 1).
	ISO9660_VOLUME_DESC_VERSION = 1

	// ISO9660 default sector size.
	ISO9660_SECTOR_SIZE = 2048

	// Maximum on-disk length of a single Directory Record: the length
	// byte is a uint8, so 255 is the hard ceiling System Use data must
	// fit under alongside the fixed fields and identifier.
	MAX_DIRECTORY_RECORD_LENGTH = 255

	// ISO9660 volume descriptor header size
	ISO9660_VOLUME_DESC_HEADER_SIZE = 7

	// ISO9660 application use area size
	ISO9660_APPLICATION_USE_SIZE = 512

	// JOLIET level 1, 2, and 3 escape sequences.
	JOLIET_LEVEL_1_ESCAPE = "%/@"
	JOLIET_LEVEL_2_ESCAPE = "%/C"
	JOLIET_LEVEL_3_ESCAPE = "%/E"

	// El Torito bootable cdrom system identifier.
	EL_TORITO_BOOT_SYSTEM_ID = "EL TORITO SPECIFICATION"

	// a-characters set which are specified in the International Reference Version at the following positions.
	//   | 2/0 - 2/2
	//   | 2/5 - 2/15
	//   | 3/0 - 3/15
	//   | 4/1 - 4/15
	//   | 5/0 - 5/10
	//   | 5/15
	A_CHARACTERS = " !\"%&'()*+,-./0123456789:;<=>?ABCDEFGHIJKLMNOPQRSTUVWXYZ_"

	// c-characters set which are the coded graphic character sets identified by the escape sequences in a Joliet SVD.
	// | All code points between (00)(00) and (00)(1F), inclusive. (Control Characters)
	// | (00)(2A) '*'(Asterisk)
	// | (00)(2F) '/' (Forward Slash)
	// | (00)(3A) ':' (Colon)
	// | (00)(3B) ';' (Semicolon)
	// | (00)(3F) '?' (Question Mark)
	// | (00)(5C) '\' (Backslash)

	// a1-characters set which are a subset of the c-characters. This subset shall be subject to agreement between the
	// originator and the recipient of the volume.

	// d-characters: 37 characters in the following positions of the International Reference Version
	// | 3/0 - 3/9
	// | 4/1 - 5/10
	// | 5/15
	D_CHARACTERS = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_"

	// d1-characters: the punctuation accepted on top of D_CHARACTERS;
	// identifier validation checks against D_CHARACTERS + D1_CHARACTERS.
	D1_CHARACTERS = ".-+()~&!@$"

	// Separators allowed by ISO9660 0x2E and 0x3B.
	ISO9660_SEPARATOR_1 = "."
	ISO9660_SEPARATOR_2 = ";"

	// ISO9660 Filler 0x20 (space)
	ISO9660_FILLER = " "

	// Interchange level 1 length limits.
	LEVEL1_MAX_NAME_LEN = 8
	LEVEL1_MAX_EXT_LEN  = 3
	LEVEL1_MAX_DIR_LEN  = 8

	// Interchange level 3 length limits.
	LEVEL3_MAX_NAME_LEN = 180
	LEVEL3_MAX_EXT_LEN  = 180
	LEVEL3_MAX_DIR_LEN  = 207

	// Maximum hierarchy depth, root counted as level 1.
	MAX_HIERARCHY_DEPTH = 8

	// RR_MOVED is the well-known relocation directory for Rock Ridge deep trees.
	RR_MOVED_DIR_NAME = "RR_MOVED"
	RR_MOVED_RR_NAME  = "rr_moved"
)
