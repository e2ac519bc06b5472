package descriptor

import (
	"time"

	"github.com/discforge/iso9660/pkg/directory"
)

// VolumeDescriptor is satisfied by every descriptor kind that carries the
// identification fields used by readers (PVD, SVD; Boot Record and
// Terminator only expose Type/Header).
type VolumeDescriptor interface {
	Type() Type
	Marshal() ([2048]byte, error)
	Unmarshal(data [2048]byte) error
}

// PrimaryOrSupplementary lists the identification accessors of a PVD or
// Joliet SVD, whose bodies share one field layout. PrimaryVolumeDescriptor
// and SupplementaryVolumeDescriptor define RootDirectory,
// VolumeCreationDateTime and IsJoliet but not VolumeIdentifier, so neither
// satisfies this interface, and nothing in the module uses it.
type PrimaryOrSupplementary interface {
	VolumeDescriptor
	VolumeIdentifier() string
	RootDirectory() *directory.Record
	VolumeCreationDateTime() time.Time
	IsJoliet() bool
}
