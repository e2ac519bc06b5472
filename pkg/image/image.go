// Package image ties every on-disk component together into the mutable
// object graph the public API operates on: parsing (component I), the
// extent allocator/reshuffle pass (component J), the writer (component
// K), and the mutation API (component L).
package image

import (
	"io"
	"time"

	"github.com/discforge/iso9660/pkg/descriptor"
	"github.com/discforge/iso9660/pkg/directory"
	"github.com/discforge/iso9660/pkg/eltorito"
	"github.com/discforge/iso9660/pkg/isoerr"
	"github.com/discforge/iso9660/pkg/isohybrid"
	"github.com/discforge/iso9660/pkg/logging"
	"github.com/discforge/iso9660/pkg/option"
	"github.com/discforge/iso9660/pkg/pathtable"
)

// Image is the single-owner, non-thread-safe in-memory object graph for
// one ISO9660 image: the volume descriptors, both directory trees
// (primary and, if enabled, Joliet), the El Torito boot catalog, and the
// isohybrid MBR, if present.
type Image struct {
	Primary  *descriptor.PrimaryVolumeDescriptor
	Joliet   *descriptor.SupplementaryVolumeDescriptor
	BootRecords []*descriptor.BootRecord

	PrimaryPathTableL *pathtable.Table
	PrimaryPathTableM *pathtable.Table
	JolietPathTableL  *pathtable.Table
	JolietPathTableM  *pathtable.Table

	ElTorito             *eltorito.Catalog
	elToritoCatalogRecord *directory.Record
	elToritoInitialRecord *directory.Record
	elToritoBootRecord    *descriptor.BootRecord
	elToritoBootInfoTable bool

	Isohybrid *isohybrid.MBR

	RockRidgeEnabled bool
	JolietEnabled    bool

	// reader is the backing source of a parsed image; records whose
	// payload still lives in the original file stream from here until
	// the image is rewritten (parse-through-write, per §5).
	reader io.ReaderAt

	CreateOptions option.CreateOptions
	OpenOptions   option.OpenOptions

	Logger *logging.Logger

	initialized bool
}

// New creates an empty, in-memory image graph: a root directory, a
// Primary Volume Descriptor, and (if requested) a Joliet Supplementary
// Volume Descriptor — nothing is written until Write is called.
func New(opts ...option.CreateOption) (*Image, error) {
	createOptions := option.DefaultCreateOptions()
	for _, opt := range opts {
		opt(&createOptions)
	}

	now := time.Now()

	root := &directory.Record{
		FileIdentifier:       "\x00",
		FileFlags:            directory.FileFlags{Directory: true},
		RecordingDateAndTime: now,
		VolumeSequenceNumber: 1,
	}
	root.Children = []*directory.Record{
		dotRecord(root),
		dotDotRecord(root, root),
	}

	pvd := descriptor.NewPrimaryVolumeDescriptor()
	pvd.Body.SystemIdentifier = createOptions.SystemIdentifier
	pvd.Body.VolumeIdentifier = createOptions.VolumeIdentifier
	pvd.Body.VolumeSetIdentifier = createOptions.VolumeSetIdentifier
	pvd.Body.PublisherIdentifier = createOptions.PublisherIdentifier
	pvd.Body.DataPreparerIdentifier = createOptions.DataPreparerIdentifier
	pvd.Body.ApplicationIdentifier = createOptions.ApplicationIdentifier
	pvd.Body.CopyrightFileIdentifier = createOptions.CopyrightFileIdentifier
	pvd.Body.AbstractFileIdentifier = createOptions.AbstractFileIdentifier
	pvd.Body.BibliographicFileIdentifier = createOptions.BibliographicFileIdentifier
	pvd.Body.VolumeCreationDateAndTime = now
	pvd.Body.VolumeModificationDateAndTime = now
	pvd.Body.VolumeExpirationDateAndTime = createOptions.VolumeExpirationDateAndTime
	pvd.Body.VolumeEffectiveDateAndTime = now
	pvd.Body.VolumeSetSize = 1
	pvd.Body.VolumeSequenceNumber = 1
	pvd.Body.FileStructureVersion = 1
	pvd.Body.ApplicationUse = createOptions.ApplicationUse
	pvd.Body.RootDirectoryRecord = root

	img := &Image{
		Primary:          pvd,
		RockRidgeEnabled: createOptions.RockRidge,
		JolietEnabled:    createOptions.Joliet,
		CreateOptions:    createOptions,
		Logger:           logging.DefaultLogger(),
		initialized:      true,
	}

	if createOptions.Joliet {
		jolietRoot := &directory.Record{
			FileIdentifier:       "\x00",
			FileFlags:            directory.FileFlags{Directory: true},
			RecordingDateAndTime: now,
			VolumeSequenceNumber: 1,
			Joliet:               true,
		}
		jolietRoot.Children = []*directory.Record{
			dotRecord(jolietRoot),
			dotDotRecord(jolietRoot, jolietRoot),
		}

		svd := descriptor.NewJolietSupplementaryVolumeDescriptor()
		svd.Body.VolumeIdentifier = createOptions.VolumeIdentifier
		svd.Body.SystemIdentifier = createOptions.SystemIdentifier
		svd.Body.VolumeSetIdentifier = createOptions.VolumeSetIdentifier
		svd.Body.PublisherIdentifier = createOptions.PublisherIdentifier
		svd.Body.DataPreparerIdentifier = createOptions.DataPreparerIdentifier
		svd.Body.ApplicationIdentifier = createOptions.ApplicationIdentifier
		svd.Body.VolumeCreationDateAndTime = now
		svd.Body.VolumeModificationDateAndTime = now
		svd.Body.VolumeEffectiveDateAndTime = now
		svd.Body.VolumeSetSize = 1
		svd.Body.VolumeSequenceNumber = 1
		svd.Body.FileStructureVersion = 1
		svd.Body.RootDirectoryRecord = jolietRoot

		img.Joliet = svd
	}

	if err := img.Reshuffle(); err != nil {
		return nil, err
	}

	return img, nil
}

func dotRecord(self *directory.Record) *directory.Record {
	return &directory.Record{
		FileIdentifier:       "\x00",
		FileFlags:            directory.FileFlags{Directory: true},
		RecordingDateAndTime: self.RecordingDateAndTime,
		Parent:               self,
		Joliet:               self.Joliet,
	}
}

func dotDotRecord(self, parent *directory.Record) *directory.Record {
	return &directory.Record{
		FileIdentifier:       "\x01",
		FileFlags:            directory.FileFlags{Directory: true},
		RecordingDateAndTime: self.RecordingDateAndTime,
		Parent:               self,
		Joliet:               self.Joliet,
	}
}

// Close releases the backing reader, if it owns one that implements
// io.Closer (an opened os.File, for instance), and resets the image to
// the uninitialized state per spec §6 close().
func (img *Image) Close() error {
	var closeErr error
	if c, ok := img.reader.(io.Closer); ok {
		closeErr = c.Close()
	}
	*img = Image{}
	return closeErr
}

// requireInitialized is the guard every mutation and read operation
// starts with.
func (img *Image) requireInitialized() error {
	if !img.initialized {
		return isoerr.New(isoerr.NotInitialized, "call new or open first")
	}
	return nil
}

// HasJoliet reports whether this image carries a Joliet SVD.
func (img *Image) HasJoliet() bool { return img.Joliet != nil }

// HasRockRidge reports whether Rock Ridge extensions are active.
func (img *Image) HasRockRidge() bool { return img.RockRidgeEnabled }

// HasElTorito reports whether this image is bootable.
func (img *Image) HasElTorito() bool { return img.ElTorito != nil }

// HasIsohybrid reports whether this image carries a hybrid MBR.
func (img *Image) HasIsohybrid() bool { return img.Isohybrid != nil }
