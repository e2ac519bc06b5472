package option

import "time"

// CreateOptions backs new(), the constructor for an empty, in-memory
// image graph.
type CreateOptions struct {
	InterchangeLevel            int
	SystemIdentifier            string
	VolumeIdentifier            string
	VolumeSetIdentifier         string
	PublisherIdentifier         string
	DataPreparerIdentifier      string
	ApplicationIdentifier       string
	CopyrightFileIdentifier     string
	AbstractFileIdentifier      string
	BibliographicFileIdentifier string
	VolumeExpirationDateAndTime time.Time
	ApplicationUse              [512]byte
	Joliet                      bool
	RockRidge                   bool
}

type CreateOption func(*CreateOptions)

// DefaultCreateOptions mirrors what mkisofs-alikes default to: level 3,
// no Joliet, no Rock Ridge, until overridden.
func DefaultCreateOptions() CreateOptions {
	return CreateOptions{InterchangeLevel: 3}
}

func WithInterchangeLevel(level int) CreateOption {
	return func(o *CreateOptions) { o.InterchangeLevel = level }
}

func WithSystemIdentifier(id string) CreateOption {
	return func(o *CreateOptions) { o.SystemIdentifier = id }
}

func WithVolumeIdentifier(id string) CreateOption {
	return func(o *CreateOptions) { o.VolumeIdentifier = id }
}

func WithVolumeSetIdentifier(id string) CreateOption {
	return func(o *CreateOptions) { o.VolumeSetIdentifier = id }
}

func WithPublisherIdentifier(id string) CreateOption {
	return func(o *CreateOptions) { o.PublisherIdentifier = id }
}

func WithDataPreparerIdentifier(id string) CreateOption {
	return func(o *CreateOptions) { o.DataPreparerIdentifier = id }
}

func WithApplicationIdentifier(id string) CreateOption {
	return func(o *CreateOptions) { o.ApplicationIdentifier = id }
}

func WithCopyrightFileIdentifier(name string) CreateOption {
	return func(o *CreateOptions) { o.CopyrightFileIdentifier = name }
}

func WithAbstractFileIdentifier(name string) CreateOption {
	return func(o *CreateOptions) { o.AbstractFileIdentifier = name }
}

func WithBibliographicFileIdentifier(name string) CreateOption {
	return func(o *CreateOptions) { o.BibliographicFileIdentifier = name }
}

func WithVolumeExpirationDateTime(t time.Time) CreateOption {
	return func(o *CreateOptions) { o.VolumeExpirationDateAndTime = t }
}

func WithApplicationUse(data [512]byte) CreateOption {
	return func(o *CreateOptions) { o.ApplicationUse = data }
}

func WithJoliet(enabled bool) CreateOption {
	return func(o *CreateOptions) { o.Joliet = enabled }
}

func WithRockRidge(enabled bool) CreateOption {
	return func(o *CreateOptions) { o.RockRidge = enabled }
}
