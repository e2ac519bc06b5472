package option

// ElToritoOptions backs add_eltorito; BootInfoTable mirrors pycdlib's
// opt-in `bootinfotable` flag rather than being implied by El Torito
// alone (spec §4.G describes the patch bytes, not when they apply).
type ElToritoOptions struct {
	BootInfoTable bool
}

type ElToritoOption func(*ElToritoOptions)

func DefaultElToritoOptions() ElToritoOptions {
	return ElToritoOptions{}
}

// WithBootInfoTable requests that the writer patch bytes 8-63 of the boot
// file's first sector with the boot info table (PVD extent, boot file
// extent and length, and an EBIOS checksum of the remaining sectors).
func WithBootInfoTable(enabled bool) ElToritoOption {
	return func(o *ElToritoOptions) { o.BootInfoTable = enabled }
}
