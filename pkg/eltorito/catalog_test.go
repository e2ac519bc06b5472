package eltorito

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationEntryChecksumRoundTrip(t *testing.T) {
	v := ValidationEntry{Platform: PlatformBIOS}
	copy(v.DeveloperID[:], "DISCFORGE")

	b := v.marshal()
	assert.Equal(t, byte(0x55), b[30])
	assert.Equal(t, byte(0xAA), b[31])

	got, err := unmarshalValidationEntry(b[:])
	require.NoError(t, err)
	assert.Equal(t, v.Platform, got.Platform)
	assert.Equal(t, v.DeveloperID, got.DeveloperID)
}

func TestValidationEntryRejectsBadChecksum(t *testing.T) {
	v := ValidationEntry{Platform: PlatformBIOS}
	b := v.marshal()
	b[4] ^= 0xFF
	_, err := unmarshalValidationEntry(b[:])
	assert.Error(t, err)
}

func TestInitialEntryRoundTrip(t *testing.T) {
	e := Entry{
		Bootable:    true,
		Emulation:   NoEmulation,
		LoadSegment: 0x07C0,
		SystemType:  0,
		SectorCount: 4,
		LoadRBA:     123,
	}
	b := e.marshalInitial()
	got, err := unmarshalInitialEntry(b[:], PlatformBIOS)
	require.NoError(t, err)
	assert.Equal(t, e.Bootable, got.Bootable)
	assert.Equal(t, e.LoadSegment, got.LoadSegment)
	assert.Equal(t, e.SectorCount, got.SectorCount)
	assert.Equal(t, e.LoadRBA, got.LoadRBA)
}

func TestCatalogMarshalParseRoundTripNoSections(t *testing.T) {
	c := &Catalog{
		Validation: ValidationEntry{Platform: PlatformBIOS},
		Initial: Entry{
			Bootable:    true,
			SectorCount: 4,
			LoadRBA:     200,
		},
	}
	data, err := c.Marshal()
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, c.Validation.Platform, parsed.Validation.Platform)
	assert.Equal(t, c.Initial.LoadRBA, parsed.Initial.LoadRBA)
	assert.Empty(t, parsed.Sections)
}

func TestCatalogMarshalParseRoundTripWithSections(t *testing.T) {
	c := &Catalog{
		Validation: ValidationEntry{Platform: PlatformBIOS},
		Initial: Entry{
			Bootable:    true,
			SectorCount: 4,
			LoadRBA:     200,
		},
		Sections: []Section{
			{
				Platform: PlatformEFI,
				Entries: []Entry{
					{Bootable: true, SectorCount: 8, LoadRBA: 300},
					{Bootable: true, SectorCount: 8, LoadRBA: 400},
				},
			},
		},
	}
	data, err := c.Marshal()
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, parsed.Sections, 1)
	assert.Equal(t, PlatformEFI, parsed.Sections[0].Platform)
	require.Len(t, parsed.Sections[0].Entries, 2)
	assert.Equal(t, uint32(300), parsed.Sections[0].Entries[0].LoadRBA)
	assert.Equal(t, uint32(400), parsed.Sections[0].Entries[1].LoadRBA)
}

func TestIsElToritoMatchesBootSystemIdentifier(t *testing.T) {
	assert.True(t, IsElTorito("EL TORITO SPECIFICATION\x00\x00\x00\x00\x00\x00\x00\x00"[:len("EL TORITO SPECIFICATION")]))
}
