package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFileIdentifierLevel1(t *testing.T) {
	require.NoError(t, ValidateFileIdentifier("FOO.TXT;1", Level1))
	require.NoError(t, ValidateFileIdentifier("FOO.;1", Level1))
	assert.Error(t, ValidateFileIdentifier("TOOLONGNAME.TXT;1", Level1))
	assert.Error(t, ValidateFileIdentifier("FOO.TOOLONGEXT;1", Level1))
	assert.Error(t, ValidateFileIdentifier("foo.txt;1", Level1))
}

func TestValidateFileIdentifierLevel3(t *testing.T) {
	require.NoError(t, ValidateFileIdentifier("A_REASONABLY_LONGER_NAME.TXT;1", Level3))
}

func TestValidateFileIdentifierEmpty(t *testing.T) {
	assert.Error(t, ValidateFileIdentifier(";1", Level1))
}

func TestValidateDirectoryIdentifier(t *testing.T) {
	require.NoError(t, ValidateDirectoryIdentifier("DIR1", Level1))
	assert.Error(t, ValidateDirectoryIdentifier("TOOLONGDIRNAME", Level1))
	require.NoError(t, ValidateDirectoryIdentifier("TOOLONGDIRNAME", Level3))
}

func TestValidISO9660DirIdentifierSentinels(t *testing.T) {
	assert.True(t, ValidISO9660DirIdentifier("\x00"))
	assert.True(t, ValidISO9660DirIdentifier("\x01"))
}

func TestDetectInterchangeLevel(t *testing.T) {
	assert.Equal(t, Level1, DetectInterchangeLevel([]string{"FOO.TXT;1", "DIR1"}))
	assert.Equal(t, Level3, DetectInterchangeLevel([]string{"A_MUCH_LONGER_FILENAME_THAN_LEVEL1_ALLOWS.TXT;1"}))
}
