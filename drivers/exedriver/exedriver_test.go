package exedriver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/truevfs/truevfs/archivedriver"
)

func TestRegistersExeSchemeReadOnly(t *testing.T) {
	d, ok := archivedriver.Lookup(Scheme)
	assert.True(t, ok)
	assert.False(t, d.Writable())
}

func TestSchemeForSuffixMatchesExe(t *testing.T) {
	scheme, ok := archivedriver.SchemeForSuffix("installer.exe")
	assert.True(t, ok)
	assert.Equal(t, Scheme, scheme)
}
