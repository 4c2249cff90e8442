package zipdriver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/truevfs/truevfs/archivedriver"
)

func TestRegistersZipScheme(t *testing.T) {
	d, ok := archivedriver.Lookup(Scheme)
	assert.True(t, ok)
	assert.True(t, d.Writable())
}

func TestSchemeForSuffixMatchesZip(t *testing.T) {
	scheme, ok := archivedriver.SchemeForSuffix("archive.zip")
	assert.True(t, ok)
	assert.Equal(t, Scheme, scheme)
}
