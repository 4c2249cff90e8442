package tardriver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/truevfs/truevfs/archivedriver"
)

func TestRegistersTarScheme(t *testing.T) {
	d, ok := archivedriver.Lookup(Scheme)
	require := assert.New(t)
	require.True(ok)
	require.True(d.Writable())
}

func TestSchemeForSuffixMatchesTar(t *testing.T) {
	scheme, ok := archivedriver.SchemeForSuffix("archive.tar")
	assert.True(t, ok)
	assert.Equal(t, Scheme, scheme)
}
