package odfdriver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/truevfs/truevfs/archivedriver"
)

func TestRegistersOdfSuffixes(t *testing.T) {
	d, ok := archivedriver.Lookup(Scheme)
	assert.True(t, ok)
	assert.True(t, d.Writable())

	for _, name := range []string{"doc.odt", "sheet.ods", "slides.odp"} {
		scheme, ok := archivedriver.SchemeForSuffix(name)
		assert.True(t, ok, name)
		assert.Equal(t, Scheme, scheme, name)
	}
}
