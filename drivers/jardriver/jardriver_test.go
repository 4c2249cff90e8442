package jardriver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/truevfs/truevfs/archivedriver"
)

func TestRegistersJarWarEarSuffixes(t *testing.T) {
	d, ok := archivedriver.Lookup(Scheme)
	assert.True(t, ok)
	assert.True(t, d.Writable())

	for _, name := range []string{"app.jar", "app.war", "app.ear"} {
		scheme, ok := archivedriver.SchemeForSuffix(name)
		assert.True(t, ok, name)
		assert.Equal(t, Scheme, scheme, name)
	}
}
