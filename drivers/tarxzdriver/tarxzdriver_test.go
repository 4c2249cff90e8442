package tarxzdriver

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/truevfs/truevfs/archivedriver"
)

func TestRegistersTarxzSchemeWritable(t *testing.T) {
	d, ok := archivedriver.Lookup(Scheme)
	assert.True(t, ok)
	assert.True(t, d.Writable())
}

func TestSchemeForSuffixMatchesTarXz(t *testing.T) {
	scheme, ok := archivedriver.SchemeForSuffix("backup.tar.xz")
	assert.True(t, ok)
	assert.Equal(t, Scheme, scheme)
}

func TestCodecRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	codec := xzCodec{}
	w, err := codec.WrapWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello xz"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := codec.WrapReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	var out bytes.Buffer
	_, err = out.ReadFrom(r)
	require.NoError(t, err)
	assert.Equal(t, "hello xz", out.String())
}
