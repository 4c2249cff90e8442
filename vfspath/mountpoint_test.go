package vfspath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHostOnly(t *testing.T) {
	mp, err := Parse("file:/tmp/work/")
	require.NoError(t, err)
	assert.True(t, mp.IsHost())
	assert.Equal(t, SchemeFile, mp.Scheme)
	assert.Equal(t, "file:/tmp/work/", mp.String())
}

func TestParseNested(t *testing.T) {
	mp, err := Parse("file:/tmp/work/!zip:a.zip!/tar:b.tar!/")
	require.NoError(t, err)
	assert.False(t, mp.IsHost())
	assert.Equal(t, SchemeTar, mp.Scheme)
	assert.Equal(t, EntryName("b.tar"), mp.Entry)
	assert.Equal(t, SchemeZip, mp.Parent.Scheme)
}

func TestRoundTrip(t *testing.T) {
	for _, s := range []string{
		"file:/tmp/work/",
		"file:/tmp/work/!zip:a.zip!/",
		"file:/tmp/work/!zip:a.zip!/tar:b.tar!/",
	} {
		mp, err := Parse(s)
		require.NoError(t, err)
		assert.Equal(t, s, mp.String())
	}
}

func TestParseNestedParentPrefix(t *testing.T) {
	s := "file:/tmp/work/!zip:a.zip!/tar:b.tar!/"
	mp, err := Parse(s)
	require.NoError(t, err)
	prefix := "file:/tmp/work/!zip:a.zip!/"
	assert.Equal(t, prefix, mp.Parent.String())
}

func TestParseMissingScheme(t *testing.T) {
	_, err := Parse("/tmp/work/")
	assert.ErrorIs(t, err, ErrNonabsolute)
}

func TestEntryNameCanonicalization(t *testing.T) {
	e, err := NewEntryName("/a/./b/../c", false)
	require.NoError(t, err)
	assert.Equal(t, EntryName("a/c"), e)

	_, err = NewEntryName("../escape", false)
	assert.Error(t, err)
}

func TestEntryNameParentBase(t *testing.T) {
	e := EntryName("d/y")
	assert.Equal(t, EntryName("d/"), e.Parent())
	assert.Equal(t, "y", e.Base())
}

func TestDecompose(t *testing.T) {
	host, err := Parse("file:/tmp/work/")
	require.NoError(t, err)
	aZip, err := NewNestedMountPoint(host, SchemeZip, EntryName("a.zip"))
	require.NoError(t, err)
	aZipBTar, err := NewNestedMountPoint(aZip, SchemeTar, EntryName("b.tar"))
	require.NoError(t, err)

	p := NewPath(aZipBTar, EntryName("c.txt"))
	chain := Decompose(p)
	require.Len(t, chain, 3)
	assert.Equal(t, host, chain[0].Mount)
	assert.Equal(t, EntryName("a.zip"), chain[0].Entry)
	assert.Equal(t, aZip, chain[1].Mount)
	assert.Equal(t, EntryName("b.tar"), chain[1].Entry)
	assert.Equal(t, aZipBTar, chain[2].Mount)
	assert.Equal(t, EntryName("c.txt"), chain[2].Entry)
}
