package vfsmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessOptionsSetString(t *testing.T) {
	var opts AccessOptions
	require.NoError(t, opts.Set("cache|create-parents"))
	assert.True(t, opts.Has(Cache))
	assert.True(t, opts.Has(CreateParents))
	assert.False(t, opts.Has(Encrypt))
	assert.Equal(t, "cache|create-parents", opts.String())
}

func TestAccessOptionsSetUnknown(t *testing.T) {
	var opts AccessOptions
	assert.Error(t, opts.Set("bogus"))
}

func TestSyncOptionsUmountImplies(t *testing.T) {
	opts := SyncOptions(Umount)
	assert.True(t, opts.Has(ForceCloseInput))
	assert.True(t, opts.Has(ForceCloseOutput))
	assert.True(t, opts.Has(ClearCache))
	assert.True(t, opts.ForcesClose())
}

func TestKindErrorIs(t *testing.T) {
	err := ErrNeedsWriteLock()
	assert.True(t, Of(err, NeedsWriteLock))
	assert.False(t, Of(err, NeedsLockRetry))
}
