package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truevfs/truevfs/vfsmodel"
)

func TestWithControllerResolvesHostDirectory(t *testing.T) {
	dir := t.TempDir()

	var got *vfsmodel.Entry
	err := withController(dir, func(ctx context.Context, c controllerHandle) error {
		entry, err := c.Stat(ctx, 0, "")
		got = entry
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, vfsmodel.Directory, got.Type)
}

func TestWithControllerSyncSucceedsOnEmptyDirectory(t *testing.T) {
	dir := t.TempDir()

	err := withController(dir, func(ctx context.Context, c controllerHandle) error {
		return c.Sync(ctx, vfsmodel.SyncOptions(vfsmodel.Umount))
	})
	assert.NoError(t, err)
}
