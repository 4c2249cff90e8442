package syncutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/truevfs/truevfs/vfsmodel"
)

func TestCompositeNilWhenEmpty(t *testing.T) {
	var b Builder
	assert.NoError(t, b.Check())
}

func TestCompositeWarningOnlyWarnings(t *testing.T) {
	var b Builder
	b.Warn(errors.New("close error on forced stream"))
	b.Warn(errors.New("timestamp persistence failure"))

	err := b.Check()
	assert.Error(t, err)
	assert.True(t, vfsmodel.Of(err, vfsmodel.SyncWarning))
	assert.False(t, vfsmodel.Of(err, vfsmodel.SyncFatal))
}

func TestCompositeFatalTakesPrecedenceOverWarnings(t *testing.T) {
	var b Builder
	b.Warn(errors.New("a warning"))
	err := b.Fail(errors.New("central directory write failure"))

	assert.True(t, vfsmodel.Of(err, vfsmodel.SyncFatal))
	assert.False(t, vfsmodel.Of(err, vfsmodel.SyncWarning))
	assert.True(t, b.HasFatal())
}

func TestWarnfAttachesContext(t *testing.T) {
	var b Builder
	b.Warnf(errors.New("boom"), "flush entry %s", "a.txt")
	err := b.Check()
	assert.Contains(t, err.Error(), "flush entry a.txt")
	assert.Contains(t, err.Error(), "boom")
}

func TestNilCausesAreIgnored(t *testing.T) {
	var b Builder
	b.Warn(nil)
	b.Fail(nil)
	assert.NoError(t, b.Check())
	assert.False(t, b.HasFatal())
}
