package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/truevfs/truevfs/vfscache"
	"github.com/truevfs/truevfs/vfspath"
)

func TestCacheModeSetAndString(t *testing.T) {
	var m CacheMode
	require.NoError(t, m.Set("writes"))
	assert.Equal(t, CacheWrites, m)
	assert.Equal(t, "writes", m.String())
}

func TestCacheModeSetRejectsUnknown(t *testing.T) {
	var m CacheMode
	assert.Error(t, m.Set("bogus"))
}

func TestPoolKindSelectsPool(t *testing.T) {
	c := Default()
	c.IOPoolKind = PoolMem
	_, isMem := c.Pool().(vfscache.MemPool)
	assert.True(t, isMem)

	c.IOPoolKind = PoolThreshold
	_, isThreshold := c.Pool().(vfscache.ThresholdPool)
	assert.True(t, isThreshold)
}

func TestSchemeEnabledEmptyMeansAll(t *testing.T) {
	c := Default()
	assert.True(t, c.SchemeEnabled(vfspath.Scheme("zip")))
}

func TestSchemeEnabledRestrictsToList(t *testing.T) {
	c := Default()
	c.Schemes = []vfspath.Scheme{"zip"}
	assert.True(t, c.SchemeEnabled(vfspath.Scheme("zip")))
	assert.False(t, c.SchemeEnabled(vfspath.Scheme("tar")))
}

func TestRegisterFlagsRoundTrips(t *testing.T) {
	c := Default()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	c.RegisterFlags(fs)

	require.NoError(t, fs.Parse([]string{"--cache-mode=minimal", "--pacemaker-max=9", "--schemes=zip|tar"}))
	assert.Equal(t, CacheMinimal, c.CacheMode)
	assert.Equal(t, 9, c.PacemakerMax)
	assert.Equal(t, []vfspath.Scheme{"zip", "tar"}, c.Schemes)
}
