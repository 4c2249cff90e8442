package tzpdriver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/truevfs/truevfs/archivedriver"
	"github.com/truevfs/truevfs/vfsmodel"
)

func TestRegistersTzpSchemeWritable(t *testing.T) {
	d, ok := archivedriver.Lookup(Scheme)
	assert.True(t, ok)
	assert.True(t, d.Writable())
}

func TestSchemeForSuffixMatchesTzp(t *testing.T) {
	scheme, ok := archivedriver.SchemeForSuffix("vault.tzp")
	assert.True(t, ok)
	assert.Equal(t, Scheme, scheme)
}

func TestEncryptDecryptRoundTrips(t *testing.T) {
	plain := []byte("this is the plaintext ZIP payload")
	sealed, err := encrypt("correct horse battery staple", plain)
	require.NoError(t, err)

	got, err := decrypt("correct horse battery staple", sealed)
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}

func TestDecryptWrongPassphraseFails(t *testing.T) {
	sealed, err := encrypt("right-passphrase", []byte("secret bytes"))
	require.NoError(t, err)

	_, err = decrypt("wrong-passphrase", sealed)
	assert.True(t, vfsmodel.Of(err, vfsmodel.BadKey) || vfsmodel.Of(err, vfsmodel.AuthenticationFailed))
}

func TestDecryptTruncatedEnvelopeIsCorruptArchive(t *testing.T) {
	_, err := decrypt("anything", []byte("short"))
	assert.True(t, vfsmodel.Of(err, vfsmodel.CorruptArchive))
}

func TestDecryptBadMagicIsFalsePositive(t *testing.T) {
	sealed, err := encrypt("pw", []byte("data"))
	require.NoError(t, err)
	corrupted := append([]byte(nil), sealed...)
	corrupted[0] = 'X'

	_, err = decrypt("pw", corrupted)
	assert.True(t, vfsmodel.Of(err, vfsmodel.FalsePositive))
}
