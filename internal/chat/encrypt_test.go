package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCipherRoundTrip(t *testing.T) {
	c, err := NewCipher("room-passphrase")
	require.NoError(t, err)

	enc, err := c.Encrypt("hello room")
	require.NoError(t, err)
	assert.NotEqual(t, "hello room", enc)

	plain, err := c.Decrypt(enc)
	require.NoError(t, err)
	assert.Equal(t, "hello room", plain)
}

func TestCipherNoncesDiffer(t *testing.T) {
	c, err := NewCipher("room-passphrase")
	require.NoError(t, err)

	a, err := c.Encrypt("same text")
	require.NoError(t, err)
	b, err := c.Encrypt("same text")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCipherWrongKeyFails(t *testing.T) {
	a, err := NewCipher("key-one")
	require.NoError(t, err)
	b, err := NewCipher("key-two")
	require.NoError(t, err)

	enc, err := a.Encrypt("secret")
	require.NoError(t, err)
	_, err = b.Decrypt(enc)
	assert.Error(t, err)
}

func TestCipherRejectsGarbage(t *testing.T) {
	c, err := NewCipher("key")
	require.NoError(t, err)

	_, err = c.Decrypt("not base64 at all ~~~")
	assert.Error(t, err)
	_, err = c.Decrypt("c2hvcnQ=")
	assert.Error(t, err)
}

func TestEmptyKeyRefused(t *testing.T) {
	_, err := NewCipher("")
	assert.Error(t, err)
}
