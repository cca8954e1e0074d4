// ABOUTME: Tests for the charm client wrapper
// ABOUTME: Runs against the BadgerDB-backed test client

package charm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSetGetDelete(t *testing.T) {
	c := NewTestClient(t)

	require.NoError(t, c.Set([]byte("conversation:a"), []byte("one")))
	got, err := c.Get([]byte("conversation:a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), got)

	require.NoError(t, c.Delete([]byte("conversation:a")))
	_, err = c.Get([]byte("conversation:a"))
	assert.Error(t, err)
}

func TestKeysWithPrefix(t *testing.T) {
	c := NewTestClient(t)

	require.NoError(t, c.Set([]byte("conversation:a"), []byte("1")))
	require.NoError(t, c.Set([]byte("conversation:b"), []byte("2")))
	require.NoError(t, c.Set([]byte("other:c"), []byte("3")))

	keys, err := c.KeysWithPrefix([]byte("conversation:"))
	require.NoError(t, err)
	assert.Len(t, keys, 2)

	require.NoError(t, c.Reset())
	keys, err = c.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestTestClientIdentity(t *testing.T) {
	c := NewTestClient(t)

	id, err := c.ID()
	require.NoError(t, err)
	assert.Equal(t, "local", id)
	assert.False(t, c.Config().AutoSync)
	assert.NoError(t, c.Sync())
}

func TestConfigDefaults(t *testing.T) {
	cfg := (&Config{}).withDefaults()
	assert.Equal(t, DefaultCharmHost, cfg.Host)
	assert.NotZero(t, cfg.StaleThreshold)
}
