package keystore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateKey(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "submitter.key")

	created, isNew, err := LoadOrCreateKey(path)
	require.NoError(t, err)
	assert.True(t, isNew)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, isNew, err := LoadOrCreateKey(path)
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, created.Address(), loaded.Address())
}

func TestParseKey(t *testing.T) {
	t.Parallel()

	_, err := ParseKey("0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	require.NoError(t, err)

	_, err = ParseKey("0xzz")
	require.Error(t, err)
}
