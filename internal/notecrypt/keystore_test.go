package notecrypt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadKey(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, keyFileName), []byte("secret-key\n"), 0o600))

	key, err := LoadKey(dir)
	require.NoError(t, err)
	require.Equal(t, "secret-key", key)
}

func TestLoadKeyMissingFileIsNotAnError(t *testing.T) {
	key, err := LoadKey(t.TempDir())
	require.NoError(t, err)
	require.Empty(t, key)
}
