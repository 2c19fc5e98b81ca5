package notecrypt

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// keyFileName matches the storage key the legacy app used for its symmetric key.
const keyFileName = "cadence_encryption_key"

// LoadKey reads the symmetric decryption key from the secrets directory. A
// missing key file is not an error: classification still runs without a key
// and decryption falls back to the sentinel.
func LoadKey(dir string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(dir, keyFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}
