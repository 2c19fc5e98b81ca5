package notecrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

// encryptSalted produces the OpenSSL passphrase serialization the legacy app
// stored: base64("Salted__" + salt + AES-256-CBC ciphertext), key material
// derived from the passphrase with MD5 EVP_BytesToKey.
func encryptSalted(t *testing.T, plaintext, passphrase string) string {
	t.Helper()

	salt := make([]byte, 8)
	_, err := rand.Read(salt)
	require.NoError(t, err)

	key, iv := evpBytesToKey([]byte(passphrase), salt)
	block, err := aes.NewCipher(key)
	require.NoError(t, err)

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	raw := append(append([]byte("Salted__"), salt...), ciphertext...)
	return base64.StdEncoding.EncodeToString(raw)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padding)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padding)
	}
	return padded
}

func TestClassifierAcceptsProse(t *testing.T) {
	c := DefaultClassifier()

	require.False(t, c.IsEncrypted("Had a great walk today"))
	require.False(t, c.IsEncrypted("Had a great deep work session this morning"))
	require.False(t, c.IsEncrypted("quick break"))
	require.False(t, c.IsEncrypted(""))
}

func TestClassifierFlagsOpenSSLMarker(t *testing.T) {
	c := DefaultClassifier()

	require.True(t, c.IsEncrypted("U2FsdGVkX1+abc"))
}

func TestClassifierFlagsLongBase64(t *testing.T) {
	c := DefaultClassifier()

	require.True(t, c.IsEncrypted("aGVsbG8gd29ybGQgdGhpcyBpcyBsb25n"))
	// Short base64-looking strings are ordinary words.
	require.False(t, c.IsEncrypted("hello"))
}

func TestClassifierThresholdsAreTunable(t *testing.T) {
	strict := Classifier{HighEntropy: 1.0, ProseEntropy: 0.5, MinBase64Len: 1000}

	// With the entropy bar this low, even prose trips the signal.
	require.True(t, strict.IsEncrypted("Had a great deep work session this morning"))
}

func TestDecryptSaltedRoundTrip(t *testing.T) {
	const passphrase = "correct horse battery staple"
	const plaintext = "remember to stretch before the next session"

	encrypted := encryptSalted(t, plaintext, passphrase)

	decrypted, ok := Decrypt(encrypted, passphrase)
	require.True(t, ok)
	require.Equal(t, plaintext, decrypted)
}

func TestDecryptWrongKeyFails(t *testing.T) {
	encrypted := encryptSalted(t, "secret note", "right key")

	_, ok := Decrypt(encrypted, "wrong key")
	require.False(t, ok)
}

func TestDecryptEmptyKeyFails(t *testing.T) {
	encrypted := encryptSalted(t, "secret note", "some key")

	_, ok := Decrypt(encrypted, "")
	require.False(t, ok)
}

func TestDecryptGarbageFails(t *testing.T) {
	_, ok := Decrypt("not base64 at all!!", "key")
	require.False(t, ok)
}

func TestProcessNotePlaintextPassthrough(t *testing.T) {
	p := NewProcessor("some key")

	out := p.ProcessNote("Felt energised after the run!")
	require.Equal(t, "Felt energised after the run!", out.Message)
	require.False(t, out.WasEncrypted)
	require.True(t, out.DecryptionOK)
}

func TestProcessNoteRoundTrip(t *testing.T) {
	const passphrase = "migration-key"
	const plaintext = "lunch walk around the block"

	p := NewProcessor(passphrase)
	encrypted := encryptSalted(t, plaintext, passphrase)

	out := p.ProcessNote(encrypted)
	require.True(t, out.WasEncrypted)
	require.True(t, out.DecryptionOK)
	require.Equal(t, plaintext, out.Message)
	require.Equal(t, encrypted, out.Original)
}

func TestProcessNoteSentinelWithoutKey(t *testing.T) {
	p := NewProcessor("")
	require.False(t, p.HasKey())

	encrypted := encryptSalted(t, "unreachable", "some key")

	out := p.ProcessNote(encrypted)
	require.True(t, out.WasEncrypted)
	require.False(t, out.DecryptionOK)
	require.Equal(t, UnableToDecrypt, out.Message)
}

func TestStats(t *testing.T) {
	processed := []Processed{
		{WasEncrypted: false, DecryptionOK: true},
		{WasEncrypted: true, DecryptionOK: true},
		{WasEncrypted: true, DecryptionOK: true},
		{WasEncrypted: true, DecryptionOK: false},
	}

	stats := Stats(processed)
	require.Equal(t, 4, stats.Total)
	require.Equal(t, 3, stats.Encrypted)
	require.Equal(t, 2, stats.Decrypted)
	require.Equal(t, 1, stats.Failed)
	require.InDelta(t, 66.6, stats.SuccessRate, 0.1)
}
