package notecrypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"encoding/base64"
	"unicode/utf8"
)

// Decrypt attempts to recover plaintext from an encrypted note body using the
// symmetric key. Strategies are tried in order: OpenSSL-style passphrase
// decryption of the salted format, Base64-decode then unsalted passphrase
// decryption, and finally AES-ECB with the raw UTF-8 key bytes. The first
// strategy yielding non-empty valid UTF-8 wins. Decrypt never fails hard; an
// empty key or exhausted strategies return ok=false.
func Decrypt(message, key string) (string, bool) {
	if key == "" {
		return "", false
	}

	raw, err := base64.StdEncoding.DecodeString(message)
	if err != nil {
		return "", false
	}

	if plaintext, ok := decryptSalted(raw, key); ok {
		return plaintext, true
	}
	if plaintext, ok := decryptUnsalted(raw, key); ok {
		return plaintext, true
	}
	if plaintext, ok := decryptECB(raw, key); ok {
		return plaintext, true
	}
	return "", false
}

var saltedPrefix = []byte("Salted__")

// decryptSalted handles the OpenSSL serialization: "Salted__" + 8-byte salt +
// ciphertext, key and IV derived from the passphrase via MD5 EVP_BytesToKey.
func decryptSalted(raw []byte, key string) (string, bool) {
	if len(raw) < 16 || !bytes.HasPrefix(raw, saltedPrefix) {
		return "", false
	}
	salt := raw[8:16]
	ciphertext := raw[16:]
	aesKey, iv := evpBytesToKey([]byte(key), salt)
	return decryptCBC(ciphertext, aesKey, iv)
}

// decryptUnsalted derives key material with no salt, covering payloads whose
// salt header was stripped before storage.
func decryptUnsalted(raw []byte, key string) (string, bool) {
	aesKey, iv := evpBytesToKey([]byte(key), nil)
	return decryptCBC(raw, aesKey, iv)
}

// decryptECB uses the key's UTF-8 bytes directly as the AES key. Only valid
// AES key sizes are attempted.
func decryptECB(raw []byte, key string) (string, bool) {
	keyBytes := []byte(key)
	switch len(keyBytes) {
	case 16, 24, 32:
	default:
		return "", false
	}
	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return "", false
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", false
	}
	plaintext := make([]byte, len(raw))
	for i := 0; i < len(raw); i += aes.BlockSize {
		block.Decrypt(plaintext[i:i+aes.BlockSize], raw[i:i+aes.BlockSize])
	}
	return finishPlaintext(plaintext)
}

func decryptCBC(ciphertext, key, iv []byte) (string, bool) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", false
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", false
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	return finishPlaintext(plaintext)
}

func finishPlaintext(padded []byte) (string, bool) {
	plaintext, ok := pkcs7Unpad(padded, aes.BlockSize)
	if !ok || len(plaintext) == 0 || !utf8.Valid(plaintext) {
		return "", false
	}
	return string(plaintext), true
}

// evpBytesToKey implements the OpenSSL EVP_BytesToKey derivation with MD5,
// producing a 32-byte AES key and 16-byte IV.
func evpBytesToKey(password, salt []byte) (key, iv []byte) {
	var derived []byte
	var prev []byte
	for len(derived) < 48 {
		h := md5.New()
		h.Write(prev)
		h.Write(password)
		h.Write(salt)
		prev = h.Sum(nil)
		derived = append(derived, prev...)
	}
	return derived[:32], derived[32:48]
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, bool) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, false
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return nil, false
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, false
		}
	}
	return data[:len(data)-padding], true
}
