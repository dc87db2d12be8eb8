package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"

	"github.com/Amine0019/Data-Extraction-Portal/internal/core"
)

// Vault encrypts and decrypts stored connection credentials with
// AES-256-GCM under a single process-wide key. The key is read-only
// after startup and safe to share across requests. Plaintext is never
// cached; callers get it back per call and let it go out of scope.
type Vault struct {
	key []byte
}

// NewVault builds a vault from the configured key string. The key must
// be at least 32 characters; the first 32 bytes are used for AES-256.
// A short key is a hard startup precondition, not a per-call error.
func NewVault(keyStr string) (*Vault, error) {
	if len(keyStr) < 32 {
		return nil, errors.New("vault key must be at least 32 characters")
	}
	return &Vault{key: []byte(keyStr)[:32]}, nil
}

// Encrypt seals plaintext and returns a base64 string for storage.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", err
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := aesGCM.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt opens a stored ciphertext. Corrupt input or a ciphertext
// sealed under a different key yields a DecryptionError; callers treat
// it as non-fatal and decline to proceed with the connection.
func (v *Vault) Decrypt(cryptoText string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(cryptoText)
	if err != nil {
		return "", &core.DecryptionError{Err: err}
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", err
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := aesGCM.NonceSize()
	if len(data) < nonceSize {
		return "", &core.DecryptionError{Err: errors.New("ciphertext too short")}
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", &core.DecryptionError{Err: err}
	}

	return string(plaintext), nil
}
