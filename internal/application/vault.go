package application

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/ericfisherdev/bucketpanel/internal/domain/model"
	"github.com/ericfisherdev/bucketpanel/internal/domain/port/driven"
)

// Vault provides authenticated encryption for secrets at rest using
// AES-256-GCM. The AEAD is precomputed once from the provider's key; the key
// never rotates within a process lifetime and the vault is safe for
// concurrent use.
//
// Packed format, the on-disk contract for stored secrets:
// base64(nonce || ciphertext || tag) as a single opaque string.
type Vault struct {
	aead cipher.AEAD
}

// NewVault builds a Vault from the provider's 32-byte key.
func NewVault(key []byte) (*Vault, error) {
	if len(key) != driven.VaultKeySize {
		return nil, fmt.Errorf("vault key must be %d bytes, got %d", driven.VaultKeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// Encrypt seals plaintext with a fresh random nonce and returns the packed
// secret string.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	// Seal appends ciphertext and tag to the nonce: nonce || ciphertext || tag.
	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt unpacks and opens a packed secret. Any failure, whether malformed
// encoding or an authentication tag mismatch from tampering or a wrong key,
// yields model.ErrIntegrity. No plaintext is ever returned on failure.
func (v *Vault) Decrypt(packed string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(packed)
	if err != nil {
		return "", fmt.Errorf("unpack secret: %w", model.ErrIntegrity)
	}

	ns := v.aead.NonceSize()
	if len(data) < ns+v.aead.Overhead() {
		return "", fmt.Errorf("unpack secret: %w", model.ErrIntegrity)
	}

	nonce, sealed := data[:ns], data[ns:]
	plaintext, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("open secret: %w", model.ErrIntegrity)
	}

	return string(plaintext), nil
}
