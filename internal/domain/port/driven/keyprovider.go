package driven

import "context"

// VaultKeySize is the required encryption key length in bytes (AES-256).
const VaultKeySize = 32

// KeyProvider supplies the vault's encryption key. Implementations load an
// existing key or generate one on first use, then return the same key for the
// process lifetime. There is no automatic rotation; a provider backed by a
// secret manager must preserve the same load-or-generate-once contract.
type KeyProvider interface {
	// Key returns the 32-byte encryption key.
	Key(ctx context.Context) ([]byte, error)
}
