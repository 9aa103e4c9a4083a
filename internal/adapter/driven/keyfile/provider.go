// Package keyfile persists the vault master key as a raw 32-byte file on
// local disk, generating it on first use.
package keyfile

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/ericfisherdev/bucketpanel/internal/domain/port/driven"
)

// Provider loads the vault key from a file, creating it with a fresh random
// key when the file does not exist. The loaded key is cached for the process
// lifetime.
type Provider struct {
	path string

	mu  sync.Mutex
	key []byte
}

var _ driven.KeyProvider = (*Provider)(nil)

// NewProvider creates a Provider for the given key file path.
func NewProvider(path string) *Provider {
	return &Provider{path: path}
}

// Key returns the 32-byte vault key, generating and persisting it on first
// call if no key file exists yet. A key file of the wrong size or with
// group/world-accessible permissions is rejected rather than repaired, since
// silently replacing the key would orphan every stored secret.
func (p *Provider) Key(_ context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.key != nil {
		return p.key, nil
	}

	key, err := p.load()
	if errors.Is(err, fs.ErrNotExist) {
		key, err = p.generate()
	}
	if err != nil {
		return nil, err
	}

	p.key = key
	return key, nil
}

func (p *Provider) load() ([]byte, error) {
	info, err := os.Stat(p.path)
	if err != nil {
		return nil, fmt.Errorf("stat key file: %w", err)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		return nil, fmt.Errorf("key file %s has permissions %04o, want 0600", p.path, perm)
	}

	key, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	if len(key) != driven.VaultKeySize {
		return nil, fmt.Errorf("key file %s holds %d bytes, want %d", p.path, len(key), driven.VaultKeySize)
	}

	return key, nil
}

func (p *Provider) generate() ([]byte, error) {
	key := make([]byte, driven.VaultKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate vault key: %w", err)
	}

	if dir := filepath.Dir(p.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create key directory: %w", err)
		}
	}

	// O_EXCL loses the race to a concurrent first start instead of
	// clobbering the other process's key.
	f, err := os.OpenFile(p.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return p.load()
		}
		return nil, fmt.Errorf("create key file: %w", err)
	}

	if _, err := f.Write(key); err != nil {
		f.Close()
		return nil, fmt.Errorf("write key file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close key file: %w", err)
	}

	return key, nil
}
