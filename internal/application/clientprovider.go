package application

import (
	"sync"

	"github.com/ericfisherdev/bucketpanel/internal/domain/port/driven"
)

// ObjectClientProvider enables runtime hot-swap of the object storage client.
// It holds a mutex-protected reference to the client built from the active
// connection profile, so activating a different profile takes effect without
// restarting the application.
type ObjectClientProvider struct {
	mu          sync.RWMutex
	client      driven.ObjectStoreClient
	profileName string
}

// NewObjectClientProvider creates a new provider with the given initial client
// and profile name. client may be nil when no profile is active at startup.
func NewObjectClientProvider(client driven.ObjectStoreClient, profileName string) *ObjectClientProvider {
	return &ObjectClientProvider{
		client:      client,
		profileName: profileName,
	}
}

// Get returns the current object storage client. Callers should check for nil
// if no connection profile is active.
func (p *ObjectClientProvider) Get() driven.ObjectStoreClient {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client
}

// ProfileName returns the name of the connection profile the current client
// was built from.
func (p *ObjectClientProvider) ProfileName() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.profileName
}

// Replace swaps the current client and profile name. This is used when a
// profile is activated, updated, or deactivated. The next caller of Get()
// receives the new client.
func (p *ObjectClientProvider) Replace(client driven.ObjectStoreClient, profileName string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client = client
	p.profileName = profileName
}

// HasClient returns true if a non-nil client is currently held.
func (p *ObjectClientProvider) HasClient() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client != nil
}
