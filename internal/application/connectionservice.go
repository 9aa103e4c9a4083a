package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/bucketpanel/internal/domain/model"
	"github.com/ericfisherdev/bucketpanel/internal/domain/port/driven"
)

// probeTimeout bounds each connectivity probe against the object store.
const probeTimeout = 10 * time.Second

// ClientFactory builds an object storage client from plaintext connection
// parameters. Injected so tests can substitute a fake collaborator.
type ClientFactory func(model.ConnectionConfig) driven.ObjectStoreClient

// ConnectionInput is the full set of fields for creating a profile.
type ConnectionInput struct {
	Name           string
	Endpoint       string
	AccessKey      string
	SecretKey      string
	Region         string
	ForcePathStyle bool
}

// ConnectionUpdate is a partial update; nil fields keep the stored value.
// Omitted secret fields are resolved by decrypting the stored ciphertext.
type ConnectionUpdate struct {
	Name           *string
	Endpoint       *string
	AccessKey      *string
	SecretKey      *string
	Region         *string
	ForcePathStyle *bool
}

// ConnectionService manages the registry of named connection profiles. Secret
// fields pass through the vault on the way in and out; the external object
// store is probed best-effort, so a profile with wrong credentials can still
// be saved and corrected later.
type ConnectionService struct {
	store     driven.ConnectionStore
	vault     *Vault
	newClient ClientFactory
	provider  *ObjectClientProvider
	logger    *slog.Logger
	now       func() time.Time
}

// NewConnectionService creates a ConnectionService.
func NewConnectionService(
	store driven.ConnectionStore,
	vault *Vault,
	newClient ClientFactory,
	provider *ObjectClientProvider,
	logger *slog.Logger,
) *ConnectionService {
	return &ConnectionService{
		store:     store,
		vault:     vault,
		newClient: newClient,
		provider:  provider,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns all profiles. Secret fields stay as stored ciphertext; nothing
// is ever decrypted for a listing.
func (s *ConnectionService) List(ctx context.Context) ([]model.ConnectionProfile, error) {
	return s.store.ListAll(ctx)
}

// Create validates, probes, encrypts, and persists a new profile. A failed
// probe is logged and does not block persistence; the returned tested flag
// tells the caller whether connectivity was verified.
func (s *ConnectionService) Create(ctx context.Context, in ConnectionInput) (id string, tested bool, err error) {
	if err := validateInput(in.Name, in.Endpoint, in.AccessKey, in.SecretKey); err != nil {
		return "", false, err
	}

	cfg := model.ConnectionConfig{
		Endpoint:       in.Endpoint,
		Region:         in.Region,
		AccessKey:      in.AccessKey,
		SecretKey:      in.SecretKey,
		ForcePathStyle: in.ForcePathStyle,
	}
	tested = s.probe(ctx, in.Name, cfg)

	accessEnc, err := s.vault.Encrypt(in.AccessKey)
	if err != nil {
		return "", false, fmt.Errorf("encrypt access key: %w", err)
	}
	secretEnc, err := s.vault.Encrypt(in.SecretKey)
	if err != nil {
		return "", false, fmt.Errorf("encrypt secret key: %w", err)
	}

	p := model.ConnectionProfile{
		ID:                 uuid.NewString(),
		Name:               in.Name,
		Endpoint:           in.Endpoint,
		Region:             in.Region,
		ForcePathStyle:     in.ForcePathStyle,
		AccessKeyEncrypted: accessEnc,
		SecretKeyEncrypted: secretEnc,
		CreatedAt:          s.now().UTC(),
	}

	if err := s.store.Create(ctx, p); err != nil {
		return "", false, err
	}

	s.logger.Info("connection profile created", "name", in.Name, "endpoint", in.Endpoint, "tested", tested)
	return p.ID, tested, nil
}

// Update applies a partial update to an existing profile. Omitted secret
// fields are resolved by decrypting the stored values before re-testing and
// re-encrypting; omitted non-secret fields default to the stored row. If the
// profile is active, the live client is rebuilt with the new parameters.
func (s *ConnectionService) Update(ctx context.Context, id string, upd ConnectionUpdate) (tested bool, err error) {
	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, driven.ErrProfileNotFound
	}

	name := existing.Name
	if upd.Name != nil {
		name = *upd.Name
	}
	endpoint := existing.Endpoint
	if upd.Endpoint != nil {
		endpoint = *upd.Endpoint
	}
	region := existing.Region
	if upd.Region != nil {
		region = *upd.Region
	}
	forcePathStyle := existing.ForcePathStyle
	if upd.ForcePathStyle != nil {
		forcePathStyle = *upd.ForcePathStyle
	}

	accessKey, err := s.resolveSecret(upd.AccessKey, existing.AccessKeyEncrypted, "access key")
	if err != nil {
		return false, err
	}
	secretKey, err := s.resolveSecret(upd.SecretKey, existing.SecretKeyEncrypted, "secret key")
	if err != nil {
		return false, err
	}

	if err := validateInput(name, endpoint, accessKey, secretKey); err != nil {
		return false, err
	}

	cfg := model.ConnectionConfig{
		Endpoint:       endpoint,
		Region:         region,
		AccessKey:      accessKey,
		SecretKey:      secretKey,
		ForcePathStyle: forcePathStyle,
	}
	tested = s.probe(ctx, name, cfg)

	accessEnc, err := s.vault.Encrypt(accessKey)
	if err != nil {
		return false, fmt.Errorf("encrypt access key: %w", err)
	}
	secretEnc, err := s.vault.Encrypt(secretKey)
	if err != nil {
		return false, fmt.Errorf("encrypt secret key: %w", err)
	}

	p := model.ConnectionProfile{
		ID:                 id,
		Name:               name,
		Endpoint:           endpoint,
		Region:             region,
		ForcePathStyle:     forcePathStyle,
		AccessKeyEncrypted: accessEnc,
		SecretKeyEncrypted: secretEnc,
	}

	if err := s.store.Update(ctx, p); err != nil {
		return false, err
	}

	if existing.IsActive {
		s.provider.Replace(s.newClient(cfg), name)
	}

	s.logger.Info("connection profile updated", "name", name, "tested", tested)
	return tested, nil
}

// Delete removes a profile. Deleting the active profile also drops the live
// client.
func (s *ConnectionService) Delete(ctx context.Context, id string) error {
	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return driven.ErrProfileNotFound
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	if existing.IsActive {
		s.provider.Replace(nil, "")
	}

	s.logger.Info("connection profile deleted", "name", existing.Name)
	return nil
}

// Activate makes the given profile the single active one and hot-swaps the
// object storage client built from its decrypted credentials.
func (s *ConnectionService) Activate(ctx context.Context, id string) error {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return driven.ErrProfileNotFound
	}

	cfg, err := s.decryptConfig(p)
	if err != nil {
		return err
	}

	if err := s.store.Activate(ctx, id); err != nil {
		return err
	}

	s.provider.Replace(s.newClient(cfg), p.Name)
	s.logger.Info("connection profile activated", "name", p.Name)
	return nil
}

// Deactivate clears the active profile and drops the live client.
func (s *ConnectionService) Deactivate(ctx context.Context) error {
	if err := s.store.Deactivate(ctx); err != nil {
		return err
	}

	s.provider.Replace(nil, "")
	s.logger.Info("connection profile deactivated")
	return nil
}

// Test runs a stateless connectivity check against supplied credentials.
// Nothing is persisted regardless of outcome.
func (s *ConnectionService) Test(ctx context.Context, cfg model.ConnectionConfig) error {
	if err := validateInput("unsaved", cfg.Endpoint, cfg.AccessKey, cfg.SecretKey); err != nil {
		return err
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := s.newClient(cfg).Probe(probeCtx); err != nil {
		return fmt.Errorf("connectivity test failed: %w", err)
	}

	return nil
}

// RestoreActive rebuilds the live client from the persisted active profile.
// Called once at startup so an activation survives process restarts.
func (s *ConnectionService) RestoreActive(ctx context.Context) error {
	p, err := s.store.GetActive(ctx)
	if err != nil {
		return err
	}
	if p == nil {
		return nil
	}

	cfg, err := s.decryptConfig(p)
	if err != nil {
		return err
	}

	s.provider.Replace(s.newClient(cfg), p.Name)
	s.logger.Info("active connection restored", "name", p.Name)
	return nil
}

// probe runs a best-effort connectivity check. Failures are logged, never
// fatal: the profile is persisted anyway so credentials can be corrected
// later.
func (s *ConnectionService) probe(ctx context.Context, name string, cfg model.ConnectionConfig) bool {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := s.newClient(cfg).Probe(probeCtx); err != nil {
		s.logger.Warn("connectivity probe failed, saving profile anyway",
			"name", name,
			"endpoint", cfg.Endpoint,
			"error", err,
		)
		return false
	}

	return true
}

// resolveSecret picks the supplied plaintext when present, otherwise decrypts
// the stored ciphertext. A decryption failure propagates as a hard error.
func (s *ConnectionService) resolveSecret(supplied *string, storedEnc, field string) (string, error) {
	if supplied != nil && *supplied != "" {
		return *supplied, nil
	}

	plaintext, err := s.vault.Decrypt(storedEnc)
	if err != nil {
		return "", fmt.Errorf("resolve stored %s: %w", field, err)
	}
	return plaintext, nil
}

func (s *ConnectionService) decryptConfig(p *model.ConnectionProfile) (model.ConnectionConfig, error) {
	accessKey, err := s.vault.Decrypt(p.AccessKeyEncrypted)
	if err != nil {
		return model.ConnectionConfig{}, fmt.Errorf("decrypt access key for %q: %w", p.Name, err)
	}
	secretKey, err := s.vault.Decrypt(p.SecretKeyEncrypted)
	if err != nil {
		return model.ConnectionConfig{}, fmt.Errorf("decrypt secret key for %q: %w", p.Name, err)
	}

	return model.ConnectionConfig{
		Endpoint:       p.Endpoint,
		Region:         p.Region,
		AccessKey:      accessKey,
		SecretKey:      secretKey,
		ForcePathStyle: p.ForcePathStyle,
	}, nil
}

func validateInput(name, endpoint, accessKey, secretKey string) error {
	if name == "" {
		return model.Validationf("connection name is required")
	}
	if endpoint == "" {
		return model.Validationf("endpoint is required")
	}
	if accessKey == "" {
		return model.Validationf("access key is required")
	}
	if secretKey == "" {
		return model.Validationf("secret key is required")
	}
	return nil
}
