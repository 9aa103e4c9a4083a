package model

import "time"

// MaxConnectionProfiles caps the number of stored connection profiles.
const MaxConnectionProfiles = 100

// ConnectionProfile is a named S3-compatible storage connection as persisted.
// AccessKeyEncrypted and SecretKeyEncrypted hold vault-packed ciphertext, never
// plaintext. At most one profile is active at a time.
type ConnectionProfile struct {
	ID                 string
	Name               string
	Endpoint           string
	Region             string
	ForcePathStyle     bool
	AccessKeyEncrypted string
	SecretKeyEncrypted string
	IsActive           bool
	CreatedAt          time.Time
}

// ConnectionConfig carries the plaintext parameters needed to reach an
// S3-compatible endpoint. It exists only in memory, for building clients and
// for stateless connectivity tests; it is never persisted.
type ConnectionConfig struct {
	Endpoint       string
	Region         string
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
}
