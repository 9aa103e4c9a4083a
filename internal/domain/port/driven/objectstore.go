package driven

import "context"

// ObjectStoreClient is the driven port for the external S3-compatible object
// storage service. The file-manager surfaces are pass-through glue over this
// client; the access-control core only uses it for connectivity probes.
type ObjectStoreClient interface {
	// Probe verifies that the client's credentials can reach the service.
	// It performs a single lightweight call and never mutates remote state.
	Probe(ctx context.Context) error

	// ListBuckets returns the bucket names visible to the credentials.
	ListBuckets(ctx context.Context) ([]string, error)
}
