// Package s3 implements the object storage port against any S3-compatible
// endpoint via the AWS SDK.
package s3

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ericfisherdev/bucketpanel/internal/domain/model"
	"github.com/ericfisherdev/bucketpanel/internal/domain/port/driven"
)

// defaultRegion is used when a profile leaves the region empty. Most
// S3-compatible servers accept any region but the SDK requires one for
// request signing.
const defaultRegion = "us-east-1"

// Client talks to a single S3-compatible endpoint with static credentials.
type Client struct {
	api *awss3.Client
}

var _ driven.ObjectStoreClient = (*Client)(nil)

// NewClient builds a Client from plaintext connection parameters. Path-style
// addressing is needed for servers without wildcard DNS, such as MinIO.
func NewClient(cfg model.ConnectionConfig) *Client {
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}

	return &Client{
		api: awss3.New(awss3.Options{
			Region:       region,
			Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
			BaseEndpoint: aws.String(cfg.Endpoint),
			UsePathStyle: cfg.ForcePathStyle,
		}),
	}
}

// Probe performs a lightweight authenticated call to verify the endpoint is
// reachable and the credentials are accepted.
func (c *Client) Probe(ctx context.Context) error {
	if _, err := c.api.ListBuckets(ctx, &awss3.ListBucketsInput{}); err != nil {
		return fmt.Errorf("list buckets: %w", err)
	}
	return nil
}

// ListBuckets returns the bucket names visible to the credentials.
func (c *Client) ListBuckets(ctx context.Context) ([]string, error) {
	out, err := c.api.ListBuckets(ctx, &awss3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}

	names := make([]string, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		names = append(names, aws.ToString(b.Name))
	}
	return names, nil
}
