package s3

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/bucketpanel/internal/domain/model"
)

func TestNewClient_Options(t *testing.T) {
	c := NewClient(model.ConnectionConfig{
		Endpoint:       "https://minio.internal:9000",
		Region:         "eu-central-1",
		AccessKey:      "AKIAEXAMPLE",
		SecretKey:      "secret-key-value",
		ForcePathStyle: true,
	})

	opts := c.api.Options()
	assert.Equal(t, "eu-central-1", opts.Region)
	assert.Equal(t, "https://minio.internal:9000", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)

	creds, err := opts.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIAEXAMPLE", creds.AccessKeyID)
	assert.Equal(t, "secret-key-value", creds.SecretAccessKey)
}

func TestNewClient_DefaultRegion(t *testing.T) {
	c := NewClient(model.ConnectionConfig{
		Endpoint:  "https://s3.example.com",
		AccessKey: "AKIAEXAMPLE",
		SecretKey: "secret-key-value",
	})

	assert.Equal(t, defaultRegion, c.api.Options().Region)
}
