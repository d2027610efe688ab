// Package storage archives run logs and results to S3 for unattended
// (CI) invocations.
package storage

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/wsltools/wslcompact/pkg/errors"
)

// Client provides the archive bucket operations.
type Client struct {
	s3Client *s3.Client
	bucket   string
}

// NewClient creates an S3 client from the default credential chain.
func NewClient(ctx context.Context, bucket, region string) (*Client, error) {
	slog.Info("s3_client_init", "bucket", bucket, "region", region)

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		slog.Error("aws_config_load_failed", "error", err)
		return nil, errors.Wrap(err, "failed to load AWS config")
	}

	return &Client{
		s3Client: s3.NewFromConfig(cfg),
		bucket:   bucket,
	}, nil
}

// Upload stores one archive object under the given key.
func (c *Client) Upload(ctx context.Context, key, body, contentType string) error {
	slog.Info("s3_upload_start", "bucket", c.bucket, "key", key, "size", len(body))

	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		slog.Error("s3_upload_failed", "key", key, "error", err)
		return errors.Wrap(err, "failed to upload archive object")
	}

	slog.Info("s3_upload_complete", "bucket", c.bucket, "key", key)
	return nil
}

// Exists checks whether an archive object is already present.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NotFound") {
			return false, nil
		}
		return false, errors.Wrap(err, "failed to check archive object")
	}
	return true, nil
}
