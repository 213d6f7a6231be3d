// Package archive keeps a copy of every uploaded CSV in S3-compatible object
// storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ImportPrefix is the key prefix for archived uploads.
const ImportPrefix = "imports"

// Config describes the bucket and how to reach it. Empty credentials fall
// back to the default AWS chain.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Enabled reports whether archiving is configured.
func (c Config) Enabled() bool {
	return c.Bucket != ""
}

// ObjectPutter is the part of the S3 client the archiver uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver writes uploads to a bucket.
type S3Archiver struct {
	client ObjectPutter
	bucket string
}

// NewS3Client builds a path-style client, which also suits MinIO.
func NewS3Client(ctx context.Context, cfg Config) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(cfg.Endpoint))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	}), nil
}

// NewS3Archiver wraps client for bucket.
func NewS3Archiver(client ObjectPutter, bucket string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket}
}

// Open builds the client from cfg and returns an archiver for its bucket.
func Open(ctx context.Context, cfg Config) (*S3Archiver, error) {
	client, err := NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewS3Archiver(client, cfg.Bucket), nil
}

// KeyFor is the object key of a listing set's upload.
func KeyFor(listingSetID string) string {
	return path.Join(ImportPrefix, listingSetID+".csv")
}

// Archive stores body under KeyFor(listingSetID) and returns the key.
func (a *S3Archiver) Archive(ctx context.Context, listingSetID string, body []byte) (string, error) {
	key := KeyFor(listingSetID)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/csv"),
		Metadata:    map[string]string{"listing-set-id": listingSetID},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to S3: %w", key, err)
	}
	return key, nil
}
