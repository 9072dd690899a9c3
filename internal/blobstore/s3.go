// Package blobstore fetches mapping documents from Amazon S3.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// MaxObjectSize is the largest object Get will read.
const MaxObjectSize = 10 << 20

// Error types for blob operations.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrObjectTooLarge = errors.New("object too large")
)

// ObjectGetter abstracts S3 GetObject for dependency inversion.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Getter implements lifecycle.BlobGetter using Amazon S3.
type S3Getter struct {
	client ObjectGetter
}

// NewS3Getter creates a new S3Getter.
func NewS3Getter(client ObjectGetter) *S3Getter {
	return &S3Getter{client: client}
}

// NewS3Client creates an S3 client. A non-empty endpoint switches to that
// endpoint with path-style addressing, as used by S3-compatible test servers.
func NewS3Client(cfg aws.Config, endpoint string) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
}

// Get reads the whole object at bucket/key.
func (g *S3Getter) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	output, err := g.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("s3 GetObject %q: %w", key, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("s3 GetObject %q: %w", key, err)
	}
	defer output.Body.Close()

	body, err := io.ReadAll(io.LimitReader(output.Body, MaxObjectSize+1))
	if err != nil {
		return nil, fmt.Errorf("read s3 object %q: %w", key, err)
	}
	if len(body) > MaxObjectSize {
		return nil, fmt.Errorf("s3 object %q: %w", key, ErrObjectTooLarge)
	}
	return body, nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return true
		}
	}
	return false
}
