package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"
)

// Location identifies the mapping document in the blob store.
type Location struct {
	Bucket string
	Key    string
}

// MappingFetcher downloads and validates an index mapping document.
type MappingFetcher struct {
	blobs   BlobGetter
	timeout time.Duration
}

// NewMappingFetcher creates a new MappingFetcher.
func NewMappingFetcher(blobs BlobGetter, timeout time.Duration) *MappingFetcher {
	return &MappingFetcher{blobs: blobs, timeout: timeout}
}

// Fetch returns the mapping at loc as raw JSON, ready to be sent as an
// index-create body.
func (f *MappingFetcher) Fetch(ctx context.Context, loc Location) (json.RawMessage, error) {
	if loc.Bucket == "" || loc.Key == "" {
		return nil, fmt.Errorf("%w: bucket and key are required", ErrMappingFetch)
	}

	ctx, cancel := withTimeout(ctx, f.timeout)
	defer cancel()

	body, err := f.blobs.Get(ctx, loc.Bucket, loc.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: get s3://%s/%s: %w", ErrMappingFetch, loc.Bucket, loc.Key, err)
	}
	if !utf8.Valid(body) {
		return nil, fmt.Errorf("%w: s3://%s/%s is not valid UTF-8", ErrMappingFetch, loc.Bucket, loc.Key)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: s3://%s/%s is not valid JSON", ErrMappingFetch, loc.Bucket, loc.Key)
	}
	return json.RawMessage(body), nil
}

// withTimeout applies d to ctx when d is positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
