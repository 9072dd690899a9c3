package lifecycle

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

const (
	// versionIDBytes is the entropy of a version identifier.
	versionIDBytes = 16
	// CreateIndexTimeout bounds a single index-create call.
	CreateIndexTimeout = 120 * time.Second
)

// IndexVersion is one physical instantiation of the managed index.
type IndexVersion struct {
	VersionID string
	FullName  string
}

// IndexName joins a prefix and version identifier into a cluster index name.
func IndexName(prefix, versionID string) string {
	return prefix + "-" + versionID
}

// Versioner creates freshly named index versions.
type Versioner struct {
	cluster  Cluster
	timeout  time.Duration
	randRead func([]byte) (int, error)
}

// NewVersioner creates a new Versioner.
func NewVersioner(cluster Cluster) *Versioner {
	return &Versioner{
		cluster:  cluster,
		timeout:  CreateIndexTimeout,
		randRead: rand.Read,
	}
}

// NewVersionID returns a random 32 character lowercase hex identifier.
func (v *Versioner) NewVersionID() (string, error) {
	buf := make([]byte, versionIDBytes)
	if _, err := v.randRead(buf); err != nil {
		return "", fmt.Errorf("generate version id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// CreateVersion creates a new index named {prefix}-{random id} with the
// given mapping. The create call is never retried.
func (v *Versioner) CreateVersion(ctx context.Context, prefix string, mapping json.RawMessage) (IndexVersion, error) {
	id, err := v.NewVersionID()
	if err != nil {
		return IndexVersion{}, fmt.Errorf("%w: %w", ErrIndexCreate, err)
	}
	version := IndexVersion{
		VersionID: id,
		FullName:  IndexName(prefix, id),
	}

	ctx, cancel := withTimeout(ctx, v.timeout)
	defer cancel()

	if err := v.cluster.CreateIndex(ctx, version.FullName, mapping); err != nil {
		return IndexVersion{}, fmt.Errorf("%w: %s: %w", ErrIndexCreate, version.FullName, err)
	}
	return version, nil
}
