package lifecycle

import (
	"context"
	"encoding/json"
	"time"
)

// BlobGetter fetches a stored object by bucket and key.
type BlobGetter interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}

// HealthResult is the outcome of a cluster health query.
type HealthResult struct {
	TimedOut bool
	Status   string
}

// DeleteResult carries the HTTP status of an index delete.
type DeleteResult struct {
	StatusCode int
}

// ReindexRequest describes a bulk copy between two indexes.
type ReindexRequest struct {
	Source            string
	Dest              string
	WaitForCompletion bool
	Refresh           bool
}

// ReindexResult is the reply to a reindex start call.
type ReindexResult struct {
	TimedOut bool
	TaskID   string
}

// TaskStatus is the cluster's view of a background task.
type TaskStatus struct {
	Completed bool
	// Error holds the failure reason reported by the cluster for a task that
	// stopped with an error.
	Error string
}

// Cluster is the subset of the search cluster API the lifecycle needs.
type Cluster interface {
	Health(ctx context.Context, minStatus string, wait time.Duration) (HealthResult, error)
	CreateIndex(ctx context.Context, name string, body json.RawMessage) error
	DeleteIndex(ctx context.Context, name string) (DeleteResult, error)
	Reindex(ctx context.Context, req ReindexRequest) (ReindexResult, error)
	GetTask(ctx context.Context, taskID string) (TaskStatus, error)
}
