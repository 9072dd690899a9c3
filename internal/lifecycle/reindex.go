package lifecycle

import (
	"context"
	"fmt"
	"time"
)

// ReindexTask references a background bulk copy owned by the cluster.
type ReindexTask struct {
	TaskID      string
	SourceIndex string
	DestIndex   string
}

// Reindexer starts asynchronous reindex operations.
type Reindexer struct {
	cluster Cluster
	timeout time.Duration
}

// NewReindexer creates a new Reindexer.
func NewReindexer(cluster Cluster, timeout time.Duration) *Reindexer {
	return &Reindexer{cluster: cluster, timeout: timeout}
}

// StartReindex begins copying source into dest without waiting for the copy
// to finish. dest is refreshed when the task completes.
func (r *Reindexer) StartReindex(ctx context.Context, source, dest string) (ReindexTask, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.cluster.Reindex(ctx, ReindexRequest{
		Source:            source,
		Dest:              dest,
		WaitForCompletion: false,
		Refresh:           true,
	})
	if err != nil {
		return ReindexTask{}, fmt.Errorf("start reindex %s -> %s: %w", source, dest, err)
	}
	if result.TimedOut {
		return ReindexTask{}, fmt.Errorf("%w: %s -> %s", ErrReindexStartTimeout, source, dest)
	}
	if result.TaskID == "" {
		return ReindexTask{}, fmt.Errorf("start reindex %s -> %s: cluster returned no task id", source, dest)
	}

	return ReindexTask{
		TaskID:      result.TaskID,
		SourceIndex: source,
		DestIndex:   dest,
	}, nil
}
