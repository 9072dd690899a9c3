package lifecycle

import (
	"context"
	"fmt"
	"time"
)

// Poller reports whether the work started by a Controller has finished.
type Poller struct {
	cluster Cluster
	timeout time.Duration
}

// NewPoller creates a new Poller.
func NewPoller(cluster Cluster, timeout time.Duration) *Poller {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Poller{cluster: cluster, timeout: timeout}
}

// IsComplete returns true when the operation for requestType is finished.
// Only Update starts background work; every other request type is complete
// as soon as the controller returns. A false result always means the task
// is still running: lookup failures and failed tasks are returned as errors.
func (p *Poller) IsComplete(ctx context.Context, requestType RequestType, data map[string]string) (bool, error) {
	if requestType != RequestUpdate {
		return true, nil
	}

	taskID := data[DataTaskID]
	if taskID == "" {
		return false, fmt.Errorf("%w: %s missing from data", ErrTaskLookup, DataTaskID)
	}

	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	status, err := p.cluster.GetTask(ctx, taskID)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrTaskLookup, taskID, err)
	}
	if status.Error != "" {
		return false, fmt.Errorf("%w: %s: %s", ErrReindexFailed, taskID, status.Error)
	}
	return status.Completed, nil
}
