package lifecycle

import (
	"context"
	"fmt"
	"time"
)

const (
	// DefaultMaxHealthRetries is the health query budget when none is configured.
	DefaultMaxHealthRetries = 10
	// HealthWait is the server-side wait of a single health query.
	HealthWait = 60 * time.Second
	// HealthMinStatus is the lowest cluster status that can serve requests.
	HealthMinStatus = "yellow"

	// healthCallMargin is added to HealthWait when bounding a health call,
	// so the cluster's timed-out reply arrives before the client gives up.
	healthCallMargin = 10 * time.Second
)

// HealthChecker waits for the search cluster to reach a usable status.
type HealthChecker struct {
	cluster Cluster
	timeout time.Duration
}

// NewHealthChecker creates a new HealthChecker. timeout bounds each health
// call on the client side; it is raised to HealthWait plus a margin when
// smaller.
func NewHealthChecker(cluster Cluster, timeout time.Duration) *HealthChecker {
	if floor := HealthWait + healthCallMargin; timeout < floor {
		timeout = floor
	}
	return &HealthChecker{cluster: cluster, timeout: timeout}
}

// WaitForHealthy issues up to maxRetries health queries, each waiting
// HealthWait on the cluster for at least HealthMinStatus. There is no sleep
// between attempts; the server-side wait throttles the loop.
func (h *HealthChecker) WaitForHealthy(ctx context.Context, maxRetries int) error {
	var lastErr error
	for remaining := maxRetries; remaining > 0; remaining-- {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrDependencyUnavailable, err)
		}

		result, err := h.query(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		if !result.TimedOut {
			return nil
		}
		lastErr = fmt.Errorf("health query timed out waiting for status %s", HealthMinStatus)
	}

	if lastErr == nil {
		return fmt.Errorf("%w: no health retries allowed", ErrDependencyUnavailable)
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrDependencyUnavailable, maxRetries, lastErr)
}

func (h *HealthChecker) query(ctx context.Context) (HealthResult, error) {
	ctx, cancel := withTimeout(ctx, h.timeout)
	defer cancel()
	return h.cluster.Health(ctx, HealthMinStatus, HealthWait)
}
