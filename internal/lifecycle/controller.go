package lifecycle

import (
	"context"
	"fmt"
	"time"
)

// Keys of the Data map returned to the orchestrator.
const (
	DataIndexName    = "IndexName"
	DataOldIndexName = "OldIndexName"
	DataTaskID       = "TaskId"
)

// DefaultRequestTimeout bounds dependency calls that have no fixed timeout.
const DefaultRequestTimeout = 120 * time.Second

// Config is the deployment-level configuration of a Controller.
type Config struct {
	Mapping          Location
	IndexNamePrefix  string
	MaxHealthRetries int
	RequestTimeout   time.Duration
}

// Result is the outcome of a handled lifecycle event.
type Result struct {
	PhysicalResourceID string
	Data               map[string]string
}

// Controller performs the Create, Update and Delete operations. It keeps no
// state between calls; everything needed later is returned in Result.
type Controller struct {
	cfg       Config
	cluster   Cluster
	mappings  *MappingFetcher
	health    *HealthChecker
	versioner *Versioner
	reindexer *Reindexer
}

// NewController creates a new Controller.
func NewController(blobs BlobGetter, cluster Cluster, cfg Config) *Controller {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	return &Controller{
		cfg:       cfg,
		cluster:   cluster,
		mappings:  NewMappingFetcher(blobs, cfg.RequestTimeout),
		health:    NewHealthChecker(cluster, cfg.RequestTimeout),
		versioner: NewVersioner(cluster),
		reindexer: NewReindexer(cluster, cfg.RequestTimeout),
	}
}

// Handle dispatches a validated event.
func (c *Controller) Handle(ctx context.Context, event Event) (Result, error) {
	switch event.RequestType {
	case RequestCreate:
		return c.create(ctx, event)
	case RequestUpdate:
		if event.PhysicalResourceID == "" {
			return Result{}, fmt.Errorf("%w: event.PhysicalResourceId is required", ErrInvalidEvent)
		}
		return c.update(ctx, event)
	case RequestDelete:
		if event.PhysicalResourceID == "" {
			return Result{}, fmt.Errorf("%w: event.PhysicalResourceId is required", ErrInvalidEvent)
		}
		return c.delete(ctx, event)
	default:
		return Result{}, fmt.Errorf("%w: %w: %q", ErrInvalidEvent, ErrUnknownRequestType, event.RequestType)
	}
}

// settings merges the event's resource properties over the deployment config.
func (c *Controller) settings(props Properties) Config {
	cfg := c.cfg
	if props.MappingBucket != "" {
		cfg.Mapping.Bucket = props.MappingBucket
	}
	if props.MappingKey != "" {
		cfg.Mapping.Key = props.MappingKey
	}
	if props.IndexNamePrefix != "" {
		cfg.IndexNamePrefix = props.IndexNamePrefix
	}
	if props.MaxHealthRetries != nil {
		cfg.MaxHealthRetries = *props.MaxHealthRetries
	}
	return cfg
}

// provision fetches the mapping, waits for the cluster and creates a new
// index version. It is the common prefix of Create and Update.
func (c *Controller) provision(ctx context.Context, cfg Config) (IndexVersion, error) {
	if cfg.IndexNamePrefix == "" {
		return IndexVersion{}, fmt.Errorf("%w: index name prefix is not configured", ErrInvalidEvent)
	}

	mapping, err := c.mappings.Fetch(ctx, cfg.Mapping)
	if err != nil {
		return IndexVersion{}, err
	}

	if err := c.health.WaitForHealthy(ctx, cfg.MaxHealthRetries); err != nil {
		return IndexVersion{}, err
	}

	return c.versioner.CreateVersion(ctx, cfg.IndexNamePrefix, mapping)
}

func (c *Controller) create(ctx context.Context, event Event) (Result, error) {
	cfg := c.settings(event.Properties)

	version, err := c.provision(ctx, cfg)
	if err != nil {
		return Result{}, err
	}

	return Result{
		PhysicalResourceID: version.VersionID,
		Data: map[string]string{
			DataIndexName: version.FullName,
		},
	}, nil
}

// update builds a new version and starts copying the live version into it.
// The old version is left in place; CloudFormation deletes it later with a
// Delete event carrying the old physical id.
func (c *Controller) update(ctx context.Context, event Event) (Result, error) {
	cfg := c.settings(event.Properties)

	version, err := c.provision(ctx, cfg)
	if err != nil {
		return Result{}, err
	}

	// The live version was named with the prefix in force when it was created.
	oldCfg := c.settings(event.OldProperties)
	oldIndexName := IndexName(oldCfg.IndexNamePrefix, event.PhysicalResourceID)
	task, err := c.reindexer.StartReindex(ctx, oldIndexName, version.FullName)
	if err != nil {
		return Result{}, err
	}

	return Result{
		PhysicalResourceID: version.VersionID,
		Data: map[string]string{
			DataIndexName:    version.FullName,
			DataOldIndexName: task.SourceIndex,
			DataTaskID:       task.TaskID,
		},
	}, nil
}

func (c *Controller) delete(ctx context.Context, event Event) (Result, error) {
	cfg := c.settings(event.Properties)
	if cfg.IndexNamePrefix == "" {
		return Result{}, fmt.Errorf("%w: index name prefix is not configured", ErrInvalidEvent)
	}
	name := IndexName(cfg.IndexNamePrefix, event.PhysicalResourceID)

	ctx, cancel := withTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	result, err := c.cluster.DeleteIndex(ctx, name)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %w", ErrIndexDelete, name, err)
	}
	if result.StatusCode != 200 {
		return Result{}, fmt.Errorf("%w: %s: status %d", ErrIndexDelete, name, result.StatusCode)
	}

	return Result{PhysicalResourceID: event.PhysicalResourceID}, nil
}
