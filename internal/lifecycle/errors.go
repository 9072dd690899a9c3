package lifecycle

import "errors"

// Error types for lifecycle operations.
var (
	ErrInvalidEvent          = errors.New("invalid event")
	ErrUnknownRequestType    = errors.New("unknown request type")
	ErrMappingFetch          = errors.New("mapping fetch failed")
	ErrDependencyUnavailable = errors.New("cluster did not become healthy")
	ErrIndexCreate           = errors.New("index create failed")
	ErrIndexDelete           = errors.New("index delete failed")
	ErrReindexStartTimeout   = errors.New("reindex start timed out")
	ErrTaskLookup            = errors.New("task lookup failed")
	ErrReindexFailed         = errors.New("reindex task failed")
)
