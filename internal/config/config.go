// Package config reads the Lambda environment into typed settings.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jarrod-lowe/search-index-resource/internal/lifecycle"
)

// Environment variable names.
const (
	EnvClusterEndpoint  = "ELASTICSEARCH_ENDPOINT"
	EnvIndexPrefix      = "ELASTICSEARCH_INDEX"
	EnvClusterSigV4     = "ELASTICSEARCH_SIGV4"
	EnvBucketName       = "S3_BUCKET_NAME"
	EnvObjectKey        = "S3_OBJECT_KEY"
	EnvS3Endpoint       = "S3_ENDPOINT"
	EnvMaxHealthRetries = "MAX_HEALTH_RETRIES"
	EnvRequestTimeoutMS = "REQUEST_TIMEOUT_MS"
)

// ErrMissing reports a required variable that is unset or empty.
var ErrMissing = errors.New("required environment variable not set")

// Config holds the settings shared by both Lambdas.
type Config struct {
	ClusterAddresses []string
	ClusterSigV4     bool
	IndexNamePrefix  string
	MappingBucket    string
	MappingKey       string
	S3Endpoint       string
	MaxHealthRetries int
	RequestTimeout   time.Duration
}

// Load reads the configuration using getenv, normally os.Getenv.
func Load(getenv func(string) string) (Config, error) {
	cfg := Config{
		MappingBucket:    strings.TrimSpace(getenv(EnvBucketName)),
		MappingKey:       strings.TrimSpace(getenv(EnvObjectKey)),
		S3Endpoint:       strings.TrimSpace(getenv(EnvS3Endpoint)),
		IndexNamePrefix:  strings.TrimSpace(getenv(EnvIndexPrefix)),
		ClusterSigV4:     getenv(EnvClusterSigV4) == "true",
		MaxHealthRetries: lifecycle.DefaultMaxHealthRetries,
		RequestTimeout:   lifecycle.DefaultRequestTimeout,
	}

	for _, addr := range strings.Split(getenv(EnvClusterEndpoint), ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			cfg.ClusterAddresses = append(cfg.ClusterAddresses, addr)
		}
	}
	if len(cfg.ClusterAddresses) == 0 {
		return Config{}, fmt.Errorf("%w: %s", ErrMissing, EnvClusterEndpoint)
	}
	if cfg.IndexNamePrefix == "" {
		return Config{}, fmt.Errorf("%w: %s", ErrMissing, EnvIndexPrefix)
	}

	if v := strings.TrimSpace(getenv(EnvMaxHealthRetries)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("%s: invalid value %q", EnvMaxHealthRetries, v)
		}
		cfg.MaxHealthRetries = n
	}

	if v := strings.TrimSpace(getenv(EnvRequestTimeoutMS)); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return Config{}, fmt.Errorf("%s: invalid value %q", EnvRequestTimeoutMS, v)
		}
		cfg.RequestTimeout = time.Duration(ms) * time.Millisecond
	}

	return cfg, nil
}

// RequireMapping checks that the mapping location is configured. Only the
// on-event Lambda reads the mapping.
func (c Config) RequireMapping() error {
	if c.MappingBucket == "" {
		return fmt.Errorf("%w: %s", ErrMissing, EnvBucketName)
	}
	if c.MappingKey == "" {
		return fmt.Errorf("%w: %s", ErrMissing, EnvObjectKey)
	}
	return nil
}

// Controller returns the lifecycle.Controller settings.
func (c Config) Controller() lifecycle.Config {
	return lifecycle.Config{
		Mapping: lifecycle.Location{
			Bucket: c.MappingBucket,
			Key:    c.MappingKey,
		},
		IndexNamePrefix:  c.IndexNamePrefix,
		MaxHealthRetries: c.MaxHealthRetries,
		RequestTimeout:   c.RequestTimeout,
	}
}
