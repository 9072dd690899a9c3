// Package main implements the on-event Lambda of the search index custom
// resource. It creates, replaces and deletes index versions.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/jarrod-lowe/jmap-service-libs/awsinit"
	"github.com/jarrod-lowe/jmap-service-libs/logging"
	"github.com/jarrod-lowe/jmap-service-libs/tracing"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jarrod-lowe/search-index-resource/internal/blobstore"
	"github.com/jarrod-lowe/search-index-resource/internal/cluster"
	"github.com/jarrod-lowe/search-index-resource/internal/config"
	"github.com/jarrod-lowe/search-index-resource/internal/lifecycle"
)

var logger = logging.New()

// Controller handles validated lifecycle events.
type Controller interface {
	Handle(ctx context.Context, event lifecycle.Event) (lifecycle.Result, error)
}

// Response is the provider framework's onEvent reply.
type Response struct {
	PhysicalResourceID string            `json:"PhysicalResourceId,omitempty"`
	Data               map[string]string `json:"Data,omitempty"`
}

// handler implements the on-event logic.
type handler struct {
	controller Controller
}

// newHandler creates a new handler.
func newHandler(controller Controller) *handler {
	return &handler{controller: controller}
}

// handle processes one CloudFormation lifecycle event. Errors are returned
// to the provider framework, which fails the stack operation.
func (h *handler) handle(ctx context.Context, event cfn.Event) (Response, error) {
	tracer := tracing.Tracer("search-index-on-event")
	ctx, span := tracer.Start(ctx, "OnEventHandler")
	defer span.End()

	span.SetAttributes(
		attribute.String("request_type", string(event.RequestType)),
		attribute.String("request_id", event.RequestID),
		attribute.String("logical_resource_id", event.LogicalResourceID),
		attribute.String("physical_resource_id", event.PhysicalResourceID),
	)

	logger.InfoContext(ctx, "Received event",
		slog.String("request_type", string(event.RequestType)),
		slog.String("request_id", event.RequestID),
		slog.String("stack_id", event.StackID),
		slog.String("logical_resource_id", event.LogicalResourceID),
		slog.String("physical_resource_id", event.PhysicalResourceID),
	)

	ev, err := lifecycle.ParseEvent(event)
	if err != nil {
		return Response{}, h.fail(ctx, span, "Rejected invalid event", err)
	}

	result, err := h.controller.Handle(ctx, ev)
	if err != nil {
		return Response{}, h.fail(ctx, span, "Failed to handle event", err)
	}

	span.SetAttributes(attribute.String("new_physical_resource_id", result.PhysicalResourceID))

	switch ev.RequestType {
	case lifecycle.RequestCreate:
		logger.InfoContext(ctx, "Created index",
			slog.String("index_name", result.Data[lifecycle.DataIndexName]),
			slog.String("physical_resource_id", result.PhysicalResourceID),
		)
	case lifecycle.RequestUpdate:
		logger.InfoContext(ctx, "Created index and started reindex",
			slog.String("index_name", result.Data[lifecycle.DataIndexName]),
			slog.String("old_index_name", result.Data[lifecycle.DataOldIndexName]),
			slog.String("task_id", result.Data[lifecycle.DataTaskID]),
			slog.String("physical_resource_id", result.PhysicalResourceID),
		)
	case lifecycle.RequestDelete:
		logger.InfoContext(ctx, "Deleted index",
			slog.String("physical_resource_id", result.PhysicalResourceID),
		)
	}

	return Response{
		PhysicalResourceID: result.PhysicalResourceID,
		Data:               result.Data,
	}, nil
}

// fail logs err and marks the span as failed.
func (h *handler) fail(ctx context.Context, span trace.Span, msg string, err error) error {
	logger.ErrorContext(ctx, msg, slog.String("error", err.Error()))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func main() {
	ctx := context.Background()

	result, err := awsinit.Init(ctx)
	if err != nil {
		logger.Error("FATAL: Failed to initialize", slog.String("error", err.Error()))
		panic(err)
	}

	cfg, err := config.Load(os.Getenv)
	if err == nil {
		err = cfg.RequireMapping()
	}
	if err != nil {
		logger.Error("FATAL: Invalid configuration", slog.String("error", err.Error()))
		panic(err)
	}

	// Cluster client with OTel instrumentation, optionally SigV4 signed
	var transport http.RoundTripper = otelhttp.NewTransport(http.DefaultTransport)
	if cfg.ClusterSigV4 {
		transport = cluster.NewSigV4Transport(transport, result.Config.Credentials, result.Config.Region)
	}
	esTransport, err := cluster.NewTransport(cfg.ClusterAddresses, transport, cfg.ClusterSigV4)
	if err != nil {
		logger.Error("FATAL: Failed to create cluster client", slog.String("error", err.Error()))
		panic(err)
	}

	s3Client := blobstore.NewS3Client(result.Config, cfg.S3Endpoint)

	controller := lifecycle.NewController(
		blobstore.NewS3Getter(s3Client),
		cluster.NewESClient(esTransport),
		cfg.Controller(),
	)

	h := newHandler(controller)
	result.Start(h.handle)
}
