// Package main implements the is-complete Lambda of the search index custom
// resource. It reports whether the reindex started by an update has finished.
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

	"github.com/jarrod-lowe/search-index-resource/internal/cluster"
	"github.com/jarrod-lowe/search-index-resource/internal/config"
	"github.com/jarrod-lowe/search-index-resource/internal/lifecycle"
)

var logger = logging.New()

// Poller checks whether background work has finished.
type Poller interface {
	IsComplete(ctx context.Context, requestType lifecycle.RequestType, data map[string]string) (bool, error)
}

// Request is the provider framework's isComplete input: the original event
// plus the Data returned by on-event.
type Request struct {
	cfn.Event
	Data map[string]any `json:"Data,omitempty"`
}

// Response is the provider framework's isComplete reply.
type Response struct {
	IsComplete bool           `json:"IsComplete"`
	Data       map[string]any `json:"Data,omitempty"`
}

// handler implements the is-complete logic.
type handler struct {
	poller Poller
}

// newHandler creates a new handler.
func newHandler(poller Poller) *handler {
	return &handler{poller: poller}
}

// handle answers one completion poll. The provider framework calls it again
// after a delay while IsComplete is false.
func (h *handler) handle(ctx context.Context, request Request) (Response, error) {
	tracer := tracing.Tracer("search-index-is-complete")
	ctx, span := tracer.Start(ctx, "IsCompleteHandler")
	defer span.End()

	taskID, _ := request.Data[lifecycle.DataTaskID].(string)
	span.SetAttributes(
		attribute.String("request_type", string(request.RequestType)),
		attribute.String("request_id", request.RequestID),
		attribute.String("physical_resource_id", request.PhysicalResourceID),
	)

	logger.InfoContext(ctx, "Received event",
		slog.String("request_type", string(request.RequestType)),
		slog.String("request_id", request.RequestID),
		slog.String("physical_resource_id", request.PhysicalResourceID),
	)

	done, err := h.poller.IsComplete(ctx, lifecycle.RequestType(request.RequestType), stringData(request.Data))
	if err != nil {
		logger.ErrorContext(ctx, "Failed to check completion",
			slog.String("task_id", taskID),
			slog.String("error", err.Error()),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Response{}, err
	}

	span.SetAttributes(attribute.Bool("is_complete", done))
	if lifecycle.RequestType(request.RequestType) == lifecycle.RequestUpdate {
		if done {
			logger.InfoContext(ctx, "Reindex task completed", slog.String("task_id", taskID))
		} else {
			logger.InfoContext(ctx, "Reindex task not completed", slog.String("task_id", taskID))
		}
	}

	return Response{
		IsComplete: done,
		Data:       request.Data,
	}, nil
}

// stringData keeps the string-valued entries of data.
func stringData(data map[string]any) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func main() {
	ctx := context.Background()

	result, err := awsinit.Init(ctx)
	if err != nil {
		logger.Error("FATAL: Failed to initialize", slog.String("error", err.Error()))
		panic(err)
	}

	cfg, err := config.Load(os.Getenv)
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

	poller := lifecycle.NewPoller(cluster.NewESClient(esTransport), cfg.RequestTimeout)

	h := newHandler(poller)
	result.Start(h.handle)
}
