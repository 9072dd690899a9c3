// Package cluster adapts an Elasticsearch cluster to the lifecycle.Cluster
// interface using the go-elasticsearch esapi request types.
package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/elastic/elastic-transport-go/v8/elastictransport"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/jarrod-lowe/search-index-resource/internal/lifecycle"
)

// ResponseError is an error reply from the cluster.
type ResponseError struct {
	StatusCode int
	Type       string
	Reason     string
}

func (e *ResponseError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("cluster returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("cluster returned status %d: %s: %s", e.StatusCode, e.Type, e.Reason)
}

// ESClient implements lifecycle.Cluster.
type ESClient struct {
	transport esapi.Transport
}

var _ lifecycle.Cluster = (*ESClient)(nil)

// NewESClient creates a new ESClient. transport is normally an
// *elasticsearch.Client.
func NewESClient(transport esapi.Transport) *ESClient {
	return &ESClient{transport: transport}
}

// NewElasticsearch builds a client for addresses that never retries a
// request on its own; retry policy belongs to the lifecycle layer.
func NewElasticsearch(addresses []string, rt http.RoundTripper) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    addresses,
		Transport:    rt,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return client, nil
}

// NewManagedTransport builds a transport for Amazon-managed search domains.
// Those domains do not send X-Elastic-Product, which elasticsearch.Client
// requires on every reply, so requests go straight to the underlying
// elastictransport client instead.
func NewManagedTransport(addresses []string, rt http.RoundTripper) (*elastictransport.Client, error) {
	if len(addresses) == 0 {
		return nil, fmt.Errorf("create managed transport: no cluster addresses")
	}
	urls := make([]*url.URL, 0, len(addresses))
	for _, addr := range addresses {
		u, err := url.Parse(strings.TrimRight(addr, "/"))
		if err != nil {
			return nil, fmt.Errorf("create managed transport: parse %q: %w", addr, err)
		}
		urls = append(urls, u)
	}

	client, err := elastictransport.New(elastictransport.Config{
		URLs:         urls,
		Transport:    rt,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create managed transport: %w", err)
	}
	return client, nil
}

// NewTransport returns the esapi transport for addresses. Signed clusters
// are Amazon-managed domains and skip the Elasticsearch product check.
func NewTransport(addresses []string, rt http.RoundTripper, managed bool) (esapi.Transport, error) {
	if managed {
		return NewManagedTransport(addresses, rt)
	}
	return NewElasticsearch(addresses, rt)
}

// Health queries cluster health, waiting up to wait for minStatus. A 408
// reply carrying timed_out is a timed-out result, not an error.
func (c *ESClient) Health(ctx context.Context, minStatus string, wait time.Duration) (lifecycle.HealthResult, error) {
	req := esapi.ClusterHealthRequest{
		WaitForStatus: minStatus,
		Timeout:       wait,
	}
	res, err := req.Do(ctx, c.transport)
	if err != nil {
		return lifecycle.HealthResult{}, fmt.Errorf("cluster health: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusRequestTimeout {
		return lifecycle.HealthResult{}, fmt.Errorf("cluster health: %w", responseError(res))
	}

	var body struct {
		TimedOut bool   `json:"timed_out"`
		Status   string `json:"status"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return lifecycle.HealthResult{}, fmt.Errorf("decode cluster health: %w", err)
	}
	return lifecycle.HealthResult{TimedOut: body.TimedOut, Status: body.Status}, nil
}

// CreateIndex creates name with the given settings and mappings body.
func (c *ESClient) CreateIndex(ctx context.Context, name string, body json.RawMessage) error {
	req := esapi.IndicesCreateRequest{
		Index: name,
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, c.transport)
	if err != nil {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("create index %s: %w", name, responseError(res))
	}
	return nil
}

// DeleteIndex deletes name and reports the status code. Non-2xx replies are
// returned as a result, not an error.
func (c *ESClient) DeleteIndex(ctx context.Context, name string) (lifecycle.DeleteResult, error) {
	req := esapi.IndicesDeleteRequest{
		Index: []string{name},
	}
	res, err := req.Do(ctx, c.transport)
	if err != nil {
		return lifecycle.DeleteResult{}, fmt.Errorf("delete index %s: %w", name, err)
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	return lifecycle.DeleteResult{StatusCode: res.StatusCode}, nil
}

type reindexBody struct {
	Source reindexIndex `json:"source"`
	Dest   reindexIndex `json:"dest"`
}

type reindexIndex struct {
	Index string `json:"index"`
}

// Reindex starts a reindex from r.Source to r.Dest.
func (c *ESClient) Reindex(ctx context.Context, r lifecycle.ReindexRequest) (lifecycle.ReindexResult, error) {
	payload, err := json.Marshal(reindexBody{
		Source: reindexIndex{Index: r.Source},
		Dest:   reindexIndex{Index: r.Dest},
	})
	if err != nil {
		return lifecycle.ReindexResult{}, fmt.Errorf("marshal reindex body: %w", err)
	}

	wait := r.WaitForCompletion
	refresh := r.Refresh
	req := esapi.ReindexRequest{
		Body:              bytes.NewReader(payload),
		WaitForCompletion: &wait,
		Refresh:           &refresh,
	}
	res, err := req.Do(ctx, c.transport)
	if err != nil {
		return lifecycle.ReindexResult{}, fmt.Errorf("reindex: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return lifecycle.ReindexResult{}, fmt.Errorf("reindex: %w", responseError(res))
	}

	var body struct {
		Task     string `json:"task"`
		TimedOut bool   `json:"timed_out"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return lifecycle.ReindexResult{}, fmt.Errorf("decode reindex response: %w", err)
	}
	return lifecycle.ReindexResult{TimedOut: body.TimedOut, TaskID: body.Task}, nil
}

// taskResponse is the subset of GET _tasks/{id} this package reads.
type taskResponse struct {
	Completed bool        `json:"completed"`
	Error     *errorCause `json:"error"`
	Response  *struct {
		Failures []json.RawMessage `json:"failures"`
	} `json:"response"`
}

type errorCause struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// GetTask looks up a background task by id.
func (c *ESClient) GetTask(ctx context.Context, taskID string) (lifecycle.TaskStatus, error) {
	req := esapi.TasksGetRequest{
		TaskID: taskID,
	}
	res, err := req.Do(ctx, c.transport)
	if err != nil {
		return lifecycle.TaskStatus{}, fmt.Errorf("get task %s: %w", taskID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return lifecycle.TaskStatus{}, fmt.Errorf("get task %s: %w", taskID, responseError(res))
	}

	var body taskResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return lifecycle.TaskStatus{}, fmt.Errorf("decode task %s: %w", taskID, err)
	}

	status := lifecycle.TaskStatus{Completed: body.Completed}
	switch {
	case body.Error != nil:
		status.Error = body.Error.Type + ": " + body.Error.Reason
	case body.Response != nil && len(body.Response.Failures) > 0:
		status.Error = fmt.Sprintf("%d documents failed to copy", len(body.Response.Failures))
	}
	return status, nil
}

// responseError reads an error reply body into a *ResponseError.
func responseError(res *esapi.Response) error {
	var body struct {
		Error json.RawMessage `json:"error"`
	}
	out := &ResponseError{StatusCode: res.StatusCode}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil || len(body.Error) == 0 {
		return out
	}

	var cause errorCause
	if err := json.Unmarshal(body.Error, &cause); err == nil {
		out.Type = cause.Type
		out.Reason = cause.Reason
		return out
	}
	// Some endpoints reply with a plain string error.
	var msg string
	if err := json.Unmarshal(body.Error, &msg); err == nil {
		out.Type = "error"
		out.Reason = msg
	}
	return out
}
