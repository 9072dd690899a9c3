package lifecycle

import (
	"context"
	"encoding/json"
	"time"
)

// mockCluster implements Cluster for testing.
type mockCluster struct {
	healthFunc  func(ctx context.Context, minStatus string, wait time.Duration) (HealthResult, error)
	createFunc  func(ctx context.Context, name string, body json.RawMessage) error
	deleteFunc  func(ctx context.Context, name string) (DeleteResult, error)
	reindexFunc func(ctx context.Context, req ReindexRequest) (ReindexResult, error)
	getTaskFunc func(ctx context.Context, taskID string) (TaskStatus, error)

	healthCalls  int
	createCalls  int
	deleteCalls  int
	reindexCalls int
	getTaskCalls int
}

func (m *mockCluster) Health(ctx context.Context, minStatus string, wait time.Duration) (HealthResult, error) {
	m.healthCalls++
	if m.healthFunc != nil {
		return m.healthFunc(ctx, minStatus, wait)
	}
	return HealthResult{Status: "green"}, nil
}

func (m *mockCluster) CreateIndex(ctx context.Context, name string, body json.RawMessage) error {
	m.createCalls++
	if m.createFunc != nil {
		return m.createFunc(ctx, name, body)
	}
	return nil
}

func (m *mockCluster) DeleteIndex(ctx context.Context, name string) (DeleteResult, error) {
	m.deleteCalls++
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, name)
	}
	return DeleteResult{StatusCode: 200}, nil
}

func (m *mockCluster) Reindex(ctx context.Context, req ReindexRequest) (ReindexResult, error) {
	m.reindexCalls++
	if m.reindexFunc != nil {
		return m.reindexFunc(ctx, req)
	}
	return ReindexResult{TaskID: "node-1:42"}, nil
}

func (m *mockCluster) GetTask(ctx context.Context, taskID string) (TaskStatus, error) {
	m.getTaskCalls++
	if m.getTaskFunc != nil {
		return m.getTaskFunc(ctx, taskID)
	}
	return TaskStatus{Completed: true}, nil
}

// mockBlobGetter implements BlobGetter for testing.
type mockBlobGetter struct {
	getFunc func(ctx context.Context, bucket, key string) ([]byte, error)
}

func (m *mockBlobGetter) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, bucket, key)
	}
	return []byte("{}"), nil
}
