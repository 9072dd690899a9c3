package lifecycle

import (
	"context"
	"errors"
	"testing"
)

func TestIsComplete_NonUpdateIsAlwaysComplete(t *testing.T) {
	for _, rt := range []RequestType{RequestCreate, RequestDelete, "Not Update"} {
		cluster := &mockCluster{}
		p := NewPoller(cluster, 0)

		done, err := p.IsComplete(context.Background(), rt, map[string]string{DataTaskID: "task-id"})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", rt, err)
		}
		if !done {
			t.Errorf("%s: IsComplete = false, want true", rt)
		}
		if cluster.getTaskCalls != 0 {
			t.Errorf("%s: task lookups = %d, want 0", rt, cluster.getTaskCalls)
		}
	}
}

func TestIsComplete_UpdateReflectsTaskState(t *testing.T) {
	tests := []struct {
		name      string
		completed bool
	}{
		{name: "still running", completed: false},
		{name: "finished", completed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID string
			cluster := &mockCluster{
				getTaskFunc: func(ctx context.Context, taskID string) (TaskStatus, error) {
					gotID = taskID
					return TaskStatus{Completed: tt.completed}, nil
				},
			}
			p := NewPoller(cluster, 0)

			done, err := p.IsComplete(context.Background(), RequestUpdate, map[string]string{DataTaskID: "task-id"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if done != tt.completed {
				t.Errorf("IsComplete = %v, want %v", done, tt.completed)
			}
			if gotID != "task-id" {
				t.Errorf("task id = %q, want %q", gotID, "task-id")
			}
			if cluster.getTaskCalls != 1 {
				t.Errorf("task lookups = %d, want 1", cluster.getTaskCalls)
			}
		})
	}
}

func TestIsComplete_MissingTaskID(t *testing.T) {
	cluster := &mockCluster{}
	p := NewPoller(cluster, 0)

	_, err := p.IsComplete(context.Background(), RequestUpdate, map[string]string{DataIndexName: "myindex-x"})
	if !errors.Is(err, ErrTaskLookup) {
		t.Fatalf("error = %v, want ErrTaskLookup", err)
	}
	if cluster.getTaskCalls != 0 {
		t.Errorf("task lookups = %d, want 0", cluster.getTaskCalls)
	}
}

func TestIsComplete_LookupFailureIsAnError(t *testing.T) {
	notFound := errors.New("resource_not_found_exception")
	cluster := &mockCluster{
		getTaskFunc: func(ctx context.Context, taskID string) (TaskStatus, error) {
			return TaskStatus{}, notFound
		},
	}
	p := NewPoller(cluster, 0)

	done, err := p.IsComplete(context.Background(), RequestUpdate, map[string]string{DataTaskID: "missing"})
	if !errors.Is(err, ErrTaskLookup) {
		t.Fatalf("error = %v, want ErrTaskLookup", err)
	}
	if !errors.Is(err, notFound) {
		t.Errorf("error = %v, want it to wrap the lookup error", err)
	}
	if done {
		t.Error("IsComplete = true on lookup failure")
	}
}

func TestIsComplete_FailedTask(t *testing.T) {
	cluster := &mockCluster{
		getTaskFunc: func(ctx context.Context, taskID string) (TaskStatus, error) {
			return TaskStatus{Completed: true, Error: "index_not_found_exception: no such index"}, nil
		},
	}
	p := NewPoller(cluster, 0)

	_, err := p.IsComplete(context.Background(), RequestUpdate, map[string]string{DataTaskID: "task-id"})
	if !errors.Is(err, ErrReindexFailed) {
		t.Fatalf("error = %v, want ErrReindexFailed", err)
	}
}
