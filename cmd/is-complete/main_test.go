package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/jarrod-lowe/search-index-resource/internal/lifecycle"
)

type mockPoller struct {
	isCompleteFunc func(ctx context.Context, requestType lifecycle.RequestType, data map[string]string) (bool, error)
}

func (m *mockPoller) IsComplete(ctx context.Context, requestType lifecycle.RequestType, data map[string]string) (bool, error) {
	if m.isCompleteFunc != nil {
		return m.isCompleteFunc(ctx, requestType, data)
	}
	return true, nil
}

func TestHandler_PassesTaskIDToPoller(t *testing.T) {
	var gotType lifecycle.RequestType
	var gotData map[string]string
	mock := &mockPoller{
		isCompleteFunc: func(ctx context.Context, requestType lifecycle.RequestType, data map[string]string) (bool, error) {
			gotType = requestType
			gotData = data
			return false, nil
		},
	}

	h := newHandler(mock)
	resp, err := h.handle(context.Background(), Request{
		Event: cfn.Event{RequestType: cfn.RequestUpdate, PhysicalResourceID: "new"},
		Data:  map[string]any{"TaskId": "task-id", "IndexName": "index-new"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.IsComplete {
		t.Error("IsComplete = true, want false")
	}
	if gotType != lifecycle.RequestUpdate {
		t.Errorf("requestType = %q, want Update", gotType)
	}
	if gotData["TaskId"] != "task-id" {
		t.Errorf("TaskId = %q, want task-id", gotData["TaskId"])
	}
	if resp.Data["IndexName"] != "index-new" {
		t.Errorf("Data not echoed: %v", resp.Data)
	}
}

func TestHandler_Complete(t *testing.T) {
	h := newHandler(&mockPoller{})
	resp, err := h.handle(context.Background(), Request{
		Event: cfn.Event{RequestType: cfn.RequestCreate},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.IsComplete {
		t.Error("IsComplete = false, want true")
	}

	body, _ := json.Marshal(resp)
	if string(body) != `{"IsComplete":true}` {
		t.Errorf("response = %s", body)
	}
}

func TestHandler_PollerErrorIsReturned(t *testing.T) {
	mock := &mockPoller{
		isCompleteFunc: func(ctx context.Context, requestType lifecycle.RequestType, data map[string]string) (bool, error) {
			return false, lifecycle.ErrTaskLookup
		},
	}

	h := newHandler(mock)
	_, err := h.handle(context.Background(), Request{
		Event: cfn.Event{RequestType: cfn.RequestUpdate},
		Data:  map[string]any{"TaskId": "gone"},
	})
	if !errors.Is(err, lifecycle.ErrTaskLookup) {
		t.Fatalf("error = %v, want ErrTaskLookup", err)
	}
}

func TestRequest_DecodesProviderPayload(t *testing.T) {
	payload := `{
		"RequestType": "Update",
		"RequestId": "req-3",
		"PhysicalResourceId": "0123456789abcdef0123456789abcdef",
		"ResourceProperties": {"ServiceToken": "arn"},
		"Data": {"IndexName": "myindex-0123456789abcdef0123456789abcdef", "TaskId": "node:7", "Shards": 3}
	}`

	var req Request
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if req.RequestType != cfn.RequestUpdate {
		t.Errorf("RequestType = %q, want Update", req.RequestType)
	}
	if req.PhysicalResourceID != "0123456789abcdef0123456789abcdef" {
		t.Errorf("PhysicalResourceID = %q", req.PhysicalResourceID)
	}

	data := stringData(req.Data)
	if data["TaskId"] != "node:7" {
		t.Errorf("TaskId = %q, want node:7", data["TaskId"])
	}
	if _, ok := data["Shards"]; ok {
		t.Error("non-string Data entry should be dropped")
	}
}
