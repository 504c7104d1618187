package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"caseflow/internal/core/domain"
)

func TestGetApplicationDecodesPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/applications/app-1" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "app-1",
			"status": "processing",
			"docDate": "2024-01-10",
			"dueDate": null,
			"workflows": [
				{"id": "w1", "task": {"id": "t1", "step": 1}, "status": "pending", "dueDate": "2024-01-20"}
			]
		}`))
	}))
	defer server.Close()

	client := New(server.URL, nil)
	app, err := client.GetApplication(context.Background(), "app-1")
	if err != nil {
		t.Fatalf("GetApplication() error = %v", err)
	}

	if app.ID != "app-1" || app.Status != domain.ApplicationProcessing {
		t.Fatalf("unexpected application %+v", app)
	}
	if app.DocDate != domain.NewDate(2024, time.January, 10) {
		t.Fatalf("doc date = %v", app.DocDate)
	}
	if !app.DueDate.IsZero() {
		t.Fatalf("null due date must decode to zero, got %v", app.DueDate)
	}
	if len(app.Workflows) != 1 || app.Workflows[0].DueDate != domain.NewDate(2024, time.January, 20) {
		t.Fatalf("workflows not decoded: %+v", app.Workflows)
	}
}

func TestGetApplicationNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such application", http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, nil)
	_, err := client.GetApplication(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrApplicationNotFound) {
		t.Fatalf("expected not-found kind, got %v", err)
	}
}

func TestAdvanceWorkflowSendsComputedDates(t *testing.T) {
	var got domain.AdvanceRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/applications/app-1/workflow/advance" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := New(server.URL, nil)
	req := domain.AdvanceRequest{
		CompletionDate: domain.NewDate(2024, time.April, 8),
		NextStartDate:  domain.NewDate(2024, time.April, 8),
		NextDueDate:    domain.NewDate(2024, time.April, 20),
	}
	if err := client.AdvanceWorkflow(context.Background(), "app-1", req); err != nil {
		t.Fatalf("AdvanceWorkflow() error = %v", err)
	}
	if got != req {
		t.Fatalf("backend received %+v, want %+v", got, req)
	}
}

func TestServerErrorIsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "db unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL, nil)
	err := client.ForceClose(context.Background(), "app-1")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary kind for 503, got %v", err)
	}
}

func TestClientErrorIsNotTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "validation failed", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := New(server.URL, nil)
	err := client.Reopen(context.Background(), "app-1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if domain.IsKind(err, domain.ErrTemporary) || domain.IsKind(err, domain.ErrApplicationNotFound) {
		t.Fatalf("422 must surface as-is, got %v", err)
	}
}

func TestClassifyBackendError(t *testing.T) {
	retryable := classifyBackendError(&HTTPStatusError{StatusCode: http.StatusBadGateway})
	if !retryable.Retryable || !retryable.RecordFailure {
		t.Fatalf("502 should retry and record, got %+v", retryable)
	}

	hard := classifyBackendError(&HTTPStatusError{StatusCode: http.StatusConflict})
	if hard.Retryable || hard.RecordFailure {
		t.Fatalf("409 should neither retry nor record, got %+v", hard)
	}

	cancelled := classifyBackendError(context.Canceled)
	if cancelled.Retryable || cancelled.RecordFailure {
		t.Fatalf("cancellation should neither retry nor record, got %+v", cancelled)
	}
}
