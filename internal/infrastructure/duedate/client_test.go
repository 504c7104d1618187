package duedate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"caseflow/internal/core/domain"
)

func TestComputeDueDate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/due-date" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("startDate"); got != "2024-01-10" {
			t.Fatalf("startDate = %s", got)
		}
		if got := r.URL.Query().Get("taskTemplateId"); got != "tpl-7" {
			t.Fatalf("taskTemplateId = %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"dueDate": "2024-01-24"}`))
	}))
	defer server.Close()

	client := New(server.URL, nil)
	due, err := client.ComputeDueDate(context.Background(), domain.NewDate(2024, time.January, 10), "tpl-7")
	if err != nil {
		t.Fatalf("ComputeDueDate() error = %v", err)
	}
	if due != domain.NewDate(2024, time.January, 24) {
		t.Fatalf("due = %v, want 2024-01-24", due)
	}
}

func TestComputeDueDateEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"dueDate": null}`))
	}))
	defer server.Close()

	client := New(server.URL, nil)
	_, err := client.ComputeDueDate(context.Background(), domain.NewDate(2024, time.January, 10), "tpl-7")
	if err == nil {
		t.Fatalf("expected error when the service returns no date")
	}
}

func TestComputeDueDateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "calendar unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL, nil)
	_, err := client.ComputeDueDate(context.Background(), domain.NewDate(2024, time.January, 10), "tpl-7")
	if err == nil {
		t.Fatalf("expected error for 503 response")
	}
}
