package ocrclient

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"caseflow/internal/core/domain"
)

func TestSubmitImmediateResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/extract" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("docType"); got != "Passport" {
			t.Fatalf("docType = %s", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		if header.Filename != "scan.pdf" {
			t.Fatalf("filename = %s", header.Filename)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "completed",
			"mrzData": {"surname": "Ivanova", "docNumber": "X1234567"}
		}`))
	}))
	defer server.Close()

	client := New(server.URL)
	result, statusURL, err := client.Submit(context.Background(), bytes.NewBufferString("pdf"), "scan.pdf", "Passport")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if statusURL != "" {
		t.Fatalf("expected no status url for an immediate result, got %q", statusURL)
	}
	if result.Status != domain.OcrCompleted || result.MrzData == nil || result.MrzData.Surname != "Ivanova" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestSubmitReturnsStatusURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "processing", "status_url": "/status/job-1"}`))
	}))
	defer server.Close()

	client := New(server.URL)
	result, statusURL, err := client.Submit(context.Background(), bytes.NewBufferString("pdf"), "scan.pdf", "Passport")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if result != nil {
		t.Fatalf("expected nil result when polling is required, got %+v", result)
	}
	if statusURL != "/status/job-1" {
		t.Fatalf("status url = %q", statusURL)
	}
}

func TestFetchStatusResolvesRelativeURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status/job-1" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "processing", "progress": 40}`))
	}))
	defer server.Close()

	client := New(server.URL)
	result, err := client.FetchStatus(context.Background(), "/status/job-1")
	if err != nil {
		t.Fatalf("FetchStatus() error = %v", err)
	}
	if result.Status != domain.OcrProcessing || result.Progress != 40 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestWireNormalizesSnakeCaseAliases(t *testing.T) {
	wire := wireResult{
		Status:       "COMPLETED",
		PreviewSnake: "data:image/jpeg;base64,xxx",
		MrzDataSnake: &wireMrz{
			Surname:         "Ivanova",
			BirthDate:       "1990-02-03T00:00:00Z",
			DocNumberSnk:    "X1234567",
			ExpiryDate:      "2030-01-01",
			AiConfidenceSnk: 88,
			HasMismatchSnk:  true,
			MismatchSumSnk:  "dob mismatch",
			MethodSnk:       "hybridMrzAi",
		},
	}

	result := wire.toResult()
	if result.Status != domain.OcrCompleted {
		t.Fatalf("status = %s, want completed", result.Status)
	}
	if result.PreviewImage == "" {
		t.Fatalf("snake-case preview not picked up")
	}

	mrz := result.MrzData
	if mrz == nil {
		t.Fatalf("snake-case mrz bag not picked up")
	}
	if mrz.DateOfBirth != domain.NewDate(1990, time.February, 3) {
		t.Fatalf("birth_date timestamp not truncated: %v", mrz.DateOfBirth)
	}
	if mrz.DocNumber != "X1234567" || mrz.ExpirationDate != domain.NewDate(2030, time.January, 1) {
		t.Fatalf("aliases not coalesced: %+v", mrz)
	}
	if mrz.AiConfidenceScore != 88 || !mrz.HasMismatches || mrz.MismatchSummary != "dob mismatch" {
		t.Fatalf("quality signals not coalesced: %+v", mrz)
	}
	if mrz.ExtractionMethod != domain.ExtractionHybridMrzAi {
		t.Fatalf("extraction method = %s", mrz.ExtractionMethod)
	}
}

func TestWireCamelCaseWinsOverSnakeCase(t *testing.T) {
	wire := wireMrz{
		IssueDate:    "2020-05-15",
		IssueDateSnk: "2019-01-01",
	}
	if got := wire.toDomain().IssueDate; got != domain.NewDate(2020, time.May, 15) {
		t.Fatalf("issue date = %v, want camelCase value", got)
	}
}

func TestWireEmptyStatusDefaultsToProcessing(t *testing.T) {
	wire := wireResult{}
	if got := wire.toResult().Status; got != domain.OcrProcessing {
		t.Fatalf("empty status mapped to %s, want processing", got)
	}
}

func TestParseWireDateUnparsableIsZero(t *testing.T) {
	if got := parseWireDate("garbage"); !got.IsZero() {
		t.Fatalf("expected zero date, got %v", got)
	}
	if got := parseWireDate(""); !got.IsZero() {
		t.Fatalf("expected zero date for empty input, got %v", got)
	}
}
