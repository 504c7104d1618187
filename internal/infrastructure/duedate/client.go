package duedate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"caseflow/internal/core/domain"
	"caseflow/internal/infrastructure/resilience"
)

// Client calls the remote day-arithmetic service. Business-day versus
// calendar-day counting lives entirely on the remote side; the engine only
// applies the returned date.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		executor:   executor,
	}
}

func (c *Client) ComputeDueDate(ctx context.Context, start domain.Date, taskTemplateID string) (domain.Date, error) {
	var due domain.Date
	call := func(ctx context.Context) error {
		query := url.Values{}
		query.Set("startDate", start.String())
		query.Set("taskTemplateId", taskTemplateID)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/due-date?"+query.Encode(), nil)
		if err != nil {
			return fmt.Errorf("create due date request: %w", err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("due date request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return fmt.Errorf("due date service status %s: %s", resp.Status, strings.TrimSpace(string(raw)))
		}

		var payload struct {
			DueDate domain.Date `json:"dueDate"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return fmt.Errorf("decode due date response: %w", err)
		}
		due = payload.DueDate
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "duedate.compute", call, classifyError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return domain.Date{}, err
	}
	if due.IsZero() {
		return domain.Date{}, errors.New("due date service returned no date")
	}
	return due, nil
}

func classifyError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
