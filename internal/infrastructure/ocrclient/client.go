package ocrclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"caseflow/internal/core/domain"
)

// Client calls the remote extraction service. Submit posts the scan and
// either gets the final result straight away or a status URL to poll.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Submit(ctx context.Context, file io.Reader, filename, docTypeHint string) (*domain.OcrResult, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("create multipart file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("copy scan into request: %w", err)
	}
	if err := writer.WriteField("docType", docTypeHint); err != nil {
		return nil, "", fmt.Errorf("write doc type hint: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", &body)
	if err != nil {
		return nil, "", fmt.Errorf("create extraction request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("extraction request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, "", fmt.Errorf("extraction status %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var wire wireResult
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, "", fmt.Errorf("decode extraction response: %w", err)
	}
	if statusURL := wire.statusURL(); statusURL != "" {
		return nil, statusURL, nil
	}
	return wire.toResult(), "", nil
}

func (c *Client) FetchStatus(ctx context.Context, statusURL string) (*domain.OcrResult, error) {
	target := statusURL
	if strings.HasPrefix(target, "/") {
		target = c.baseURL + target
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create status request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("status endpoint %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var wire wireResult
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	return wire.toResult(), nil
}
