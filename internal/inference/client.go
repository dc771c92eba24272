// Package inference talks to the ML service that classifies traffic captures.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/user/intruscan/internal/model"
)

// ErrService is returned when the inference service rejects a request or
// answers with something other than scan results.
var ErrService = errors.New("inference service error")

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4096

// Client uploads captures to the inference service.
type Client struct {
	analyzeURL string
	healthURL  string
	client     *http.Client
}

// NewClient creates a client for the given analyze endpoint. The health
// endpoint is its sibling path "health".
func NewClient(analyzeURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(analyzeURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid inference URL %q", analyzeURL)
	}
	health := u.ResolveReference(&url.URL{Path: "health"})

	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		analyzeURL: u.String(),
		healthURL:  health.String(),
		client:     &http.Client{Timeout: timeout},
	}, nil
}

// Analyze uploads a capture as the multipart field "file" and returns the
// decoded results.
func (c *Client) Analyze(ctx context.Context, filename string, r io.Reader) (*model.ScanResults, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read capture: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish upload body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.analyzeURL, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call inference service: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read inference response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: %s", ErrService, resp.Status, errorMessage(data))
	}

	// The service reports some failures as 200 with an error field.
	var probe struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &probe) == nil && probe.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrService, probe.Error)
	}

	var results model.ScanResults
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("%w: failed to decode results: %v", ErrService, err)
	}
	if results.ProcessingTime == 0 {
		results.ProcessingTime = time.Since(start).Seconds()
	}
	if results.AnomalyRate == 0 && results.TotalRecords > 0 {
		results.AnomalyRate = model.Percent(results.AnomaliesDetected, results.TotalRecords)
	}

	return &results, nil
}

// Health checks the service's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach inference service: %w", err)
	}
	defer resp.Body.Close()

	var status struct {
		Status      string `json:"status"`
		ModelLoaded *bool  `json:"model_loaded"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: %s", ErrService, resp.Status, errorMessage(data))
	}
	if err := json.Unmarshal(data, &status); err != nil {
		return fmt.Errorf("%w: unreadable health response", ErrService)
	}
	if status.Status != "healthy" {
		return fmt.Errorf("%w: status %q", ErrService, status.Status)
	}
	if status.ModelLoaded != nil && !*status.ModelLoaded {
		return fmt.Errorf("%w: model not loaded", ErrService)
	}

	return nil
}

// URL returns the analyze endpoint.
func (c *Client) URL() string {
	return c.analyzeURL
}

func errorMessage(data []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		return body.Error
	}
	if len(data) > maxErrorBody {
		data = data[:maxErrorBody]
	}
	return strings.TrimSpace(string(data))
}
