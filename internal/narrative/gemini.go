package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/user/intruscan/internal/model"
)

// DefaultEndpoint is the Gemini REST API base.
const DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"

var (
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("narrative generator not configured")
	// ErrEmptyResponse is returned when the model answers without text.
	ErrEmptyResponse = errors.New("no response generated")
)

// Generator produces a narrative for scan results.
type Generator interface {
	Analyze(ctx context.Context, results model.ScanResults) (*model.AIAnalysis, error)
}

// GeminiClient calls the generateContent endpoint.
type GeminiClient struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
	now      func() time.Time
}

// NewGeminiClient creates a client. An empty model selects
// gemini-2.5-flash.
func NewGeminiClient(apiKey, modelName string, timeout time.Duration) *GeminiClient {
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &GeminiClient{
		apiKey:   apiKey,
		model:    modelName,
		endpoint: DefaultEndpoint,
		client:   &http.Client{Timeout: timeout},
		now:      time.Now,
	}
}

// WithEndpoint overrides the API base URL.
func (c *GeminiClient) WithEndpoint(endpoint string) *GeminiClient {
	c.endpoint = strings.TrimRight(endpoint, "/")
	return c
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	ThinkingConfig   thinkingConfig `json:"thinkingConfig"`
	ResponseMimeType string         `json:"responseMimeType"`
}

type thinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Analyze builds the prompt for results and returns the model's answer.
func (c *GeminiClient) Analyze(ctx context.Context, results model.ScanResults) (*model.AIAnalysis, error) {
	if c == nil || c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	prompt := BuildPrompt(results)
	text, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return &model.AIAnalysis{
		Analysis:    text,
		Prompt:      prompt,
		GeneratedAt: c.now(),
	}, nil
}

func (c *GeminiClient) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			ThinkingConfig:   thinkingConfig{ThinkingBudget: 0},
			ResponseMimeType: "text/plain",
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.endpoint, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call narrative service: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read narrative response: %w", err)
	}

	var out generateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("failed to decode narrative response (%s): %w", resp.Status, err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("narrative service error %d %s: %s", out.Error.Code, out.Error.Status, out.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("narrative service returned %s", resp.Status)
	}

	var sb strings.Builder
	if len(out.Candidates) > 0 {
		for _, p := range out.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyResponse
	}

	return text, nil
}
