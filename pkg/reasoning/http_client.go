package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.0-flash"
	DefaultTimeout = 30 * time.Second

	maxErrorBody = 512
)

// Config configures HTTPClient.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// HTTPClient calls a generateContent endpoint over HTTP.
type HTTPClient struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type generateRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// NewHTTPClient creates a client; empty config fields take the defaults.
func NewHTTPClient(config Config, logger *slog.Logger) *HTTPClient {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}

	if config.Model == "" {
		config.Model = DefaultModel
	}

	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPClient{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger.With("module", "reasoning_client"),
	}
}

// GenerateContent posts the prompt and returns the text of the first candidate.
func (c *HTTPClient) GenerateContent(ctx context.Context, prompt, systemInstruction string) (string, error) {
	req, err := c.buildRequest(ctx, prompt, systemInstruction)
	if err != nil {
		return "", err
	}

	c.logger.DebugContext(ctx, "Calling reasoning service", "model", c.config.Model, "prompt_length", len(prompt))

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("reasoning request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read reasoning response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{Code: resp.StatusCode, Body: truncate(strings.TrimSpace(string(body)), maxErrorBody)}
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("failed to decode reasoning response: %w", err)
	}

	var text strings.Builder

	if len(decoded.Candidates) > 0 {
		for _, p := range decoded.Candidates[0].Content.Parts {
			text.WriteString(p.Text)
		}
	}

	if text.Len() == 0 {
		return "", ErrEmptyResponse
	}

	return text.String(), nil
}

func (c *HTTPClient) buildRequest(ctx context.Context, prompt, systemInstruction string) (*http.Request, error) {
	payload := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:      0,
			ResponseMimeType: "application/json",
		},
	}

	if systemInstruction != "" {
		payload.SystemInstruction = &content{Parts: []part{{Text: systemInstruction}}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reasoning request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.config.BaseURL, "/"), c.config.Model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create reasoning request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if c.config.APIKey != "" {
		req.Header.Set("x-goog-api-key", c.config.APIKey)
	}

	return req, nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	return s[:limit] + "..."
}
