package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ghigo/coinsort/internal/common"
)

// ollamaClient implements the Client interface against a local Ollama
// server. The server is a shared single-machine inference process, so
// callers are expected to bound their concurrency.
type ollamaClient struct {
	httpClient   *http.Client
	baseURL      string
	model        string
	temperature  float64
	probeTimeout time.Duration
}

// newOllamaClient creates a client for a local Ollama instance.
func newOllamaClient(cfg Config) (Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	model := cfg.Model
	if model == "" {
		model = "llama3.1"
	}

	requestTimeout := cfg.RequestTimeout
	if requestTimeout == 0 {
		requestTimeout = 60 * time.Second
	}

	probeTimeout := cfg.ProbeTimeout
	if probeTimeout == 0 {
		probeTimeout = 2 * time.Second
	}

	return &ollamaClient{
		baseURL:      baseURL,
		model:        model,
		temperature:  cfg.Temperature,
		probeTimeout: probeTimeout,
		httpClient: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Generate sends a completion request to the local Ollama server.
func (c *ollamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := ollamaGenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	}
	if c.temperature > 0 {
		reqBody.Options = map[string]any{"temperature": c.temperature}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("%w: ollama returned status %d", common.ErrServiceUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(body))
	}

	var generated ollamaGenerateResponse
	if err := json.Unmarshal(body, &generated); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if generated.Error != "" {
		return "", fmt.Errorf("ollama error: %s", generated.Error)
	}

	return generated.Response, nil
}

// Available checks whether the Ollama server answers within the probe
// timeout.
func (c *ollamaClient) Available(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}
