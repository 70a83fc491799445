package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ghigo/coinsort/internal/common"
	"github.com/ghigo/coinsort/internal/service"
)

const anthropicSystemPrompt = "You are a financial record classifier. Respond only in the exact line format requested."

// anthropicClient implements the Client interface using the Anthropic API.
type anthropicClient struct {
	client         anthropic.Client
	model          string
	maxTokens      int64
	requestTimeout time.Duration
}

// newAnthropicClient creates a new Anthropic API client.
func newAnthropicClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: anthropic API key", common.ErrMissingConfig)
	}

	model := cfg.Model
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 256
	}

	requestTimeout := cfg.RequestTimeout
	if requestTimeout == 0 {
		requestTimeout = 30 * time.Second
	}

	return &anthropicClient{
		client:         anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:          model,
		maxTokens:      maxTokens,
		requestTimeout: requestTimeout,
	}, nil
}

// Generate sends a classification prompt to the Anthropic API. Rate limits
// and server-side failures are retried with backoff before giving up.
func (c *anthropicClient) Generate(ctx context.Context, prompt string) (string, error) {
	var out string
	err := common.WithRetry(ctx, func() error {
		text, err := c.generateOnce(ctx, prompt)
		if err != nil {
			return classifyAPIError(err)
		}
		out = text
		return nil
	}, service.RetryOptions{MaxAttempts: 3, InitialDelay: time.Second})
	if err != nil {
		return "", err
	}
	return out, nil
}

func (c *anthropicClient) generateOnce(ctx context.Context, prompt string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	message, err := c.client.Messages.New(reqCtx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: anthropicSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}

	var out string
	for _, block := range message.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	if out == "" {
		return "", fmt.Errorf("anthropic returned no text content")
	}

	return out, nil
}

// classifyAPIError sorts API failures into retryable and terminal. Rate
// limits and server errors are transient; everything else (bad request,
// auth) will not get better on a retry.
func classifyAPIError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", common.ErrRateLimit, err)
		case apiErr.StatusCode >= 500:
			return fmt.Errorf("%w: %v", common.ErrServiceUnavailable, err)
		default:
			return &common.RetryableError{Err: err, Retryable: false}
		}
	}
	// Transport-level failures are worth another attempt.
	return err
}

// Available reports whether the API is reachable. A hosted API has no cheap
// health endpoint, so a configured client is assumed reachable; transport
// failures surface on the classification call and are absorbed there.
func (c *anthropicClient) Available(_ context.Context) bool {
	return true
}
