package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/ghigo/coinsort/internal/common"
)

// Config holds configuration for LLM providers.
type Config struct {
	Provider       string
	Model          string
	BaseURL        string
	APIKey         string
	Temperature    float64
	MaxTokens      int
	ProbeTimeout   time.Duration
	RequestTimeout time.Duration
}

// NewClient creates a provider client from configuration.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "ollama":
		return newOllamaClient(cfg)
	case "anthropic":
		return newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider %q", common.ErrInvalidConfig, cfg.Provider)
	}
}
