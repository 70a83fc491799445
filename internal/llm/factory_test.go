package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghigo/coinsort/internal/common"
)

func TestNewClientDefaultsToOllama(t *testing.T) {
	client, err := NewClient(Config{})
	require.NoError(t, err)
	assert.IsType(t, &ollamaClient{}, client)
}

func TestNewClientRejectsUnknownProvider(t *testing.T) {
	_, err := NewClient(Config{Provider: "openai"})
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestNewClientAnthropicRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{Provider: "anthropic"})
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	client, err := NewClient(Config{Provider: "anthropic", APIKey: "sk-test"})
	require.NoError(t, err)
	assert.IsType(t, &anthropicClient{}, client)
}
