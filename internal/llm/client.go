// Package llm provides the AI classification stage: prompt construction,
// provider clients, response parsing, and validation against the allowed
// category set.
package llm

import "context"

// Client defines the interface for text-generation providers.
type Client interface {
	// Generate sends a prompt and returns the raw response text.
	Generate(ctx context.Context, prompt string) (string, error)
	// Available probes the provider with a short timeout. A false return
	// means the classification call should be skipped entirely.
	Available(ctx context.Context) bool
}
