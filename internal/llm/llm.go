// Package llm provides clients for the text-generation collaborators.
package llm

import (
	"context"
	"time"
)

const defaultTimeout = 60 * time.Second

// Params are generation parameters passed through to the backend. The
// review pipeline never interprets them.
type Params struct {
	MaxNewTokens int
	Temperature  float32
	TopP         float32
	Stop         []string
}

// Generator is a text-generation collaborator. Implementations must be safe
// for concurrent use; the orchestrator shares one instance across requests.
type Generator interface {
	// Generate produces raw text for the prompt.
	Generate(ctx context.Context, prompt string) (string, error)
	// Health reports whether the backend is ready to serve.
	Health(ctx context.Context) bool
}
