// Package llm abstracts the chat-completion backends the validator can
// run against: any OpenAI-compatible API or a local Ollama instance.
package llm

import (
	"context"
	"errors"
	"time"
)

// TimeoutLLMCall bounds a single completion round trip.
const TimeoutLLMCall = 60 * time.Second

// ErrProviderNotAvailable reports a backend that cannot be reached. The
// validator treats it as a degradation signal, not a failure.
var ErrProviderNotAvailable = errors.New("provider not available")

// Provider is the interface all chat-completion backends implement.
type Provider interface {
	// Name returns the provider identifier (e.g. "openai", "ollama").
	Name() string
	// Generate sends a completion request and returns the response.
	Generate(ctx context.Context, req *Request) (*Response, error)
}

// Request represents a completion request.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Message represents a chat message.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// Response represents a completion response. Token usage and finish reason
// stay on the provider's span attributes; callers only consume the text.
type Response struct {
	Content string
	Model   string
}
