package providers

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// LLMClient is the model boundary: one prompt in, text out.
type LLMClient interface {
	// Generate sends a single prompt and returns the model's text.
	Generate(ctx context.Context, req *Request) (*Result, error)

	// Ping checks that the service is reachable without generating anything.
	Ping(ctx context.Context) error

	// Name returns the client identifier (e.g., "ollama").
	Name() string
}

// Request is a single generation request.
type Request struct {
	// Prompt is the full prompt text.
	Prompt string `json:"prompt"`

	// Model selection (uses client default if empty)
	Model string `json:"model,omitempty"`

	// Generation parameters
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`

	// Request tracking
	RequestID string `json:"-"`
}

// Result is the response from one generation call.
type Result struct {
	Text string `json:"text"`

	// Token counts, when the service reports them
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`

	ExecutionTime time.Duration `json:"execution_time"`

	// Provider info
	Provider  string `json:"provider"`
	ModelUsed string `json:"model_used"`

	RequestID string `json:"request_id"`
}

var (
	// ErrMalformedEnvelope means the service answered but the response body
	// could not be decoded into the expected envelope.
	ErrMalformedEnvelope = errors.New("malformed response envelope")

	// ErrNoChoices means a chat completion came back without any choices.
	ErrNoChoices = errors.New("response contained no choices")
)

// StatusError is a non-success HTTP status from the model service.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s error (status %d)", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

// IsStatusError returns the StatusError wrapped in err, if any.
func IsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// truncateBody keeps error messages readable when a service returns a page of HTML.
func truncateBody(b []byte) string {
	const max = 512
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
