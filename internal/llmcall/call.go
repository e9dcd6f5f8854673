// Package llmcall provides LLM call recording and querying for traceability.
// Every model call made during a run can be recorded with its prompt key,
// prompt hash, response and timing.
package llmcall

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/annotator/internal/caller"
)

// Call represents a recorded model call.
type Call struct {
	// Unique identifier
	ID string `json:"id"`

	// Timing
	Timestamp time.Time `json:"timestamp"`
	LatencyMs int       `json:"latency_ms"`

	// Context references
	Task      string          `json:"task"`
	RecordID  json.RawMessage `json:"record_id,omitempty"`
	Line      int             `json:"line"`
	RequestID string          `json:"request_id,omitempty"`

	// Prompt traceability
	PromptKey  string `json:"prompt_key"`
	PromptHash string `json:"prompt_hash,omitempty"` // Content hash of the exact prompt text sent

	// Model info
	Provider    string   `json:"provider"`
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`

	// Token usage
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`

	// Response
	Response string `json:"response"`
	Tier     string `json:"tier,omitempty"`
	Attempts int    `json:"attempts"`

	// Status
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RecordOptions provides context for recording a model call.
type RecordOptions struct {
	// Context references
	Task     string
	RecordID json.RawMessage
	Line     int

	// Prompt identification (required for traceability)
	PromptKey  string
	PromptHash string

	// Request parameters (pointer to distinguish "not set" from "set to 0")
	Temperature *float64

	// Tier is the extraction step that produced the emitted value.
	Tier string
}

// FromOutcome creates a Call from a caller outcome.
func FromOutcome(out caller.Outcome, opts RecordOptions) *Call {
	call := &Call{
		ID:           uuid.New().String(),
		Timestamp:    time.Now(),
		LatencyMs:    int(out.Latency.Milliseconds()),
		Task:         opts.Task,
		RecordID:     opts.RecordID,
		Line:         opts.Line,
		RequestID:    out.RequestID,
		PromptKey:    opts.PromptKey,
		PromptHash:   opts.PromptHash,
		Provider:     out.Provider,
		Model:        out.Model,
		Temperature:  opts.Temperature,
		InputTokens:  out.PromptTokens,
		OutputTokens: out.CompletionTokens,
		Response:     out.Text,
		Tier:         opts.Tier,
		Attempts:     out.Attempts,
		Success:      out.Available(),
	}

	if !out.Available() {
		call.Error = out.Err.Error()
	}

	return call
}
