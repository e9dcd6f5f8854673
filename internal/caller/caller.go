// Package caller wraps a model client with a fixed retry budget and collapses
// every transient failure into a single unavailable outcome.
package caller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/jackzampolin/annotator/internal/providers"
)

const (
	DefaultAttempts     = 3
	DefaultBackoff      = 2 * time.Second
	DefaultProbeTimeout = 10 * time.Second
)

// ErrUnavailable is wrapped by every failed Outcome: the model could not
// produce text within the retry budget.
var ErrUnavailable = errors.New("model unavailable")

// Config configures a Caller.
type Config struct {
	Client providers.LLMClient
	// Model overrides the client's default model when set.
	Model       string
	Temperature float64
	// Attempts is the total number of tries per call (default 3).
	Attempts int
	// Backoff is the fixed wait between tries (default 2s).
	Backoff      time.Duration
	ProbeTimeout time.Duration
	Logger       *slog.Logger
}

// Caller issues prompts with bounded retries. It is safe for concurrent use.
type Caller struct {
	client       providers.LLMClient
	model        string
	temperature  float64
	attempts     int
	backoff      time.Duration
	probeTimeout time.Duration
	logger       *slog.Logger
}

// Outcome is the result of one Call. Either Text is valid or Err wraps
// ErrUnavailable; Call never returns anything else.
type Outcome struct {
	Text      string
	Err       error
	Attempts  int
	Latency   time.Duration
	Model     string
	Provider  string
	RequestID string

	PromptTokens     int
	CompletionTokens int
}

// Available reports whether the model produced text.
func (o Outcome) Available() bool {
	return o.Err == nil
}

// New creates a Caller.
func New(cfg Config) (*Caller, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("caller: client is required")
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultAttempts
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Caller{
		client:       cfg.Client,
		model:        cfg.Model,
		temperature:  cfg.Temperature,
		attempts:     cfg.Attempts,
		backoff:      cfg.Backoff,
		probeTimeout: cfg.ProbeTimeout,
		logger:       logger.With("component", "caller", "provider", cfg.Client.Name()),
	}, nil
}

// Provider returns the wrapped client's name.
func (c *Caller) Provider() string {
	return c.client.Name()
}

// Model returns the model override, or "" when the client default is used.
func (c *Caller) Model() string {
	return c.model
}

// Call sends prompt to the model, retrying transient failures with a fixed
// backoff. Network errors, timeouts, non-success statuses and malformed
// envelopes are all transient. Cancellation of ctx is not retried.
func (c *Caller) Call(ctx context.Context, req *providers.Request) Outcome {
	start := time.Now()
	if req == nil {
		req = &providers.Request{}
	}
	r := *req
	if r.Model == "" {
		r.Model = c.model
	}
	if r.Temperature == 0 {
		r.Temperature = c.temperature
	}

	attempts := 0
	result, err := retry.DoWithData(
		func() (*providers.Result, error) {
			attempts++
			return c.client.Generate(ctx, &r)
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.attempts)),
		retry.Delay(c.backoff),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(error) bool {
			return ctx.Err() == nil
		}),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("model call failed, retrying",
				"attempt", n+1,
				"max_attempts", c.attempts,
				"backoff", c.backoff,
				"request_id", r.RequestID,
				"error", err)
		}),
	)

	out := Outcome{
		Attempts:  attempts,
		Latency:   time.Since(start),
		Model:     r.Model,
		Provider:  c.client.Name(),
		RequestID: r.RequestID,
	}
	if err == nil && result == nil {
		err = providers.ErrMalformedEnvelope
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = errors.Join(err, ctxErr)
		}
		out.Err = fmt.Errorf("%w after %d attempt(s): %w", ErrUnavailable, attempts, err)
		c.logger.Error("model unavailable", "attempts", attempts, "request_id", r.RequestID, "error", err)
		return out
	}

	out.Text = result.Text
	if result.ModelUsed != "" {
		out.Model = result.ModelUsed
	}
	if result.RequestID != "" {
		out.RequestID = result.RequestID
	}
	out.PromptTokens = result.PromptTokens
	out.CompletionTokens = result.CompletionTokens
	return out
}

// Probe checks once that the model service is reachable.
func (c *Caller) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()
	if err := c.client.Ping(ctx); err != nil {
		return fmt.Errorf("%s service unreachable: %w", c.client.Name(), err)
	}
	c.logger.Info("model service reachable")
	return nil
}
