package providers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockClient is an LLMClient for tests and offline demo runs.
type MockClient struct {
	// Configurable behavior
	Latency time.Duration
	// Responses are returned in order; the last one repeats.
	Responses []string
	// Respond, when set, takes precedence over Responses.
	Respond func(req *Request) (string, error)
	// FailFirst fails the first N Generate calls.
	FailFirst  int
	ShouldFail bool
	PingErr    error

	mu      sync.Mutex
	prompts []string

	// State
	requestCount atomic.Int64
	pingCount    atomic.Int64
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		Responses: []string{"mock response"},
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Ping returns PingErr.
func (c *MockClient) Ping(ctx context.Context) error {
	c.pingCount.Add(1)
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.PingErr
}

// Generate returns the next scripted response.
func (c *MockClient) Generate(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	c.mu.Lock()
	c.prompts = append(c.prompts, req.Prompt)
	c.mu.Unlock()

	if c.ShouldFail {
		return nil, fmt.Errorf("mock client configured to fail")
	}
	if c.FailFirst > 0 && int(count) <= c.FailFirst {
		return nil, &StatusError{Provider: MockClientName, StatusCode: 503, Body: fmt.Sprintf("mock failure %d", count)}
	}

	if c.Latency > 0 {
		select {
		case <-time.After(c.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var text string
	switch {
	case c.Respond != nil:
		var err error
		text, err = c.Respond(req)
		if err != nil {
			return nil, err
		}
	case len(c.Responses) > 0:
		i := int(count) - 1
		if i >= len(c.Responses) {
			i = len(c.Responses) - 1
		}
		text = c.Responses[i]
	}

	return &Result{
		Text:          text,
		ExecutionTime: time.Since(start),
		Provider:      MockClientName,
		ModelUsed:     req.Model,
		RequestID:     fmt.Sprintf("mock-%d", count),
	}, nil
}

// RequestCount returns the number of Generate calls made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// PingCount returns the number of Ping calls made.
func (c *MockClient) PingCount() int64 {
	return c.pingCount.Load()
}

// Prompts returns a copy of every prompt received, in call order.
func (c *MockClient) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prompts...)
}

// Reset resets the request counters and recorded prompts.
func (c *MockClient) Reset() {
	c.requestCount.Store(0)
	c.pingCount.Store(0)
	c.mu.Lock()
	c.prompts = nil
	c.mu.Unlock()
}

// Verify interface
var _ LLMClient = (*MockClient)(nil)
