package providers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockClient is an LLMClient for testing.
//
// Responses are consumed in order; once exhausted, ResponseText is returned.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // Fail after N requests (0 = never)
	ResponseText string
	Responses    []string

	// State
	requestCount atomic.Int64
	mu           sync.Mutex
	requests     []ChatRequest
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		ResponseText: "mock response",
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// HealthCheck fails when the client is configured to fail.
func (c *MockClient) HealthCheck(ctx context.Context) error {
	if c.ShouldFail {
		return fmt.Errorf("mock client configured to fail")
	}
	return ctx.Err()
}

// Chat sends a mock chat request.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	c.mu.Lock()
	c.requests = append(c.requests, *req)
	c.mu.Unlock()

	result := &ChatResult{
		RequestID: fmt.Sprintf("mock-%d", count),
		Provider:  MockClientName,
		ModelUsed: req.Model,
	}

	if c.ShouldFail {
		result.ErrorType = "mock_failure"
		result.ErrorMessage = "mock client configured to fail"
		return result, fmt.Errorf("mock client configured to fail")
	}
	if c.FailAfter > 0 && int(count) > c.FailAfter {
		result.ErrorType = "mock_failure"
		result.ErrorMessage = fmt.Sprintf("mock client failed after %d requests", c.FailAfter)
		return result, fmt.Errorf("mock client failed after %d requests", c.FailAfter)
	}

	if c.Latency > 0 {
		select {
		case <-time.After(c.Latency):
		case <-ctx.Done():
			result.ErrorType = "context_cancelled"
			result.ErrorMessage = ctx.Err().Error()
			return result, ctx.Err()
		}
	}

	content := c.ResponseText
	c.mu.Lock()
	if len(c.Responses) > 0 {
		content = c.Responses[0]
		c.Responses = c.Responses[1:]
	}
	c.mu.Unlock()

	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += len(m.Content) / 4 // Rough estimate
	}

	result.Success = true
	result.Content = content
	result.PromptTokens = promptTokens
	result.CompletionTokens = len(content) / 4
	result.TotalTokens = result.PromptTokens + result.CompletionTokens
	result.ExecutionTime = time.Since(start)
	return result, nil
}

// RequestCount returns the number of requests made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// Requests returns a copy of every request received so far.
func (c *MockClient) Requests() []ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ChatRequest, len(c.requests))
	copy(out, c.requests)
	return out
}

// LastRequest returns the most recent request, or nil if none.
func (c *MockClient) LastRequest() *ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.requests) == 0 {
		return nil
	}
	req := c.requests[len(c.requests)-1]
	return &req
}

// Reset resets the request counter and recorded requests.
func (c *MockClient) Reset() {
	c.requestCount.Store(0)
	c.mu.Lock()
	c.requests = nil
	c.mu.Unlock()
}

// Verify interface
var _ LLMClient = (*MockClient)(nil)
