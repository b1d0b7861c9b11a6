package providers

import (
	"context"
	"errors"
	"sync"
	"time"
)

// RateLimitedClient spaces out Chat calls to at most requestsPerMinute, with
// bursts up to the same size. A RateLimitError from the wrapped client drains
// the bucket so the next call waits for a fresh token.
type RateLimitedClient struct {
	inner LLMClient

	mu                sync.Mutex
	requestsPerMinute float64
	tokens            float64
	lastUpdate        time.Time
	now               func() time.Time
}

// NewRateLimitedClient wraps inner. Non-positive limits return inner unchanged.
func NewRateLimitedClient(inner LLMClient, requestsPerMinute int) LLMClient {
	if requestsPerMinute <= 0 {
		return inner
	}
	return &RateLimitedClient{
		inner:             inner,
		requestsPerMinute: float64(requestsPerMinute),
		tokens:            float64(requestsPerMinute),
		lastUpdate:        time.Now(),
		now:               time.Now,
	}
}

// Name returns the wrapped client's name.
func (c *RateLimitedClient) Name() string {
	return c.inner.Name()
}

// HealthCheck checks the wrapped client without spending a token.
func (c *RateLimitedClient) HealthCheck(ctx context.Context) error {
	return c.inner.HealthCheck(ctx)
}

// Chat waits for a token, then calls the wrapped client.
func (c *RateLimitedClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	result, err := c.inner.Chat(ctx, req)
	var rle *RateLimitError
	if errors.As(err, &rle) {
		c.mu.Lock()
		c.tokens = 0
		c.mu.Unlock()
	}
	return result, err
}

func (c *RateLimitedClient) wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		c.refill()
		if c.tokens >= 1 {
			c.tokens--
			c.mu.Unlock()
			return nil
		}
		perSecond := c.requestsPerMinute / 60
		wait := time.Duration((1 - c.tokens) / perSecond * float64(time.Second))
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// refill must be called with mu held.
func (c *RateLimitedClient) refill() {
	now := c.now()
	c.tokens += now.Sub(c.lastUpdate).Seconds() * c.requestsPerMinute / 60
	c.lastUpdate = now
	if c.tokens > c.requestsPerMinute {
		c.tokens = c.requestsPerMinute
	}
}
