package providers

import (
	"context"
	"errors"
	"testing"
	"time"
)

type rateLimitedMock struct {
	MockClient
	fail bool
}

func (m *rateLimitedMock) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	if m.fail {
		return nil, &RateLimitError{Message: "slow down", StatusCode: 429}
	}
	return m.MockClient.Chat(ctx, req)
}

func TestNewRateLimitedClient_Unlimited(t *testing.T) {
	mock := NewMockClient()
	if got := NewRateLimitedClient(mock, 0); got != LLMClient(mock) {
		t.Error("zero limit should return the client unchanged")
	}
}

func TestRateLimitedClient_Burst(t *testing.T) {
	mock := NewMockClient()
	c := NewRateLimitedClient(mock, 3).(*RateLimitedClient)
	if c.Name() != MockClientName {
		t.Errorf("Name() = %s", c.Name())
	}

	for i := 0; i < 3; i++ {
		if _, err := c.Chat(context.Background(), &ChatRequest{}); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}

	// The bucket is empty; the next call must wait ~20s for a token.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Chat(ctx, &ChatRequest{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if mock.RequestCount() != 3 {
		t.Errorf("inner calls = %d, want 3", mock.RequestCount())
	}
}

func TestRateLimitedClient_HealthCheckBypassesBucket(t *testing.T) {
	mock := NewMockClient()
	c := NewRateLimitedClient(mock, 1).(*RateLimitedClient)
	c.tokens = 0

	if err := c.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if c.tokens != 0 {
		t.Errorf("tokens = %v, want untouched", c.tokens)
	}

	mock.ShouldFail = true
	if err := c.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() should report the wrapped client's failure")
	}
}

func TestRateLimitedClient_Refill(t *testing.T) {
	c := NewRateLimitedClient(NewMockClient(), 60).(*RateLimitedClient)
	now := time.Now()
	c.now = func() time.Time { return now }
	c.lastUpdate = now
	c.tokens = 0

	now = now.Add(2 * time.Second)
	if _, err := c.Chat(context.Background(), &ChatRequest{}); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if c.tokens < 0.99 || c.tokens > 1.01 {
		t.Errorf("tokens = %v, want 1 after refill and one call", c.tokens)
	}
}

func TestRateLimitedClient_DrainsOn429(t *testing.T) {
	inner := &rateLimitedMock{fail: true}
	c := NewRateLimitedClient(inner, 10).(*RateLimitedClient)

	_, err := c.Chat(context.Background(), &ChatRequest{})
	var rle *RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if c.tokens >= 1 {
		t.Errorf("tokens = %v, want drained", c.tokens)
	}
}
