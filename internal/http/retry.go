package http

import (
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
}

// DefaultRetryConfig returns default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
	}
}

// RetryPolicy decides whether and when a failed request is repeated.
// It holds no per-request state so one policy can serve many callers.
type RetryPolicy struct {
	config RetryConfig

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRetryPolicy creates a retry policy
func NewRetryPolicy(config RetryConfig) *RetryPolicy {
	return &RetryPolicy{
		config: config,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// MaxRetries returns the number of repeats after the first attempt
func (rp *RetryPolicy) MaxRetries() int {
	return rp.config.MaxRetries
}

// ShouldRetry reports whether a failure is worth repeating.
// A statusCode of 0 with a non-nil err means a transport failure.
func (rp *RetryPolicy) ShouldRetry(statusCode int, err error) bool {
	if statusCode == 0 {
		return err != nil
	}

	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}

	return false
}

// GetBackoff returns the delay before retry number attempt (0-based)
func (rp *RetryPolicy) GetBackoff(attempt int) time.Duration {
	backoff := rp.config.InitialBackoff
	for i := 0; i < attempt; i++ {
		backoff = time.Duration(float64(backoff) * rp.config.BackoffFactor)
		if backoff > rp.config.MaxBackoff {
			backoff = rp.config.MaxBackoff
			break
		}
	}

	// ±20% jitter
	rp.mu.Lock()
	jitter := time.Duration(float64(backoff) * 0.2 * (2.0*rp.rnd.Float64() - 1.0))
	rp.mu.Unlock()

	return backoff + jitter
}
