package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/tmc/langchaingo/llms"
	"golang.org/x/time/rate"
)

const (
	defaultLLMRetries     = 3
	defaultBackoffMinWait = 1 * time.Second
	defaultBackoffMaxWait = 30 * time.Second
)

// RateLimitedLLM wraps the vision model with rate limiting and retries. Alt text
// suggestions are user triggered, so bursts of clicks are spread out instead of
// hitting provider limits.
type RateLimitedLLM struct {
	llm         llms.Model
	rateLimiter *rate.Limiter
	maxRetries  int
	backoffMin  time.Duration
	backoffMax  time.Duration
}

// RateLimitConfig holds configuration for rate limiting and retries
type RateLimitConfig struct {
	// RequestsPerMinute is the maximum number of requests allowed per minute.
	// If 0 or negative, no rate limiting is applied.
	RequestsPerMinute float64

	// MaxRetries is the number of retry attempts after the first call.
	// 0 selects the default of 3, a negative value disables retries.
	MaxRetries int

	// BackoffMinWait is the wait before the first retry, doubled on every further attempt.
	// Defaults to 1 second.
	BackoffMinWait time.Duration

	// BackoffMaxWait caps the wait between retries.
	// Defaults to 30 seconds.
	BackoffMaxWait time.Duration
}

// NewRateLimitedLLM creates a new rate-limited LLM client
func NewRateLimitedLLM(llm llms.Model, config RateLimitConfig) *RateLimitedLLM {
	var limiter *rate.Limiter
	if config.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerMinute/60.0), 1)
	}

	maxRetries := config.MaxRetries
	switch {
	case maxRetries == 0:
		maxRetries = defaultLLMRetries
	case maxRetries < 0:
		maxRetries = 0
	}

	backoffMin := config.BackoffMinWait
	if backoffMin <= 0 {
		backoffMin = defaultBackoffMinWait
	}
	backoffMax := config.BackoffMaxWait
	if backoffMax <= 0 {
		backoffMax = defaultBackoffMaxWait
	}
	if backoffMax < backoffMin {
		backoffMax = backoffMin
	}

	return &RateLimitedLLM{
		llm:         llm,
		rateLimiter: limiter,
		maxRetries:  maxRetries,
		backoffMin:  backoffMin,
		backoffMax:  backoffMax,
	}
}

// Call implements the llms.Model interface
func (r *RateLimitedLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return withRetry(ctx, r, "call", func() (string, error) {
		return r.llm.Call(ctx, prompt, options...)
	})
}

// GenerateContent implements the llms.Model interface
func (r *RateLimitedLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	return withRetry(ctx, r, "generate content", func() (*llms.ContentResponse, error) {
		return r.llm.GenerateContent(ctx, messages, options...)
	})
}

// backoff returns the jittered wait before retry number attempt (0-based).
func (r *RateLimitedLLM) backoff(attempt int) time.Duration {
	wait := r.backoffMin << uint(attempt)
	if wait > r.backoffMax || wait <= 0 {
		wait = r.backoffMax
	}
	// +/- 20%
	return time.Duration(float64(wait) * (0.8 + 0.4*rand.Float64()))
}

func withRetry[T any](ctx context.Context, r *RateLimitedLLM, op string, fn func() (T, error)) (T, error) {
	var zero T
	if r.rateLimiter != nil {
		if err := r.rateLimiter.Wait(ctx); err != nil {
			return zero, fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if attempt >= r.maxRetries {
			if attempt > 0 {
				return zero, fmt.Errorf("all retry attempts failed, last error: %w", err)
			}
			return zero, err
		}

		wait := r.backoff(attempt)
		log.WithError(err).Debugf("LLM %s failed, retrying in %s (attempt %d/%d)", op, wait, attempt+1, r.maxRetries)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(wait):
		}
	}
}
