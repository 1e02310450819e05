package llm

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/spherical/shopcard/internal/domain"
	"github.com/spherical/shopcard/internal/observability"
)

const (
	maxRetries     = 3
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     maxRetries,
		InitialBackoff: initialBackoff,
		MaxBackoff:     maxBackoff,
	}
}

// shouldRetry determines if a status code is retryable
func shouldRetry(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// calculateBackoff returns initialBackoff * 2^attempt, capped at MaxBackoff
func calculateBackoff(attempt int, config RetryConfig) time.Duration {
	backoff := float64(config.InitialBackoff) * math.Pow(2, float64(attempt))
	if backoff > float64(config.MaxBackoff) {
		backoff = float64(config.MaxBackoff)
	}
	return time.Duration(backoff)
}

// retryWithBackoff runs reqFunc until it succeeds, returns a non-retryable
// status, or the retries are exhausted. Non-2xx responses that are not retried
// are returned to the caller unread.
func retryWithBackoff(ctx context.Context, config RetryConfig, log *observability.Logger, reqFunc func() (*http.Response, error)) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := reqFunc()

		if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
		} else {
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			if !shouldRetry(resp.StatusCode) {
				return resp, nil
			}
			if attempt == config.MaxRetries {
				// hand the last retryable response back so the caller can report its body
				return resp, nil
			}
			resp.Body.Close()
		}

		if attempt == config.MaxRetries {
			break
		}

		backoff := calculateBackoff(attempt, config)
		log.Warn().
			Int("attempt", attempt+1).
			Int("max_retries", config.MaxRetries).
			Dur("backoff", backoff).
			Err(lastErr).
			Msg("request failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, domain.ProviderError(fmt.Sprintf("request failed after %d retries", config.MaxRetries), lastErr)
}
