package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
)

// fetcher is the raw API surface the retrying service wraps.
type fetcher interface {
	GetEOD(ctx context.Context, symbol string, from, to time.Time) ([]EODBar, error)
	GetNews(ctx context.Context, symbol string, from time.Time, limit int) ([]NewsItem, error)
}

// Service wraps the API client with bounded retries. Transient failures
// (5xx, throttling, network errors) are retried with doubling backoff;
// client errors fail immediately.
type Service struct {
	client       fetcher
	logger       arbor.ILogger
	maxRetries   int
	retryBackoff time.Duration
}

// NewService creates a retrying market data service.
func NewService(client fetcher, logger arbor.ILogger, maxRetries int, retryBackoff time.Duration) *Service {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if retryBackoff <= 0 {
		retryBackoff = time.Second
	}
	return &Service{
		client:       client,
		logger:       logger,
		maxRetries:   maxRetries,
		retryBackoff: retryBackoff,
	}
}

// GetEOD fetches EOD bars with retries.
func (s *Service) GetEOD(ctx context.Context, symbol string, from, to time.Time) ([]EODBar, error) {
	var bars []EODBar
	err := s.withRetries(ctx, symbol, "eod", func() error {
		var err error
		bars, err = s.client.GetEOD(ctx, symbol, from, to)
		return err
	})
	return bars, err
}

// GetNews fetches news items with retries.
func (s *Service) GetNews(ctx context.Context, symbol string, from time.Time, limit int) ([]NewsItem, error) {
	var items []NewsItem
	err := s.withRetries(ctx, symbol, "news", func() error {
		var err error
		items, err = s.client.GetNews(ctx, symbol, from, limit)
		return err
	})
	return items, err
}

func (s *Service) withRetries(ctx context.Context, symbol, operation string, fn func() error) error {
	backoff := s.retryBackoff

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			s.logger.Warn().
				Str("symbol", symbol).
				Str("operation", operation).
				Int("attempt", attempt).
				Err(lastErr).
				Msg("Retrying market data request")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
	}

	return fmt.Errorf("%s fetch for %s failed after %d attempts: %w", operation, symbol, s.maxRetries+1, lastErr)
}

func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// Transport-level failures (connection reset, timeout) are worth a retry
	return true
}
