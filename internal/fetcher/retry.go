package fetcher

import (
	"context"
	"errors"
	"time"

	customhttp "github.com/BenjaminSRussell/vidgrab/internal/http"
	"github.com/BenjaminSRussell/vidgrab/internal/logx"
	"github.com/BenjaminSRussell/vidgrab/internal/types"
)

// RetryingFetcher repeats failed fetches according to a retry policy.
// Only FetchErrors are retried; invalid and blocked targets never are.
type RetryingFetcher struct {
	next   Fetcher
	policy *customhttp.RetryPolicy
}

// WithRetry wraps next with policy. A policy allowing no retries returns next unchanged.
func WithRetry(next Fetcher, policy *customhttp.RetryPolicy) Fetcher {
	if policy == nil || policy.MaxRetries() <= 0 {
		return next
	}
	return &RetryingFetcher{next: next, policy: policy}
}

// Fetch implements Fetcher
func (rf *RetryingFetcher) Fetch(ctx context.Context, rawURL string, strategy Strategy) (types.PageContent, error) {
	var lastErr error

	for attempt := 0; attempt <= rf.policy.MaxRetries(); attempt++ {
		if attempt > 0 {
			backoff := rf.policy.GetBackoff(attempt - 1)
			logx.FromContext(ctx).Info("retrying fetch", "url", rawURL, "attempt", attempt+1, "backoff", backoff)

			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return types.PageContent{}, lastErr
			case <-timer.C:
			}
		}

		page, err := rf.next.Fetch(ctx, rawURL, strategy)
		if err == nil {
			return page, nil
		}
		lastErr = err

		var fetchErr *types.FetchError
		if !errors.As(err, &fetchErr) || errors.Is(err, types.ErrBlocked) {
			return types.PageContent{}, err
		}
		if !rf.policy.ShouldRetry(fetchErr.StatusCode, fetchErr.Err) {
			return types.PageContent{}, err
		}
	}

	return types.PageContent{}, lastErr
}
