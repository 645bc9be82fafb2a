package crawler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/BenjaminSRussell/vidgrab/internal/fetcher"
	"github.com/BenjaminSRussell/vidgrab/internal/logx"
	"github.com/BenjaminSRussell/vidgrab/internal/types"
)

// SafeFetcher wraps embed fetches with panic recovery so one broken
// page cannot take down the whole extraction
type SafeFetcher struct {
	next       fetcher.Fetcher
	panicCount atomic.Int64
}

// NewSafeFetcher creates a safe fetcher wrapper
func NewSafeFetcher(next fetcher.Fetcher) *SafeFetcher {
	return &SafeFetcher{next: next}
}

// Fetch calls the wrapped fetcher and turns a panic into a FetchError
func (sf *SafeFetcher) Fetch(ctx context.Context, rawURL string, strategy fetcher.Strategy) (page types.PageContent, err error) {
	defer func() {
		if r := recover(); r != nil {
			sf.panicCount.Add(1)

			logx.FromContext(ctx).Error("panic during fetch",
				"url", rawURL,
				"panic", r,
				"stack", string(debug.Stack()))

			page = types.PageContent{}
			err = &types.FetchError{
				URL:      rawURL,
				Strategy: string(strategy),
				Err:      fmt.Errorf("panic during fetch: %v", r),
			}
		}
	}()

	return sf.next.Fetch(ctx, rawURL, strategy)
}

// GetPanicCount returns total number of panics recovered
func (sf *SafeFetcher) GetPanicCount() int64 {
	return sf.panicCount.Load()
}
