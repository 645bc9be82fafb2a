package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/BenjaminSRussell/vidgrab/internal/logx"
	"github.com/BenjaminSRussell/vidgrab/internal/types"
	"golang.org/x/net/html/charset"
)

// maxPageSize bounds how much markup a single page may contribute
const maxPageSize = 16 << 20

func (pf *PageFetcher) fetchStatic(ctx context.Context, target types.Target) (types.PageContent, error) {
	ctx, cancel := context.WithTimeout(ctx, pf.timeout)
	defer cancel()

	fail := func(status int, err error) (types.PageContent, error) {
		return types.PageContent{}, &types.FetchError{URL: target.Raw, Strategy: string(StrategyStatic), StatusCode: status, Err: err}
	}

	if err := pf.wait(ctx); err != nil {
		return fail(0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.Raw, nil)
	if err != nil {
		return fail(0, fmt.Errorf("request creation failed: %w", err))
	}
	pf.headers.ApplyHeaders(req)

	logx.FromContext(ctx).Debug("fetching page", "url", target.Raw)

	resp, err := pf.client.Do(req)
	if err != nil {
		return fail(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(resp.StatusCode, nil)
	}

	reader, err := charset.NewReader(io.LimitReader(resp.Body, maxPageSize), resp.Header.Get("Content-Type"))
	if err != nil {
		return fail(resp.StatusCode, fmt.Errorf("decode body: %w", err))
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return fail(resp.StatusCode, fmt.Errorf("body read failed: %w", err))
	}

	return types.PageContent{
		BaseURL: resp.Request.URL.String(),
		Markup:  string(body),
	}, nil
}
