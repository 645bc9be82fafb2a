package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"time"

	customhttp "github.com/BenjaminSRussell/vidgrab/internal/http"
	"github.com/BenjaminSRussell/vidgrab/internal/logx"
	"github.com/BenjaminSRussell/vidgrab/internal/renderer"
	"github.com/BenjaminSRussell/vidgrab/internal/types"
	"golang.org/x/time/rate"
)

// Strategy selects how page markup is retrieved
type Strategy string

const (
	StrategyStatic   Strategy = "static"
	StrategyRendered Strategy = "rendered"
	// StrategyAuto fetches statically and renders only script shells
	StrategyAuto Strategy = "auto"
)

// ParseStrategy maps a flag value to a Strategy
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyStatic, StrategyRendered, StrategyAuto:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown fetch strategy %q", s)
}

// Fetcher retrieves page markup for a URL
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, strategy Strategy) (types.PageContent, error)
}

// Renderer is the rendered strategy backend
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// PageFetcher implements both strategies behind one contract
type PageFetcher struct {
	client   *http.Client
	headers  *customhttp.HeaderRotator
	renderer Renderer
	robots   *RobotsGuard
	limiter  *rate.Limiter
	timeout  time.Duration
}

// New creates a page fetcher. renderer may be nil, in which case the
// rendered strategy fails with a FetchError.
func New(client *http.Client, config types.Config, r Renderer) *PageFetcher {
	pf := &PageFetcher{
		client:   client,
		headers:  customhttp.NewHeaderRotator(config.UseHeaderRotation),
		renderer: r,
		timeout:  config.Timeout,
	}

	if pf.timeout <= 0 {
		pf.timeout = 10 * time.Second
	}

	if config.RespectRobots {
		pf.robots = NewRobotsGuard(client, "vidgrab")
	}

	if config.RatePerSecond > 0 {
		pf.limiter = rate.NewLimiter(rate.Limit(config.RatePerSecond), 1)
	}

	return pf
}

// Fetch retrieves markup for rawURL with the given strategy.
// Invalid and blocked targets are rejected before any network I/O.
func (pf *PageFetcher) Fetch(ctx context.Context, rawURL string, strategy Strategy) (types.PageContent, error) {
	target, err := types.Admit(rawURL)
	if err != nil {
		return types.PageContent{}, err
	}

	if pf.robots != nil && !pf.robots.Allowed(ctx, target) {
		return types.PageContent{}, &types.BlockedError{URL: rawURL, Reason: types.ReasonRobots}
	}

	switch strategy {
	case StrategyStatic, "":
		return pf.fetchStatic(ctx, target)
	case StrategyRendered:
		return pf.fetchRendered(ctx, target)
	case StrategyAuto:
		page, err := pf.fetchStatic(ctx, target)
		if err != nil || pf.renderer == nil || !renderer.ShouldRender(page.Markup) {
			return page, err
		}
		rendered, rerr := pf.fetchRendered(ctx, target)
		if rerr != nil {
			logx.FromContext(ctx).Warn("render upgrade failed, keeping static markup", "url", target.Raw, "error", rerr)
			return page, nil
		}
		return rendered, nil
	default:
		return types.PageContent{}, fmt.Errorf("unknown fetch strategy %q", strategy)
	}
}

func (pf *PageFetcher) fetchRendered(ctx context.Context, target types.Target) (types.PageContent, error) {
	if pf.renderer == nil {
		return types.PageContent{}, &types.FetchError{URL: target.Raw, Strategy: string(StrategyRendered), Err: fmt.Errorf("rendering is not configured")}
	}

	if err := pf.wait(ctx); err != nil {
		return types.PageContent{}, &types.FetchError{URL: target.Raw, Strategy: string(StrategyRendered), Err: err}
	}

	logx.FromContext(ctx).Debug("rendering page", "url", target.Raw)
	markup, err := pf.renderer.Render(ctx, target.Raw)
	if err != nil {
		return types.PageContent{}, &types.FetchError{URL: target.Raw, Strategy: string(StrategyRendered), Err: err}
	}

	return types.PageContent{BaseURL: target.Raw, Markup: markup}, nil
}

func (pf *PageFetcher) wait(ctx context.Context) error {
	if pf.limiter == nil {
		return nil
	}
	return pf.limiter.Wait(ctx)
}
