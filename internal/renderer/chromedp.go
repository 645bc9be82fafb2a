package renderer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	customhttp "github.com/BenjaminSRussell/vidgrab/internal/http"
)

// ChromeRenderer renders pages with headless Chrome.
// Each Render call owns its own browser process.
type ChromeRenderer struct {
	settle  time.Duration
	timeout time.Duration
	opts    []chromedp.ExecAllocatorOption
}

// NewChromeRenderer creates a new Chrome renderer
func NewChromeRenderer(settle, timeout time.Duration) *ChromeRenderer {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(customhttp.DefaultUserAgent),
	)

	return &ChromeRenderer{
		settle:  settle,
		timeout: timeout,
		opts:    opts,
	}
}

// Render navigates to url, waits for client-side script to settle and
// returns the rendered markup. The browser is torn down on every return path.
func (cr *ChromeRenderer) Render(ctx context.Context, url string) (string, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, cr.opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	runCtx, timeoutCancel := context.WithTimeout(browserCtx, cr.timeout)
	defer timeoutCancel()

	var htmlContent string

	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(cr.settle),
		chromedp.OuterHTML("html", &htmlContent),
	)
	if err != nil {
		return "", fmt.Errorf("failed to render page: %w", err)
	}

	return htmlContent, nil
}

// ShouldRender determines if a statically fetched page is a script shell
// that needs rendering before media links become visible
func ShouldRender(htmlContent string) bool {
	if len(htmlContent) < 500 {
		return true
	}

	jsIndicators := []string{
		"<div id=\"root\"></div>",
		"<div id=\"app\"></div>",
		"<noscript>You need to enable JavaScript",
		"JavaScript is required",
		"Please enable JavaScript",
		"__NEXT_DATA__",
		"ng-app",
		"v-app",
		"data-reactroot",
	}

	lowerContent := strings.ToLower(htmlContent)
	for _, indicator := range jsIndicators {
		if strings.Contains(lowerContent, strings.ToLower(indicator)) {
			return true
		}
	}

	return false
}
