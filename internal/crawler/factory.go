package crawler

import (
	"fmt"

	"github.com/BenjaminSRussell/vidgrab/internal/fetcher"
	customhttp "github.com/BenjaminSRussell/vidgrab/internal/http"
	"github.com/BenjaminSRussell/vidgrab/internal/renderer"
	"github.com/BenjaminSRussell/vidgrab/internal/types"
)

// NewFromConfig wires the HTTP client, renderer, fetcher and retry policy
// into a Scanner
func NewFromConfig(config types.Config, filters types.FilterConfig) (*Scanner, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := filters.Validate(); err != nil {
		return nil, fmt.Errorf("invalid filter configuration: %w", err)
	}

	client, err := customhttp.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}

	render := renderer.NewChromeRenderer(config.RenderSettle, config.RenderTimeout)

	var f fetcher.Fetcher = fetcher.New(client, config, render)
	if config.MaxRetries > 0 {
		retryConfig := customhttp.DefaultRetryConfig()
		retryConfig.MaxRetries = config.MaxRetries
		f = fetcher.WithRetry(f, customhttp.NewRetryPolicy(retryConfig))
	}

	return NewScanner(f, config, filters), nil
}

// validateConfig validates scanner configuration
func validateConfig(config types.Config) error {
	if config.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", config.Timeout)
	}

	if config.MaxEmbedDepth < 0 {
		return fmt.Errorf("max embed depth cannot be negative, got %d", config.MaxEmbedDepth)
	}

	if config.MaxEmbedDepth > 10 {
		return fmt.Errorf("max embed depth too high (max 10), got %d", config.MaxEmbedDepth)
	}

	if config.EmbedConcurrency <= 0 {
		return fmt.Errorf("embed concurrency must be positive, got %d", config.EmbedConcurrency)
	}

	if config.EmbedConcurrency > 64 {
		return fmt.Errorf("embed concurrency too high (max 64), got %d", config.EmbedConcurrency)
	}

	if config.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative, got %d", config.MaxRetries)
	}

	if config.MaxRetries > 10 {
		return fmt.Errorf("max retries too high (max 10), got %d", config.MaxRetries)
	}

	if config.RatePerSecond < 0 {
		return fmt.Errorf("rate cannot be negative, got %v", config.RatePerSecond)
	}

	return nil
}
