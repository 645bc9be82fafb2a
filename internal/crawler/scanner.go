package crawler

import (
	"context"
	"time"

	"github.com/BenjaminSRussell/vidgrab/internal/fetcher"
	"github.com/BenjaminSRussell/vidgrab/internal/filter"
	"github.com/BenjaminSRussell/vidgrab/internal/logx"
	"github.com/BenjaminSRussell/vidgrab/internal/types"
)

// Scanner runs the full discovery pipeline for one page:
// fetch, extract with embeds, filter.
type Scanner struct {
	fetcher   fetcher.Fetcher
	extractor *Extractor
	filters   types.FilterConfig
}

// NewScanner creates a scanner. filters must already be validated.
func NewScanner(f fetcher.Fetcher, config types.Config, filters types.FilterConfig) *Scanner {
	return &Scanner{
		fetcher:   f,
		extractor: NewExtractor(f, config, filters),
		filters:   filters,
	}
}

// Scan fetches rawURL with strategy and returns its filtered media links.
// The result is non-nil even on error so callers can record the failure.
func (s *Scanner) Scan(ctx context.Context, rawURL string, strategy fetcher.Strategy) (*types.ScanResult, error) {
	result := &types.ScanResult{
		URL:       rawURL,
		Strategy:  string(strategy),
		Links:     make([]string, 0),
		ScannedAt: time.Now(),
	}

	if err := s.admit(rawURL); err != nil {
		result.Error = err.Error()
		return result, err
	}

	ctx = logx.With(ctx, "scan", rawURL)

	page, err := s.fetcher.Fetch(ctx, rawURL, strategy)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	extraction, links, err := s.extract(ctx, page)
	if extraction != nil {
		result.Candidates = len(extraction.Candidates)
		result.EmbedsSeen = extraction.EmbedsSeen
	}
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	result.Links = links
	logx.FromContext(ctx).Info("scan complete",
		"candidates", result.Candidates,
		"links", len(links),
		"embeds", result.EmbedsSeen,
		"parsed", extraction.Parsed,
		"embed_failures", len(extraction.Failures),
		"recovered_panics", s.extractor.fetcher.GetPanicCount())

	return result, nil
}

func (s *Scanner) extract(ctx context.Context, page types.PageContent) (*Extraction, []string, error) {
	extraction, err := s.extractor.Extract(ctx, page)
	if err != nil {
		return extraction, nil, err
	}

	candidates := extraction.Links()
	log := logx.FromContext(ctx)
	for _, link := range candidates {
		if reason := filter.Reason(link, s.filters); reason != "" {
			log.Debug("filtered link", "url", link, "reason", reason)
		}
	}

	return extraction, filter.Apply(candidates, s.filters), nil
}

// admit validates the page URL and rejects onion hosts and excluded domains
func (s *Scanner) admit(rawURL string) error {
	target, err := types.Admit(rawURL)
	if err != nil {
		return err
	}

	for _, domain := range s.filters.ExcludedDomains {
		if target.MatchesDomain(domain) {
			return &types.BlockedError{URL: rawURL, Reason: types.ReasonExcludedDomain}
		}
	}

	return nil
}
