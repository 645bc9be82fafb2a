package crawler

import (
	"context"
	"sync"

	"github.com/BenjaminSRussell/vidgrab/internal/fetcher"
	"github.com/BenjaminSRussell/vidgrab/internal/logx"
	"github.com/BenjaminSRussell/vidgrab/internal/parser"
	"github.com/BenjaminSRussell/vidgrab/internal/types"
)

// Extractor collects candidate media links from a page and its embeds
type Extractor struct {
	fetcher     *SafeFetcher
	filters     types.FilterConfig
	maxDepth    int
	concurrency int
}

// Extraction is the unfiltered result of one extraction
type Extraction struct {
	Candidates []types.CandidateLink
	EmbedsSeen int
	Parsed     int // pages parsed, the top-level page included
	Failures   []*types.ExtractionError
}

// Links returns the candidate URLs in discovery order
func (x *Extraction) Links() []string {
	links := make([]string, 0, len(x.Candidates))
	for _, c := range x.Candidates {
		links = append(links, c.URL)
	}
	return links
}

// NewExtractor creates an extractor that fetches embeds through f
func NewExtractor(f fetcher.Fetcher, config types.Config, filters types.FilterConfig) *Extractor {
	e := &Extractor{
		fetcher:     NewSafeFetcher(f),
		filters:     filters,
		maxDepth:    config.MaxEmbedDepth,
		concurrency: config.EmbedConcurrency,
	}

	if e.maxDepth < 0 {
		e.maxDepth = 0
	}
	if e.concurrency <= 0 {
		e.concurrency = 1
	}

	return e
}

// Extract runs the pattern, anchor and embed passes over page. Embeds are
// followed up to the configured depth, each page at most once. A failing
// embed is logged and recorded in Failures; only a page that cannot be
// parsed at all or a cancelled context fails the call.
func (e *Extractor) Extract(ctx context.Context, page types.PageContent) (*Extraction, error) {
	w := &walk{
		e:        e,
		frontier: NewFrontier(),
		out:      &Extraction{Candidates: make([]types.CandidateLink, 0)},
		index:    make(map[string]bool),
	}

	w.frontier.Claim(page.BaseURL)

	if err := w.visit(ctx, page, 0); err != nil {
		return nil, &types.ExtractionError{URL: page.BaseURL, Depth: 0, Err: err}
	}
	_, w.out.Parsed = w.frontier.Stats()

	if err := ctx.Err(); err != nil {
		return w.out, err
	}

	return w.out, nil
}

// walk holds the state of one depth-first embed traversal
type walk struct {
	e        *Extractor
	frontier *Frontier
	out      *Extraction
	index    map[string]bool
}

type embedPage struct {
	page types.PageContent
	err  error
}

func (w *walk) visit(ctx context.Context, page types.PageContent, depth int) error {
	links, err := parser.ExtractPageLinks(page, w.e.filters.EmbedMarker)
	if err != nil {
		return err
	}
	w.frontier.MarkProcessed()

	patternSource, anchorSource := types.ProvenancePattern, types.ProvenanceAnchor
	if depth > 0 {
		patternSource, anchorSource = types.ProvenanceEmbed, types.ProvenanceEmbed
	}

	for _, link := range links.Patterns {
		w.add(ctx, link, patternSource, depth, page.BaseURL)
	}
	for _, link := range links.Anchors {
		w.add(ctx, link, anchorSource, depth, page.BaseURL)
	}

	if len(links.Embeds) == 0 {
		return nil
	}
	if depth >= w.e.maxDepth {
		logx.FromContext(ctx).Debug("embed depth limit reached", "url", page.BaseURL, "depth", depth, "embeds", len(links.Embeds))
		return nil
	}

	embeds := w.claim(ctx, links.Embeds)
	pages := w.e.prefetch(ctx, embeds)

	for i, embed := range embeds {
		if ctx.Err() != nil {
			return nil
		}

		err := pages[i].err
		if err == nil {
			err = w.visit(ctx, pages[i].page, depth+1)
		}
		if err != nil {
			w.fail(ctx, embed, depth+1, err)
		}
	}

	return nil
}

// claim keeps the embeds worth fetching, in document order
func (w *walk) claim(ctx context.Context, embeds []string) []string {
	claimed := make([]string, 0, len(embeds))

	for _, embed := range embeds {
		target, err := types.ParseTarget(embed)
		if err != nil {
			continue
		}

		if blocked := w.excluded(target); blocked != "" {
			logx.FromContext(ctx).Debug("skipping embed", "url", embed, "reason", blocked)
			continue
		}

		if !w.frontier.Claim(embed) {
			logx.FromContext(ctx).Debug("embed already visited", "url", embed)
			continue
		}

		w.out.EmbedsSeen++
		claimed = append(claimed, embed)
	}

	return claimed
}

func (w *walk) excluded(target types.Target) string {
	if target.IsOnion() {
		return types.ReasonOnion
	}
	for _, domain := range w.e.filters.ExcludedDomains {
		if target.MatchesDomain(domain) {
			return types.ReasonExcludedDomain
		}
	}
	return ""
}

func (w *walk) add(ctx context.Context, link string, provenance types.Provenance, depth int, source string) {
	if w.index[link] {
		return
	}
	w.index[link] = true

	logx.FromContext(ctx).Debug("found link", "url", link, "provenance", provenance, "depth", depth)
	w.out.Candidates = append(w.out.Candidates, types.CandidateLink{
		URL:        link,
		Provenance: provenance,
		Depth:      depth,
		Source:     source,
	})
}

func (w *walk) fail(ctx context.Context, embed string, depth int, err error) {
	extractErr := &types.ExtractionError{URL: embed, Depth: depth, Err: err}
	logx.FromContext(ctx).Warn("skipping embed", "url", embed, "depth", depth, "error", err)
	w.out.Failures = append(w.out.Failures, extractErr)
}

// prefetch fetches embeds concurrently with the static strategy.
// Results are indexed like embeds, independent of completion order.
func (e *Extractor) prefetch(ctx context.Context, embeds []string) []embedPage {
	results := make([]embedPage, len(embeds))
	sem := make(chan struct{}, e.concurrency)
	var wg sync.WaitGroup

	for i, embed := range embeds {
		wg.Add(1)
		go func(i int, embed string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[i] = embedPage{err: ctx.Err()}
				return
			}
			defer func() { <-sem }()

			page, err := e.fetcher.Fetch(ctx, embed, fetcher.StrategyStatic)
			results[i] = embedPage{page: page, err: err}
		}(i, embed)
	}

	wg.Wait()
	return results
}
