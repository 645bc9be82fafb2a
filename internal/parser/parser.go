package parser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/BenjaminSRussell/vidgrab/internal/types"
	"github.com/PuerkitoBio/goquery"
)

// PageLinks holds the links found on one page, per source, in document order
type PageLinks struct {
	Patterns []string
	Anchors  []string
	Embeds   []string
}

// ExtractPageLinks runs the raw-text pattern pass, then scans anchors with a
// media suffix and iframes whose path contains embedMarker. Relative links
// are resolved against the page's base URL.
func ExtractPageLinks(page types.PageContent, embedMarker string) (*PageLinks, error) {
	base, err := url.Parse(page.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.Markup))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	links := &PageLinks{
		Patterns: FindPatternLinks(page.Markup),
		Anchors:  make([]string, 0),
		Embeds:   make([]string, 0),
	}

	seenAnchors := make(map[string]bool)
	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		link := resolveURL(base, href)
		if link == "" || seenAnchors[link] || !IsRecognizedMediaLink(link) {
			return
		}
		links.Anchors = append(links.Anchors, link)
		seenAnchors[link] = true
	})

	seenEmbeds := make(map[string]bool)
	doc.Find("iframe[src]").Each(func(i int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		link := resolveURL(base, src)
		if link == "" || seenEmbeds[link] || !isEmbed(link, embedMarker) {
			return
		}
		links.Embeds = append(links.Embeds, link)
		seenEmbeds[link] = true
	})

	return links, nil
}

func isEmbed(link, marker string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return strings.Contains(u.Path, marker)
}

// resolveURL converts an href to an absolute http(s) URL without fragment
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(u)
	switch strings.ToLower(resolved.Scheme) {
	case "http", "https":
	default:
		return ""
	}

	resolved.Fragment = ""
	return resolved.String()
}
