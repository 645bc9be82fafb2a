package filter

import (
	"net/url"
	"strings"

	"github.com/BenjaminSRussell/vidgrab/internal/types"
)

// Rejection reasons reported by Reason
const (
	ReasonExtension = "excluded extension"
	ReasonDirectory = "excluded directory"
	ReasonPreview   = "preview"
)

// Apply runs the filter chain over candidates: excluded extensions, then
// excluded directories (unless an included directory also matches), then
// preview segments. Order is preserved and duplicates are dropped, so
// Apply(Apply(x)) == Apply(x).
func Apply(candidates []string, cfg types.FilterConfig) []string {
	kept := make([]string, 0, len(candidates))
	seen := make(map[string]bool)

	for _, link := range candidates {
		if seen[link] {
			continue
		}
		seen[link] = true

		if Reason(link, cfg) == "" {
			kept = append(kept, link)
		}
	}

	return kept
}

// Reason returns why link is removed by the chain, or "" if it survives.
// The first failing stage wins.
func Reason(link string, cfg types.FilterConfig) string {
	path := linkPath(link)

	if hasExcludedExtension(path, cfg.ExcludedExtensions) {
		return ReasonExtension
	}
	if inExcludedDir(path, cfg.ExcludedDirs, cfg.IncludedDirs) {
		return ReasonDirectory
	}
	if isPreview(path, cfg.PreviewKeyword) {
		return ReasonPreview
	}

	return ""
}

func hasExcludedExtension(path string, extensions []string) bool {
	lower := strings.ToLower(path)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// inExcludedDir reports exclusion; an included directory marker overrides it
func inExcludedDir(path string, excluded, included []string) bool {
	if !containsAny(path, excluded) {
		return false
	}
	return !containsAny(path, included)
}

func isPreview(path, keyword string) bool {
	if keyword == "" {
		return false
	}

	segment := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		segment = path[idx+1:]
	}

	return strings.Contains(strings.ToLower(segment), strings.ToLower(keyword))
}

func containsAny(s string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// linkPath returns the URL path, or the raw link when it does not parse
func linkPath(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	return u.Path
}
