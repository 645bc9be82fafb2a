package parser

import (
	"net/url"
	"regexp"
	"strings"
)

// MediaSuffixes are the recognized playable media suffixes, in pattern pass order
var MediaSuffixes = []string{".m3u8", ".mp4", ".ts", ".mov", ".m4v"}

// mediaPatterns match the longest run of non-whitespace characters that
// starts with an http(s) scheme and ends in a media suffix. One pattern
// per suffix, evaluated in MediaSuffixes order.
var mediaPatterns = func() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(MediaSuffixes))
	for _, suffix := range MediaSuffixes {
		patterns = append(patterns, regexp.MustCompile(`https?://\S+`+regexp.QuoteMeta(suffix)))
	}
	return patterns
}()

// FindPatternLinks scans raw text for absolute media URLs.
// Results keep first-seen order and contain no duplicates.
func FindPatternLinks(text string) []string {
	links := make([]string, 0)
	seen := make(map[string]bool)

	for _, pattern := range mediaPatterns {
		for _, match := range pattern.FindAllString(text, -1) {
			if !seen[match] {
				links = append(links, match)
				seen[match] = true
			}
		}
	}

	return links
}

// IsRecognizedMediaLink reports whether the URL path ends in a media suffix.
// Query string and fragment are ignored; the comparison is case-insensitive.
func IsRecognizedMediaLink(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	path := strings.ToLower(u.Path)
	for _, suffix := range MediaSuffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}

	return false
}
