package types

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// FilterConfig drives the filter chain and embed discovery.
// Treat it as read-only once constructed.
type FilterConfig struct {
	ExcludedDomains    []string `json:"excluded_domains"`
	ExcludedExtensions []string `json:"excluded_extensions"`
	ExcludedDirs       []string `json:"excluded_dirs"`
	IncludedDirs       []string `json:"included_dirs"`
	PreviewKeyword     string   `json:"preview_keyword"`
	EmbedMarker        string   `json:"embed_marker"`
}

// DefaultFilterConfig returns the process-wide defaults
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		ExcludedDomains:    []string{"youtube.com", "instagram.com", "facebook.com", "twitter.com", "discord.com", "telegram.org"},
		ExcludedExtensions: []string{".jpg", ".jpeg", ".gif", ".png"},
		ExcludedDirs:       []string{"/thumb/", "/thumbnail/", "/thumbnails/", "/tmb/", "/ads/", "/ad/", "/ads_content/"},
		IncludedDirs:       []string{"/videos/", "/video/", "/mp4/", "/hls/", "/get_file/", "/get_files/"},
		PreviewKeyword:     "preview",
		EmbedMarker:        "/embed/",
	}
}

// LoadFilterConfig reads JSON overrides on top of the defaults.
// Keys missing from the file keep their default value.
func LoadFilterConfig(path string) (FilterConfig, error) {
	cfg := DefaultFilterConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return FilterConfig{}, fmt.Errorf("failed to read filter config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return FilterConfig{}, fmt.Errorf("failed to unmarshal filter config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return FilterConfig{}, err
	}

	return cfg, nil
}

// Validate rejects configurations the filter chain cannot apply sensibly
func (c FilterConfig) Validate() error {
	if strings.TrimSpace(c.PreviewKeyword) == "" {
		return fmt.Errorf("preview keyword must not be empty")
	}

	if c.EmbedMarker == "" {
		return fmt.Errorf("embed marker must not be empty")
	}

	for _, ext := range c.ExcludedExtensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("excluded extension %q must start with a dot", ext)
		}
	}

	for _, dir := range append(append([]string{}, c.ExcludedDirs...), c.IncludedDirs...) {
		if len(dir) < 3 || !strings.HasPrefix(dir, "/") || !strings.HasSuffix(dir, "/") {
			return fmt.Errorf("directory marker %q must be wrapped in slashes", dir)
		}
	}

	for _, domain := range c.ExcludedDomains {
		if strings.TrimSpace(domain) == "" || strings.Contains(domain, "/") {
			return fmt.Errorf("excluded domain %q is not a host name", domain)
		}
	}

	return nil
}
