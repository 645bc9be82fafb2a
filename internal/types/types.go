package types

import (
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// Config holds scanner and downloader configuration
type Config struct {
	Timeout       time.Duration
	RenderSettle  time.Duration
	RenderTimeout time.Duration

	// Embed traversal
	MaxEmbedDepth    int
	EmbedConcurrency int

	// Transport features
	MaxRetries           int
	RatePerSecond        float64
	RespectRobots        bool
	UseHeaderRotation    bool
	EnableTLSFingerprint bool
	ProxyURL             string

	// Downloads
	DownloadDir string
	ChunkSize   int
}

// DefaultConfig returns the reference configuration
func DefaultConfig() Config {
	return Config{
		Timeout:           10 * time.Second,
		RenderSettle:      5 * time.Second,
		RenderTimeout:     30 * time.Second,
		MaxEmbedDepth:     3,
		EmbedConcurrency:  4,
		UseHeaderRotation: true,
		DownloadDir:       "downloads",
		ChunkSize:         8192,
	}
}

// Target is a parsed input URL
type Target struct {
	Raw    string
	Scheme string
	Host   string
	Path   string
}

// ParseTarget parses a raw URL and requires a scheme and a host
func ParseTarget(raw string) (Target, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Target{}, &InvalidURLError{URL: raw, Reason: err.Error()}
	}
	if u.Scheme == "" || u.Host == "" {
		return Target{}, &InvalidURLError{URL: raw, Reason: "missing scheme or host"}
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return Target{}, &InvalidURLError{URL: raw, Reason: "scheme must be http or https"}
	}

	return Target{
		Raw:    u.String(),
		Scheme: strings.ToLower(u.Scheme),
		Host:   strings.ToLower(u.Hostname()),
		Path:   u.Path,
	}, nil
}

// Admit parses raw and rejects blocked categories. It performs no I/O and
// must run before every fetch and download.
func Admit(raw string) (Target, error) {
	target, err := ParseTarget(raw)
	if err != nil {
		return Target{}, err
	}
	if target.IsOnion() {
		return Target{}, &BlockedError{URL: raw, Reason: ReasonOnion}
	}
	return target, nil
}

// IsOnion reports whether the host belongs to the .onion category
func (t Target) IsOnion() bool {
	return IsOnionHost(t.Host)
}

// IsOnionHost matches any host containing ".onion"
func IsOnionHost(host string) bool {
	return strings.Contains(strings.ToLower(host), ".onion")
}

// Domain returns the registrable domain (eTLD+1), falling back to the host
func (t Target) Domain() string {
	etld1, err := publicsuffix.EffectiveTLDPlusOne(t.Host)
	if err != nil {
		return t.Host
	}
	return etld1
}

// MatchesDomain reports whether the target is on domain or one of its subdomains
func (t Target) MatchesDomain(domain string) bool {
	domain = strings.ToLower(strings.TrimPrefix(domain, "www."))
	if domain == "" {
		return false
	}
	return t.Host == domain || t.Domain() == domain || strings.HasSuffix(t.Host, "."+domain)
}

// PageContent is fetched markup paired with the URL it came from
type PageContent struct {
	BaseURL string
	Markup  string
}

// Provenance records how a candidate link was discovered
type Provenance string

const (
	ProvenancePattern Provenance = "pattern"
	ProvenanceAnchor  Provenance = "anchor"
	ProvenanceEmbed   Provenance = "embed"
)

// CandidateLink is a discovered URL before filtering
type CandidateLink struct {
	URL        string
	Provenance Provenance
	Depth      int
	Source     string
}

// ScanResult is the outcome of scanning one page
type ScanResult struct {
	URL        string    `json:"url"`
	Strategy   string    `json:"strategy"`
	Candidates int       `json:"candidates"`
	Links      []string  `json:"links"`
	EmbedsSeen int       `json:"embeds_seen"`
	ScannedAt  time.Time `json:"scanned_at"`
	Error      string    `json:"error,omitempty"`
}
