package http

import (
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/BenjaminSRussell/vidgrab/internal/types"
	"golang.org/x/net/publicsuffix"
)

// NewClient builds the shared client used for page fetches and downloads.
// Timeout is left unset: page fetches bound themselves per call and
// downloads may legitimately run for a long time.
func NewClient(config types.Config) (*http.Client, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: config.Timeout,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if config.ProxyURL != "" {
		proxyURL, err := url.Parse(config.ProxyURL)
		if err != nil || proxyURL.Host == "" {
			return nil, fmt.Errorf("invalid proxy URL %q", config.ProxyURL)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	if config.EnableTLSFingerprint {
		transport.DialTLSContext = NewTLSFingerprinter().DialTLSContext
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &http.Client{
		Transport:     transport,
		Jar:           jar,
		CheckRedirect: checkRedirect,
	}, nil
}

// checkRedirect keeps the .onion block in force across redirects
func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return fmt.Errorf("stopped after %d redirects", len(via))
	}
	if types.IsOnionHost(req.URL.Hostname()) {
		return &types.BlockedError{URL: req.URL.String(), Reason: types.ReasonOnion}
	}
	return nil
}
