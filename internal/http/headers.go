package http

import (
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// DefaultUserAgent is sent when header rotation is disabled
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// BrowserProfile is a consistent set of browser request headers
type BrowserProfile struct {
	Name            string
	UserAgent       string
	Accept          string
	AcceptLanguage  string
	SecChUA         string
	SecChUAPlatform string
	SecChUAMobile   string
}

var browserProfiles = []BrowserProfile{
	{
		Name:            "chrome-windows",
		UserAgent:       DefaultUserAgent,
		Accept:          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
		AcceptLanguage:  "en-US,en;q=0.9",
		SecChUA:         `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
		SecChUAPlatform: `"Windows"`,
		SecChUAMobile:   "?0",
	},
	{
		Name:            "chrome-macos",
		UserAgent:       "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		Accept:          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
		AcceptLanguage:  "en-US,en;q=0.9",
		SecChUA:         `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
		SecChUAPlatform: `"macOS"`,
		SecChUAMobile:   "?0",
	},
	{
		Name:            "chrome-linux",
		UserAgent:       "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		Accept:          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
		AcceptLanguage:  "en-US,en;q=0.9",
		SecChUA:         `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
		SecChUAPlatform: `"Linux"`,
		SecChUAMobile:   "?0",
	},
	{
		Name:           "firefox-windows",
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:134.0) Gecko/20100101 Firefox/134.0",
		Accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		AcceptLanguage: "en-US,en;q=0.5",
	},
	{
		Name:           "safari-macos",
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.2 Safari/605.1.15",
		Accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		AcceptLanguage: "en-US,en;q=0.9",
	},
}

// HeaderRotator picks browser profiles for outgoing requests.
// Safe for concurrent use.
type HeaderRotator struct {
	profiles []BrowserProfile
	rotate   bool

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewHeaderRotator creates a rotator. With rotate=false every request
// gets the first profile.
func NewHeaderRotator(rotate bool) *HeaderRotator {
	return &HeaderRotator{
		profiles: browserProfiles,
		rotate:   rotate,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Profile returns the profile for the next request
func (hr *HeaderRotator) Profile() BrowserProfile {
	if !hr.rotate {
		return hr.profiles[0]
	}

	hr.mu.Lock()
	defer hr.mu.Unlock()
	return hr.profiles[hr.rnd.Intn(len(hr.profiles))]
}

// ApplyHeaders sets a spoofed browser identity on req
func (hr *HeaderRotator) ApplyHeaders(req *http.Request) {
	profile := hr.Profile()

	req.Header.Set("User-Agent", profile.UserAgent)
	req.Header.Set("Accept", profile.Accept)
	req.Header.Set("Accept-Language", profile.AcceptLanguage)

	if profile.SecChUA != "" {
		req.Header.Set("Sec-Ch-Ua", profile.SecChUA)
	}
	if profile.SecChUAPlatform != "" {
		req.Header.Set("Sec-Ch-Ua-Platform", profile.SecChUAPlatform)
	}
	if profile.SecChUAMobile != "" {
		req.Header.Set("Sec-Ch-Ua-Mobile", profile.SecChUAMobile)
	}
}

// ApplyMediaHeaders sets the identity for a media download, accepting any body
func (hr *HeaderRotator) ApplyMediaHeaders(req *http.Request) {
	hr.ApplyHeaders(req)
	req.Header.Set("Accept", "*/*")
}
