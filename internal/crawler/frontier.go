package crawler

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

const (
	// Bloom filter settings for ~10K embed pages with 1% false positive rate
	bloomFilterSize = 10_000
	bloomFilterRate = 0.01

	// Embed pages remembered exactly before the bloom filter decides alone
	defaultExactLimit = 1024
)

// Frontier tracks embed pages already claimed during one extraction.
// The bloom filter is the dedup index. Until exactLimit pages are claimed
// every claim is also kept in an exact set, so a bloom positive for an
// unclaimed page is recognized and the page is still followed. Past the
// limit a bloom positive counts as visited, trading the filter's false
// positive rate for bounded memory on pathological embed graphs.
type Frontier struct {
	mu sync.Mutex

	seen       *bloom.BloomFilter
	exact      map[string]struct{}
	exactLimit int

	discovered int
	processed  int
}

// NewFrontier creates an empty frontier
func NewFrontier() *Frontier {
	return &Frontier{
		seen:       bloom.NewWithEstimates(bloomFilterSize, bloomFilterRate),
		exact:      make(map[string]struct{}),
		exactLimit: defaultExactLimit,
	}
}

// Claim marks link as visited. It returns false if link was claimed before.
func (f *Frontier) Claim(link string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := []byte(link)
	full := len(f.exact) >= f.exactLimit

	if f.seen.Test(key) {
		if _, ok := f.exact[link]; ok || full {
			return false
		}
	}

	f.seen.Add(key)
	if !full {
		f.exact[link] = struct{}{}
	}
	f.discovered++
	return true
}

// MarkProcessed increments the processed counter
func (f *Frontier) MarkProcessed() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed++
}

// Stats returns current frontier statistics
func (f *Frontier) Stats() (discovered, processed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.discovered, f.processed
}
