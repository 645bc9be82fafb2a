package download

import (
	"context"
	"sync"

	"github.com/BenjaminSRussell/vidgrab/internal/types"
)

// Result pairs a finished job with its error
type Result struct {
	Job *types.DownloadJob
	Err error
}

// Batch downloads urls with at most parallel jobs in flight. Results are
// indexed like urls. A failed job never affects the others.
func (d *Downloader) Batch(ctx context.Context, urls []string, destDir string, parallel int, progress ProgressFunc) []Result {
	if parallel <= 0 {
		parallel = 1
	}

	results := make([]Result, len(urls))
	sem := make(chan struct{}, parallel)
	var wg sync.WaitGroup

	for i, rawURL := range urls {
		wg.Add(1)
		go func(i int, rawURL string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			job, err := d.Download(ctx, rawURL, destDir, progress)
			results[i] = Result{Job: job, Err: err}
		}(i, rawURL)
	}

	wg.Wait()
	return results
}
