package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/BenjaminSRussell/vidgrab/internal/download"
	"github.com/BenjaminSRussell/vidgrab/internal/types"
)

// progressPrinter renders download progress on a single carriage-return line
type progressPrinter struct {
	mu  sync.Mutex
	out io.Writer
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out}
}

func (pp *progressPrinter) update(p download.Progress) {
	pp.mu.Lock()
	defer pp.mu.Unlock()

	name := download.FileName(p.URL)
	if pct := p.Percent(); pct >= 0 {
		fmt.Fprintf(pp.out, "\r%s: downloaded %.2f%% (%d/%d bytes)", name, pct, p.Downloaded, p.Total)
		return
	}
	fmt.Fprintf(pp.out, "\r%s: downloaded %d bytes", name, p.Downloaded)
}

func (pp *progressPrinter) done(job *types.DownloadJob, err error) {
	pp.mu.Lock()
	defer pp.mu.Unlock()

	if err != nil {
		if pct := job.Percent(); pct > 0 {
			fmt.Fprintf(pp.out, "\nFailed at %.2f%%: %s: %v\n", pct, job.SourceURL, err)
			return
		}
		fmt.Fprintf(pp.out, "\nFailed: %s: %v\n", job.SourceURL, err)
		return
	}
	fmt.Fprintf(pp.out, "\nDownloaded: %s (%d bytes)\n", job.DestinationPath, job.DownloadedBytes)
}
