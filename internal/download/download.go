package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	customhttp "github.com/BenjaminSRussell/vidgrab/internal/http"
	"github.com/BenjaminSRussell/vidgrab/internal/logx"
	"github.com/BenjaminSRussell/vidgrab/internal/types"
)

const (
	defaultFileName = "download"
	maxNameAttempts = 1000
)

// Progress is one observation of a running download
type Progress struct {
	JobID      string
	URL        string
	Downloaded int64
	Total      int64
}

// Percent returns progress in [0,100], or -1 when the size is unknown
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return -1
	}
	return float64(p.Downloaded) / float64(p.Total) * 100
}

// ProgressFunc receives one observation per written chunk.
// Batch downloads call it from several goroutines.
type ProgressFunc func(Progress)

// Downloader streams media links to disk
type Downloader struct {
	client    *http.Client
	headers   *customhttp.HeaderRotator
	chunkSize int
	renamer   Renamer
}

// New creates a downloader. renamer may be nil.
func New(client *http.Client, config types.Config, renamer Renamer) *Downloader {
	d := &Downloader{
		client:    client,
		headers:   customhttp.NewHeaderRotator(config.UseHeaderRotation),
		chunkSize: config.ChunkSize,
		renamer:   renamer,
	}

	if d.chunkSize <= 0 {
		d.chunkSize = 8192
	}

	return d
}

// Download streams rawURL into destDir. An existing file is never
// overwritten; the name gets a numeric suffix instead. The returned job is
// never nil and reflects the final status. On failure the partial file is
// left in place.
func (d *Downloader) Download(ctx context.Context, rawURL, destDir string, progress ProgressFunc) (*types.DownloadJob, error) {
	job := &types.DownloadJob{
		ID:        uuid.NewString(),
		SourceURL: rawURL,
		Status:    types.JobPending,
	}

	ctx = logx.With(ctx, "job", job.ID, "url", rawURL)

	target, err := types.Admit(rawURL)
	if err != nil {
		return d.finish(ctx, job, err)
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return d.finish(ctx, job, &types.DownloadError{URL: rawURL, Path: destDir, Err: fmt.Errorf("failed to create download directory: %w", err)})
	}

	job.DestinationPath = filepath.Join(destDir, FileName(target.Raw))

	if err := d.stream(ctx, job, progress); err != nil {
		return d.finish(ctx, job, err)
	}

	job.Status = types.JobCompleted
	job.FinishedAt = time.Now()
	logx.FromContext(ctx).Info("download complete", "path", job.DestinationPath, "bytes", job.DownloadedBytes)

	if d.renamer != nil {
		renamed, err := d.renamer.Rename(job.DestinationPath)
		if err != nil {
			logx.FromContext(ctx).Warn("rename failed, keeping original name", "path", job.DestinationPath, "error", err)
		} else {
			job.DestinationPath = renamed
		}
	}

	return job, nil
}

func (d *Downloader) stream(ctx context.Context, job *types.DownloadJob, progress ProgressFunc) error {
	fail := func(err error) error {
		return &types.DownloadError{URL: job.SourceURL, Path: job.DestinationPath, Written: job.DownloadedBytes, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.SourceURL, nil)
	if err != nil {
		return fail(fmt.Errorf("request creation failed: %w", err))
	}
	d.headers.ApplyMediaHeaders(req)

	resp, err := d.client.Do(req)
	if err != nil {
		return fail(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(fmt.Errorf("non-success status: %d", resp.StatusCode))
	}

	if resp.ContentLength > 0 {
		job.TotalBytes = resp.ContentLength
	}

	file, err := reserve(job.DestinationPath)
	if err != nil {
		return fail(fmt.Errorf("failed to create file: %w", err))
	}
	job.DestinationPath = file.Name()

	job.Status = types.JobInProgress
	job.StartedAt = time.Now()

	buf := make([]byte, d.chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			file.Close()
			return fail(err)
		}

		n, rerr := fill(resp.Body, buf)
		if n > 0 {
			if _, err := file.Write(buf[:n]); err != nil {
				file.Close()
				return fail(fmt.Errorf("write failed: %w", err))
			}
			job.DownloadedBytes += int64(n)

			if progress != nil {
				progress(Progress{
					JobID:      job.ID,
					URL:        job.SourceURL,
					Downloaded: job.DownloadedBytes,
					Total:      job.TotalBytes,
				})
			}
		}

		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			file.Close()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fail(ctxErr)
			}
			return fail(fmt.Errorf("read failed: %w", rerr))
		}
	}

	if err := file.Close(); err != nil {
		return fail(fmt.Errorf("failed to close file: %w", err))
	}

	if job.TotalBytes > 0 && job.DownloadedBytes < job.TotalBytes {
		return fail(fmt.Errorf("connection closed after %d of %d bytes", job.DownloadedBytes, job.TotalBytes))
	}

	return nil
}

func (d *Downloader) finish(ctx context.Context, job *types.DownloadJob, err error) (*types.DownloadJob, error) {
	job.Status = types.JobFailed
	job.Error = err.Error()
	job.FinishedAt = time.Now()

	logx.FromContext(ctx).Error("download failed", "error", err)
	return job, err
}

// fill reads into buf until it is full or the body ends. It returns io.EOF
// only for a clean end of body; a truncated body surfaces its own error.
func fill(r io.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// reserve exclusively creates want, or the first free "name-N.ext" next to
// it, so concurrent downloads never share a file.
func reserve(want string) (*os.File, error) {
	dir := filepath.Dir(want)
	ext := filepath.Ext(want)
	stem := strings.TrimSuffix(filepath.Base(want), ext)

	candidate := want
	for i := 1; i <= maxNameAttempts; i++ {
		file, err := os.OpenFile(candidate, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			return file, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, err
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, i, ext))
	}

	return nil, fmt.Errorf("no free name for %s after %d attempts", want, maxNameAttempts)
}

// FileName derives the local file name from the last path segment of rawURL
func FileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return defaultFileName
	}

	name := path.Base(u.Path)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == "/" || name == ".." {
		return defaultFileName
	}

	return name
}
