package download

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BenjaminSRussell/vidgrab/internal/logx"
	"github.com/BenjaminSRussell/vidgrab/internal/types"
)

type countingTransport struct {
	calls atomic.Int64
}

func (ct *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ct.calls.Add(1)
	return http.DefaultTransport.RoundTrip(req)
}

type recorder struct {
	mu   sync.Mutex
	seen []Progress
}

func (r *recorder) observe(p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, p)
}

func serveBytes(body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Write(body)
	}
}

func newTestDownloader(client *http.Client, renamer Renamer) *Downloader {
	return New(client, types.DefaultConfig(), renamer)
}

func TestDownloadSingleChunk(t *testing.T) {
	body := bytes.Repeat([]byte("a"), 1000)
	srv := httptest.NewServer(serveBytes(body))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "nested", "downloads")
	rec := &recorder{}

	job, err := newTestDownloader(srv.Client(), nil).Download(context.Background(), srv.URL+"/videos/clip1.mp4", dir, rec.observe)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	if job.Status != types.JobCompleted {
		t.Errorf("Expected status Completed, got %s", job.Status)
	}
	if job.DownloadedBytes != 1000 || job.TotalBytes != 1000 {
		t.Errorf("Expected 1000/1000 bytes, got %d/%d", job.DownloadedBytes, job.TotalBytes)
	}

	if len(rec.seen) != 1 {
		t.Fatalf("Expected 1 progress observation, got %d", len(rec.seen))
	}
	if pct := rec.seen[0].Percent(); pct != 100 {
		t.Errorf("Expected 100%%, got %.2f", pct)
	}

	if job.DestinationPath != filepath.Join(dir, "clip1.mp4") {
		t.Errorf("Unexpected destination %s", job.DestinationPath)
	}

	data, err := os.ReadFile(job.DestinationPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Equal(data, body) {
		t.Error("Downloaded content does not match")
	}

	if job.ID == "" {
		t.Error("Expected job ID")
	}
}

func TestDownloadMultipleChunks(t *testing.T) {
	body := bytes.Repeat([]byte("b"), 20000)
	srv := httptest.NewServer(serveBytes(body))
	defer srv.Close()

	rec := &recorder{}
	job, err := newTestDownloader(srv.Client(), nil).Download(context.Background(), srv.URL+"/v.mp4", t.TempDir(), rec.observe)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	want := []int64{8192, 16384, 20000}
	if len(rec.seen) != len(want) {
		t.Fatalf("Expected %d observations, got %d", len(want), len(rec.seen))
	}
	for i, p := range rec.seen {
		if p.Downloaded != want[i] || p.Total != 20000 || p.JobID != job.ID {
			t.Errorf("observation %d = %+v", i, p)
		}
	}
}

func TestDownloadUnknownLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte("c"), 500))
		w.(http.Flusher).Flush()
		w.Write(bytes.Repeat([]byte("c"), 500))
	}))
	defer srv.Close()

	rec := &recorder{}
	job, err := newTestDownloader(srv.Client(), nil).Download(context.Background(), srv.URL+"/stream.ts", t.TempDir(), rec.observe)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	if job.TotalBytes != 0 || job.DownloadedBytes != 1000 {
		t.Errorf("Expected 0/1000 bytes, got %d/%d", job.TotalBytes, job.DownloadedBytes)
	}
	if job.Percent() != -1 {
		t.Errorf("Expected unknown percent, got %.2f", job.Percent())
	}
	for _, p := range rec.seen {
		if p.Percent() != -1 {
			t.Errorf("Expected unknown percent in observation, got %.2f", p.Percent())
		}
	}
}

func TestDownloadBlocksOnionWithoutNetwork(t *testing.T) {
	transport := &countingTransport{}
	d := newTestDownloader(&http.Client{Transport: transport}, nil)
	dir := filepath.Join(t.TempDir(), "never")

	for _, raw := range []string{"http://abc.onion/v.mp4", "https://cdn.HIDDEN.ONION:8443/v.mp4"} {
		job, err := d.Download(context.Background(), raw, dir, nil)
		if !errors.Is(err, types.ErrBlocked) {
			t.Errorf("Download(%q) error = %v, want blocked", raw, err)
		}
		if job.Status != types.JobFailed {
			t.Errorf("Expected Failed, got %s", job.Status)
		}
	}

	if n := transport.calls.Load(); n != 0 {
		t.Errorf("Expected no network calls, got %d", n)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("Expected download directory not to be created")
	}
}

func TestDownloadInvalidURL(t *testing.T) {
	_, err := newTestDownloader(http.DefaultClient, nil).Download(context.Background(), "not a url", t.TempDir(), nil)
	if !errors.Is(err, types.ErrInvalidURL) {
		t.Errorf("Expected invalid URL error, got %v", err)
	}
}

func TestDownloadHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	job, err := newTestDownloader(srv.Client(), nil).Download(context.Background(), srv.URL+"/gone.mp4", t.TempDir(), nil)

	var dlErr *types.DownloadError
	if !errors.As(err, &dlErr) {
		t.Fatalf("Expected DownloadError, got %v", err)
	}
	if job.Status != types.JobFailed || job.Error == "" {
		t.Errorf("Expected failed job with error, got %+v", job)
	}
}

func TestDownloadTruncatedLeavesPartialFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "10000")
		w.Write(bytes.Repeat([]byte("d"), 3000))
	}))
	defer srv.Close()

	job, err := newTestDownloader(srv.Client(), nil).Download(context.Background(), srv.URL+"/partial.mp4", t.TempDir(), nil)

	var dlErr *types.DownloadError
	if !errors.As(err, &dlErr) {
		t.Fatalf("Expected DownloadError, got %v", err)
	}
	if dlErr.Written != 3000 {
		t.Errorf("Expected 3000 bytes written, got %d", dlErr.Written)
	}
	if job.Status != types.JobFailed {
		t.Errorf("Expected Failed, got %s", job.Status)
	}

	info, err := os.Stat(job.DestinationPath)
	if err != nil {
		t.Fatalf("Expected partial file to remain: %v", err)
	}
	if info.Size() != 3000 {
		t.Errorf("Expected partial size 3000, got %d", info.Size())
	}
}

func TestDownloadTruncatedChunkedBodyFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, buf, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("Hijack() error = %v", err)
			return
		}
		defer conn.Close()

		// Announce a 100 byte chunk, send 40 and drop the connection.
		buf.WriteString("HTTP/1.1 200 OK\r\nContent-Type: video/mp4\r\nTransfer-Encoding: chunked\r\n\r\n64\r\n")
		buf.Write(bytes.Repeat([]byte("f"), 40))
		buf.Flush()
	}))
	defer srv.Close()

	job, err := newTestDownloader(srv.Client(), nil).Download(context.Background(), srv.URL+"/cut.mp4", t.TempDir(), nil)

	var dlErr *types.DownloadError
	if !errors.As(err, &dlErr) {
		t.Fatalf("Expected DownloadError, got %v", err)
	}
	if dlErr.Written != 40 {
		t.Errorf("Expected 40 bytes written, got %d", dlErr.Written)
	}
	if job.Status != types.JobFailed {
		t.Errorf("Expected Failed, got %s", job.Status)
	}

	info, err := os.Stat(job.DestinationPath)
	if err != nil {
		t.Fatalf("Expected partial file to remain: %v", err)
	}
	if info.Size() != 40 {
		t.Errorf("Expected partial size 40, got %d", info.Size())
	}
}

func TestDownloadKeepsExistingFile(t *testing.T) {
	srv := httptest.NewServer(serveBytes([]byte("new")))
	defer srv.Close()

	dir := t.TempDir()
	existing := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(existing, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	job, err := newTestDownloader(srv.Client(), nil).Download(context.Background(), srv.URL+"/clip.mp4", dir, nil)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	if want := filepath.Join(dir, "clip-1.mp4"); job.DestinationPath != want {
		t.Errorf("DestinationPath = %s, want %s", job.DestinationPath, want)
	}
	if data, _ := os.ReadFile(existing); string(data) != "old" {
		t.Errorf("Existing file overwritten: %q", data)
	}
	if data, _ := os.ReadFile(job.DestinationPath); string(data) != "new" {
		t.Errorf("Downloaded content = %q", data)
	}
}

func TestDownloadRejectsNonHTTPScheme(t *testing.T) {
	transport := &countingTransport{}
	dir := filepath.Join(t.TempDir(), "never")

	job, err := newTestDownloader(&http.Client{Transport: transport}, nil).Download(context.Background(), "ftp://example.com/v.mp4", dir, nil)
	if !errors.Is(err, types.ErrInvalidURL) {
		t.Errorf("Expected invalid URL error, got %v", err)
	}
	if job.Status != types.JobFailed {
		t.Errorf("Expected Failed, got %s", job.Status)
	}
	if n := transport.calls.Load(); n != 0 {
		t.Errorf("Expected no network calls, got %d", n)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("Expected download directory not to be created")
	}
}

func TestDownloadFailureLogsURLOnce(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	var buf bytes.Buffer
	ctx := logx.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))

	for _, raw := range []string{"http://abc.onion/v.mp4", srv.URL + "/gone.mp4"} {
		buf.Reset()
		newTestDownloader(srv.Client(), nil).Download(ctx, raw, t.TempDir(), nil)

		line := buf.String()
		if !strings.Contains(line, "download failed") {
			t.Fatalf("Expected failure line, got %q", line)
		}
		if n := strings.Count(line, " url="); n != 1 {
			t.Errorf("Expected url attribute once for %s, got %d in %q", raw, n, line)
		}
	}
}

func TestDownloadCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "65536")
		w.Write(bytes.Repeat([]byte("e"), 8192))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job, err := newTestDownloader(srv.Client(), nil).Download(ctx, srv.URL+"/long.mp4", t.TempDir(), func(p Progress) {
		cancel()
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if job.Status != types.JobFailed {
		t.Errorf("Expected Failed, got %s", job.Status)
	}
	if job.DownloadedBytes != 8192 {
		t.Errorf("Expected 8192 bytes before cancel, got %d", job.DownloadedBytes)
	}
}

func TestDownloadRenameHandOff(t *testing.T) {
	srv := httptest.NewServer(serveBytes([]byte("data")))
	defer srv.Close()

	dir := t.TempDir()
	job, err := newTestDownloader(srv.Client(), RenameTo("holiday")).Download(context.Background(), srv.URL+"/x/abc123.mp4", dir, nil)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	want := filepath.Join(dir, "holiday.mp4")
	if job.DestinationPath != want {
		t.Errorf("DestinationPath = %s, want %s", job.DestinationPath, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("Expected renamed file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "abc123.mp4")); !os.IsNotExist(err) {
		t.Error("Expected original file to be gone")
	}
}

func TestRenameTo(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "clip.m4v")
	if err := os.WriteFile(src, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := RenameTo("").Rename(src)
	if err != nil || got != src {
		t.Errorf("RenameTo(\"\") = %s, %v", got, err)
	}

	if err := os.WriteFile(filepath.Join(dir, "taken.m4v"), []byte("y"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err = RenameTo("taken").Rename(src)
	if err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if got != filepath.Join(dir, "taken-1.m4v") {
		t.Errorf("Rename() onto taken name = %s", got)
	}
	src = got

	if _, err := RenameTo("../escape").Rename(src); err == nil {
		t.Error("Expected error for name with separator")
	}

	got, err = RenameTo("final").Rename(src)
	if err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if got != filepath.Join(dir, "final.m4v") {
		t.Errorf("Rename() = %s", got)
	}
}

func TestBatch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/a.mp4", serveBytes(bytes.Repeat([]byte("a"), 100)))
	mux.HandleFunc("/b.mp4", serveBytes(bytes.Repeat([]byte("b"), 200)))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	urls := []string{srv.URL + "/a.mp4", srv.URL + "/missing.mp4", "http://x.onion/c.mp4", srv.URL + "/b.mp4"}
	results := newTestDownloader(srv.Client(), nil).Batch(context.Background(), urls, t.TempDir(), 2, nil)

	if len(results) != len(urls) {
		t.Fatalf("Expected %d results, got %d", len(urls), len(results))
	}

	wantStatus := []types.JobStatus{types.JobCompleted, types.JobFailed, types.JobFailed, types.JobCompleted}
	for i, r := range results {
		if r.Job.Status != wantStatus[i] {
			t.Errorf("result %d status = %s, want %s (err %v)", i, r.Job.Status, wantStatus[i], r.Err)
		}
		if r.Job.SourceURL != urls[i] {
			t.Errorf("result %d url = %s, want %s", i, r.Job.SourceURL, urls[i])
		}
	}

	if results[3].Job.DownloadedBytes != 200 {
		t.Errorf("Expected 200 bytes, got %d", results[3].Job.DownloadedBytes)
	}
	if results[0].Job.ID == results[3].Job.ID {
		t.Error("Expected distinct job IDs")
	}
}

func TestBatchSameFileName(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/a/index.mp4", serveBytes(bytes.Repeat([]byte("a"), 50000)))
	mux.HandleFunc("/b/index.mp4", serveBytes(bytes.Repeat([]byte("b"), 50000)))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	urls := []string{srv.URL + "/a/index.mp4", srv.URL + "/b/index.mp4"}
	results := newTestDownloader(srv.Client(), nil).Batch(context.Background(), urls, dir, 2, nil)

	paths := make(map[string]bool)
	for i, r := range results {
		if r.Err != nil {
			t.Fatalf("result %d error = %v", i, r.Err)
		}
		paths[r.Job.DestinationPath] = true

		data, err := os.ReadFile(r.Job.DestinationPath)
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		want := bytes.Repeat([]byte{"ab"[i]}, 50000)
		if !bytes.Equal(data, want) {
			t.Errorf("result %d content mixed or truncated (%d bytes)", i, len(data))
		}
	}

	if !paths[filepath.Join(dir, "index.mp4")] || !paths[filepath.Join(dir, "index-1.mp4")] {
		t.Errorf("Expected index.mp4 and index-1.mp4, got %v", paths)
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://h/path/v.mp4", "v.mp4"},
		{"https://h/path/v.mp4?token=1#t", "v.mp4"},
		{"https://h/a%20b.mov", "a b.mov"},
		{"https://h/", "download"},
		{"https://h", "download"},
	}

	for _, tt := range tests {
		if got := FileName(tt.url); got != tt.want {
			t.Errorf("FileName(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
