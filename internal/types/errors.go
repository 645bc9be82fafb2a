package types

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidURL = errors.New("invalid URL")
	ErrBlocked    = errors.New("blocked")
)

// InvalidURLError is returned before any I/O for a malformed URL
type InvalidURLError struct {
	URL    string
	Reason string
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("invalid URL %q: %s", e.URL, e.Reason)
}

func (e *InvalidURLError) Is(target error) bool {
	return target == ErrInvalidURL
}

// BlockedError is returned before any I/O for a disallowed target
type BlockedError struct {
	URL    string
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("blocked %s: %s", e.URL, e.Reason)
}

func (e *BlockedError) Is(target error) bool {
	return target == ErrBlocked
}

// Block reasons
const (
	ReasonOnion          = "onion host"
	ReasonExcludedDomain = "excluded domain"
	ReasonRobots         = "disallowed by robots.txt"
)

// FetchError wraps a transport failure, timeout or non-success status
type FetchError struct {
	URL        string
	Strategy   string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s (%s): %v", e.URL, e.Strategy, e.Err)
	}
	return fmt.Sprintf("fetch %s (%s): status %d", e.URL, e.Strategy, e.StatusCode)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ExtractionError records an embed branch that could not be expanded
type ExtractionError struct {
	URL   string
	Depth int
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract embed %s (depth %d): %v", e.URL, e.Depth, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// DownloadError wraps a failure while streaming a download
type DownloadError struct {
	URL     string
	Path    string
	Written int64
	Err     error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s -> %s failed after %d bytes: %v", e.URL, e.Path, e.Written, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}
