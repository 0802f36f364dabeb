package types

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure modes.
var (
	ErrUnknownSource      = errors.New("unknown price source")
	ErrInvalidPrice       = errors.New("invalid price")
	ErrNotFound           = errors.New("not found")
	ErrEmptyResponse      = errors.New("empty response body")
	ErrInvalidURL         = errors.New("invalid URL")
	ErrUnsupportedFormat  = errors.New("unsupported spreadsheet format")
	ErrNoHeaderRow        = errors.New("no header row found")
	ErrUnknownVendor      = errors.New("cannot route file to a vendor")
	ErrSchemaMismatch     = errors.New("database schema check failed")
	ErrCacheMiss          = errors.New("no cached listings")
	ErrServiceUnavailable = errors.New("crawling service not configured")
)

// FetchError wraps errors that occur during fetching.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
	Retryable  bool
	RetryAfter time.Duration // populated from Retry-After header on HTTP 429
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) IsRetryable() bool { return e.Retryable }

// ParseError wraps errors that occur while extracting listings from a page.
type ParseError struct {
	URL      string
	Selector string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error for %s (selector=%q): %v", e.URL, e.Selector, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur in the database or listing cache.
type StorageError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("storage error (%s %s): %v", e.Backend, e.Op, e.Err)
	}
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PipelineError wraps errors that occur in the listing pipeline.
type PipelineError struct {
	Stage   string
	Listing *Listing
	Err     error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error at stage %q: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// ImportError wraps a failure to read one spreadsheet.
type ImportError struct {
	File string
	Row  int
	Err  error
}

func (e *ImportError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("import error in %s (row %d): %v", e.File, e.Row, e.Err)
	}
	return fmt.Sprintf("import error in %s: %v", e.File, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }
