package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrInvalidURL   = errors.New("invalid URL")
	ErrMissingTitle = errors.New("missing title")
	ErrNotFound     = errors.New("not found")
	ErrDuplicateURL = errors.New("duplicate URL")
	ErrEmptyKeyword = errors.New("keyword must not be empty")
	ErrForbidden    = errors.New("not owned by initiator")
)

// FetchErrorKind classifies fetch failures.
type FetchErrorKind int

const (
	FetchNetwork FetchErrorKind = iota
	FetchTimeout
	FetchHTTPStatus
)

func (k FetchErrorKind) String() string {
	switch k {
	case FetchNetwork:
		return "network"
	case FetchTimeout:
		return "timeout"
	case FetchHTTPStatus:
		return "http_status"
	default:
		return "unknown"
	}
}

// FetchError wraps errors that occur during fetching.
type FetchError struct {
	URL        string
	Kind       FetchErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == FetchHTTPStatus {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s (%s): %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExtractionReason tells why an article could not be extracted.
type ExtractionReason string

const (
	ReasonMissingTitle ExtractionReason = "missing_title"
	ReasonBadDocument  ExtractionReason = "bad_document"
	ReasonRejected     ExtractionReason = "rejected"
)

// ExtractionError wraps errors that occur while parsing an article page.
type ExtractionError struct {
	URL    string
	Reason ExtractionReason
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction error for %s (%s): %v", e.URL, e.Reason, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// CrawlErrorClass is the failure class surfaced to callers of the extractor.
type CrawlErrorClass string

const (
	ClassInvalidURL CrawlErrorClass = "invalid_url"
	ClassNetwork    CrawlErrorClass = "network"
	ClassExtraction CrawlErrorClass = "extraction"
	ClassStorage    CrawlErrorClass = "storage"
	ClassCancelled  CrawlErrorClass = "cancelled"
)

// CrawlError is returned by the extractor and the link discoverer.
type CrawlError struct {
	URL   string
	Class CrawlErrorClass
	Err   error
}

func (e *CrawlError) Error() string {
	return fmt.Sprintf("crawl %s failed (%s): %v", e.URL, e.Class, e.Err)
}

func (e *CrawlError) Unwrap() error { return e.Err }

// ClassOf returns the crawl error class of err, or "" when err is not a CrawlError.
func ClassOf(err error) CrawlErrorClass {
	var ce *CrawlError
	if errors.As(err, &ce) {
		return ce.Class
	}
	return ""
}

// StorageError wraps errors that occur in a storage backend.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
