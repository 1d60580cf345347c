package types

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Request tags.
const (
	TagArticle = "article"
	TagIndex   = "index"
)

// Request represents a single page fetch.
type Request struct {
	// URL is the target URL to fetch.
	URL *url.URL

	// Headers are extra HTTP headers to send with the request.
	Headers http.Header

	// Timeout overrides the fetcher's default timeout for this request.
	Timeout time.Duration

	// Tag categorizes this request ("article" or "index").
	Tag string

	// CreatedAt is when this request was created.
	CreatedAt time.Time
}

// NewRequest parses and validates rawURL. Anything that is not an absolute
// http(s) URL is rejected with ErrInvalidURL.
func NewRequest(rawURL string) (*Request, error) {
	u, err := ParseHTTPURL(rawURL)
	if err != nil {
		return nil, err
	}

	return &Request{
		URL:       u,
		Headers:   make(http.Header),
		Tag:       TagArticle,
		CreatedAt: time.Now(),
	}, nil
}

// ParseHTTPURL parses rawURL and requires an http or https scheme and a host.
func ParseHTTPURL(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidURL, rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w %q: scheme must be http or https", ErrInvalidURL, rawURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w %q: missing host", ErrInvalidURL, rawURL)
	}
	return u, nil
}

// URLString returns the string representation of the request URL.
func (r *Request) URLString() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}

// Domain returns the hostname of the request URL.
func (r *Request) Domain() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.Hostname()
}
