package api

import (
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthenticated is returned when a request carries no identity.
var ErrUnauthenticated = errors.New("authentication required")

// DefaultIdentityHeader carries the caller identity set by the fronting
// auth proxy.
const DefaultIdentityHeader = "X-User-ID"

// Authenticator resolves the caller identity of a request.
type Authenticator interface {
	Authenticate(r *http.Request) (string, error)
}

// HeaderAuthenticator trusts an identity header set upstream.
type HeaderAuthenticator struct {
	// Header defaults to DefaultIdentityHeader.
	Header string
}

// Authenticate implements Authenticator.
func (a HeaderAuthenticator) Authenticate(r *http.Request) (string, error) {
	header := a.Header
	if header == "" {
		header = DefaultIdentityHeader
	}
	id := strings.TrimSpace(r.Header.Get(header))
	if id == "" {
		return "", ErrUnauthenticated
	}
	return id, nil
}
