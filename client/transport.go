package client

import (
	"net/http"
)

// AuthTransport wraps an http.RoundTripper to add Authorization headers.
type AuthTransport struct {
	Base  http.RoundTripper
	Token func() string
}

// RoundTrip implements http.RoundTripper.
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token := ""
	if t.Token != nil {
		token = t.Token()
	}
	if token != "" {
		// Clone to avoid mutating the caller's request.
		req2 := req.Clone(req.Context())
		req2.Header.Set("Authorization", "Bearer "+token)
		req = req2
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}
