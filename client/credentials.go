// Package client provides a Go client for the kraackauth HTTP API with
// credential storage and an authenticating http.RoundTripper.
package client

import (
	"time"
)

// ServerCredential holds the session token for a single server.
type ServerCredential struct {
	AccessToken string    `json:"access_token"`
	UserID      string    `json:"user_id,omitempty"`
	UserEmail   string    `json:"user_email,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsExpired returns true if the session token has expired.
func (c *ServerCredential) IsExpired() bool {
	return !c.ExpiresAt.IsZero() && time.Now().After(c.ExpiresAt)
}

// CredentialStore stores and retrieves credentials per server.
type CredentialStore interface {
	// GetCredential retrieves a credential for a server URL.
	// Returns nil, nil if no credential exists for the server.
	GetCredential(serverURL string) (*ServerCredential, error)

	// SetCredential stores a credential for a server URL.
	SetCredential(serverURL string, cred *ServerCredential) error

	// RemoveCredential removes a credential for a server URL.
	RemoveCredential(serverURL string) error

	// ListServers returns all server URLs with stored credentials.
	ListServers() ([]string, error)

	// Save persists any pending changes (for stores that batch writes).
	Save() error
}

// MemoryCredentialStore is an in-memory CredentialStore for tests and
// short-lived processes.
type MemoryCredentialStore struct {
	servers map[string]*ServerCredential
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{servers: make(map[string]*ServerCredential)}
}

func (s *MemoryCredentialStore) GetCredential(serverURL string) (*ServerCredential, error) {
	return s.servers[serverURL], nil
}

func (s *MemoryCredentialStore) SetCredential(serverURL string, cred *ServerCredential) error {
	s.servers[serverURL] = cred
	return nil
}

func (s *MemoryCredentialStore) RemoveCredential(serverURL string) error {
	delete(s.servers, serverURL)
	return nil
}

func (s *MemoryCredentialStore) ListServers() ([]string, error) {
	out := make([]string, 0, len(s.servers))
	for url := range s.servers {
		out = append(out, url)
	}
	return out, nil
}

func (s *MemoryCredentialStore) Save() error {
	return nil
}
