package stores

import (
	"os"
	"path/filepath"
	"strings"

	ka "github.com/letskraack/kraackauth"
)

// FSTokenStore stores verification, reset, and two-factor tokens as JSON
// files, one directory per kind.  Expired tokens are returned as-is; the
// flows decide when to delete them.
type FSTokenStore struct {
	StoragePath string
}

func NewFSTokenStore(storagePath string) *FSTokenStore {
	return &FSTokenStore{StoragePath: storagePath}
}

func (s *FSTokenStore) kindDir(kind ka.TokenKind) string {
	return filepath.Join(s.StoragePath, "tokens", string(kind))
}

func (s *FSTokenStore) tokenPath(kind ka.TokenKind, id string) string {
	return filepath.Join(s.kindDir(kind), id+".json")
}

func (s *FSTokenStore) CreateToken(token *ka.AuthToken) error {
	return writeJSONFile(s.tokenPath(token.Kind, token.ID), token)
}

func (s *FSTokenStore) GetTokenByValue(kind ka.TokenKind, value string) (*ka.AuthToken, error) {
	return s.findToken(kind, func(t *ka.AuthToken) bool {
		return t.Token == value
	})
}

func (s *FSTokenStore) GetTokenByEmail(kind ka.TokenKind, email string) (*ka.AuthToken, error) {
	return s.findToken(kind, func(t *ka.AuthToken) bool {
		return strings.EqualFold(t.Email, email)
	})
}

func (s *FSTokenStore) DeleteToken(kind ka.TokenKind, id string) error {
	err := os.Remove(s.tokenPath(kind, id))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *FSTokenStore) findToken(kind ka.TokenKind, match func(*ka.AuthToken) bool) (*ka.AuthToken, error) {
	entries, err := os.ReadDir(s.kindDir(kind))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ka.ErrTokenNotFound
		}
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var token ka.AuthToken
		if err := readJSONFile(filepath.Join(s.kindDir(kind), entry.Name()), &token); err != nil {
			continue
		}
		if match(&token) {
			return &token, nil
		}
	}
	return nil, ka.ErrTokenNotFound
}
