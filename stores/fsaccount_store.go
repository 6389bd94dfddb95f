package stores

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	ka "github.com/letskraack/kraackauth"
)

// FSAccountStore stores linked OAuth accounts as one JSON file per
// (provider, providerAccountId) pair.
type FSAccountStore struct {
	StoragePath string
}

func NewFSAccountStore(storagePath string) *FSAccountStore {
	return &FSAccountStore{StoragePath: storagePath}
}

func (s *FSAccountStore) accountsDir() string {
	return filepath.Join(s.StoragePath, "accounts")
}

func (s *FSAccountStore) accountPath(provider, providerAccountId string) string {
	name := fmt.Sprintf("%s__%s.json", url.PathEscape(provider), url.PathEscape(providerAccountId))
	return filepath.Join(s.accountsDir(), name)
}

func (s *FSAccountStore) LinkAccount(account *ka.Account) error {
	return writeJSONFile(s.accountPath(account.Provider, account.ProviderAccountID), account)
}

func (s *FSAccountStore) GetAccount(provider, providerAccountId string) (*ka.Account, error) {
	var account ka.Account
	if err := readJSONFile(s.accountPath(provider, providerAccountId), &account); err != nil {
		if os.IsNotExist(err) {
			return nil, ka.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (s *FSAccountStore) GetUserAccounts(userId string) ([]*ka.Account, error) {
	var out []*ka.Account
	err := s.forEachAccount(func(path string, account *ka.Account) error {
		if account.UserID == userId {
			out = append(out, account)
		}
		return nil
	})
	return out, err
}

func (s *FSAccountStore) HasExternalIdentity(userId string) (bool, error) {
	accounts, err := s.GetUserAccounts(userId)
	if err != nil {
		return false, err
	}
	return len(accounts) > 0, nil
}

func (s *FSAccountStore) DeleteUserAccounts(userId string) error {
	return s.forEachAccount(func(path string, account *ka.Account) error {
		if account.UserID == userId {
			return os.Remove(path)
		}
		return nil
	})
}

func (s *FSAccountStore) forEachAccount(fn func(path string, account *ka.Account) error) error {
	entries, err := os.ReadDir(s.accountsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.accountsDir(), entry.Name())
		var account ka.Account
		if err := readJSONFile(path, &account); err != nil {
			continue
		}
		if err := fn(path, &account); err != nil {
			return err
		}
	}
	return nil
}
