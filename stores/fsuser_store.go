package stores

import (
	"os"
	"path/filepath"
	"strings"

	ka "github.com/letskraack/kraackauth"
)

// FSUserStore stores users as one JSON file per user id.  Email lookups scan
// the directory, which is fine for development and tests; production setups
// use the gorm store.
type FSUserStore struct {
	StoragePath string
}

func NewFSUserStore(storagePath string) *FSUserStore {
	return &FSUserStore{StoragePath: storagePath}
}

func (s *FSUserStore) usersDir() string {
	return filepath.Join(s.StoragePath, "users")
}

func (s *FSUserStore) userPath(userId string) string {
	return filepath.Join(s.usersDir(), userId+".json")
}

func (s *FSUserStore) CreateUser(user *ka.User) error {
	if existing, err := s.GetUserByEmail(user.Email); err == nil && existing != nil {
		return ka.ErrUserExists
	}
	return writeJSONFile(s.userPath(user.ID), user)
}

func (s *FSUserStore) GetUserById(userId string) (*ka.User, error) {
	var user ka.User
	if err := readJSONFile(s.userPath(userId), &user); err != nil {
		if os.IsNotExist(err) {
			return nil, ka.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *FSUserStore) GetUserByEmail(email string) (*ka.User, error) {
	return s.findUser(func(u *ka.User) bool {
		return strings.EqualFold(u.Email, email)
	})
}

func (s *FSUserStore) GetUserByPendingEmail(email string) (*ka.User, error) {
	return s.findUser(func(u *ka.User) bool {
		return u.PendingEmail != "" && strings.EqualFold(u.PendingEmail, email)
	})
}

func (s *FSUserStore) SaveUser(user *ka.User) error {
	if _, err := s.GetUserById(user.ID); err != nil {
		return err
	}
	return writeJSONFile(s.userPath(user.ID), user)
}

func (s *FSUserStore) findUser(match func(*ka.User) bool) (*ka.User, error) {
	entries, err := os.ReadDir(s.usersDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ka.ErrUserNotFound
		}
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var user ka.User
		if err := readJSONFile(filepath.Join(s.usersDir(), entry.Name()), &user); err != nil {
			continue
		}
		if match(&user) {
			return &user, nil
		}
	}
	return nil, ka.ErrUserNotFound
}
