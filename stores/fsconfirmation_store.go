package stores

import (
	"os"
	"path/filepath"
	"strings"

	ka "github.com/letskraack/kraackauth"
)

// FSConfirmationStore stores two-factor confirmations as one JSON file per
// confirmation id.
type FSConfirmationStore struct {
	StoragePath string
}

func NewFSConfirmationStore(storagePath string) *FSConfirmationStore {
	return &FSConfirmationStore{StoragePath: storagePath}
}

func (s *FSConfirmationStore) confirmationsDir() string {
	return filepath.Join(s.StoragePath, "confirmations")
}

func (s *FSConfirmationStore) confirmationPath(id string) string {
	return filepath.Join(s.confirmationsDir(), id+".json")
}

func (s *FSConfirmationStore) CreateConfirmation(confirmation *ka.TwoFactorConfirmation) error {
	return writeJSONFile(s.confirmationPath(confirmation.ID), confirmation)
}

func (s *FSConfirmationStore) GetConfirmationByUserId(userId string) (*ka.TwoFactorConfirmation, error) {
	entries, err := os.ReadDir(s.confirmationsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ka.ErrConfirmationNotFound
		}
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var confirmation ka.TwoFactorConfirmation
		if err := readJSONFile(filepath.Join(s.confirmationsDir(), entry.Name()), &confirmation); err != nil {
			continue
		}
		if confirmation.UserID == userId {
			return &confirmation, nil
		}
	}
	return nil, ka.ErrConfirmationNotFound
}

func (s *FSConfirmationStore) DeleteConfirmation(id string) error {
	err := os.Remove(s.confirmationPath(id))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
