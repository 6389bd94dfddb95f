//go:build !wasm
// +build !wasm

package gorm

import (
	"errors"

	"gorm.io/gorm"

	ka "github.com/letskraack/kraackauth"
)

// AutoMigrate runs database migrations for all kraackauth tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserModel{},
		&AccountModel{},
		&AuthTokenModel{},
		&ConfirmationModel{},
	)
}

// =============================================================================
// UserStore
// =============================================================================

// UserStore implements ka.UserStore using GORM
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) CreateUser(user *ka.User) error {
	err := s.db.Create(UserToModel(user)).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ka.ErrUserExists
	}
	return err
}

func (s *UserStore) GetUserById(userId string) (*ka.User, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", userId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ka.ErrUserNotFound
		}
		return nil, err
	}
	return model.ToUser(), nil
}

func (s *UserStore) GetUserByEmail(email string) (*ka.User, error) {
	var model UserModel
	if err := s.db.First(&model, "email = ?", ka.NormalizeEmail(email)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ka.ErrUserNotFound
		}
		return nil, err
	}
	return model.ToUser(), nil
}

func (s *UserStore) GetUserByPendingEmail(email string) (*ka.User, error) {
	var model UserModel
	err := s.db.First(&model, "pending_email = ?", ka.NormalizeEmail(email)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ka.ErrUserNotFound
		}
		return nil, err
	}
	return model.ToUser(), nil
}

func (s *UserStore) SaveUser(user *ka.User) error {
	return s.db.Save(UserToModel(user)).Error
}

// =============================================================================
// AccountStore
// =============================================================================

// AccountStore implements ka.AccountStore using GORM
type AccountStore struct {
	db *gorm.DB
}

func NewAccountStore(db *gorm.DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) LinkAccount(account *ka.Account) error {
	return s.db.Save(AccountToModel(account)).Error
}

func (s *AccountStore) GetAccount(provider, providerAccountId string) (*ka.Account, error) {
	var model AccountModel
	err := s.db.First(&model, "provider = ? AND provider_account_id = ?",
		provider, providerAccountId).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ka.ErrAccountNotFound
		}
		return nil, err
	}
	return model.ToAccount(), nil
}

func (s *AccountStore) GetUserAccounts(userId string) ([]*ka.Account, error) {
	var models []AccountModel
	if err := s.db.Where("user_id = ?", userId).Find(&models).Error; err != nil {
		return nil, err
	}
	accounts := make([]*ka.Account, len(models))
	for i, m := range models {
		accounts[i] = m.ToAccount()
	}
	return accounts, nil
}

func (s *AccountStore) HasExternalIdentity(userId string) (bool, error) {
	var count int64
	err := s.db.Model(&AccountModel{}).Where("user_id = ?", userId).Count(&count).Error
	return count > 0, err
}

func (s *AccountStore) DeleteUserAccounts(userId string) error {
	return s.db.Where("user_id = ?", userId).Delete(&AccountModel{}).Error
}

// =============================================================================
// TokenStore
// =============================================================================

// TokenStore implements ka.TokenStore using GORM.  Expiry is left to the
// callers; rows are only removed through DeleteToken.
type TokenStore struct {
	db *gorm.DB
}

func NewTokenStore(db *gorm.DB) *TokenStore {
	return &TokenStore{db: db}
}

func (s *TokenStore) CreateToken(token *ka.AuthToken) error {
	return s.db.Create(TokenToModel(token)).Error
}

func (s *TokenStore) GetTokenByValue(kind ka.TokenKind, value string) (*ka.AuthToken, error) {
	var model AuthTokenModel
	err := s.db.First(&model, "kind = ? AND token = ?", string(kind), value).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ka.ErrTokenNotFound
		}
		return nil, err
	}
	return model.ToToken(), nil
}

func (s *TokenStore) GetTokenByEmail(kind ka.TokenKind, email string) (*ka.AuthToken, error) {
	var model AuthTokenModel
	err := s.db.First(&model, "kind = ? AND email = ?", string(kind), ka.NormalizeEmail(email)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ka.ErrTokenNotFound
		}
		return nil, err
	}
	return model.ToToken(), nil
}

func (s *TokenStore) DeleteToken(kind ka.TokenKind, id string) error {
	return s.db.Where("kind = ? AND id = ?", string(kind), id).Delete(&AuthTokenModel{}).Error
}

// =============================================================================
// ConfirmationStore
// =============================================================================

// ConfirmationStore implements ka.ConfirmationStore using GORM
type ConfirmationStore struct {
	db *gorm.DB
}

func NewConfirmationStore(db *gorm.DB) *ConfirmationStore {
	return &ConfirmationStore{db: db}
}

func (s *ConfirmationStore) CreateConfirmation(confirmation *ka.TwoFactorConfirmation) error {
	return s.db.Create(ConfirmationToModel(confirmation)).Error
}

func (s *ConfirmationStore) GetConfirmationByUserId(userId string) (*ka.TwoFactorConfirmation, error) {
	var model ConfirmationModel
	if err := s.db.First(&model, "user_id = ?", userId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ka.ErrConfirmationNotFound
		}
		return nil, err
	}
	return model.ToConfirmation(), nil
}

func (s *ConfirmationStore) DeleteConfirmation(id string) error {
	return s.db.Where("id = ?", id).Delete(&ConfirmationModel{}).Error
}
