//go:build !wasm
// +build !wasm

package gorm

import (
	"time"

	ka "github.com/letskraack/kraackauth"
)

// UserModel is the GORM model for users
type UserModel struct {
	ID                 string `gorm:"primaryKey;size:64"`
	Name               string `gorm:"size:255"`
	Email              string `gorm:"size:320;uniqueIndex"`
	PendingEmail       string `gorm:"size:320;index"`
	PasswordHash       string `gorm:"size:255"`
	EmailVerifiedAt    *time.Time
	Image              string    `gorm:"size:1024"`
	Role               string    `gorm:"size:32;default:USER"`
	IsTwoFactorEnabled bool      `gorm:"default:false"`
	CreatedAt          time.Time `gorm:"autoCreateTime"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string {
	return "users"
}

func (m *UserModel) ToUser() *ka.User {
	return &ka.User{
		ID:                 m.ID,
		Name:               m.Name,
		Email:              m.Email,
		PendingEmail:       m.PendingEmail,
		PasswordHash:       m.PasswordHash,
		EmailVerifiedAt:    m.EmailVerifiedAt,
		Image:              m.Image,
		Role:               ka.Role(m.Role),
		IsTwoFactorEnabled: m.IsTwoFactorEnabled,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func UserToModel(u *ka.User) *UserModel {
	return &UserModel{
		ID:                 u.ID,
		Name:               u.Name,
		Email:              u.Email,
		PendingEmail:       u.PendingEmail,
		PasswordHash:       u.PasswordHash,
		EmailVerifiedAt:    u.EmailVerifiedAt,
		Image:              u.Image,
		Role:               string(u.Role),
		IsTwoFactorEnabled: u.IsTwoFactorEnabled,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

// AccountModel is the GORM model for linked OAuth accounts
type AccountModel struct {
	Provider          string    `gorm:"primaryKey;size:32"`
	ProviderAccountID string    `gorm:"primaryKey;size:255"`
	UserID            string    `gorm:"size:64;index"`
	Type              string    `gorm:"size:32"`
	AccessToken       string    `gorm:"type:text"`
	RefreshToken      string    `gorm:"type:text"`
	ExpiresAt         int64     `gorm:""`
	Scope             string    `gorm:"size:512"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
}

func (AccountModel) TableName() string {
	return "accounts"
}

func (m *AccountModel) ToAccount() *ka.Account {
	return &ka.Account{
		Provider:          m.Provider,
		ProviderAccountID: m.ProviderAccountID,
		UserID:            m.UserID,
		Type:              m.Type,
		AccessToken:       m.AccessToken,
		RefreshToken:      m.RefreshToken,
		ExpiresAt:         m.ExpiresAt,
		Scope:             m.Scope,
		CreatedAt:         m.CreatedAt,
	}
}

func AccountToModel(a *ka.Account) *AccountModel {
	return &AccountModel{
		Provider:          a.Provider,
		ProviderAccountID: a.ProviderAccountID,
		UserID:            a.UserID,
		Type:              a.Type,
		AccessToken:       a.AccessToken,
		RefreshToken:      a.RefreshToken,
		ExpiresAt:         a.ExpiresAt,
		Scope:             a.Scope,
		CreatedAt:         a.CreatedAt,
	}
}

// AuthTokenModel is the GORM model for single-use tokens.  The unique index
// on (kind, email) backs the one-live-token-per-key invariant.
type AuthTokenModel struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Token     string    `gorm:"size:255;index"`
	Email     string    `gorm:"size:320;uniqueIndex:idx_kind_email"`
	Kind      string    `gorm:"size:32;uniqueIndex:idx_kind_email"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	ExpiresAt time.Time
}

func (AuthTokenModel) TableName() string {
	return "auth_tokens"
}

func (m *AuthTokenModel) ToToken() *ka.AuthToken {
	return &ka.AuthToken{
		ID:        m.ID,
		Token:     m.Token,
		Email:     m.Email,
		Kind:      ka.TokenKind(m.Kind),
		CreatedAt: m.CreatedAt,
		ExpiresAt: m.ExpiresAt,
	}
}

func TokenToModel(t *ka.AuthToken) *AuthTokenModel {
	return &AuthTokenModel{
		ID:        t.ID,
		Token:     t.Token,
		Email:     t.Email,
		Kind:      string(t.Kind),
		CreatedAt: t.CreatedAt,
		ExpiresAt: t.ExpiresAt,
	}
}

// ConfirmationModel is the GORM model for two-factor confirmations.  The
// unique index on user_id keeps at most one outstanding confirmation per
// user.
type ConfirmationModel struct {
	ID        string `gorm:"primaryKey;size:64"`
	UserID    string `gorm:"size:64;uniqueIndex"`
	ExpiresAt time.Time
}

func (ConfirmationModel) TableName() string {
	return "two_factor_confirmations"
}

func (m *ConfirmationModel) ToConfirmation() *ka.TwoFactorConfirmation {
	return &ka.TwoFactorConfirmation{
		ID:        m.ID,
		UserID:    m.UserID,
		ExpiresAt: m.ExpiresAt,
	}
}

func ConfirmationToModel(c *ka.TwoFactorConfirmation) *ConfirmationModel {
	return &ConfirmationModel{
		ID:        c.ID,
		UserID:    c.UserID,
		ExpiresAt: c.ExpiresAt,
	}
}
