package kraackauth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// TokenKind distinguishes the single-use token families.  Each kind has its
// own one-live-token-per-email invariant.
type TokenKind string

const (
	TokenKindVerification  TokenKind = "email_verification"
	TokenKindPasswordReset TokenKind = "password_reset"
	TokenKindTwoFactor     TokenKind = "two_factor"
)

// Token lifetimes
const (
	TokenExpiryVerification          = 1 * time.Hour
	TokenExpiryPasswordReset         = 1 * time.Hour
	TokenExpiryTwoFactor             = 10 * time.Minute
	TokenExpiryTwoFactorConfirmation = 10 * time.Minute
)

// AuthToken is a single-use proof scoped to an email address.  For the
// verification and reset kinds Token is an unguessable random identifier;
// for the two-factor kind it is a 6-digit numeric code.
type AuthToken struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	Kind      TokenKind `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExpiredAt reports whether the token is past its expiry at the given
// instant.  A token is still live at exactly ExpiresAt.
func (t *AuthToken) ExpiredAt(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

func (t *AuthToken) IsExpired() bool {
	return t.ExpiredAt(time.Now())
}

// TokenStore persists AuthTokens.  Lookups do not filter on expiry: the
// consuming flow checks ExpiresAt itself and deletes what it finds stale, so
// expiry handling stays in one place and works with a fake clock in tests.
type TokenStore interface {
	CreateToken(token *AuthToken) error

	// GetTokenByValue finds a token row by its value.  Returns
	// ErrTokenNotFound when absent.
	GetTokenByValue(kind TokenKind, token string) (*AuthToken, error)

	// GetTokenByEmail finds the live token for an email, if any.
	GetTokenByEmail(kind TokenKind, email string) (*AuthToken, error)

	DeleteToken(kind TokenKind, id string) error
}

// TwoFactorConfirmation records that a user has just cleared a two-factor
// challenge and may complete sign-in.  At most one exists per user.
type TwoFactorConfirmation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExpiredAt reports whether the confirmation is past its expiry at the given
// instant.
func (c *TwoFactorConfirmation) ExpiredAt(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

func (c *TwoFactorConfirmation) IsExpired() bool {
	return c.ExpiredAt(time.Now())
}

// ConfirmationStore persists TwoFactorConfirmations keyed by user.
type ConfirmationStore interface {
	CreateConfirmation(confirmation *TwoFactorConfirmation) error

	// GetConfirmationByUserId returns ErrConfirmationNotFound when the user
	// has no confirmation outstanding.
	GetConfirmationByUserId(userId string) (*TwoFactorConfirmation, error)

	DeleteConfirmation(id string) error
}

// GenerateSecureToken returns a random unguessable token value for
// verification and reset links.
func GenerateSecureToken() string {
	return uuid.NewString()
}

// GenerateTwoFactorCode draws a 6-digit code uniformly from
// [100000, 999999].
func GenerateTwoFactorCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate two-factor code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
