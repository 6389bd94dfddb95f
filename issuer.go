package kraackauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Issuer mints the single-use tokens and two-factor confirmations.  Every
// operation follows the same rotate-then-create sequence: any live token for
// the key is deleted before the replacement is inserted, which keeps the
// one-live-token-per-key invariant under sequential use.  The delete and
// insert are two store calls, not one transaction; two concurrent issuances
// for the same email can transiently leave two live tokens.
//
// The issuer never sends email; callers dispatch the returned token value
// themselves.
type Issuer struct {
	Tokens        TokenStore
	Confirmations ConfirmationStore

	// Now is the clock, overridable in tests.  Defaults to time.Now.
	Now func() time.Time
}

func NewIssuer(tokens TokenStore, confirmations ConfirmationStore) *Issuer {
	return &Issuer{Tokens: tokens, Confirmations: confirmations, Now: time.Now}
}

func (i *Issuer) now() time.Time {
	if i.Now != nil {
		return i.Now()
	}
	return time.Now()
}

// IssueVerificationToken rotates and creates an email-verification token,
// valid for one hour.
func (i *Issuer) IssueVerificationToken(email string) (*AuthToken, error) {
	return i.issue(TokenKindVerification, email, GenerateSecureToken(), TokenExpiryVerification)
}

// IssueResetPasswordToken rotates and creates a password-reset token, valid
// for one hour.
func (i *Issuer) IssueResetPasswordToken(email string) (*AuthToken, error) {
	return i.issue(TokenKindPasswordReset, email, GenerateSecureToken(), TokenExpiryPasswordReset)
}

// IssueTwoFactorToken rotates and creates a 6-digit two-factor code, valid
// for ten minutes.
func (i *Issuer) IssueTwoFactorToken(email string) (*AuthToken, error) {
	code, err := GenerateTwoFactorCode()
	if err != nil {
		return nil, err
	}
	return i.issue(TokenKindTwoFactor, email, code, TokenExpiryTwoFactor)
}

func (i *Issuer) issue(kind TokenKind, email, value string, ttl time.Duration) (*AuthToken, error) {
	existing, err := i.Tokens.GetTokenByEmail(kind, email)
	if err != nil && !errors.Is(err, ErrTokenNotFound) {
		return nil, fmt.Errorf("failed to look up existing %s token: %w", kind, err)
	}
	if existing != nil {
		if err := i.Tokens.DeleteToken(kind, existing.ID); err != nil {
			return nil, fmt.Errorf("failed to rotate %s token: %w", kind, err)
		}
	}

	now := i.now()
	token := &AuthToken{
		ID:        uuid.NewString(),
		Token:     value,
		Email:     email,
		Kind:      kind,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := i.Tokens.CreateToken(token); err != nil {
		return nil, fmt.Errorf("failed to create %s token: %w", kind, err)
	}
	return token, nil
}

// IssueTwoFactorConfirmation deletes any outstanding confirmation for the
// user and creates a fresh one valid for ten minutes.
func (i *Issuer) IssueTwoFactorConfirmation(userId string) (*TwoFactorConfirmation, error) {
	existing, err := i.Confirmations.GetConfirmationByUserId(userId)
	if err != nil && !errors.Is(err, ErrConfirmationNotFound) {
		return nil, fmt.Errorf("failed to look up existing confirmation: %w", err)
	}
	if existing != nil {
		if err := i.Confirmations.DeleteConfirmation(existing.ID); err != nil {
			return nil, fmt.Errorf("failed to rotate confirmation: %w", err)
		}
	}

	confirmation := &TwoFactorConfirmation{
		ID:        uuid.NewString(),
		UserID:    userId,
		ExpiresAt: i.now().Add(TokenExpiryTwoFactorConfirmation),
	}
	if err := i.Confirmations.CreateConfirmation(confirmation); err != nil {
		return nil, fmt.Errorf("failed to create confirmation: %w", err)
	}
	return confirmation, nil
}
