package kraackauth

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ProviderCredentials is the provider name used for password sign-ins; any
// other provider is treated as a trusted OAuth identity.
const ProviderCredentials = "credentials"

// CallbackPipeline holds the two hooks the session subsystem runs: the
// sign-in authorization hook at session issuance and the claims enrichment
// hook on every session read.  Both re-derive their answers from durable
// state rather than trusting the in-flight request.
type CallbackPipeline struct {
	Users         UserStore
	Accounts      AccountStore
	Confirmations ConfirmationStore

	Now func() time.Time
}

func NewCallbackPipeline(users UserStore, accounts AccountStore, confirmations ConfirmationStore) *CallbackPipeline {
	return &CallbackPipeline{Users: users, Accounts: accounts, Confirmations: confirmations, Now: time.Now}
}

func (p *CallbackPipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// AuthorizeSignIn decides whether a sign-in may complete.
//
// OAuth providers are trusted to have verified the identity, so their
// sign-ins always pass.  Credentials sign-ins are re-checked against the
// user record: the account must exist, the email must be verified, and when
// two-factor is enabled a live TwoFactorConfirmation must be outstanding.
// The confirmation is consumed on approval; one cleared challenge buys
// exactly one sign-in.
func (p *CallbackPipeline) AuthorizeSignIn(provider, userId string) (bool, error) {
	if provider != ProviderCredentials {
		return true, nil
	}

	user, err := p.Users.GetUserById(userId)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	if user.EmailVerifiedAt == nil {
		slog.Info("sign-in denied: email not verified", "user", userId)
		return false, nil
	}

	if user.IsTwoFactorEnabled {
		confirmation, err := p.Confirmations.GetConfirmationByUserId(user.ID)
		if err != nil {
			if errors.Is(err, ErrConfirmationNotFound) {
				slog.Info("sign-in denied: no two-factor confirmation", "user", userId)
				return false, nil
			}
			return false, err
		}
		if p.now().After(confirmation.ExpiresAt) {
			if err := p.Confirmations.DeleteConfirmation(confirmation.ID); err != nil {
				slog.Warn("failed to delete expired confirmation", "err", err)
			}
			slog.Info("sign-in denied: two-factor confirmation expired", "user", userId)
			return false, nil
		}
		// Consume it: the confirmation is tied to exactly one sign-in.
		if err := p.Confirmations.DeleteConfirmation(confirmation.ID); err != nil {
			return false, fmt.Errorf("failed to consume confirmation: %w", err)
		}
	}

	return true, nil
}

// OnAccountLinked runs when an OAuth account is first linked to a user.  The
// provider has verified the address, so the user's email is marked verified
// as a side effect.
func (p *CallbackPipeline) OnAccountLinked(userId string) error {
	user, err := p.Users.GetUserById(userId)
	if err != nil {
		return err
	}
	if user.EmailVerifiedAt == nil {
		now := p.now()
		user.EmailVerifiedAt = &now
		if err := p.Users.SaveUser(user); err != nil {
			return fmt.Errorf("failed to mark email verified: %w", err)
		}
	}
	return nil
}

// EnrichClaims refreshes the session view of the user from durable storage:
// role, two-factor flag, OAuth-linked flag, name, email, and image are all
// overwritten from the current user record.  If the user has vanished the
// claims are returned unchanged.
func (p *CallbackPipeline) EnrichClaims(claims *SessionClaims) (*SessionClaims, error) {
	if claims == nil || claims.UserID == "" {
		return claims, nil
	}

	user, err := p.Users.GetUserById(claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return claims, nil
		}
		return nil, err
	}

	isOAuth, err := p.Accounts.HasExternalIdentity(user.ID)
	if err != nil {
		return nil, err
	}

	out := *claims
	out.Name = user.Name
	out.Email = user.Email
	out.Image = user.Image
	out.Role = user.Role
	out.IsOAuth = isOAuth
	out.IsTwoFactorEnabled = user.IsTwoFactorEnabled
	return &out, nil
}
