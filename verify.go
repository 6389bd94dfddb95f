package kraackauth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// HandleVerifyEmail consumes an email-verification token.  For a fresh
// signup it marks the address verified; for a pending email change it also
// applies the new address to the user record.  The token is deleted either
// way so a second submission fails.
func (a *App) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, NewAuthError(ErrCodeInvalidPayload, "Invalid payload", ""))
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" {
		a.writeError(w, NewAuthError(ErrCodeMissingField, "Missing token", "token"))
		return
	}

	token, err := a.Tokens.GetTokenByValue(TokenKindVerification, req.Token)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			a.writeError(w, NewAuthError(ErrCodeTokenInvalid, "Invalid token", "token"))
			return
		}
		a.serverError(w, "verification token lookup failed", err)
		return
	}
	if token.IsExpired() {
		if err := a.Tokens.DeleteToken(TokenKindVerification, token.ID); err != nil {
			slog.Warn("failed to delete expired verification token", "err", err)
		}
		a.writeError(w, NewAuthError(ErrCodeTokenExpired, "Token has expired", "token"))
		return
	}

	// The token email is either a user's current address (signup flow) or a
	// pending address from a settings change.
	user, err := a.Users.GetUserByEmail(token.Email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			a.serverError(w, "verification user lookup failed", err)
			return
		}
		user, err = a.Users.GetUserByPendingEmail(token.Email)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				a.writeError(w, NewAuthError(ErrCodeTokenInvalid, "Invalid token", "token"))
				return
			}
			a.serverError(w, "verification user lookup failed", err)
			return
		}
		user.Email = user.PendingEmail
		user.PendingEmail = ""
	}

	now := time.Now()
	user.EmailVerifiedAt = &now
	user.UpdatedAt = now
	if err := a.Users.SaveUser(user); err != nil {
		a.serverError(w, "verification update failed", err)
		return
	}
	if err := a.Tokens.DeleteToken(TokenKindVerification, token.ID); err != nil {
		slog.Warn("failed to delete consumed verification token", "err", err)
	}

	a.writeJSON(w, http.StatusOK, map[string]any{"message": "Email verified successfully"})
}
