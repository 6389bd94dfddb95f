package kraackauth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// HandleResetPassword starts a password reset.  The response does not reveal
// whether the address has an account: the success shape is identical either
// way, and only a genuine delivery failure for an existing account surfaces
// an error.
func (a *App) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, NewAuthError(ErrCodeInvalidPayload, "Invalid payload", ""))
		return
	}
	req.Email = NormalizeEmail(req.Email)
	if !emailRegex.MatchString(req.Email) {
		a.writeError(w, NewAuthError(ErrCodeValidation, "Invalid email address", "email"))
		return
	}

	user, err := a.Users.GetUserByEmail(req.Email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		a.serverError(w, "reset lookup failed", err)
		return
	}
	if user != nil {
		token, err := a.Issuer.IssueResetPasswordToken(user.Email)
		if err != nil {
			a.serverError(w, "reset token issuance failed", err)
			return
		}
		if err := a.Email.SendPasswordResetEmail(user.Email, a.resetLink(token.Token)); err != nil {
			slog.Error("failed to send reset email", "email", user.Email, "err", err)
			a.serverError(w, "reset email delivery failed", err)
			return
		}
	}

	a.writeJSON(w, http.StatusOK, map[string]any{
		"message":   "If an account exists for that address, a reset email has been sent.",
		"emailSent": true,
	})
}

// HandleNewPassword completes a password reset with a token from the reset
// email.  The token is single use: it is deleted once the new password is
// stored, and an expired token is deleted on sight.
func (a *App) HandleNewPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, NewAuthError(ErrCodeInvalidPayload, "Invalid payload", ""))
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	req.Password = strings.TrimSpace(req.Password)

	if req.Token == "" {
		a.writeError(w, NewAuthError(ErrCodeMissingField, "Missing token", "token"))
		return
	}
	if len(req.Password) < MinPasswordLength {
		a.writeError(w, NewAuthError(ErrCodeValidation, "Password must be at least 6 characters long", "password"))
		return
	}

	token, err := a.Tokens.GetTokenByValue(TokenKindPasswordReset, req.Token)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			a.writeError(w, NewAuthError(ErrCodeTokenInvalid, "Invalid token", "token"))
			return
		}
		a.serverError(w, "reset token lookup failed", err)
		return
	}
	if token.IsExpired() {
		if err := a.Tokens.DeleteToken(TokenKindPasswordReset, token.ID); err != nil {
			slog.Warn("failed to delete expired reset token", "err", err)
		}
		a.writeError(w, NewAuthError(ErrCodeTokenExpired, "Token has expired", "token"))
		return
	}

	user, err := a.Users.GetUserByEmail(token.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			a.writeError(w, NewAuthError(ErrCodeTokenInvalid, "Invalid token", "token"))
			return
		}
		a.serverError(w, "reset user lookup failed", err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), BcryptCost)
	if err != nil {
		a.serverError(w, "password hashing failed", err)
		return
	}
	user.PasswordHash = string(hash)
	user.UpdatedAt = time.Now()
	if err := a.Users.SaveUser(user); err != nil {
		a.serverError(w, "password update failed", err)
		return
	}
	if err := a.Tokens.DeleteToken(TokenKindPasswordReset, token.ID); err != nil {
		slog.Warn("failed to delete consumed reset token", "err", err)
	}

	a.writeJSON(w, http.StatusOK, map[string]any{"message": "Password updated successfully"})
}
