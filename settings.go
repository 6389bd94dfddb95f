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

// SettingsRequest is the payload for POST /api/settings.  All fields are
// optional; absent fields leave the corresponding values untouched.
type SettingsRequest struct {
	Name               *string `json:"name"`
	Email              *string `json:"email"`
	Password           *string `json:"password"`
	NewPassword        *string `json:"newPassword"`
	Role               *Role   `json:"role"`
	IsTwoFactorEnabled *bool   `json:"isTwoFactorEnabled"`
}

// HandleSettings updates the signed-in user's profile.  Users with a linked
// OAuth identity may only change name, role, and the two-factor flag; their
// email and password belong to the provider.  An email change does not take
// effect until the new address is verified.
func (a *App) HandleSettings(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		a.writeError(w, NewAuthError(ErrCodeNotAuthorized, "Not authenticated", ""))
		return
	}

	var req SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, NewAuthError(ErrCodeInvalidPayload, "Invalid settings payload", ""))
		return
	}

	user, err := a.Users.GetUserById(claims.UserID)
	if err != nil {
		// A session can outlive its user record.
		if errors.Is(err, ErrUserNotFound) {
			a.writeError(w, NewAuthError(ErrCodeUserNotFound, "User not found", ""))
			return
		}
		a.serverError(w, "settings lookup failed", err)
		return
	}

	isOAuth, err := a.Accounts.HasExternalIdentity(user.ID)
	if err != nil {
		a.serverError(w, "settings account lookup failed", err)
		return
	}
	if isOAuth {
		req.Email = nil
		req.Password = nil
		req.NewPassword = nil
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			a.writeError(w, NewAuthError(ErrCodeValidation, "Name cannot be empty", "name"))
			return
		}
		user.Name = name
	}
	if req.Role != nil {
		if !ValidRole(*req.Role) {
			a.writeError(w, NewAuthError(ErrCodeValidation, "Invalid role", "role"))
			return
		}
		user.Role = *req.Role
	}
	if req.IsTwoFactorEnabled != nil {
		user.IsTwoFactorEnabled = *req.IsTwoFactorEnabled
	}

	if req.Password != nil || req.NewPassword != nil {
		if req.Password == nil || req.NewPassword == nil {
			a.writeError(w, NewAuthError(ErrCodeMissingField, "Both current and new password are required", "password"))
			return
		}
		newPassword := strings.TrimSpace(*req.NewPassword)
		if len(newPassword) < MinPasswordLength {
			a.writeError(w, NewAuthError(ErrCodeValidation, "Password must be at least 6 characters long", "newPassword"))
			return
		}
		if user.PasswordHash == "" ||
			bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(*req.Password)) != nil {
			a.writeError(w, NewAuthError(ErrCodeWrongPassword, "Incorrect password", "password"))
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), BcryptCost)
		if err != nil {
			a.serverError(w, "password hashing failed", err)
			return
		}
		user.PasswordHash = string(hash)
	}

	emailChanged := false
	if req.Email != nil {
		email := NormalizeEmail(*req.Email)
		if !emailRegex.MatchString(email) {
			a.writeError(w, NewAuthError(ErrCodeValidation, "Invalid email address", "email"))
			return
		}
		if email != user.Email {
			if other, err := a.Users.GetUserByEmail(email); err == nil && other.ID != user.ID {
				a.writeError(w, NewAuthError(ErrCodeEmailTaken, "Email already in use", "email"))
				return
			} else if err != nil && !errors.Is(err, ErrUserNotFound) {
				a.serverError(w, "settings email lookup failed", err)
				return
			}
			user.PendingEmail = email
			emailChanged = true
		}
	}

	user.UpdatedAt = time.Now()
	if err := a.Users.SaveUser(user); err != nil {
		a.serverError(w, "settings update failed", err)
		return
	}

	message := "Settings updated"
	if emailChanged {
		token, err := a.Issuer.IssueVerificationToken(user.PendingEmail)
		if err != nil {
			a.serverError(w, "verification token issuance failed", err)
			return
		}
		if err := a.Email.SendVerificationEmail(user.PendingEmail, a.verificationLink(token.Token)); err != nil {
			slog.Error("failed to send verification email", "email", user.PendingEmail, "err", err)
			a.serverError(w, "verification email delivery failed", err)
			return
		}
		message = "Settings updated. Verify your new email address to complete the change."
	}

	a.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": message,
		"user":    user.Public(),
	})
}
