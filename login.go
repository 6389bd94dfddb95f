package kraackauth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var twoFactorCodeRegex = regexp.MustCompile(`^\d{6}$`)

// LoginRequest is the payload for POST /api/auth/login.  Code is only set on
// the second leg of a two-factor sign-in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Code     string `json:"twoFactorCode"`
}

// HandleLogin runs the credentials sign-in state machine: lookup, the email
// verification gate, the two-factor gate, credential verification, and
// finally session issuance.  Failures caused by a wrong email and a wrong
// password are indistinguishable to the caller.
func (a *App) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, NewAuthError(ErrCodeInvalidPayload, "Invalid login payload", ""))
		return
	}
	req.Email = NormalizeEmail(req.Email)
	req.Password = strings.TrimSpace(req.Password)
	req.Code = strings.TrimSpace(req.Code)

	if req.Email == "" || req.Password == "" {
		a.writeError(w, NewAuthError(ErrCodeMissingField, "Email and password are required", ""))
		return
	}

	user, err := a.Users.GetUserByEmail(req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			a.writeError(w, NewAuthError(ErrCodeInvalidCreds, "Invalid credentials", ""))
			return
		}
		a.serverError(w, "login lookup failed", err)
		return
	}
	// OAuth-only accounts have no password hash and cannot sign in here.
	if user.PasswordHash == "" {
		a.writeError(w, NewAuthError(ErrCodeInvalidCreds, "Invalid credentials", ""))
		return
	}

	// Email verification gate.  Rotating the token before the password check
	// means an unverified address can be probed for a resend without knowing
	// the password; the address alone reveals nothing new since signup
	// already discloses existence.
	if user.EmailVerifiedAt == nil {
		token, err := a.Issuer.IssueVerificationToken(user.Email)
		if err != nil {
			a.serverError(w, "verification token issuance failed", err)
			return
		}
		emailSent := true
		message := "Email not verified. A new verification email has been sent."
		if err := a.Email.SendVerificationEmail(user.Email, a.verificationLink(token.Token)); err != nil {
			slog.Error("failed to send verification email", "email", user.Email, "err", err)
			emailSent = false
			message = "Email not verified. The verification email could not be sent."
		}
		a.writeJSON(w, http.StatusForbidden, map[string]any{
			"message":   message,
			"emailSent": emailSent,
		})
		return
	}

	if user.IsTwoFactorEnabled {
		if req.Code == "" {
			token, err := a.Issuer.IssueTwoFactorToken(user.Email)
			if err != nil {
				a.serverError(w, "two-factor token issuance failed", err)
				return
			}
			if err := a.Email.SendTwoFactorCodeEmail(user.Email, token.Token); err != nil {
				slog.Error("failed to send two-factor code", "email", user.Email, "err", err)
				a.writeJSON(w, http.StatusInternalServerError, map[string]any{
					"message":           "Failed to send the two-factor code.",
					"twoFactorRequired": true,
				})
				return
			}
			a.writeJSON(w, http.StatusOK, map[string]any{
				"message":           "Two-factor code sent to your email.",
				"twoFactorRequired": true,
			})
			return
		}

		if !twoFactorCodeRegex.MatchString(req.Code) {
			a.writeError(w, NewAuthError(ErrCodeCodeFormat, "Code must be a 6-digit number", "twoFactorCode"))
			return
		}
		token, err := a.Tokens.GetTokenByEmail(TokenKindTwoFactor, user.Email)
		if err != nil {
			if errors.Is(err, ErrTokenNotFound) {
				a.writeError(w, NewAuthError(ErrCodeInvalidCode, "Invalid code", "twoFactorCode"))
				return
			}
			a.serverError(w, "two-factor token lookup failed", err)
			return
		}
		if token.Token != req.Code {
			a.writeError(w, NewAuthError(ErrCodeInvalidCode, "Invalid code", "twoFactorCode"))
			return
		}
		if token.IsExpired() {
			if err := a.Tokens.DeleteToken(TokenKindTwoFactor, token.ID); err != nil {
				slog.Warn("failed to delete expired two-factor token", "err", err)
			}
			a.writeError(w, NewAuthError(ErrCodeCodeExpired, "Code has expired", "twoFactorCode"))
			return
		}
		if err := a.Tokens.DeleteToken(TokenKindTwoFactor, token.ID); err != nil {
			a.serverError(w, "two-factor token consumption failed", err)
			return
		}
		if _, err := a.Issuer.IssueTwoFactorConfirmation(user.ID); err != nil {
			a.serverError(w, "two-factor confirmation failed", err)
			return
		}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		a.writeError(w, NewAuthError(ErrCodeInvalidCreds, "Invalid credentials", ""))
		return
	}

	ok, err := a.Pipeline.AuthorizeSignIn(ProviderCredentials, user.ID)
	if err != nil {
		a.serverError(w, "sign-in authorization failed", err)
		return
	}
	if !ok {
		a.writeError(w, NewAuthError(ErrCodeSignInBlocked, "Sign-in blocked", ""))
		return
	}

	if err := a.setLoggedInUser(w, r, user); err != nil {
		a.serverError(w, "session issuance failed", err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Logged in successfully",
		"redirectTo": a.Routes.DefaultLoginRedirect,
	})
}

// HandleLogout clears the session cookies and the server-side session.
func (a *App) HandleLogout(w http.ResponseWriter, r *http.Request) {
	a.clearLoggedInUser(w, r)
	a.writeJSON(w, http.StatusOK, map[string]any{"message": "Logged out"})
}
