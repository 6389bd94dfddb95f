package kraackauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor for password hashing.
const BcryptCost = 10

// MinPasswordLength applies to signup, reset, and settings password changes.
const MinPasswordLength = 6

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// SignupRequest is the payload for POST /api/auth/signup.
type SignupRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func (r *SignupRequest) normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = NormalizeEmail(r.Email)
	r.Password = strings.TrimSpace(r.Password)
}

// validate returns field-level messages, empty when the payload is valid.
func (r *SignupRequest) validate() []string {
	var errs []string
	if len(r.FirstName) < 2 {
		errs = append(errs, "First name must be at least 2 characters long")
	}
	if len(r.LastName) < 2 {
		errs = append(errs, "Last name must be at least 2 characters long")
	}
	if !emailRegex.MatchString(r.Email) {
		errs = append(errs, "Invalid email address")
	}
	if len(r.Password) < MinPasswordLength {
		errs = append(errs, fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength))
	}
	return errs
}

// HandleSignup processes user registration: validates, creates the user with
// an unverified email, issues a verification token and asks for it to be
// delivered.  A delivery failure still reports the account as created, with
// emailSent false so the caller can offer a resend.
func (a *App) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, NewAuthError(ErrCodeInvalidPayload, "Invalid signup payload", ""))
		return
	}
	req.normalize()

	if errs := req.validate(); len(errs) > 0 {
		a.writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": "Invalid signup payload",
			"errors":  errs,
		})
		return
	}

	// Optimistic duplicate check; the unique constraint on insert below
	// closes the window between this lookup and the create.
	if _, err := a.Users.GetUserByEmail(req.Email); err == nil {
		a.writeError(w, NewAuthError(ErrCodeEmailExists, "User already exists", "email"))
		return
	} else if !errors.Is(err, ErrUserNotFound) {
		a.serverError(w, "signup lookup failed", err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), BcryptCost)
	if err != nil {
		a.serverError(w, "password hashing failed", err)
		return
	}

	now := time.Now()
	user := &User{
		ID:           uuid.NewString(),
		Name:         DisplayName(req.FirstName, req.LastName, req.Email),
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.Users.CreateUser(user); err != nil {
		if errors.Is(err, ErrUserExists) {
			a.writeError(w, NewAuthError(ErrCodeEmailExists, "User already exists", "email"))
			return
		}
		a.serverError(w, "user creation failed", err)
		return
	}

	token, err := a.Issuer.IssueVerificationToken(user.Email)
	if err != nil {
		a.serverError(w, "verification token issuance failed", err)
		return
	}

	emailSent := true
	if err := a.Email.SendVerificationEmail(user.Email, a.verificationLink(token.Token)); err != nil {
		slog.Error("failed to send verification email", "email", user.Email, "err", err)
		emailSent = false
	}

	message := "Verification email has been sent to your email address. Please check your inbox."
	if !emailSent {
		message = "Account created successfully, but we could not send the verification email. Please request a new one."
	}
	a.writeJSON(w, http.StatusCreated, map[string]any{
		"message":   message,
		"user":      user.Public(),
		"emailSent": emailSent,
	})
}

func (a *App) verificationLink(token string) string {
	return fmt.Sprintf("%s/verify-email?token=%s", a.BaseURL, token)
}

func (a *App) resetLink(token string) string {
	return fmt.Sprintf("%s/new-password?token=%s", a.BaseURL, token)
}
