package kraackauth_test

import (
	"net/http"
	"strings"
	"testing"

	ka "github.com/letskraack/kraackauth"
	"golang.org/x/crypto/bcrypt"
)

func TestSignupFlow(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name           string
		body           map[string]any
		expectedStatus int
		checkError     string
	}{
		{
			name: "successful signup",
			body: map[string]any{
				"firstName": "Ada", "lastName": "Lovelace",
				"email": "ada@example.com", "password": "password123",
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "duplicate email",
			body: map[string]any{
				"firstName": "Ada", "lastName": "Again",
				"email": "ada@example.com", "password": "password123",
			},
			expectedStatus: http.StatusConflict,
			checkError:     "already exists",
		},
		{
			name: "duplicate email different case",
			body: map[string]any{
				"firstName": "Ada", "lastName": "Again",
				"email": "ADA@Example.COM", "password": "password123",
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "short first name",
			body: map[string]any{
				"firstName": "A", "lastName": "Lovelace",
				"email": "a2@example.com", "password": "password123",
			},
			expectedStatus: http.StatusBadRequest,
			checkError:     "First name",
		},
		{
			name: "invalid email",
			body: map[string]any{
				"firstName": "Ada", "lastName": "Lovelace",
				"email": "not-an-email", "password": "password123",
			},
			expectedStatus: http.StatusBadRequest,
			checkError:     "Invalid email",
		},
		{
			name: "short password",
			body: map[string]any{
				"firstName": "Ada", "lastName": "Lovelace",
				"email": "a3@example.com", "password": "pass",
			},
			expectedStatus: http.StatusBadRequest,
			checkError:     "at least 6 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.postJSON(t, "/api/auth/signup", tt.body)
			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d. Body: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}
			if tt.checkError != "" && !strings.Contains(rr.Body.String(), tt.checkError) {
				t.Errorf("Expected error containing %q, got: %s", tt.checkError, rr.Body.String())
			}
		})
	}
}

func TestSignupCreatesUnverifiedUserWithHash(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "Grace", "Hopper", "grace@example.com", "secret123")

	user, err := env.App.Users.GetUserByEmail("grace@example.com")
	if err != nil {
		t.Fatalf("User not found after signup: %v", err)
	}
	if user.Name != "Grace Hopper" {
		t.Errorf("Expected composed name, got %q", user.Name)
	}
	if user.EmailVerifiedAt != nil {
		t.Error("New user should not have a verified email")
	}
	if user.Role != ka.RoleUser {
		t.Errorf("Expected default role USER, got %q", user.Role)
	}
	if user.PasswordHash == "secret123" || user.PasswordHash == "" {
		t.Error("Password must be stored hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret123")); err != nil {
		t.Errorf("Stored hash does not match the password: %v", err)
	}

	if got := env.Sender.countKind("verification"); got != 1 {
		t.Errorf("Expected 1 verification email, got %d", got)
	}
	token, err := env.App.Tokens.GetTokenByEmail(ka.TokenKindVerification, "grace@example.com")
	if err != nil {
		t.Fatalf("Expected a live verification token: %v", err)
	}
	if !strings.Contains(env.Sender.Emails[0].Value, token.Token) {
		t.Error("Verification link should carry the token value")
	}
}

func TestSignupEmailSendFailureStillCreatesAccount(t *testing.T) {
	env := newTestEnv(t)
	env.Sender.Fail = true

	rr := env.postJSON(t, "/api/auth/signup", map[string]any{
		"firstName": "Alan", "lastName": "Turing",
		"email": "alan@example.com", "password": "enigma1234",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201 even when email fails, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if sent, _ := body["emailSent"].(bool); sent {
		t.Error("emailSent should be false when delivery failed")
	}
	if _, err := env.App.Users.GetUserByEmail("alan@example.com"); err != nil {
		t.Errorf("Account should exist despite delivery failure: %v", err)
	}
}

func TestSignupResponseOmitsSensitiveFields(t *testing.T) {
	env := newTestEnv(t)
	rr := env.signup(t, "Rosa", "Parks", "rosa@example.com", "password123")

	body := decodeBody(t, rr)
	user, ok := body["user"].(map[string]any)
	if !ok {
		t.Fatalf("Expected a user object in response, got: %s", rr.Body.String())
	}
	for _, forbidden := range []string{"password", "password_hash", "passwordHash"} {
		if _, present := user[forbidden]; present {
			t.Errorf("Response user must not carry %q", forbidden)
		}
	}
	if user["emailVerified"] != nil {
		t.Error("emailVerified should be null for a fresh signup")
	}
}
