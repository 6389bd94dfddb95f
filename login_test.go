package kraackauth_test

import (
	"net/http"
	"testing"
	"time"

	ka "github.com/letskraack/kraackauth"
)

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "Ada", "Lovelace", "ada@example.com", "password123")
	env.verifyEmail(t, "ada@example.com")

	unknownEmail := env.login(t, "nobody@example.com", "password123")
	wrongPassword := env.login(t, "ada@example.com", "wrong-password")

	if unknownEmail.Code != http.StatusUnauthorized {
		t.Errorf("Unknown email: expected 401, got %d", unknownEmail.Code)
	}
	if wrongPassword.Code != http.StatusUnauthorized {
		t.Errorf("Wrong password: expected 401, got %d", wrongPassword.Code)
	}
	if unknownEmail.Body.String() != wrongPassword.Body.String() {
		t.Errorf("Failure responses must be identical: %q vs %q",
			unknownEmail.Body.String(), wrongPassword.Body.String())
	}
}

func TestLoginRequiresEmailAndPassword(t *testing.T) {
	env := newTestEnv(t)
	for _, body := range []map[string]any{
		{"email": "ada@example.com"},
		{"password": "password123"},
		{},
	} {
		rr := env.postJSON(t, "/api/auth/login", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for %v, got %d", body, rr.Code)
		}
	}
}

func TestLoginUnverifiedEmailResendsVerification(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "Ada", "Lovelace", "ada@example.com", "password123")

	first, err := env.App.Tokens.GetTokenByEmail(ka.TokenKindVerification, "ada@example.com")
	if err != nil {
		t.Fatalf("Expected a verification token after signup: %v", err)
	}

	rr := env.login(t, "ada@example.com", "password123")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for unverified email, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if sent, _ := body["emailSent"].(bool); !sent {
		t.Error("Expected emailSent true on resend")
	}

	// The old token must have been replaced, not duplicated.
	second, err := env.App.Tokens.GetTokenByEmail(ka.TokenKindVerification, "ada@example.com")
	if err != nil {
		t.Fatalf("Expected a live verification token after resend: %v", err)
	}
	if second.Token == first.Token {
		t.Error("Resend should rotate the verification token")
	}
	if _, err := env.App.Tokens.GetTokenByValue(ka.TokenKindVerification, first.Token); err == nil {
		t.Error("Old verification token should be gone after rotation")
	}
}

func TestLoginUnverifiedEmailSendFailure(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "Ada", "Lovelace", "ada@example.com", "password123")
	env.Sender.Fail = true

	// Delivery failure still reports the verification gate, not a server error.
	rr := env.login(t, "ada@example.com", "password123")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 when resend delivery fails, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if sent, ok := body["emailSent"].(bool); !ok || sent {
		t.Errorf("Expected emailSent false, got %v", body["emailSent"])
	}
}

func TestLoginTwoFactorSendFailure(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "Ada", "Lovelace", "ada@example.com", "password123")
	env.verifyEmail(t, "ada@example.com")

	user, _ := env.App.Users.GetUserByEmail("ada@example.com")
	user.IsTwoFactorEnabled = true
	if err := env.App.Users.SaveUser(user); err != nil {
		t.Fatalf("Failed to enable two-factor: %v", err)
	}
	env.Sender.Fail = true

	rr := env.login(t, "ada@example.com", "password123")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500 when the code cannot be sent, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if required, _ := body["twoFactorRequired"].(bool); !required {
		t.Error("Expected twoFactorRequired true even when delivery fails")
	}
}

func TestLoginSuccessIssuesSession(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "Ada", "Lovelace", "ada@example.com", "password123")
	env.verifyEmail(t, "ada@example.com")

	rr := env.login(t, "ada@example.com", "password123")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["redirectTo"] != "/dashboard" {
		t.Errorf("Expected redirectTo /dashboard, got %v", body["redirectTo"])
	}

	cookie := env.authCookie(t, rr)
	claims, err := env.App.SessionTokens.Verify(cookie.Value)
	if err != nil {
		t.Fatalf("Auth cookie does not hold a valid token: %v", err)
	}
	if claims.Email != "ada@example.com" {
		t.Errorf("Expected claims email, got %q", claims.Email)
	}
	if claims.Role != ka.RoleUser {
		t.Errorf("Expected USER role in claims, got %q", claims.Role)
	}
	if claims.IsOAuth {
		t.Error("Credentials-only user should not be flagged as OAuth")
	}
}

func TestLoginTwoFactorFlow(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "Ada", "Lovelace", "ada@example.com", "password123")
	env.verifyEmail(t, "ada@example.com")

	user, _ := env.App.Users.GetUserByEmail("ada@example.com")
	user.IsTwoFactorEnabled = true
	if err := env.App.Users.SaveUser(user); err != nil {
		t.Fatalf("Failed to enable two-factor: %v", err)
	}

	// First leg: no code yet, a challenge is sent instead of a session.
	rr := env.login(t, "ada@example.com", "password123")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 challenge response, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if required, _ := body["twoFactorRequired"].(bool); !required {
		t.Fatal("Expected twoFactorRequired true")
	}
	if env.Sender.countKind("two_factor") != 1 {
		t.Fatalf("Expected one two-factor email, got %d", env.Sender.countKind("two_factor"))
	}

	code := env.Sender.Emails[len(env.Sender.Emails)-1].Value
	if len(code) != 6 {
		t.Fatalf("Expected a 6-digit code, got %q", code)
	}

	t.Run("malformed code", func(t *testing.T) {
		rr := env.postJSON(t, "/api/auth/login", map[string]any{
			"email": "ada@example.com", "password": "password123", "twoFactorCode": "12ab56",
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for malformed code, got %d", rr.Code)
		}
	})

	t.Run("wrong code", func(t *testing.T) {
		wrong := "000000"
		if wrong == code {
			wrong = "000001"
		}
		rr := env.postJSON(t, "/api/auth/login", map[string]any{
			"email": "ada@example.com", "password": "password123", "twoFactorCode": wrong,
		})
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401 for wrong code, got %d", rr.Code)
		}
	})

	t.Run("correct code completes sign-in", func(t *testing.T) {
		rr := env.postJSON(t, "/api/auth/login", map[string]any{
			"email": "ada@example.com", "password": "password123", "twoFactorCode": code,
		})
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		env.authCookie(t, rr)
	})

	t.Run("code is single use", func(t *testing.T) {
		rr := env.postJSON(t, "/api/auth/login", map[string]any{
			"email": "ada@example.com", "password": "password123", "twoFactorCode": code,
		})
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401 on code reuse, got %d", rr.Code)
		}
	})
}

func TestLoginTwoFactorExpiredCode(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "Ada", "Lovelace", "ada@example.com", "password123")
	env.verifyEmail(t, "ada@example.com")

	user, _ := env.App.Users.GetUserByEmail("ada@example.com")
	user.IsTwoFactorEnabled = true
	if err := env.App.Users.SaveUser(user); err != nil {
		t.Fatalf("Failed to enable two-factor: %v", err)
	}

	// Backdate the issuer clock so the minted code is already expired.
	env.App.Issuer.Now = func() time.Time { return time.Now().Add(-time.Hour) }
	rr := env.login(t, "ada@example.com", "password123")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 challenge response, got %d", rr.Code)
	}
	env.App.Issuer.Now = time.Now

	code := env.Sender.Emails[len(env.Sender.Emails)-1].Value
	rr = env.postJSON(t, "/api/auth/login", map[string]any{
		"email": "ada@example.com", "password": "password123", "twoFactorCode": code,
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 for expired code, got %d: %s", rr.Code, rr.Body.String())
	}
	// The expired token is removed on sight.
	if _, err := env.App.Tokens.GetTokenByEmail(ka.TokenKindTwoFactor, "ada@example.com"); err == nil {
		t.Error("Expired two-factor token should have been deleted")
	}
}

func TestLoginTwoFactorPasswordStillChecked(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "Ada", "Lovelace", "ada@example.com", "password123")
	env.verifyEmail(t, "ada@example.com")

	user, _ := env.App.Users.GetUserByEmail("ada@example.com")
	user.IsTwoFactorEnabled = true
	if err := env.App.Users.SaveUser(user); err != nil {
		t.Fatalf("Failed to enable two-factor: %v", err)
	}

	env.login(t, "ada@example.com", "password123")
	code := env.Sender.Emails[len(env.Sender.Emails)-1].Value

	// A valid code cannot rescue a wrong password.
	rr := env.postJSON(t, "/api/auth/login", map[string]any{
		"email": "ada@example.com", "password": "wrong-password", "twoFactorCode": code,
	})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for wrong password with valid code, got %d", rr.Code)
	}
}

func TestLogoutClearsCookies(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "Ada", "Lovelace", "ada@example.com", "password123")
	env.verifyEmail(t, "ada@example.com")
	login := env.login(t, "ada@example.com", "password123")
	cookie := env.authCookie(t, login)

	rr := env.postJSON(t, "/api/auth/logout", map[string]any{}, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	for _, c := range rr.Result().Cookies() {
		if c.Name == env.App.AuthTokenSessionVar && c.MaxAge >= 0 {
			t.Error("Auth cookie should be expired on logout")
		}
	}
}
