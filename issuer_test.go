package kraackauth_test

import (
	"regexp"
	"strconv"
	"testing"
	"time"

	ka "github.com/letskraack/kraackauth"
	"github.com/letskraack/kraackauth/stores"
)

func newTestIssuer(t *testing.T) *ka.Issuer {
	t.Helper()
	tmpDir := t.TempDir()
	return ka.NewIssuer(
		stores.NewFSTokenStore(tmpDir),
		stores.NewFSConfirmationStore(tmpDir))
}

func TestIssuerRotatesPerKindAndEmail(t *testing.T) {
	issuer := newTestIssuer(t)

	first, err := issuer.IssueVerificationToken("ada@example.com")
	if err != nil {
		t.Fatalf("Failed to issue: %v", err)
	}
	second, err := issuer.IssueVerificationToken("ada@example.com")
	if err != nil {
		t.Fatalf("Failed to reissue: %v", err)
	}
	if first.Token == second.Token {
		t.Error("Reissue should mint a fresh value")
	}
	if _, err := issuer.Tokens.GetTokenByValue(ka.TokenKindVerification, first.Token); err == nil {
		t.Error("First token should be deleted by rotation")
	}
	if _, err := issuer.Tokens.GetTokenByValue(ka.TokenKindVerification, second.Token); err != nil {
		t.Errorf("Second token should be live: %v", err)
	}
}

func TestIssuerKindsDoNotInterfere(t *testing.T) {
	issuer := newTestIssuer(t)

	verification, _ := issuer.IssueVerificationToken("ada@example.com")
	reset, _ := issuer.IssueResetPasswordToken("ada@example.com")

	// Issuing a reset token must not displace the verification token.
	if _, err := issuer.Tokens.GetTokenByValue(ka.TokenKindVerification, verification.Token); err != nil {
		t.Errorf("Verification token should survive a reset issuance: %v", err)
	}
	if _, err := issuer.Tokens.GetTokenByValue(ka.TokenKindPasswordReset, reset.Token); err != nil {
		t.Errorf("Reset token should be live: %v", err)
	}
}

func TestIssuerEmailsDoNotInterfere(t *testing.T) {
	issuer := newTestIssuer(t)

	ada, _ := issuer.IssueVerificationToken("ada@example.com")
	issuer.IssueVerificationToken("grace@example.com")

	if _, err := issuer.Tokens.GetTokenByValue(ka.TokenKindVerification, ada.Token); err != nil {
		t.Errorf("Tokens for other emails must not be rotated away: %v", err)
	}
}

func TestIssuerExpiryStamps(t *testing.T) {
	issuer := newTestIssuer(t)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer.Now = func() time.Time { return fixed }

	tests := []struct {
		name     string
		issue    func(string) (*ka.AuthToken, error)
		expected time.Duration
	}{
		{"verification", issuer.IssueVerificationToken, time.Hour},
		{"reset", issuer.IssueResetPasswordToken, time.Hour},
		{"two factor", issuer.IssueTwoFactorToken, 10 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := tt.issue("ada@example.com")
			if err != nil {
				t.Fatalf("Failed to issue: %v", err)
			}
			if got := token.ExpiresAt.Sub(token.CreatedAt); got != tt.expected {
				t.Errorf("Expected %v lifetime, got %v", tt.expected, got)
			}
			if !token.CreatedAt.Equal(fixed) {
				t.Errorf("CreatedAt should come from the issuer clock, got %v", token.CreatedAt)
			}
		})
	}
}

func TestTwoFactorCodeFormat(t *testing.T) {
	sixDigits := regexp.MustCompile(`^\d{6}$`)
	for i := 0; i < 50; i++ {
		code, err := ka.GenerateTwoFactorCode()
		if err != nil {
			t.Fatalf("Failed to generate code: %v", err)
		}
		if !sixDigits.MatchString(code) {
			t.Fatalf("Code %q is not 6 digits", code)
		}
		n, _ := strconv.Atoi(code)
		if n < 100000 || n > 999999 {
			t.Fatalf("Code %d outside [100000, 999999]", n)
		}
	}
}

func TestIssuerConfirmationRotation(t *testing.T) {
	issuer := newTestIssuer(t)

	first, err := issuer.IssueTwoFactorConfirmation("user-1")
	if err != nil {
		t.Fatalf("Failed to issue confirmation: %v", err)
	}
	second, err := issuer.IssueTwoFactorConfirmation("user-1")
	if err != nil {
		t.Fatalf("Failed to reissue confirmation: %v", err)
	}
	if first.ID == second.ID {
		t.Error("Reissue should create a fresh confirmation")
	}
	current, err := issuer.Confirmations.GetConfirmationByUserId("user-1")
	if err != nil {
		t.Fatalf("Expected a live confirmation: %v", err)
	}
	if current.ID != second.ID {
		t.Error("Only the latest confirmation should remain")
	}
}
