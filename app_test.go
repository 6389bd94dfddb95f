package kraackauth_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	ka "github.com/letskraack/kraackauth"
	"github.com/letskraack/kraackauth/stores"
)

type capturedEmail struct {
	Kind  string // "verification" | "reset" | "two_factor"
	To    string
	Value string // link or code
}

// captureEmailSender records outgoing emails and can be told to fail.
type captureEmailSender struct {
	Emails []capturedEmail
	Fail   bool
}

func (s *captureEmailSender) send(kind, to, value string) error {
	if s.Fail {
		return fmt.Errorf("delivery failed")
	}
	s.Emails = append(s.Emails, capturedEmail{Kind: kind, To: to, Value: value})
	return nil
}

func (s *captureEmailSender) SendVerificationEmail(to, link string) error {
	return s.send("verification", to, link)
}

func (s *captureEmailSender) SendPasswordResetEmail(to, link string) error {
	return s.send("reset", to, link)
}

func (s *captureEmailSender) SendTwoFactorCodeEmail(to, code string) error {
	return s.send("two_factor", to, code)
}

func (s *captureEmailSender) countKind(kind string) int {
	n := 0
	for _, e := range s.Emails {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

type testEnv struct {
	App     *ka.App
	Sender  *captureEmailSender
	Handler http.Handler
	Dir     string
}

// newTestEnv wires an App against filesystem stores in a temp directory.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tmpDir := t.TempDir()
	app := ka.New("TestApp",
		stores.NewFSUserStore(tmpDir),
		stores.NewFSAccountStore(tmpDir),
		stores.NewFSTokenStore(tmpDir),
		stores.NewFSConfirmationStore(tmpDir))
	sender := &captureEmailSender{}
	app.Email = sender
	return &testEnv{App: app, Sender: sender, Handler: app.Handler(), Dir: tmpDir}
}

func (e *testEnv) postJSON(t *testing.T, path string, body map[string]any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	e.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rr.Body.String(), err)
	}
	return out
}

// signup registers a user and returns the signup response.
func (e *testEnv) signup(t *testing.T, firstName, lastName, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	rr := e.postJSON(t, "/api/auth/signup", map[string]any{
		"firstName": firstName,
		"lastName":  lastName,
		"email":     email,
		"password":  password,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Signup failed with status %d: %s", rr.Code, rr.Body.String())
	}
	return rr
}

// verifyEmail consumes the live verification token for the address.
func (e *testEnv) verifyEmail(t *testing.T, email string) {
	t.Helper()
	token, err := e.App.Tokens.GetTokenByEmail(ka.TokenKindVerification, email)
	if err != nil {
		t.Fatalf("No verification token for %s: %v", email, err)
	}
	rr := e.postJSON(t, "/api/auth/verify-email", map[string]any{"token": token.Token})
	if rr.Code != http.StatusOK {
		t.Fatalf("Verification failed with status %d: %s", rr.Code, rr.Body.String())
	}
}

// login posts credentials and returns the response.
func (e *testEnv) login(t *testing.T, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	return e.postJSON(t, "/api/auth/login", map[string]any{
		"email":    email,
		"password": password,
	})
}

// authCookie pulls the minted auth token cookie out of a login response.
func (e *testEnv) authCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == e.App.AuthTokenSessionVar && c.Value != "" {
			return c
		}
	}
	t.Fatalf("No auth cookie in response; cookies: %v", rr.Result().Cookies())
	return nil
}
