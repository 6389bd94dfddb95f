package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// APIError is a non-2xx response from the auth API.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
	Field      string `json:"field,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// LoginResult reports the outcome of a login call.  When TwoFactorRequired
// is true no session was issued yet; call Login again with the emailed code.
type LoginResult struct {
	TwoFactorRequired bool   `json:"twoFactorRequired"`
	EmailSent         bool   `json:"emailSent"`
	RedirectTo        string `json:"redirectTo"`
	Message           string `json:"message"`
}

// AuthClient talks to a kraackauth server and keeps the session token in a
// CredentialStore between runs.
type AuthClient struct {
	mu         sync.Mutex
	serverURL  string
	store      CredentialStore
	httpClient *http.Client

	// AuthCookieName is the cookie the server sets at login.  Defaults to
	// "KraackAuthToken"; override when the server uses a different AppName.
	AuthCookieName string
}

// ClientOption configures an AuthClient.
type ClientOption func(*AuthClient)

// WithHTTPClient sets a custom base HTTP client (for timeouts, TLS config, ...).
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *AuthClient) {
		c.httpClient = httpClient
	}
}

// WithAuthCookieName overrides the cookie name the session token is read from.
func WithAuthCookieName(name string) ClientOption {
	return func(c *AuthClient) {
		c.AuthCookieName = name
	}
}

// NewAuthClient creates a client for a server.  Credentials are looked up
// and stored under the normalized server URL.
func NewAuthClient(serverURL string, store CredentialStore, opts ...ClientOption) *AuthClient {
	if u, err := url.Parse(serverURL); err == nil && u.Scheme != "" && u.Host != "" {
		serverURL = fmt.Sprintf("%s://%s", u.Scheme, u.Host)
	}
	c := &AuthClient{
		serverURL:      serverURL,
		store:          store,
		httpClient:     &http.Client{},
		AuthCookieName: "KraackAuthToken",
	}
	for _, opt := range opts {
		opt(c)
	}
	base := c.httpClient.Transport
	c.httpClient = &http.Client{
		Timeout:       c.httpClient.Timeout,
		CheckRedirect: c.httpClient.CheckRedirect,
		Jar:           c.httpClient.Jar,
		Transport:     &AuthTransport{Base: base, Token: c.currentToken},
	}
	return c
}

// ServerURL returns the server URL this client is configured for.
func (c *AuthClient) ServerURL() string {
	return c.serverURL
}

// HTTPClient returns an http.Client that attaches the session token to every
// request, for calling the application's own endpoints.
func (c *AuthClient) HTTPClient() *http.Client {
	return c.httpClient
}

// Token returns the stored session token, or empty when logged out.
func (c *AuthClient) Token() string {
	return c.currentToken()
}

func (c *AuthClient) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	cred, err := c.store.GetCredential(c.serverURL)
	if err != nil || cred == nil || cred.IsExpired() {
		return ""
	}
	return cred.AccessToken
}

// Signup registers a new account.  The server sends a verification email;
// the account cannot log in until the address is verified.
func (c *AuthClient) Signup(firstName, lastName, email, password string) error {
	_, _, err := c.post("/api/auth/signup", map[string]any{
		"firstName": firstName,
		"lastName":  lastName,
		"email":     email,
		"password":  password,
	})
	return err
}

// Login signs in with credentials.  Pass an empty code on the first attempt;
// if the account has two-factor enabled the result says so and the server
// emails a code for the second attempt.  On success the session token is
// stored.
func (c *AuthClient) Login(email, password, code string) (*LoginResult, error) {
	body := map[string]any{"email": email, "password": password}
	if code != "" {
		body["twoFactorCode"] = code
	}
	data, resp, err := c.post("/api/auth/login", body)
	if err != nil {
		return nil, err
	}

	var result LoginResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse login response: %w", err)
	}
	if result.TwoFactorRequired {
		return &result, nil
	}

	token := c.cookieValue(resp, c.AuthCookieName)
	if token == "" {
		return nil, fmt.Errorf("login succeeded but no %s cookie was set", c.AuthCookieName)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.SetCredential(c.serverURL, &ServerCredential{
		AccessToken: token,
		UserEmail:   strings.ToLower(strings.TrimSpace(email)),
		ExpiresAt:   time.Now().Add(24 * time.Hour),
		CreatedAt:   time.Now(),
	}); err != nil {
		return nil, err
	}
	if err := c.store.Save(); err != nil {
		return nil, err
	}
	return &result, nil
}

// VerifyEmail consumes a verification token from a signup or email-change
// email.
func (c *AuthClient) VerifyEmail(token string) error {
	_, _, err := c.post("/api/auth/verify-email", map[string]any{"token": token})
	return err
}

// RequestPasswordReset asks for a reset email.  The server answers the same
// way whether or not the account exists.
func (c *AuthClient) RequestPasswordReset(email string) error {
	_, _, err := c.post("/api/auth/reset-password", map[string]any{"email": email})
	return err
}

// CompletePasswordReset sets a new password using a token from the reset
// email.
func (c *AuthClient) CompletePasswordReset(token, newPassword string) error {
	_, _, err := c.post("/api/auth/new-password", map[string]any{
		"token": token, "password": newPassword,
	})
	return err
}

// UpdateSettings updates profile fields on the logged-in account.  Only the
// keys present in the map are sent.
func (c *AuthClient) UpdateSettings(settings map[string]any) error {
	_, _, err := c.post("/api/settings", settings)
	return err
}

// Logout ends the session on the server and drops the stored credential.
func (c *AuthClient) Logout() error {
	_, _, err := c.post("/api/auth/logout", map[string]any{})
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.RemoveCredential(c.serverURL); err != nil {
		return err
	}
	return c.store.Save()
}

func (c *AuthClient) post(path string, body map[string]any) ([]byte, *http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequest(http.MethodPost, c.serverURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp, err
	}
	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return data, resp, apiErr
	}
	return data, resp, nil
}

func (c *AuthClient) cookieValue(resp *http.Response, name string) string {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == name && cookie.Value != "" {
			return cookie.Value
		}
	}
	return ""
}
